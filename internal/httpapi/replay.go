package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
	"github.com/dgnsrekt/webreplay/pkg/replayer"
)

type startReplayInput struct {
	Body struct {
		URL                   string           `json:"url" required:"true"`
		Type                  string           `json:"type,omitempty"`
		LaunchOptions         launchOptionsDTO `json:"launchOptions"`
		GotoOptions           *gotoOptionsDTO  `json:"gotoOptions,omitempty"`
		BusyIndicatorSelector string           `json:"busyIndicatorSelector,omitempty"`
		BusyTimeoutMS         int              `json:"busyTimeoutMs,omitempty"`
		VisualEffects         *bool            `json:"visualEffects,omitempty"`
		Recording             action.Recording `json:"recording" required:"true"`
	}
}

type startReplayOutput struct {
	Body struct {
		SessionID string            `json:"sessionId,omitempty"`
		Envelope  envelope.Envelope `json:"envelope"`
	}
}

func registerReplayHandlers(api huma.API, reg *registry) {
	huma.Register(api, huma.Operation{
		OperationID: "play-recording",
		Method:      http.MethodPost,
		Path:        "/sessions/replay",
		Summary:     "Launch a page and replay a recording against it",
		Tags:        []string{"Replay"},
	}, func(ctx context.Context, input *startReplayInput) (*startReplayOutput, error) {
		opts := replayer.Defaults()
		opts.URL = input.Body.URL
		opts.Type = input.Body.Type
		opts.LaunchOptions = input.Body.LaunchOptions.toDomain()
		opts.GotoTimeout = input.Body.GotoOptions.timeout()
		opts.BusyIndicatorSelector = input.Body.BusyIndicatorSelector
		if input.Body.BusyTimeoutMS > 0 {
			opts.BusyTimeout = time.Duration(input.Body.BusyTimeoutMS) * time.Millisecond
		}
		if input.Body.VisualEffects != nil {
			opts.VisualEffects = *input.Body.VisualEffects
		}

		if errs := action.Validate(input.Body.Recording); len(errs) > 0 {
			return nil, huma.Error400BadRequest("invalid recording", errs...)
		}

		rep, err := replayer.New(opts)
		if err != nil {
			return nil, mapErr(err)
		}

		sess := reg.putReplayer(rep)
		rep.On("close", func(any) { reg.delete(sess.id) })

		out := &startReplayOutput{}
		out.Body.SessionID = sess.id

		env := rep.LaunchPage(ctx)
		if env.RETCD == envelope.RetSuccess {
			env = rep.Play(ctx, input.Body.Recording)
		}
		out.Body.Envelope = env
		return out, nil
	})
}
