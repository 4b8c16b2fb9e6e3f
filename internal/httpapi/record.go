package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
	"github.com/dgnsrekt/webreplay/pkg/recorder"
)

type startRecordInput struct {
	Body struct {
		URL           string           `json:"url" required:"true"`
		Type          string           `json:"type,omitempty"`
		Stream        bool             `json:"stream,omitempty"`
		LaunchOptions launchOptionsDTO `json:"launchOptions"`
		GotoOptions   *gotoOptionsDTO  `json:"gotoOptions,omitempty"`
	}
}

type startRecordOutput struct {
	Body struct {
		SessionID string            `json:"sessionId,omitempty"`
		Envelope  envelope.Envelope `json:"envelope"`
	}
}

type stopRecordInput struct {
	ID string `path:"id"`
}

type stopRecordOutput struct {
	Body struct {
		Envelope  envelope.Envelope `json:"envelope"`
		Recording *action.Recording `json:"recording,omitempty"`
	}
}

func registerRecordHandlers(router chi.Router, api huma.API, reg *registry) {
	huma.Register(api, huma.Operation{
		OperationID: "start-recording",
		Method:      http.MethodPost,
		Path:        "/sessions/record",
		Summary:     "Launch a page and start recording it",
		Tags:        []string{"Recording"},
	}, func(ctx context.Context, input *startRecordInput) (*startRecordOutput, error) {
		opts := recorder.Options{
			URL:           input.Body.URL,
			Type:          input.Body.Type,
			Stream:        input.Body.Stream,
			LaunchOptions: input.Body.LaunchOptions.toDomain(),
			GotoTimeout:   input.Body.GotoOptions.timeout(),
		}
		rec, err := recorder.New(opts)
		if err != nil {
			return nil, mapErr(err)
		}

		sess := reg.putRecorder(rec, input.Body.Stream)
		rec.On("action", func(payload any) { sess.publish("action", payload) })
		rec.On("console-error", func(payload any) { sess.publish("console-error", payload) })
		rec.On("stop", func(payload any) {
			if r, ok := payload.(action.Recording); ok {
				sess.setLastRecording(r)
			}
			sess.publish("stop", payload)
		})
		rec.On("close", func(any) { reg.delete(sess.id) })

		out := &startRecordOutput{}
		out.Body.SessionID = sess.id

		env := rec.LaunchPage(ctx)
		if env.RETCD == envelope.RetSuccess {
			env = rec.StartRecording(ctx)
		}
		out.Body.Envelope = env
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stop-recording",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/record/stop",
		Summary:     "Stop an in-progress recording",
		Tags:        []string{"Recording"},
	}, func(ctx context.Context, input *stopRecordInput) (*stopRecordOutput, error) {
		sess, ok := reg.get(input.ID)
		if !ok || sess.kind != kindRecord {
			return nil, huma.Error404NotFound(fmt.Sprintf("no recording session %q", input.ID))
		}
		out := &stopRecordOutput{}
		out.Body.Envelope = sess.recorder.StopRecording(ctx)
		if out.Body.Envelope.RETCD == envelope.RetSuccess && !sess.stream {
			out.Body.Recording = sess.getLastRecording()
		}
		return out, nil
	})

	router.Get("/sessions/{id}/record/stream", sseHandler(reg))
}

func sseHandler(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, ok := reg.get(id)
		if !ok || sess.kind != kindRecord || sess.broker == nil {
			http.Error(w, "no streamable recording session with that id", http.StatusNotFound)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		subID, ch := sess.broker.subscribe()
		defer sess.broker.unsubscribe(subID)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Feed, evt.Payload)
				flusher.Flush()
			}
		}
	}
}
