package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/webreplay/pkg/envelope"
)

type sessionIDInput struct {
	ID string `path:"id"`
}

type sessionEnvelopeOutput struct {
	Body envelope.Envelope
}

func registerSessionHandlers(api huma.API, reg *registry) {
	huma.Register(api, huma.Operation{
		OperationID: "get-session-metadata",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Fetch a recording session's metadata",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionEnvelopeOutput, error) {
		sess, ok := reg.get(input.ID)
		if !ok || sess.kind != kindRecord {
			return nil, huma.Error404NotFound(fmt.Sprintf("no recording session %q", input.ID))
		}
		return &sessionEnvelopeOutput{Body: sess.recorder.GetMetadata()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-session",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/close",
		Summary:     "Tear down a recording or replay session",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *sessionIDInput) (*sessionEnvelopeOutput, error) {
		sess, ok := reg.get(input.ID)
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("no session %q", input.ID))
		}
		var env envelope.Envelope
		switch sess.kind {
		case kindRecord:
			env = sess.recorder.Close()
		case kindReplay:
			env = sess.replayer.Close()
		}
		reg.delete(sess.id)
		return &sessionEnvelopeOutput{Body: env}, nil
	})
}
