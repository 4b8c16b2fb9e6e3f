// Package httpapi is the webreplayd control-plane daemon's HTTP surface:
// a chi router plus huma-typed handlers wrapping session-scoped Recorder
// and Replayer instances, adapted from the same chi/huma layering the
// rest of the codebase this module is drawn from uses for its own
// controller daemons.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/webreplay/pkg/envelope"
)

// NewServer builds the webreplayd HTTP control plane.
func NewServer() http.Handler {
	reg := newRegistry()

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("webreplay control plane", "1.0.0")
	api := humachi.New(router, cfg)

	registerRecordHandlers(router, api, reg)
	registerReplayHandlers(api, reg)
	registerSessionHandlers(api, reg)

	return router
}

// mapErr translates a Recorder/Replayer constructor failure into an HTTP
// status. Once a session exists, its operations report success/failure
// through the envelope embedded in the response body instead, since the
// request itself was handled correctly either way.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *envelope.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case envelope.CodeNoURLFound, envelope.CodeInvalidData:
			return huma.Error400BadRequest(coded.Message)
		case envelope.CodeLaunchFailed:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
