// Package capturescript holds the in-page capture listener set (C2) as a
// compiled-in literal JavaScript resource, plus the Go-side helper that
// injects it idempotently into every document a Recorder's tab loads.
package capturescript

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed capture.js
var source string

// CallbackName is the name of the host-exposed function the in-page script
// calls with each captured action, JSON-encoded.
const CallbackName = "__webreplayEmitAction"

// Source returns the capture script's JavaScript source.
func Source() string {
	return source
}

// Evaluator is the subset of a browser driver session the capture script
// needs to install itself: evaluate now, in the current document, and
// register for evaluation again on every future document the tab loads.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) error
	EvaluateOnNewDocument(ctx context.Context, expression string) error
}

// Injector idempotently installs the capture script into a tab. Per
// spec.md §4.4, evaluateOnNewDocument-equivalent registration happens
// once per tab lifecycle (guarded by injected), while the immediate
// evaluation for the already-loaded document happens on every call to
// Inject (a no-op past the first call, thanks to the in-page
// __webreplayCaptureInstalled marker in capture.js).
type Injector struct {
	injected bool
}

// Inject evaluates the capture script in the current document and, on the
// first call only, registers it to run again on every future navigation.
func (i *Injector) Inject(ctx context.Context, ev Evaluator) error {
	if err := ev.Evaluate(ctx, source); err != nil {
		return fmt.Errorf("capturescript: evaluate: %w", err)
	}
	if i.injected {
		return nil
	}
	if err := ev.EvaluateOnNewDocument(ctx, source); err != nil {
		return fmt.Errorf("capturescript: evaluate on new document: %w", err)
	}
	i.injected = true
	return nil
}

// Reset clears the one-shot registration flag, used when a Recorder tears
// down and later restarts a new tab lifecycle.
func (i *Injector) Reset() {
	i.injected = false
}
