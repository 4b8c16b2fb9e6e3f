// Package overlay drives the in-page replay overlay (C3): a small DOM
// widget, injected as a literal JavaScript resource, that surfaces replay
// progress to a human watching the tab. Every method here is best-effort:
// failures are swallowed because visual effects must never break the
// functional replay flow (spec.md §7).
package overlay

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
)

//go:embed overlay.js
var source string

// Evaluator is the subset of a browser driver session the overlay needs:
// a single "run this JS in the current document" primitive. Re-injection
// after navigation is the caller's responsibility (spec.md §4.3: "must be
// called after every main-frame navigation before further hints").
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) error
}

// Overlay wraps an Evaluator and exposes one Go method per hint operation
// the core is allowed to invoke on the overlay widget.
type Overlay struct {
	ev      Evaluator
	enabled bool
}

// New constructs an Overlay. When enabled is false every method is a no-op
// and never touches the page, matching the visualEffects:false option.
func New(ev Evaluator, enabled bool) *Overlay {
	return &Overlay{ev: ev, enabled: enabled}
}

// Source returns the overlay widget's JavaScript source.
func Source() string { return source }

func (o *Overlay) run(ctx context.Context, expr string) {
	if !o.enabled {
		return
	}
	guarded := "(function(){try{if(window.__webreplayOverlay){" + expr + "}}catch(e){}})()"
	if err := o.ev.Evaluate(ctx, guarded); err != nil {
		slog.Debug("overlay: eval failed, swallowed", "error", err)
	}
}

// Inject installs the overlay widget into the current document. Idempotent
// via the in-page __webreplayOverlayInstalled marker; safe to call after
// every main-frame navigation.
func (o *Overlay) Inject(ctx context.Context) {
	if !o.enabled {
		return
	}
	if err := o.ev.Evaluate(ctx, source); err != nil {
		slog.Debug("overlay: inject failed, swallowed", "error", err)
	}
}

// ShowReplayIndicator shows the persistent "replaying" banner.
func (o *Overlay) ShowReplayIndicator(ctx context.Context) {
	o.run(ctx, "window.__webreplayOverlay.showReplayIndicator();")
}

// HideReplayIndicator hides the persistent "replaying" banner.
func (o *Overlay) HideReplayIndicator(ctx context.Context) {
	o.run(ctx, "window.__webreplayOverlay.hideReplayIndicator();")
}

// ShowClick flashes a click hint at (x,y) near the target selector.
func (o *Overlay) ShowClick(ctx context.Context, selector string, x, y int) {
	o.run(ctx, fmt.Sprintf("window.__webreplayOverlay.showClick(%s,%d,%d);", jsString(selector), x, y))
}

// ShowInput flashes an input hint with the value being typed.
func (o *Overlay) ShowInput(ctx context.Context, selector, value string) {
	o.run(ctx, fmt.Sprintf("window.__webreplayOverlay.showInput(%s,%s);", jsString(selector), jsString(value)))
}

// ShowKeyPress flashes a key-press hint.
func (o *Overlay) ShowKeyPress(ctx context.Context, key string) {
	o.run(ctx, fmt.Sprintf("window.__webreplayOverlay.showKeyPress(%s);", jsString(key)))
}

// ShowScroll flashes a scroll hint for the given target.
func (o *Overlay) ShowScroll(ctx context.Context, selector string) {
	o.run(ctx, fmt.Sprintf("window.__webreplayOverlay.showScroll(%s);", jsString(selector)))
}

// ShowBrowserResize flashes a window-resize hint.
func (o *Overlay) ShowBrowserResize(ctx context.Context, fromW, fromH, toW, toH int) {
	o.run(ctx, fmt.Sprintf("window.__webreplayOverlay.showBrowserResize(%d,%d,%d,%d);", fromW, fromH, toW, toH))
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
