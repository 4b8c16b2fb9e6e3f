// Package executor turns a captured action.Action back into browser
// effects during replay (C7): one function per action type, each
// optionally flashing the corresponding overlay hint first.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/overlay"
)

// selectorWaitTimeout bounds how long a "wait for selector" step blocks
// before an executor gives up (spec: 5s).
const selectorWaitTimeout = 5 * time.Second

// Driver is the subset of a browser session an executor needs. It is
// satisfied by *browserdrv.Session; kept as a local interface so
// executors can be tested against a fake.
type Driver interface {
	Evaluate(ctx context.Context, expression string) error
	EvaluateAwait(ctx context.Context, expression string) error
	EvaluateBool(ctx context.Context, expression string) (bool, error)
	DispatchMouseClick(ctx context.Context, x, y float64) error
	DispatchKeyPress(ctx context.Context, key, code string) error
}

// WindowResizer performs the browser-level window resize the
// browser_resize executor needs; satisfied by *rawcdp.Client.
type WindowResizer interface {
	Resize(ctx context.Context, targetID string, width, height int) error
}

// Executor dispatches Action values against a Driver.
type Executor struct {
	driver   Driver
	overlay  *overlay.Overlay
	resizer  WindowResizer
	targetID string
}

// New builds an Executor. resizer/targetID may be zero-valued; Execute then
// returns an error for every browser_resize action, including the initial
// one a recording starts with.
func New(driver Driver, ov *overlay.Overlay, resizer WindowResizer, targetID string) *Executor {
	return &Executor{driver: driver, overlay: ov, resizer: resizer, targetID: targetID}
}

// Execute runs a from a.Type and returns an error describing what went
// wrong. The caller (the replay loop) is responsible for mapping this
// into an envelope status code.
func (e *Executor) Execute(ctx context.Context, a action.Action) error {
	switch a.Type {
	case action.Click:
		return e.click(ctx, a)
	case action.Input:
		return e.input(ctx, a)
	case action.Change:
		return e.change(ctx, a)
	case action.Keydown:
		return e.keydown(ctx, a)
	case action.Scroll:
		return e.scroll(ctx, a)
	case action.BrowserResize:
		return e.browserResize(ctx, a)
	default:
		return fmt.Errorf("executor: unknown action type %q", a.Type)
	}
}

func (e *Executor) waitForSelector(ctx context.Context, selector string) error {
	waitCtx, cancel := context.WithTimeout(ctx, selectorWaitTimeout)
	defer cancel()

	expr := fmt.Sprintf("!!document.querySelector(%s)", jsString(selector))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := e.driver.EvaluateBool(waitCtx, expr)
		if err != nil {
			return fmt.Errorf("executor: wait for selector %q: %w", selector, err)
		}
		if ok {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("executor: timed out waiting for selector %q", selector)
		case <-ticker.C:
		}
	}
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
