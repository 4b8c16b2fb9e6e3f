package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
	"github.com/dgnsrekt/webreplay/pkg/overlay"
)

type fakeDriver struct {
	evalCalls      []string
	awaitCalls     []string
	boolResults    []bool
	boolErr        error
	mouseClicks    [][2]float64
	keyPresses     [][2]string
	evalErr        error
}

func (f *fakeDriver) Evaluate(ctx context.Context, expr string) error {
	f.evalCalls = append(f.evalCalls, expr)
	return f.evalErr
}

func (f *fakeDriver) EvaluateAwait(ctx context.Context, expr string) error {
	f.awaitCalls = append(f.awaitCalls, expr)
	return f.evalErr
}

func (f *fakeDriver) EvaluateBool(ctx context.Context, expr string) (bool, error) {
	if f.boolErr != nil {
		return false, f.boolErr
	}
	if len(f.boolResults) == 0 {
		return false, nil
	}
	v := f.boolResults[0]
	f.boolResults = f.boolResults[1:]
	return v, nil
}

func (f *fakeDriver) DispatchMouseClick(ctx context.Context, x, y float64) error {
	f.mouseClicks = append(f.mouseClicks, [2]float64{x, y})
	return nil
}

func (f *fakeDriver) DispatchKeyPress(ctx context.Context, key, code string) error {
	f.keyPresses = append(f.keyPresses, [2]string{key, code})
	return nil
}

type fakeResizer struct {
	targetID string
	width    int
	height   int
	called   bool
}

func (f *fakeResizer) Resize(ctx context.Context, targetID string, width, height int) error {
	f.called = true
	f.targetID = targetID
	f.width, f.height = width, height
	return nil
}

func newTestExecutor(d Driver, r WindowResizer) *Executor {
	return New(d, overlay.New(&noopOverlayEvaluator{}, false), r, "target-1")
}

type noopOverlayEvaluator struct{}

func (noopOverlayEvaluator) Evaluate(ctx context.Context, expression string) error { return nil }

func TestExecuteCheckedClickSetsCheckedProperty(t *testing.T) {
	fd := &fakeDriver{boolResults: []bool{true}}
	ex := newTestExecutor(fd, nil)
	checked := true
	a := action.NewClick(1, "#cb", 5, 5, &checked)

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.evalCalls) != 1 {
		t.Fatalf("got %d eval calls, want 1", len(fd.evalCalls))
	}
	if !strings.Contains(fd.evalCalls[0], "el.checked = true") {
		t.Fatalf("eval = %q, want checked assignment", fd.evalCalls[0])
	}
}

func TestExecuteCoordinateClickDispatchesMouseEvent(t *testing.T) {
	fd := &fakeDriver{}
	ex := newTestExecutor(fd, nil)
	a := action.NewClick(1, "#btn", 10, 20, nil)

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.mouseClicks) != 1 || fd.mouseClicks[0] != [2]float64{10, 20} {
		t.Fatalf("got mouse clicks %v, want one at (10,20)", fd.mouseClicks)
	}
}

func TestExecutePlainClickWaitsThenClicks(t *testing.T) {
	fd := &fakeDriver{boolResults: []bool{true}}
	ex := newTestExecutor(fd, nil)
	a := action.Action{Type: action.Click, Selector: "#link"}

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.evalCalls) != 1 || !strings.Contains(fd.evalCalls[0], "el.click()") {
		t.Fatalf("eval calls = %v, want a click() call", fd.evalCalls)
	}
}

func TestExecuteClickTimesOutWhenSelectorNeverAppears(t *testing.T) {
	fd := &fakeDriver{}
	ex := newTestExecutor(fd, nil)
	a := action.Action{Type: action.Click, Selector: "#missing"}

	start := time.Now()
	err := ex.Execute(context.Background(), a)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 6*time.Second {
		t.Fatalf("wait exceeded expected 5s bound")
	}
}

func TestExecuteInputSetsValueAndSelection(t *testing.T) {
	fd := &fakeDriver{boolResults: []bool{true}}
	ex := newTestExecutor(fd, nil)
	start, end := 1, 3
	a := action.NewInput(1, "#name", "alice", &start, &end)

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(fd.evalCalls[0], "setSelectionRange") {
		t.Fatalf("expected setSelectionRange in %q", fd.evalCalls[0])
	}
}

func TestExecuteKeydownNormalizesSpace(t *testing.T) {
	fd := &fakeDriver{}
	ex := newTestExecutor(fd, nil)
	a := action.NewKeydown(1, "body", "Space")

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.keyPresses) != 1 || fd.keyPresses[0][0] != " " {
		t.Fatalf("got %v, want a space key press", fd.keyPresses)
	}
}

func TestExecuteScrollAwaitsAnimation(t *testing.T) {
	fd := &fakeDriver{}
	ex := newTestExecutor(fd, nil)
	a := action.NewScroll(1, action.WindowSelector, 0, 0, 100, 200, 300)

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fd.awaitCalls) != 1 {
		t.Fatalf("got %d await calls, want 1", len(fd.awaitCalls))
	}
}

func TestExecuteBrowserResizeCallsResizer(t *testing.T) {
	fd := &fakeDriver{}
	fr := &fakeResizer{}
	ex := newTestExecutor(fd, fr)
	a := action.NewBrowserResize(1, 800, 600, 1024, 768)

	if err := ex.Execute(context.Background(), a); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !fr.called || fr.width != 1024 || fr.height != 768 || fr.targetID != "target-1" {
		t.Fatalf("resizer not called correctly: %+v", fr)
	}
}

func TestExecuteBrowserResizeWithoutResizerErrors(t *testing.T) {
	fd := &fakeDriver{}
	ex := newTestExecutor(fd, nil)
	a := action.NewBrowserResize(1, 800, 600, 1024, 768)

	if err := ex.Execute(context.Background(), a); err == nil {
		t.Fatalf("expected error when no resizer configured")
	}
}

func TestWaitForIdleResolvesImmediatelyWithNoSelectors(t *testing.T) {
	fd := &fakeDriver{}
	if err := WaitForIdle(context.Background(), fd, "", time.Second); err != nil {
		t.Fatalf("WaitForIdle: %v", err)
	}
}

func TestWaitForIdleReturnsBusyTimeout(t *testing.T) {
	fd := &fakeDriver{boolResults: []bool{true, true, true, true, true, true}}
	err := WaitForIdle(context.Background(), fd, "#spinner", 50*time.Millisecond)
	if err == nil {
		t.Fatalf("expected busy timeout error")
	}
	if !envelope.Is(err, envelope.CodeBusyTimeout) {
		t.Fatalf("got %v, want a CodeBusyTimeout error", err)
	}
}

func TestWaitForIdlePropagatesEvalError(t *testing.T) {
	fd := &fakeDriver{boolErr: errors.New("target closed")}
	err := WaitForIdle(context.Background(), fd, "#spinner", time.Second)
	if err == nil {
		t.Fatalf("expected error")
	}
}
