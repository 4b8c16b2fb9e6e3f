package recorder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dgnsrekt/webreplay/internal/browserdrv"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
)

type fakeSession struct {
	navigateErr error
	evalErr     error
	closed      bool
	jsonResult  string
}

func (f *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return f.navigateErr
}
func (f *fakeSession) Evaluate(ctx context.Context, expression string) error { return f.evalErr }
func (f *fakeSession) EvaluateOnNewDocument(ctx context.Context, expression string) error {
	return f.evalErr
}
func (f *fakeSession) EvaluateJSON(ctx context.Context, expression string, out interface{}) error {
	s := f.jsonResult
	if s == "" {
		s = `{"width":1280,"height":800}`
	}
	return json.Unmarshal([]byte(s), out)
}
func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func validOpts(launch LaunchFunc) Options {
	return Options{
		URL:  "https://example.com",
		Type: "web",
		LaunchOptions: browserdrv.LaunchOptions{
			ExecutablePath: "/usr/bin/fake-browser",
		},
		Stream: true,
		Launch: launch,
	}
}

func TestNewRejectsMissingURL(t *testing.T) {
	_, err := New(Options{LaunchOptions: browserdrv.LaunchOptions{ExecutablePath: "/x"}})
	if !envelope.Is(err, envelope.CodeNoURLFound) {
		t.Fatalf("got %v, want NO_URL_FOUND", err)
	}
}

func TestNewRejectsMissingExecutablePath(t *testing.T) {
	_, err := New(Options{URL: "https://example.com"})
	if !envelope.Is(err, envelope.CodeLaunchFailed) {
		t.Fatalf("got %v, want LAUNCH_FAILED", err)
	}
}

func TestLaunchPageTransitionsToReady(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, err := New(validOpts(launch))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env := rec.LaunchPage(context.Background())
	if env.RETCD != envelope.RetSuccess {
		t.Fatalf("LaunchPage failed: %+v", env)
	}
	if rec.getState() != StateReady {
		t.Fatalf("state = %s, want READY", rec.getState())
	}
}

func TestLaunchPageWhileNotIdleReturnsAlreadyLaunched(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())

	env := rec.LaunchPage(context.Background())
	if !envelope.Is(errorOf(env), envelope.CodeAlreadyLaunched) {
		t.Fatalf("got %+v, want ALREADY_LAUNCHED", env)
	}
}

func TestStartRecordingRequiresReady(t *testing.T) {
	rec, _ := New(validOpts(nil))
	env := rec.StartRecording(context.Background())
	if !envelope.Is(errorOf(env), envelope.CodeNotRecording) {
		t.Fatalf("got %+v, want NOT_RECORDING", env)
	}
}

func TestStartRecordingTwiceReturnsAlreadyRecording(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())
	if env := rec.StartRecording(context.Background()); env.RETCD != envelope.RetSuccess {
		t.Fatalf("first StartRecording failed: %+v", env)
	}
	env := rec.StartRecording(context.Background())
	if !envelope.Is(errorOf(env), envelope.CodeAlreadyRecording) {
		t.Fatalf("got %+v, want ALREADY_RECORDING", env)
	}
}

func TestStartRecordingPushesInitialResize(t *testing.T) {
	fs := &fakeSession{jsonResult: `{"width":1024,"height":768}`}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())
	rec.StartRecording(context.Background())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.actions) != 1 {
		t.Fatalf("got %d actions, want 1 initial resize", len(rec.actions))
	}
	a := rec.actions[0]
	if a.ToWidth == nil || *a.ToWidth != 1024 || a.FromWidth == nil || *a.FromWidth != *a.ToWidth {
		t.Fatalf("unexpected initial resize action: %+v", a)
	}
}

func TestStopRecordingFinalizesAndReturnsReady(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())
	rec.StartRecording(context.Background())

	stopped := false
	rec.On("stop", func(any) { stopped = true })

	env := rec.StopRecording(context.Background())
	if env.RETCD != envelope.RetSuccess {
		t.Fatalf("StopRecording failed: %+v", env)
	}
	if !stopped {
		t.Fatalf("expected a stop event")
	}
	if rec.getState() != StateReady {
		t.Fatalf("state = %s, want READY", rec.getState())
	}
}

func TestCloseDuringLaunchAbortsWithAbortedByUser(t *testing.T) {
	var rec *Recorder
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		// Simulate a concurrent close() landing while launchPage is
		// awaiting the browser to come up.
		rec.setState(StateClosing)
		return &fakeSession{}, nil
	}
	var err error
	rec, err = New(validOpts(launch))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	env := rec.LaunchPage(context.Background())
	if !envelope.Is(errorOf(env), envelope.CodeAbortedByUser) {
		t.Fatalf("got %+v, want ABORTED_BY_USER", env)
	}
	if rec.getState() != StateIdle {
		t.Fatalf("state = %s, want IDLE after aborted launch", rec.getState())
	}
}

func TestOnDisconnectedDuringRecordingFinalizesAndCloses(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())
	rec.StartRecording(context.Background())

	var stopFired, closeFired bool
	rec.On("stop", func(any) { stopFired = true })
	rec.On("close", func(any) { closeFired = true })

	rec.onDisconnected()

	if !stopFired || !closeFired {
		t.Fatalf("expected both stop and close events, got stop=%v close=%v", stopFired, closeFired)
	}
	if rec.getState() != StateIdle {
		t.Fatalf("state = %s, want IDLE", rec.getState())
	}
}

func TestOnRequestFailedFiltersAbortedErrors(t *testing.T) {
	fs := &fakeSession{}
	launch := func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
		return fs, nil
	}
	rec, _ := New(validOpts(launch))
	rec.LaunchPage(context.Background())
	rec.StartRecording(context.Background())

	rec.onRequestFailed("https://x.test", "GET", "net::ERR_ABORTED")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errs) != 0 {
		t.Fatalf("expected ERR_ABORTED to be filtered, got %d errors", len(rec.errs))
	}
}

func errorOf(env envelope.Envelope) error {
	if env.RETCD == envelope.RetSuccess {
		return nil
	}
	return envelope.NewError(env.STCOD, env.MSGTX, nil)
}
