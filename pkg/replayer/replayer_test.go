package replayer

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/webreplay/internal/browserdrv"
	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
	"github.com/dgnsrekt/webreplay/pkg/executor"
)

type fakeSession struct {
	navigateErr error
	boolResults []bool
	clicks      int
	closed      bool
}

func (f *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return f.navigateErr
}
func (f *fakeSession) Reload(ctx context.Context, timeout time.Duration) error { return nil }
func (f *fakeSession) Evaluate(ctx context.Context, expression string) error   { return nil }
func (f *fakeSession) EvaluateAwait(ctx context.Context, expression string) error {
	return nil
}
func (f *fakeSession) EvaluateBool(ctx context.Context, expression string) (bool, error) {
	if len(f.boolResults) == 0 {
		return false, nil
	}
	v := f.boolResults[0]
	f.boolResults = f.boolResults[1:]
	return v, nil
}
func (f *fakeSession) DispatchMouseClick(ctx context.Context, x, y float64) error {
	f.clicks++
	return nil
}
func (f *fakeSession) DispatchKeyPress(ctx context.Context, key, code string) error { return nil }
func (f *fakeSession) Screenshot(ctx context.Context) ([]byte, error)              { return []byte("png"), nil }
func (f *fakeSession) TargetIDString() string                                      { return "t1" }
func (f *fakeSession) CDPURL() string                                              { return "http://127.0.0.1:1" }
func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func noResizer(ctx context.Context, cdpURL string) (executor.WindowResizer, error) {
	return nil, nil
}

func validOpts(fs *fakeSession) Options {
	return Options{
		URL:  "https://example.com",
		Type: "web",
		LaunchOptions: browserdrv.LaunchOptions{
			ExecutablePath: "/usr/bin/fake-browser",
		},
		VisualEffects: false,
		Launch: func(ctx context.Context, opts browserdrv.LaunchOptions, h browserdrv.EventHandlers) (Session, error) {
			return fs, nil
		},
		Resizer: noResizer,
	}
}

func TestLaunchPageTransitionsToLaunched(t *testing.T) {
	rep, err := New(validOpts(&fakeSession{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env := rep.LaunchPage(context.Background())
	if env.RETCD != envelope.RetSuccess {
		t.Fatalf("LaunchPage failed: %+v", env)
	}
	if rep.getState() != StateLaunched {
		t.Fatalf("state = %s, want LAUNCHED", rep.getState())
	}
}

func TestPlayRequiresLaunched(t *testing.T) {
	rep, _ := New(validOpts(&fakeSession{}))
	env := rep.Play(context.Background(), action.Recording{Actions: []action.Action{}})
	if env.RETCD != envelope.RetError || env.STCOD != envelope.CodeNoPageFound {
		t.Fatalf("got %+v, want NO_PAGE_FOUND", env)
	}
}

func TestPlayRejectsNilActions(t *testing.T) {
	rep, _ := New(validOpts(&fakeSession{}))
	rep.LaunchPage(context.Background())
	env := rep.Play(context.Background(), action.Recording{})
	if env.STCOD != envelope.CodeInvalidData {
		t.Fatalf("got %+v, want INVALID_DATA", env)
	}
}

func TestPlaySimpleRecordingSucceeds(t *testing.T) {
	fs := &fakeSession{}
	rep, _ := New(validOpts(fs))
	rep.LaunchPage(context.Background())

	finished := false
	rep.On("finish", func(any) { finished = true })

	rec := action.Recording{
		Actions: []action.Action{
			action.NewClick(0, "#a", 1, 2, nil),
			action.NewClick(5, "#b", 3, 4, nil),
		},
	}
	env := rep.Play(context.Background(), rec)
	if env.RETCD != envelope.RetSuccess {
		t.Fatalf("Play failed: %+v", env)
	}
	if !finished {
		t.Fatalf("expected finish event")
	}
	if fs.clicks != 2 {
		t.Fatalf("got %d clicks, want 2", fs.clicks)
	}
	if rep.getState() != StateLaunched {
		t.Fatalf("state = %s, want LAUNCHED", rep.getState())
	}
}

func TestStopDuringPlayHaltsLoop(t *testing.T) {
	fs := &fakeSession{}
	rep, _ := New(validOpts(fs))
	rep.LaunchPage(context.Background())

	rec := action.Recording{
		Actions: []action.Action{
			action.NewClick(0, "#a", 1, 2, nil),
			action.NewClick(200, "#b", 3, 4, nil),
		},
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		rep.Stop()
	}()

	env := rep.Play(context.Background(), rec)
	if env.STCOD != envelope.CodeReplayStopped {
		t.Fatalf("got %+v, want REPLAY_STOPPED", env)
	}
}

func TestStopWhenNotPlayingReturnsNotPlaying(t *testing.T) {
	rep, _ := New(validOpts(&fakeSession{}))
	env := rep.Stop()
	if env.STCOD != envelope.CodeNotPlaying {
		t.Fatalf("got %+v, want NOT_PLAYING", env)
	}
}

func TestCloseTearsDownSession(t *testing.T) {
	fs := &fakeSession{}
	rep, _ := New(validOpts(fs))
	rep.LaunchPage(context.Background())

	closed := false
	rep.On("close", func(any) { closed = true })

	env := rep.Close()
	if env.RETCD != envelope.RetSuccess {
		t.Fatalf("Close failed: %+v", env)
	}
	if !fs.closed || !closed {
		t.Fatalf("expected session closed and close event fired")
	}
	if rep.getState() != StateIdle {
		t.Fatalf("state = %s, want IDLE", rep.getState())
	}
}
