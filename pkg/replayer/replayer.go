// Package replayer implements the Replayer state machine (C5): drive a
// browser tab through a previously captured Recording, pacing dispatch
// with the busy-indicator waiter (C6) and the executors (C7).
package replayer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/webreplay/internal/browserdrv"
	"github.com/dgnsrekt/webreplay/internal/emitter"
	"github.com/dgnsrekt/webreplay/internal/rawcdp"
	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
	"github.com/dgnsrekt/webreplay/pkg/executor"
	"github.com/dgnsrekt/webreplay/pkg/overlay"
)

// Session is the subset of a browser session the Replayer drives.
// *browserdrv.Session satisfies this structurally.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Reload(ctx context.Context, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string) error
	EvaluateAwait(ctx context.Context, expression string) error
	EvaluateBool(ctx context.Context, expression string) (bool, error)
	DispatchMouseClick(ctx context.Context, x, y float64) error
	DispatchKeyPress(ctx context.Context, key, code string) error
	Screenshot(ctx context.Context) ([]byte, error)
	TargetIDString() string
	CDPURL() string
	Close() error
}

// LaunchFunc starts a browser session and wires its event handlers.
type LaunchFunc func(ctx context.Context, opts browserdrv.LaunchOptions, handlers browserdrv.EventHandlers) (Session, error)

func defaultLaunch(ctx context.Context, opts browserdrv.LaunchOptions, handlers browserdrv.EventHandlers) (Session, error) {
	return browserdrv.Launch(ctx, opts, handlers)
}

// ResizerFunc builds the window resizer used by the browser_resize
// executor from a session's CDP endpoint. Overridable for tests.
type ResizerFunc func(ctx context.Context, cdpURL string) (executor.WindowResizer, error)

func defaultResizer(ctx context.Context, cdpURL string) (executor.WindowResizer, error) {
	c := rawcdp.New(cdpURL)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures a Replayer. Mirrors spec.md §6's option set.
type Options struct {
	URL                   string
	Type                  string
	LaunchOptions         browserdrv.LaunchOptions
	GotoTimeout           time.Duration
	BusyIndicatorSelector string
	BusyTimeout           time.Duration
	VisualEffects         bool

	Launch  LaunchFunc
	Resizer ResizerFunc
}

func (o Options) withDefaults() Options {
	if o.Type == "" {
		o.Type = "web"
	}
	if o.GotoTimeout == 0 {
		o.GotoTimeout = 30 * time.Second
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = 5 * time.Minute
	}
	if o.Launch == nil {
		o.Launch = defaultLaunch
	}
	if o.Resizer == nil {
		o.Resizer = defaultResizer
	}
	// VisualEffects is left as given: a zero-valued Options has it false.
	// Callers that want it on by default start from Defaults().
	return o
}

// Defaults returns Options with VisualEffects true and all other fields
// zero, the base a caller should start from before overriding URL etc.
func Defaults() Options {
	return Options{VisualEffects: true}
}

// Replayer drives one browser tab through launch/play/stop/close and
// emits "action", "console-error", "finish", and "close" events.
type Replayer struct {
	opts Options

	mu      sync.Mutex
	state   State
	session Session
	overlay *overlay.Overlay
	exec    *executor.Executor

	emitter emitter.Emitter

	consoleErrors []action.Error
	playing       bool
}

// New validates opts and constructs a Replayer in state IDLE.
func New(opts Options) (*Replayer, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, envelope.NewError(envelope.CodeNoURLFound, "url is required", nil)
	}
	if strings.TrimSpace(opts.LaunchOptions.ExecutablePath) == "" {
		return nil, envelope.NewError(envelope.CodeLaunchFailed, "launchOptions.executablePath is required", nil)
	}
	return &Replayer{opts: opts.withDefaults(), state: StateIdle}, nil
}

// On registers a listener for "action", "console-error", "finish", or
// "close".
func (r *Replayer) On(event string, fn func(payload any)) {
	r.emitter.On(event, fn)
}

func (r *Replayer) getState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Replayer) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// LaunchPage acquires a browser tab, navigates to the configured URL, and
// injects the overlay.
func (r *Replayer) LaunchPage(ctx context.Context) envelope.Envelope {
	if r.getState() != StateIdle {
		return envelope.Err(envelope.CodeAlreadyLaunched, "launchPage called outside IDLE state", nil)
	}
	r.setState(StateLaunching)

	handlers := browserdrv.EventHandlers{
		OnConsoleError:   r.onConsoleError,
		OnRequestFailed:  r.onRequestFailed,
		OnFrameNavigated: r.onFrameNavigated,
		OnDisconnected:   r.onDisconnected,
	}

	session, err := r.opts.Launch(ctx, r.opts.LaunchOptions, handlers)
	if r.getState() == StateClosing {
		if session != nil {
			session.Close()
		}
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeBrowserClosed, "close() called during launchPage", nil)
	}
	if err != nil {
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeLaunchFailed, err.Error(), nil)
	}
	r.session = session
	r.overlay = overlay.New(session, r.opts.VisualEffects)
	r.exec = nil // built lazily once a resizer is available

	if err := session.Navigate(ctx, r.opts.URL, r.opts.GotoTimeout); err != nil {
		session.Close()
		r.session = nil
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeLaunchFailed, err.Error(), nil)
	}
	if r.getState() == StateClosing {
		session.Close()
		r.session = nil
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeBrowserClosed, "close() called during launchPage", nil)
	}

	r.overlay.Inject(ctx)
	r.setState(StateLaunched)
	return envelope.OK(nil)
}

// ReloadPage reloads the current page and re-injects the overlay.
func (r *Replayer) ReloadPage(ctx context.Context) envelope.Envelope {
	if r.session == nil {
		return envelope.Err(envelope.CodeNoPageFound, "no page has been launched", nil)
	}
	if err := r.session.Reload(ctx, r.opts.GotoTimeout); err != nil {
		return envelope.Err(envelope.CodeActionFailed, err.Error(), nil)
	}
	r.overlay.Inject(ctx)
	return envelope.OK(nil)
}

// ScreenshotOptions configures CaptureScreen.
type ScreenshotOptions struct {
	Path string
}

// CaptureScreen screenshots the current page as PNG. If options.Path is
// set the image is written there and the path is returned instead of
// the binary payload.
func (r *Replayer) CaptureScreen(ctx context.Context, opts ScreenshotOptions) envelope.Envelope {
	if r.session == nil {
		return envelope.Err(envelope.CodeNoPageFound, "no page has been launched", nil)
	}
	data, err := r.session.Screenshot(ctx)
	if err != nil {
		return envelope.Err(envelope.CodeActionFailed, err.Error(), nil)
	}
	if opts.Path == "" {
		return envelope.OK(data)
	}
	if err := writeFile(opts.Path, data); err != nil {
		return envelope.Err(envelope.CodeActionFailed, err.Error(), nil)
	}
	return envelope.OK(opts.Path)
}

func (r *Replayer) ensureExecutor(ctx context.Context) *executor.Executor {
	if r.exec != nil {
		return r.exec
	}
	var resizer executor.WindowResizer
	if rz, err := r.opts.Resizer(ctx, r.session.CDPURL()); err == nil {
		resizer = rz
	} else {
		slog.Debug("replayer: window resizer unavailable", "error", err)
	}
	r.exec = executor.New(r.session, r.overlay, resizer, r.session.TargetIDString())
	return r.exec
}

// PlayResult is the RDATA payload returned on both success and failure.
type PlayResult struct {
	ConsoleErrors []action.Error `json:"consoleErrors"`
}

// Play replays recordData's actions with the timing algorithm from
// spec.md §4.5. Valid only in LAUNCHED.
func (r *Replayer) Play(ctx context.Context, rec action.Recording) envelope.Envelope {
	if r.getState() != StateLaunched {
		return envelope.Err(envelope.CodeNoPageFound, "play requires state LAUNCHED", nil)
	}
	if rec.Actions == nil {
		return envelope.Err(envelope.CodeInvalidData, "recordData.actions must be an array", nil)
	}

	r.mu.Lock()
	r.consoleErrors = nil
	r.mu.Unlock()

	exec := r.ensureExecutor(ctx)
	r.setState(StatePlaying)
	r.overlay.Inject(ctx)
	r.overlay.ShowReplayIndicator(ctx)

	err := r.runLoop(ctx, exec, rec)

	r.overlay.HideReplayIndicator(ctx)

	result := PlayResult{ConsoleErrors: r.snapshotErrors()}

	if err != nil {
		code := classifyReplayError(err)
		if code == envelope.CodeBrowserClosed {
			r.setState(StateIdle)
		} else {
			r.setState(StateLaunched)
		}
		return envelope.Err(code, err.Error(), result)
	}

	r.emitter.Emit("finish", result)
	r.setState(StateLaunched)
	return envelope.OK(result)
}

func (r *Replayer) runLoop(ctx context.Context, exec *executor.Executor, rec action.Recording) error {
	var timeOffset int64

	for i, a := range rec.Actions {
		state := r.getState()
		if state == StateClosing || state == StateIdle {
			return codedErr(envelope.CodeBrowserClosed, "browser closed mid-replay")
		}
		if state != StatePlaying {
			return codedErr(envelope.CodeReplayStopped, "replay stopped")
		}

		if err := executor.WaitForIdle(ctx, r.session, r.opts.BusyIndicatorSelector, r.opts.BusyTimeout); err != nil {
			if envelope.Is(err, envelope.CodeBusyTimeout) {
				return err
			}
			if browserdrv.IsTargetClosedErr(err) {
				return codedErr(envelope.CodeBrowserClosed, err.Error())
			}
			return codedErr(envelope.CodeActionFailed, fmt.Sprintf("step %d: %s", i, err))
		}

		executionStart := time.Now()
		if err := exec.Execute(ctx, a); err != nil {
			if browserdrv.IsTargetClosedErr(err) {
				return codedErr(envelope.CodeBrowserClosed, err.Error())
			}
			return codedErr(envelope.CodeActionFailed, fmt.Sprintf("step %d: %s", i, err))
		}
		r.emitter.Emit("action", a)
		executionTime := time.Since(executionStart).Milliseconds()

		if i < len(rec.Actions)-1 {
			delay := rec.Actions[i+1].Timestamp - a.Timestamp
			timeOffset += executionTime
			waitTime := delay - timeOffset
			if waitTime < 0 {
				waitTime = 0
			}
			timeOffset -= delay
			if timeOffset < 0 {
				timeOffset = 0
			}
			sleep(ctx, time.Duration(waitTime)*time.Millisecond)
		} else if rec.RecordingEndTime > 0 {
			finalDelay := rec.RecordingEndTime - a.Timestamp
			timeOffset += executionTime
			waitTime := finalDelay - timeOffset
			if waitTime < 0 {
				waitTime = 0
			}
			timeOffset -= finalDelay
			if timeOffset < 0 {
				timeOffset = 0
			}
			sleep(ctx, time.Duration(waitTime)*time.Millisecond)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func codedErr(code, msg string) error {
	return envelope.NewError(code, msg, nil)
}

func classifyReplayError(err error) string {
	if envelope.Is(err, envelope.CodeBusyTimeout) {
		return envelope.CodeBusyTimeout
	}
	if envelope.Is(err, envelope.CodeBrowserClosed) {
		return envelope.CodeBrowserClosed
	}
	if envelope.Is(err, envelope.CodeReplayStopped) {
		return envelope.CodeReplayStopped
	}
	return envelope.CodeActionFailed
}

// Stop halts an in-progress replay at the next loop boundary.
func (r *Replayer) Stop() envelope.Envelope {
	if r.getState() != StatePlaying {
		return envelope.Err(envelope.CodeNotPlaying, "stop requires state PLAYING", nil)
	}
	r.setState(StateLaunched)
	return envelope.OK(nil)
}

// Close tears the browser down from any non-IDLE/CLOSING state.
func (r *Replayer) Close() envelope.Envelope {
	state := r.getState()
	if state == StateIdle || state == StateClosing {
		return envelope.OK(nil)
	}
	r.setState(StateClosing)

	if r.session != nil {
		if err := r.session.Close(); err != nil {
			slog.Warn("replayer: close session failed", "error", err)
		}
		r.session = nil
	}

	r.emitter.Emit("close", nil)
	r.emitter.RemoveAll()
	r.setState(StateIdle)
	return envelope.OK(nil)
}

func (r *Replayer) snapshotErrors() []action.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]action.Error(nil), r.consoleErrors...)
}

func (r *Replayer) appendError(e action.Error) {
	r.mu.Lock()
	r.consoleErrors = append(r.consoleErrors, e)
	r.mu.Unlock()
	r.emitter.Emit("console-error", e)
}

func (r *Replayer) onConsoleError(text, stack string) {
	msg := text
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	r.appendError(action.Error{
		Type:      action.BrowserConsoleError,
		Message:   msg,
		Timestamp: time.Now().UnixMilli(),
		Stack:     stack,
	})
}

func (r *Replayer) onRequestFailed(url, method, errorText string) {
	if strings.Contains(errorText, "net::ERR_ABORTED") {
		return
	}
	r.appendError(action.Error{
		Type:      action.RequestError,
		Message:   errorText,
		Timestamp: time.Now().UnixMilli(),
		URL:       url,
		Method:    method,
	})
}

func (r *Replayer) onFrameNavigated(url string) {
	if r.overlay == nil {
		return
	}
	ctx := context.Background()
	r.overlay.Inject(ctx)
	if r.getState() == StatePlaying {
		r.overlay.ShowReplayIndicator(ctx)
	}
}

func (r *Replayer) onDisconnected() {
	state := r.getState()
	if state == StateIdle || state == StateClosing {
		return
	}
	r.setState(StateIdle)
	r.emitter.Emit("close", nil)
	r.emitter.RemoveAll()
}
