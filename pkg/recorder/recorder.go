// Package recorder implements the Recorder state machine (C4): drive a
// browser tab, inject the capture script, and accumulate the actions and
// errors it reports into a Recording.
package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/webreplay/internal/browserdrv"
	"github.com/dgnsrekt/webreplay/internal/emitter"
	"github.com/dgnsrekt/webreplay/pkg/action"
	"github.com/dgnsrekt/webreplay/pkg/capturescript"
	"github.com/dgnsrekt/webreplay/pkg/envelope"
)

// Session is the subset of a browser session the Recorder drives.
// *browserdrv.Session satisfies this structurally.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string) error
	EvaluateOnNewDocument(ctx context.Context, expression string) error
	EvaluateJSON(ctx context.Context, expression string, out interface{}) error
	Close() error
}

// LaunchFunc starts a browser session and wires its event handlers. The
// default wraps browserdrv.Launch; tests substitute a fake.
type LaunchFunc func(ctx context.Context, opts browserdrv.LaunchOptions, handlers browserdrv.EventHandlers) (Session, error)

func defaultLaunch(ctx context.Context, opts browserdrv.LaunchOptions, handlers browserdrv.EventHandlers) (Session, error) {
	return browserdrv.Launch(ctx, opts, handlers)
}

// Options configures a Recorder. Mirrors spec.md §6's option set.
type Options struct {
	URL           string
	Type          string
	Stream        bool
	LaunchOptions browserdrv.LaunchOptions
	GotoTimeout   time.Duration

	// Launch overrides the browser-session constructor; nil uses
	// browserdrv.Launch. Exposed for tests.
	Launch LaunchFunc
}

func (o Options) withDefaults() Options {
	if o.Type == "" {
		o.Type = "web"
	}
	if o.GotoTimeout == 0 {
		o.GotoTimeout = 30 * time.Second
	}
	if o.Launch == nil {
		o.Launch = defaultLaunch
	}
	return o
}

// Recorder drives one browser tab through launch/record/stop/close and
// emits "action", "console-error", "stop", and "close" events.
type Recorder struct {
	opts Options

	mu      sync.Mutex
	state   State
	session Session

	emitter emitter.Emitter

	actions            []action.Action
	errs               []action.Error
	recordingStartTime int64
	recordingEndTime   int64
	injector           capturescript.Injector
	scriptInjectedOnce bool
}

// New validates opts and constructs a Recorder in state IDLE.
func New(opts Options) (*Recorder, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, envelope.NewError(envelope.CodeNoURLFound, "url is required", nil)
	}
	if strings.TrimSpace(opts.LaunchOptions.ExecutablePath) == "" {
		return nil, envelope.NewError(envelope.CodeLaunchFailed, "launchOptions.executablePath is required", nil)
	}
	return &Recorder{opts: opts.withDefaults(), state: StateIdle}, nil
}

// On registers a listener for "action", "console-error", "stop", or
// "close".
func (r *Recorder) On(event string, fn func(payload any)) {
	r.emitter.On(event, fn)
}

func (r *Recorder) getState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// checkpoint returns true if the caller should abort with
// ABORTED_BY_USER because close() was invoked mid-operation.
func (r *Recorder) checkpoint() bool {
	return r.getState() == StateClosing
}

// LaunchPage acquires a browser tab and navigates to the configured URL.
func (r *Recorder) LaunchPage(ctx context.Context) envelope.Envelope {
	if r.getState() != StateIdle {
		return envelope.Err(envelope.CodeAlreadyLaunched, "launchPage called outside IDLE state", nil)
	}
	r.setState(StateLaunching)

	handlers := browserdrv.EventHandlers{
		OnBindingCalled:  r.onBindingCalled,
		OnConsoleError:   r.onConsoleError,
		OnRequestFailed:  r.onRequestFailed,
		OnFrameNavigated: r.onFrameNavigated,
		OnDisconnected:   r.onDisconnected,
	}

	session, err := r.opts.Launch(ctx, r.opts.LaunchOptions, handlers)
	if r.checkpoint() {
		if session != nil {
			session.Close()
		}
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeAbortedByUser, "close() called during launchPage", nil)
	}
	if err != nil {
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeLaunchFailed, err.Error(), nil)
	}
	r.session = session
	r.injector.Reset()

	if err := session.Navigate(ctx, r.opts.URL, r.opts.GotoTimeout); err != nil {
		session.Close()
		r.session = nil
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeLaunchFailed, err.Error(), nil)
	}
	if r.checkpoint() {
		session.Close()
		r.session = nil
		r.setState(StateIdle)
		return envelope.Err(envelope.CodeAbortedByUser, "close() called during launchPage", nil)
	}

	r.setState(StateReady)
	return envelope.OK(nil)
}

// StartRecording clears buffers, pushes the initial browser_resize
// action, exposes the capture callback, and injects the capture script.
func (r *Recorder) StartRecording(ctx context.Context) envelope.Envelope {
	if r.getState() == StateRecording {
		return envelope.Err(envelope.CodeAlreadyRecording, "already recording", nil)
	}
	if r.getState() != StateReady {
		return envelope.Err(envelope.CodeNotRecording, "startRecording requires state READY", nil)
	}

	r.mu.Lock()
	r.actions = nil
	r.errs = nil
	r.recordingStartTime = nowMillis()
	r.recordingEndTime = 0
	r.mu.Unlock()

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := r.session.EvaluateJSON(ctx, "({width: window.outerWidth, height: window.outerHeight})", &dims); err != nil {
		return r.startFailure(err)
	}
	r.appendAction(action.NewBrowserResize(nowMillis(), dims.Width, dims.Height, dims.Width, dims.Height))

	if err := r.session.Evaluate(ctx, exposeBindingFallbackJS); err != nil && !isAlreadyExposedErr(err) {
		return r.startFailure(err)
	}

	if err := r.injector.Inject(ctx, sessionScriptAdapter{r.session}); err != nil {
		return r.startFailure(err)
	}
	r.scriptInjectedOnce = true

	r.setState(StateRecording)
	return envelope.OK(nil)
}

func (r *Recorder) startFailure(err error) envelope.Envelope {
	if browserdrv.IsTargetClosedErr(err) {
		r.setState(StateReady)
		return envelope.Err(envelope.CodeAbortedByUser, err.Error(), nil)
	}
	r.setState(StateReady)
	return envelope.Err(envelope.CodeRecordingStartFailed, err.Error(), nil)
}

// exposeBindingFallbackJS does not expose anything itself: the actual
// runtime.AddBinding call happens once at Session construction
// (browserdrv.Launch), matching the spec's note that exposeFunction is
// tolerated to fail if the name already exists. This evaluate is a
// liveness check that throws when the binding is not reachable from the
// current document.
const exposeBindingFallbackJS = `(function(){ if (typeof window.__webreplayEmitAction !== "function") { throw new Error("binding not available"); } })();`

func isAlreadyExposedErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already")
}

// sessionScriptAdapter adapts Session to capturescript.Evaluator.
type sessionScriptAdapter struct{ s Session }

func (a sessionScriptAdapter) Evaluate(ctx context.Context, expression string) error {
	return a.s.Evaluate(ctx, expression)
}
func (a sessionScriptAdapter) EvaluateOnNewDocument(ctx context.Context, expression string) error {
	return a.s.EvaluateOnNewDocument(ctx, expression)
}

// StopRecording finalizes the current recording and returns to READY.
func (r *Recorder) StopRecording(ctx context.Context) envelope.Envelope {
	if r.getState() != StateRecording {
		return envelope.Err(envelope.CodeNotRecording, "stopRecording requires state RECORDING", nil)
	}
	r.mu.Lock()
	r.recordingEndTime = nowMillis()
	r.mu.Unlock()

	r.finalize()
	r.emitter.Emit("stop", r.snapshotRecording())
	r.setState(StateReady)
	return envelope.OK(nil)
}

func (r *Recorder) finalize() {
	if r.opts.Stream {
		return
	}
	r.mu.Lock()
	acts := append([]action.Action(nil), r.actions...)
	errs := append([]action.Error(nil), r.errs...)
	r.mu.Unlock()
	r.emitter.Emit("action", acts)
	if len(errs) > 0 {
		r.emitter.Emit("console-error", errs)
	}
}

// Metadata is the pure accessor payload for GetMetadata.
type Metadata struct {
	Type               string `json:"type"`
	URL                string `json:"url"`
	RecordingStartTime int64  `json:"recordingStartTime"`
	RecordingEndTime   int64  `json:"recordingEndTime,omitempty"`
	DurationMs         int64  `json:"durationMs,omitempty"`
	Duration           string `json:"duration,omitempty"`
}

// GetMetadata returns the current recording's metadata.
func (r *Recorder) GetMetadata() envelope.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := Metadata{
		Type:               r.opts.Type,
		URL:                r.opts.URL,
		RecordingStartTime: r.recordingStartTime,
	}
	if r.recordingEndTime > 0 {
		m.RecordingEndTime = r.recordingEndTime
		m.DurationMs = r.recordingEndTime - r.recordingStartTime
		m.Duration = action.FormatDuration(m.DurationMs)
	}
	return envelope.OK(m)
}

// snapshotRecording builds the final action.Recording value.
func (r *Recorder) snapshotRecording() action.Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return action.Recording{
		Type:               r.opts.Type,
		URL:                r.opts.URL,
		RecordingStartTime: r.recordingStartTime,
		RecordingEndTime:   r.recordingEndTime,
		DurationMs:         r.recordingEndTime - r.recordingStartTime,
		Duration:           action.FormatDuration(r.recordingEndTime - r.recordingStartTime),
		Actions:            append([]action.Action(nil), r.actions...),
		Errors:             append([]action.Error(nil), r.errs...),
	}
}

// Close tears the browser down from any non-IDLE/CLOSING state.
func (r *Recorder) Close() envelope.Envelope {
	state := r.getState()
	if state == StateIdle || state == StateClosing {
		return envelope.OK(nil)
	}
	r.setState(StateClosing)

	if r.session != nil {
		if err := r.session.Close(); err != nil {
			slog.Warn("recorder: close session failed", "error", err)
		}
		r.session = nil
	}

	r.emitter.Emit("close", nil)
	r.emitter.RemoveAll()
	r.setState(StateIdle)
	return envelope.OK(nil)
}

func (r *Recorder) appendAction(a action.Action) {
	r.mu.Lock()
	r.actions = append(r.actions, a)
	r.mu.Unlock()
	if r.opts.Stream {
		r.emitter.Emit("action", a)
	}
}

func (r *Recorder) appendError(e action.Error) {
	r.mu.Lock()
	r.errs = append(r.errs, e)
	r.mu.Unlock()
	if r.opts.Stream {
		r.emitter.Emit("console-error", e)
	}
}

func (r *Recorder) onBindingCalled(payload string) {
	if r.getState() != StateRecording {
		return
	}
	var a action.Action
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		slog.Debug("recorder: dropping malformed action payload", "error", err)
		return
	}
	r.appendAction(a)
}

func (r *Recorder) onConsoleError(text, stack string) {
	if r.getState() != StateRecording {
		return
	}
	msg := text
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	r.appendError(action.Error{
		Type:      action.BrowserConsoleError,
		Message:   msg,
		Timestamp: nowMillis(),
		Stack:     stack,
	})
}

func (r *Recorder) onRequestFailed(url, method, errorText string) {
	if r.getState() != StateRecording {
		return
	}
	if strings.Contains(errorText, "net::ERR_ABORTED") {
		return
	}
	r.appendError(action.Error{
		Type:      action.RequestError,
		Message:   errorText,
		Timestamp: nowMillis(),
		URL:       url,
		Method:    method,
	})
}

func (r *Recorder) onFrameNavigated(url string) {
	if r.getState() != StateRecording || !r.scriptInjectedOnce {
		return
	}
	ctx := context.Background()
	if err := r.session.Evaluate(ctx, capturescript.Source()); err != nil {
		slog.Debug("recorder: re-inject capture script failed", "error", err)
	}
}

func (r *Recorder) onDisconnected() {
	state := r.getState()
	if state == StateIdle || state == StateClosing {
		return
	}
	if state == StateRecording {
		r.mu.Lock()
		r.recordingEndTime = nowMillis()
		r.mu.Unlock()

		r.finalize()
		r.emitter.Emit("stop", r.snapshotRecording())
	}
	r.setState(StateIdle)
	r.emitter.Emit("close", nil)
	r.emitter.RemoveAll()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
