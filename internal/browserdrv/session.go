package browserdrv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// EventHandlers are the callbacks a Session dispatches browser events to.
// Every field is optional; nil handlers are simply not called. All
// handlers run on the chromedp event-dispatch goroutine and must not
// block. OnRequestFailed is fed from Network.loadingFailed and always
// receives empty url and method; only errorText is filled in.
type EventHandlers struct {
	OnBindingCalled  func(payload string)
	OnConsoleError   func(text string, stack string)
	OnRequestFailed  func(url, method, errorText string)
	OnFrameNavigated func(url string)
	OnDisconnected   func()
}

// Session wraps a single attached browser tab: one chromedp allocator, one
// target, one set of enabled CDP domains. Recorder and Replayer each own
// exactly one Session for the lifetime of a launched page.
type Session struct {
	launcher *launcher

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	targetID target.ID

	handlers EventHandlers

	mu     sync.Mutex
	closed bool
}

// bindingName is the CDP runtime binding used as the host-callback
// equivalent to a page-level exposeFunction: the capture script calls
// window.__webreplayEmitAction(json), which the browser turns into a
// Runtime.bindingCalled event on this session's tab.
const bindingName = "__webreplayEmitAction"

// Launch spawns a browser process per opts, attaches to its first page
// target, enables the CDP domains the recorder/replayer need, and wires
// event dispatch to handlers. The returned Session must be closed with
// Close.
func Launch(ctx context.Context, opts LaunchOptions, handlers EventHandlers) (*Session, error) {
	l := newLauncher(opts)
	if err := l.launch(ctx); err != nil {
		return nil, err
	}

	s := &Session{launcher: l, handlers: handlers}

	s.allocCtx, s.allocCancel = chromedp.NewRemoteAllocator(context.Background(), l.cdpURL())

	tabCtx, tabCancel := chromedp.NewContext(s.allocCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		s.allocCancel()
		l.stop()
		return nil, fmt.Errorf("browserdrv: attach to target: %w", err)
	}
	s.tabCtx, s.tabCancel = tabCtx, tabCancel
	s.targetID = chromedp.FromContext(tabCtx).Target.TargetID

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		page.Enable(),
		runtime.Enable(),
		runtime.AddBinding(bindingName),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("browserdrv: enable CDP domains: %w", err)
	}

	chromedp.ListenTarget(tabCtx, s.dispatch)

	slog.Info("browserdrv: session attached", "target_id", s.targetID, "cdp_port", l.cdpPort)
	return s, nil
}

func (s *Session) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case *runtime.EventBindingCalled:
		if e.Name != bindingName {
			return
		}
		if s.handlers.OnBindingCalled != nil {
			s.handlers.OnBindingCalled(e.Payload)
		}
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError || s.handlers.OnConsoleError == nil {
			return
		}
		text := consoleArgsToText(e.Args)
		s.handlers.OnConsoleError(text, "")
	case *runtime.EventExceptionThrown:
		if s.handlers.OnConsoleError == nil {
			return
		}
		stack := ""
		if e.ExceptionDetails != nil && e.ExceptionDetails.StackTrace != nil {
			stack = formatStackTrace(e.ExceptionDetails.StackTrace)
		}
		msg := ""
		if e.ExceptionDetails != nil {
			msg = e.ExceptionDetails.Text
		}
		s.handlers.OnConsoleError(msg, stack)
	case *network.EventLoadingFailed:
		if s.handlers.OnRequestFailed == nil {
			return
		}
		s.handlers.OnRequestFailed("", "", e.ErrorText)
	case *page.EventFrameNavigated:
		if e.Frame.ParentID != "" || s.handlers.OnFrameNavigated == nil {
			return
		}
		s.handlers.OnFrameNavigated(e.Frame.URL)
	case *target.EventDetachedFromTarget:
		if s.handlers.OnDisconnected != nil {
			s.handlers.OnDisconnected()
		}
	}
}

func consoleArgsToText(args []*runtime.RemoteObject) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		if a.Value != nil {
			var v interface{}
			if err := json.Unmarshal(a.Value, &v); err == nil {
				if s, ok := v.(string); ok {
					out += s
					continue
				}
			}
			out += string(a.Value)
			continue
		}
		out += a.Description
	}
	return out
}

func formatStackTrace(st *runtime.StackTrace) string {
	out := ""
	for _, frame := range st.CallFrames {
		out += fmt.Sprintf("%s (%s:%d:%d)\n", frame.FunctionName, frame.URL, frame.LineNumber, frame.ColumnNumber)
	}
	return out
}

// Navigate loads url in the tab and waits for the load event or the
// timeout, whichever comes first.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(navCtx, chromedp.Navigate(url))
}

// Reload re-navigates the tab to its current URL.
func (s *Session) Reload(ctx context.Context, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(navCtx, chromedp.Reload())
}

// Evaluate runs expression in the page's main world and discards the
// result. Implements capturescript.Evaluator and overlay.Evaluator.
func (s *Session) Evaluate(ctx context.Context, expression string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exp, err := runtime.Evaluate(expression).Do(ctx)
		if exp != nil {
			return fmt.Errorf("browserdrv: evaluate: %s", exp.Text)
		}
		return err
	}))
}

// EvaluateJSON runs expression and unmarshals its JSON-serializable
// result into out.
func (s *Session) EvaluateJSON(ctx context.Context, expression string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exp, err := runtime.Evaluate(expression).WithReturnByValue(true).Do(ctx)
		if exp != nil {
			return fmt.Errorf("browserdrv: evaluate json: %s", exp.Text)
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(res.Value, out)
	}))
}

// EvaluateAwait runs expression in the page and awaits its promise result,
// used for animated actions like the scroll executor's requestAnimationFrame
// loop.
func (s *Session) EvaluateAwait(ctx context.Context, expression string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exp, err := runtime.Evaluate(expression).WithAwaitPromise(true).Do(ctx)
		if exp != nil {
			return fmt.Errorf("browserdrv: evaluate (await): %s", exp.Text)
		}
		return err
	}))
}

// EvaluateBool runs expression and coerces its result to a bool, used by
// the busy-indicator poller.
func (s *Session) EvaluateBool(ctx context.Context, expression string) (bool, error) {
	var result bool
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exp, err := runtime.Evaluate(expression).WithReturnByValue(true).Do(ctx)
		if exp != nil {
			return fmt.Errorf("browserdrv: evaluate bool: %s", exp.Text)
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(res.Value, &result)
	}))
	return result, err
}

// DispatchMouseClick sends a trusted mousePressed+mouseReleased pair at
// (x,y), used by the click executor's coordinate-click path.
func (s *Session) DispatchMouseClick(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
}

// DispatchKeyPress sends a trusted keyDown+keyUp pair for a named key,
// used by the keydown executor.
func (s *Session) DispatchKeyPress(ctx context.Context, key, code string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchKeyEvent(input.KeyDown).
			WithKey(key).WithCode(code).Do(ctx); err != nil {
			return err
		}
		return input.DispatchKeyEvent(input.KeyUp).
			WithKey(key).WithCode(code).Do(ctx)
	}))
}

// EvaluateOnNewDocument registers expression to run before any script in
// every future document load on this tab. Implements
// capturescript.Evaluator.
func (s *Session) EvaluateOnNewDocument(ctx context.Context, expression string) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(expression).Do(ctx)
		return err
	}))
}

// Screenshot captures the current viewport as a PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

// IsTargetClosedErr reports whether err signals that the tab or browser
// went away mid-operation, the condition the state machines map to
// BROWSER_CLOSED/ABORTED_BY_USER rather than a generic failure.
func IsTargetClosedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"target closed", "no such target", "context canceled", "session closed", "websocket: close"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// TargetID returns the CDP target id of the attached tab, needed by the
// rawcdp client for browser-level window bounds calls.
func (s *Session) TargetID() target.ID {
	return s.targetID
}

// TargetIDString is TargetID as a plain string, for callers (like
// pkg/executor) that only need it as an opaque resizer key.
func (s *Session) TargetIDString() string {
	return string(s.targetID)
}

// CDPURL returns the browser's HTTP CDP endpoint.
func (s *Session) CDPURL() string {
	return s.launcher.cdpURL()
}

// Close tears down the tab context, the allocator, and the browser
// process. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.launcher.stop()
	slog.Info("browserdrv: session closed", "target_id", s.targetID)
	return nil
}
