// Package action defines the canonical action/recording/error schema
// exchanged between the Recorder, the Replayer, and their callers.
package action

// Type discriminates the tagged Action record.
type Type string

const (
	Click         Type = "click"
	Input         Type = "input"
	Change        Type = "change"
	Keydown       Type = "keydown"
	Scroll        Type = "scroll"
	BrowserResize Type = "browser_resize"
)

// Action is a tagged record for one captured user gesture. Every variant
// carries Timestamp; the remaining fields are populated according to Type
// and left zero/nil otherwise. Coordinates are CSS pixels relative to the
// viewport at capture time.
type Action struct {
	Type      Type  `json:"type"`
	Timestamp int64 `json:"timestamp"`

	// click, input, change, keydown, scroll
	Selector string `json:"selector,omitempty"`

	// click
	X       *int  `json:"x,omitempty"`
	Y       *int  `json:"y,omitempty"`
	Checked *bool `json:"checked,omitempty"`

	// input, change
	Value          *string `json:"value,omitempty"`
	SelectionStart *int    `json:"selectionStart,omitempty"`
	SelectionEnd   *int    `json:"selectionEnd,omitempty"`

	// keydown
	Key string `json:"key,omitempty"`

	// scroll
	StartScrollX *int `json:"startScrollX,omitempty"`
	StartScrollY *int `json:"startScrollY,omitempty"`
	ScrollX      *int `json:"scrollX,omitempty"`
	ScrollY      *int `json:"scrollY,omitempty"`
	Duration     *int `json:"duration,omitempty"`

	// browser_resize
	FromWidth  *int `json:"fromWidth,omitempty"`
	FromHeight *int `json:"fromHeight,omitempty"`
	ToWidth    *int `json:"toWidth,omitempty"`
	ToHeight   *int `json:"toHeight,omitempty"`
}

// WindowSelector is the sentinel selector value used for scroll actions
// whose target was the document/window rather than a specific element.
const WindowSelector = "window"

// IsCheckedClick reports whether a click action carries checkbox/radio
// semantics. Per invariant (v), Checked takes precedence over X/Y on
// replay when both are present.
func (a Action) IsCheckedClick() bool {
	return a.Type == Click && a.Checked != nil
}

// IsCoordinateClick reports whether a click should be replayed as a
// synthetic mouse click at (X,Y) rather than a checkbox toggle or a plain
// selector click.
func (a Action) IsCoordinateClick() bool {
	return a.Type == Click && a.Checked == nil && a.X != nil && a.Y != nil
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

// NewClick builds a click action. Pass checked=nil for a plain click,
// or a non-nil value when the target was a checkbox/radio.
func NewClick(ts int64, selector string, x, y int, checked *bool) Action {
	return Action{
		Type:      Click,
		Timestamp: ts,
		Selector:  selector,
		X:         intPtr(x),
		Y:         intPtr(y),
		Checked:   checked,
	}
}

// NewInput builds an input action. selStart/selEnd may be nil when the
// element is not a text-like input/textarea.
func NewInput(ts int64, selector, value string, selStart, selEnd *int) Action {
	return Action{
		Type:           Input,
		Timestamp:      ts,
		Selector:       selector,
		Value:          strPtr(value),
		SelectionStart: selStart,
		SelectionEnd:   selEnd,
	}
}

// NewChangeChecked builds a change action for a checkbox/radio target.
func NewChangeChecked(ts int64, selector string, checked bool) Action {
	return Action{Type: Change, Timestamp: ts, Selector: selector, Checked: boolPtr(checked)}
}

// NewChangeValue builds a change action for any other target.
func NewChangeValue(ts int64, selector, value string) Action {
	return Action{Type: Change, Timestamp: ts, Selector: selector, Value: strPtr(value)}
}

// NewKeydown builds a keydown action. key is used as given; it should
// already be normalized by the caller (the capture script turns " " into
// "Space" before it ever reaches Go).
func NewKeydown(ts int64, selector, key string) Action {
	return Action{Type: Keydown, Timestamp: ts, Selector: selector, Key: key}
}

// NewScroll builds a scroll action for either "window" or a selected
// element, with the debounced burst's start/end position and duration.
func NewScroll(ts int64, selector string, startX, startY, x, y, durationMs int) Action {
	return Action{
		Type:         Scroll,
		Timestamp:    ts,
		Selector:     selector,
		StartScrollX: intPtr(startX),
		StartScrollY: intPtr(startY),
		ScrollX:      intPtr(x),
		ScrollY:      intPtr(y),
		Duration:     intPtr(durationMs),
	}
}

// NewBrowserResize builds a browser_resize action. The first action of
// every recording uses fromWidth==toWidth and fromHeight==toHeight to
// capture the initial outer window size (invariant ii).
func NewBrowserResize(ts int64, fromW, fromH, toW, toH int) Action {
	return Action{
		Type:       BrowserResize,
		Timestamp:  ts,
		FromWidth:  intPtr(fromW),
		FromHeight: intPtr(fromH),
		ToWidth:    intPtr(toW),
		ToHeight:   intPtr(toH),
	}
}
