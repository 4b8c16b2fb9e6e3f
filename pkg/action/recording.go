package action

import (
	"fmt"
	"sort"
)

// ErrorType discriminates the tagged Error record.
type ErrorType string

const (
	BrowserConsoleError ErrorType = "BROWSER_CONSOLE_ERROR"
	RequestError        ErrorType = "REQUEST_ERROR"
)

// Error is one diagnostic captured alongside the action stream. Stack is
// populated for BROWSER_CONSOLE_ERROR entries built from an Error-like
// console argument; URL/Method are REQUEST_ERROR fields and are left empty
// when the source does not report them (the browserdrv session never does).
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
	Stack     string    `json:"stack,omitempty"`
	URL       string    `json:"url,omitempty"`
	Method    string    `json:"method,omitempty"`
}

// Recording is the complete captured session, as produced by Recorder and
// consumed by Replayer.
type Recording struct {
	Type               string  `json:"type"`
	URL                string  `json:"url"`
	RecordingStartTime int64   `json:"recordingStartTime"`
	RecordingEndTime   int64   `json:"recordingEndTime"`
	DurationMs         int64   `json:"durationMs"`
	Duration           string  `json:"duration"`
	Actions            []Action `json:"actions"`
	Errors             []Error  `json:"errors"`
}

// FormatDuration renders a millisecond duration as "{h}h {m}m {s}s",
// omitting higher-order zero units (e.g. "5m 3s", never "0h 5m 3s"; "3s"
// when under a minute; "0s" for a zero duration).
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// SortByTimestamp sorts actions in place, satisfying invariant (i). The
// sort is stable so actions captured in the same millisecond keep their
// original emission order.
func SortByTimestamp(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Timestamp < actions[j].Timestamp
	})
}

// ValidationError describes a single invariant violation found by Validate.
type ValidationError struct {
	Index   int
	Message string
}

func (v ValidationError) Error() string {
	if v.Index < 0 {
		return v.Message
	}
	return fmt.Sprintf("action[%d]: %s", v.Index, v.Message)
}

// Validate checks a Recording against the invariants in the data model:
// timestamp ordering, an initial same-size browser_resize action,
// recordingEndTime >= recordingStartTime >= first action timestamp, and
// selectionStart <= selectionEnd when both are present.
func Validate(r Recording) []error {
	var errs []error

	if len(r.Actions) == 0 {
		errs = append(errs, ValidationError{Index: -1, Message: "recording has no actions"})
		return errs
	}

	first := r.Actions[0]
	if first.Type != BrowserResize {
		errs = append(errs, ValidationError{Index: 0, Message: "first action must be browser_resize"})
	} else if first.FromWidth == nil || first.ToWidth == nil || *first.FromWidth != *first.ToWidth ||
		first.FromHeight == nil || first.ToHeight == nil || *first.FromHeight != *first.ToHeight {
		errs = append(errs, ValidationError{Index: 0, Message: "initial browser_resize must have equal from/to dimensions"})
	}

	for i := 1; i < len(r.Actions); i++ {
		if r.Actions[i].Timestamp < r.Actions[i-1].Timestamp {
			errs = append(errs, ValidationError{Index: i, Message: "timestamps are not sorted"})
		}
	}

	for i, a := range r.Actions {
		if a.SelectionStart != nil && a.SelectionEnd != nil && *a.SelectionStart > *a.SelectionEnd {
			errs = append(errs, ValidationError{Index: i, Message: "selectionStart > selectionEnd"})
		}
	}

	if r.RecordingEndTime < r.RecordingStartTime {
		errs = append(errs, ValidationError{Index: -1, Message: "recordingEndTime before recordingStartTime"})
	}
	if r.RecordingStartTime < first.Timestamp {
		errs = append(errs, ValidationError{Index: -1, Message: "recordingStartTime before first action timestamp"})
	}

	return errs
}
