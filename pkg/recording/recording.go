// Package recording provides the JSON wire format for handing a
// action.Recording from a Recorder's output to a Replayer's input, per the
// spec's "Recording wire format: JSON" note. It intentionally does not
// define any on-disk project/session layout — only the value's own encoding.
package recording

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// Encode writes r to w as JSON.
func Encode(w io.Writer, r action.Recording) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("recording: encode: %w", err)
	}
	return nil
}

// Decode reads a Recording from r and validates it against the data model
// invariants, returning the first violation found (if any) alongside the
// parsed value. Callers that only need best-effort parsing can ignore a
// non-nil error whose type is not a *json.SyntaxError/UnmarshalTypeError.
func Decode(r io.Reader) (action.Recording, error) {
	var rec action.Recording
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rec); err != nil {
		return action.Recording{}, fmt.Errorf("recording: decode: %w", err)
	}
	if errs := action.Validate(rec); len(errs) > 0 {
		return rec, fmt.Errorf("recording: invalid: %w", errs[0])
	}
	return rec, nil
}

// Marshal is a convenience wrapper around Encode for callers that want a
// []byte rather than a stream.
func Marshal(r action.Recording) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("recording: marshal: %w", err)
	}
	return b, nil
}

// Unmarshal is a convenience wrapper around Decode for callers that
// already hold the bytes.
func Unmarshal(b []byte) (action.Recording, error) {
	var rec action.Recording
	if err := json.Unmarshal(b, &rec); err != nil {
		return action.Recording{}, fmt.Errorf("recording: unmarshal: %w", err)
	}
	if errs := action.Validate(rec); len(errs) > 0 {
		return rec, fmt.Errorf("recording: invalid: %w", errs[0])
	}
	return rec, nil
}
