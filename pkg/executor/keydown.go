package executor

import (
	"context"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// keyCodes maps the capture script's KEY_WHITELIST values to their CDP
// "code" field, mirroring the standard DOM UI Events code values for the
// same whitelist.
var keyCodes = map[string]string{
	"Enter":      "Enter",
	"Tab":        "Tab",
	"Escape":     "Escape",
	"Backspace":  "Backspace",
	"Delete":     "Delete",
	"Home":       "Home",
	"End":        "End",
	"PageUp":     "PageUp",
	"PageDown":   "PageDown",
	"Insert":     "Insert",
	"Space":      "Space",
	"ArrowUp":    "ArrowUp",
	"ArrowDown":  "ArrowDown",
	"ArrowLeft":  "ArrowLeft",
	"ArrowRight": "ArrowRight",
}

// keydown synthesizes a trusted key press via the driver's keyboard
// primitive for the recorded, whitelisted key.
func (e *Executor) keydown(ctx context.Context, a action.Action) error {
	e.overlay.ShowKeyPress(ctx, a.Key)

	key := a.Key
	code, ok := keyCodes[key]
	if !ok {
		code = key
	}
	if key == "Space" {
		key = " "
	}
	return e.driver.DispatchKeyPress(ctx, key, code)
}
