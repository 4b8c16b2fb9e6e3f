package executor

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// textLikeInputTypes mirrors the capture script's TEXT_LIKE_INPUT_TYPES
// whitelist: selectionStart/selectionEnd only apply to these.
var textLikeInputTypes = map[string]bool{
	"text": true, "search": true, "url": true, "tel": true, "password": true,
}

// input sets .value directly and dispatches a synthetic "input" event.
// Direct property assignment (rather than replaying keystrokes) keeps
// replay idempotent since the recording already captured the final value.
func (e *Executor) input(ctx context.Context, a action.Action) error {
	if err := e.waitForSelector(ctx, a.Selector); err != nil {
		return err
	}

	value := ""
	if a.Value != nil {
		value = *a.Value
	}
	e.overlay.ShowInput(ctx, a.Selector, value)

	selection := ""
	if a.SelectionStart != nil && a.SelectionEnd != nil {
		selection = fmt.Sprintf(`
if (el.type && %s[el.type] && el.setSelectionRange) {
  el.setSelectionRange(%d, %d);
}`, textLikeInputTypesJS(), *a.SelectionStart, *a.SelectionEnd)
	}

	return e.driver.Evaluate(ctx, fmt.Sprintf(`(function(){
var el = document.querySelector(%s);
if (!el) throw new Error(%s);
el.value = %s;
el.dispatchEvent(new Event('input', {bubbles:true}));
%s
})();`, jsString(a.Selector), jsString("element not found: "+a.Selector), jsString(value), selection))
}

func textLikeInputTypesJS() string {
	out := "{"
	first := true
	for t := range textLikeInputTypes {
		if !first {
			out += ","
		}
		first = false
		out += jsString(t) + ":true"
	}
	return out + "}"
}
