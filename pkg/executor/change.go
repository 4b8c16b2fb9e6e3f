package executor

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// change replays a change event: checkbox/radio toggle, <select> option
// pick, or a plain value assignment, each followed by a dispatched
// "change" event.
func (e *Executor) change(ctx context.Context, a action.Action) error {
	if err := e.waitForSelector(ctx, a.Selector); err != nil {
		return err
	}

	if a.Checked != nil {
		e.overlay.ShowInput(ctx, a.Selector, fmt.Sprintf("%t", *a.Checked))
		return e.driver.Evaluate(ctx, fmt.Sprintf(`(function(){
var el = document.querySelector(%s);
if (!el) throw new Error(%s);
el.checked = %t;
el.dispatchEvent(new Event('change', {bubbles:true}));
})();`, jsString(a.Selector), jsString("element not found: "+a.Selector), *a.Checked))
	}

	value := ""
	if a.Value != nil {
		value = *a.Value
	}
	e.overlay.ShowInput(ctx, a.Selector, value)

	return e.driver.Evaluate(ctx, fmt.Sprintf(`(function(){
var el = document.querySelector(%s);
if (!el) throw new Error(%s);
if (el.tagName === 'SELECT') {
  el.value = %s;
} else {
  el.value = %s;
}
el.dispatchEvent(new Event('change', {bubbles:true}));
})();`, jsString(a.Selector), jsString("element not found: "+a.Selector), jsString(value), jsString(value)))
}
