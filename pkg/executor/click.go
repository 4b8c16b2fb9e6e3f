package executor

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// click implements the three-way preference order from spec §4.7: a
// checked click sets the checkbox's checked property to the recorded value
// at the DOM level, a coordinate click
// synthesizes a trusted mouse event, and a plain click waits for the
// selector and clicks it via JS.
func (e *Executor) click(ctx context.Context, a action.Action) error {
	if a.IsCheckedClick() {
		e.overlay.ShowClick(ctx, a.Selector, derefInt(a.X), derefInt(a.Y))
		return e.driver.Evaluate(ctx, fmt.Sprintf(`(function(){
var el = document.querySelector(%s);
if (!el) throw new Error(%s);
el.checked = %t;
el.dispatchEvent(new Event('change', {bubbles:true}));
el.dispatchEvent(new Event('click', {bubbles:true}));
})();`, jsString(a.Selector), jsString("element not found: "+a.Selector), *a.Checked))
	}

	if a.IsCoordinateClick() {
		e.overlay.ShowClick(ctx, a.Selector, *a.X, *a.Y)
		return e.driver.DispatchMouseClick(ctx, float64(*a.X), float64(*a.Y))
	}

	if err := e.waitForSelector(ctx, a.Selector); err != nil {
		return err
	}
	e.overlay.ShowClick(ctx, a.Selector, derefInt(a.X), derefInt(a.Y))
	return e.driver.Evaluate(ctx, fmt.Sprintf(`(function(){
var el = document.querySelector(%s);
if (!el) throw new Error(%s);
el.click();
})();`, jsString(a.Selector), jsString("element not found: "+a.Selector)))
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
