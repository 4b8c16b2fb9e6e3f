package executor

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// scroll replays a debounced scroll burst by animating from the
// recorded start position to the end position over Duration ms, using a
// cubic-ease-out curve driven by requestAnimationFrame in-page. The Go
// side awaits the animation's completion promise so the replay loop's
// executionTime reflects the full animation, not just its kickoff.
func (e *Executor) scroll(ctx context.Context, a action.Action) error {
	e.overlay.ShowScroll(ctx, a.Selector)

	startX, startY := derefInt(a.StartScrollX), derefInt(a.StartScrollY)
	endX, endY := derefInt(a.ScrollX), derefInt(a.ScrollY)
	duration := derefInt(a.Duration)
	if duration <= 0 {
		duration = 1
	}

	resolveTarget := "var target = window;"
	if a.Selector != "" && a.Selector != action.WindowSelector {
		resolveTarget = fmt.Sprintf(`var target = document.querySelector(%s);
if (!target) throw new Error(%s);`, jsString(a.Selector), jsString("element not found: "+a.Selector))
	}

	script := fmt.Sprintf(`(function(){
return new Promise(function(resolve, reject){
  try {
    %s
    var startX = %d, startY = %d, endX = %d, endY = %d, duration = %d;
    var startTime = null;
    function scrollTo(x, y) {
      if (target === window) { window.scrollTo(x, y); }
      else { target.scrollLeft = x; target.scrollTop = y; }
    }
    function easeOutCubic(t) { return 1 - Math.pow(1 - t, 3); }
    function step(now) {
      if (startTime === null) { startTime = now; }
      var elapsed = now - startTime;
      var t = Math.min(elapsed / duration, 1);
      var eased = easeOutCubic(t);
      scrollTo(startX + (endX - startX) * eased, startY + (endY - startY) * eased);
      if (t < 1) {
        requestAnimationFrame(step);
      } else {
        resolve();
      }
    }
    requestAnimationFrame(step);
  } catch (e) {
    reject(e);
  }
});
})();`, resolveTarget, startX, startY, endX, endY, duration)

	return e.driver.EvaluateAwait(ctx, script)
}
