package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/webreplay/pkg/envelope"
)

const busyPollInterval = 100 * time.Millisecond

// DefaultBusySelectors is used when a Replayer is constructed without a
// busyIndicatorSelector option.
const DefaultBusySelectors = ""

// WaitForIdle polls selectors (a comma-separated list, spec §4.6) every
// 100ms until none of the matched elements are visible, or until timeout
// elapses. An empty selector list resolves immediately.
func WaitForIdle(ctx context.Context, driver Driver, selectors string, timeout time.Duration) error {
	selectors = strings.TrimSpace(selectors)
	if selectors == "" {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	expr := fmt.Sprintf(`(function(){
var selectors = %s.split(',').map(function(s){return s.trim();}).filter(Boolean);
for (var i = 0; i < selectors.length; i++) {
  var els = document.querySelectorAll(selectors[i]);
  for (var j = 0; j < els.length; j++) {
    var el = els[j];
    var style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || el.hidden) {
      continue;
    }
    return true;
  }
}
return false;
})();`, jsString(selectors))

	ticker := time.NewTicker(busyPollInterval)
	defer ticker.Stop()

	for {
		busy, err := driver.EvaluateBool(waitCtx, expr)
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-waitCtx.Done():
			return envelope.NewError(envelope.CodeBusyTimeout,
				fmt.Sprintf("busy indicator still visible after %s (selectors: %s)", timeout, selectors), nil)
		case <-ticker.C:
		}
	}
}
