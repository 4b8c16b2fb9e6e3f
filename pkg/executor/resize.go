package executor

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/webreplay/pkg/action"
)

// browserResize resizes the outer browser window via the browser-level
// CDP window-bounds commands, since this is not a page-level DOM effect.
func (e *Executor) browserResize(ctx context.Context, a action.Action) error {
	toW, toH := derefInt(a.ToWidth), derefInt(a.ToHeight)
	e.overlay.ShowBrowserResize(ctx, derefInt(a.FromWidth), derefInt(a.FromHeight), toW, toH)

	if e.resizer == nil {
		return fmt.Errorf("executor: browser_resize requested but no window resizer configured")
	}
	return e.resizer.Resize(ctx, e.targetID, toW, toH)
}
