package x11

import (
	"fmt"
	"log"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// NotifyHandlers receives window-system change notifications. Both callbacks
// run on the X event loop goroutine and must stay cheap.
type NotifyHandlers struct {
	// Activated fires when the foreground window changes.
	Activated func(window uint32)

	// TopologyChanged fires when a window was created or destroyed.
	TopologyChanged func()
}

// WatchRoot subscribes to root-window property changes and dispatches
// foreground-activation and create/destroy notifications. The window manager
// updates _NET_ACTIVE_WINDOW and _NET_CLIENT_LIST for us, so no per-window
// event masks are needed.
func (c *Connection) WatchRoot(h NotifyHandlers) error {
	activeAtom, err := xprop.Atm(c.XUtil, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}
	clientsAtom, err := xprop.Atm(c.XUtil, "_NET_CLIENT_LIST")
	if err != nil {
		return fmt.Errorf("failed to intern _NET_CLIENT_LIST: %w", err)
	}
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		switch ev.Atom {
		case activeAtom:
			if h.Activated == nil {
				return
			}
			win, err := c.GetActiveWindow()
			if err != nil {
				log.Printf("x11: active window lookup failed: %v", err)
				return
			}
			if win != 0 {
				h.Activated(win)
			}
		case clientsAtom:
			if h.TopologyChanged != nil {
				h.TopologyChanged()
			}
		}
	}).Connect(c.XUtil, c.Root)

	return nil
}
