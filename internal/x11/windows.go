package x11

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/gridswitch/internal/grid"
)

// StackingList returns the top-level windows front-to-back. EWMH publishes
// _NET_CLIENT_LIST_STACKING bottom-to-top, so the list is reversed here.
func (c *Connection) StackingList() ([]uint32, error) {
	clients, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get stacking list: %w", err)
	}

	out := make([]uint32, len(clients))
	for i, win := range clients {
		out[len(clients)-1-i] = uint32(win)
	}
	return out, nil
}

// WindowName returns the window's title, preferring the EWMH name over the
// legacy ICCCM one. Missing names yield the empty string.
func (c *Connection) WindowName(windowID uint32) string {
	win := xproto.Window(windowID)
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		return name
	}
	return ""
}

// WindowClass returns the second (class) component of WM_CLASS.
func (c *Connection) WindowClass(windowID uint32) string {
	class, err := icccm.WmClassGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return ""
	}
	return class.Class
}

// WindowPID returns the _NET_WM_PID property, or 0 when unset.
func (c *Connection) WindowPID(windowID uint32) uint32 {
	pid, err := ewmh.WmPidGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return 0
	}
	return uint32(pid)
}

// ValidWindow reports whether the handle still names a live window.
func (c *Connection) ValidWindow(windowID uint32) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), xproto.Window(windowID)).Reply()
	return err == nil
}

// Minimized reports whether the window is iconified or hidden.
func (c *Connection) Minimized(windowID uint32) bool {
	win := xproto.Window(windowID)
	for _, st := range c.WindowStates(windowID) {
		if st == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	state, err := icccm.WmStateGet(c.XUtil, win)
	if err != nil {
		return false
	}
	return state.State == icccm.StateIconic
}

// WindowTypes returns the _NET_WM_WINDOW_TYPE atoms, empty when unset.
func (c *Connection) WindowTypes(windowID uint32) []string {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return nil
	}
	return types
}

// WindowStates returns the _NET_WM_STATE atoms, empty when unset.
func (c *Connection) WindowStates(windowID uint32) []string {
	states, err := ewmh.WmStateGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return nil
	}
	return states
}

// TransientFor returns the owner window for dialogs, 0 for top-level
// windows.
func (c *Connection) TransientFor(windowID uint32) uint32 {
	owner, err := icccm.WmTransientForGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return 0
	}
	return uint32(owner)
}

// Activatable reports whether the window accepts input focus per its WM
// hints. Windows without hints are assumed focusable.
func (c *Connection) Activatable(windowID uint32) bool {
	hints, err := icccm.WmHintsGet(c.XUtil, xproto.Window(windowID))
	if err != nil {
		return true
	}
	if hints.Flags&icccm.HintInput == 0 {
		return true
	}
	return hints.Input != 0
}

// ExePath resolves the process's executable through /proc.
func (c *Connection) ExePath(pid uint32) (string, error) {
	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable for pid %d: %w", pid, err)
	}
	return path, nil
}

// Icon fetches the window's largest _NET_WM_ICON image as raw ARGB pixels.
func (c *Connection) Icon(windowID uint32) (*grid.Icon, error) {
	icons, err := ewmh.WmIconGet(c.XUtil, xproto.Window(windowID))
	if err != nil || len(icons) == 0 {
		return nil, fmt.Errorf("no icon for window %d: %w", windowID, err)
	}

	best := icons[0]
	for _, ic := range icons[1:] {
		if ic.Width*ic.Height > best.Width*best.Height {
			best = ic
		}
	}

	argb := make([]uint32, len(best.Data))
	for i, px := range best.Data {
		argb[i] = uint32(px)
	}
	return &grid.Icon{
		Width:  int(best.Width),
		Height: int(best.Height),
		Argb:   argb,
	}, nil
}

// GetActiveWindow returns the currently focused window.
func (c *Connection) GetActiveWindow() (uint32, error) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get active window: %w", err)
	}
	return uint32(win), nil
}
