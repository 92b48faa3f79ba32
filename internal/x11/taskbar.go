package x11

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/gridswitch/internal/catalog"
)

// LocateTaskbar finds the shell's taskbar: the first client window typed
// _NET_WM_WINDOW_TYPE_DOCK. The result is cached by the catalog layer until
// the handle goes stale, because this walks every client window.
func (c *Connection) LocateTaskbar() (uint32, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query root tree: %w", err)
	}

	for _, child := range tree.Children {
		for _, tp := range c.WindowTypes(uint32(child)) {
			if tp == "_NET_WM_WINDOW_TYPE_DOCK" {
				return uint32(child), nil
			}
		}
	}
	return 0, fmt.Errorf("no dock window found: %w", catalog.ErrElementUnavailable)
}

// TaskbarButtons walks the taskbar's child windows in visual order (left to
// right, then top to bottom) and returns the named ones. A taskbar that
// vanished mid-walk surfaces as a transient discovery failure so the catalog
// retries once.
func (c *Connection) TaskbarButtons(taskbar uint32) ([]catalog.Button, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), xproto.Window(taskbar)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query taskbar tree: %v: %w", err, catalog.ErrElementUnavailable)
	}

	type namedChild struct {
		name string
		x, y int
	}
	children := make([]namedChild, 0, len(tree.Children))
	for _, child := range tree.Children {
		name := c.WindowName(uint32(child))
		if name == "" {
			continue
		}
		geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(child)).Reply()
		if err != nil {
			// Button destroyed between QueryTree and here; skip it.
			continue
		}
		children = append(children, namedChild{
			name: name,
			x:    int(geom.X),
			y:    int(geom.Y),
		})
	}

	sort.SliceStable(children, func(i, j int) bool {
		if children[i].y != children[j].y {
			return children[i].y < children[j].y
		}
		return children[i].x < children[j].x
	})

	buttons := make([]catalog.Button, len(children))
	for i, ch := range children {
		buttons[i] = catalog.Button{Index: i, Name: ch.name}
	}
	return buttons, nil
}
