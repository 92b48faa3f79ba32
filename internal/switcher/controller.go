// Package switcher composes the keyboard engine, the window catalog, the
// grid builder and the selection navigator into the switching loop. The
// controller owns all visibility, grid and selection state and processes
// commands serially on its own goroutine.
package switcher

import (
	"log/slog"
	"sync"

	"github.com/1broseidon/gridswitch/internal/catalog"
	"github.com/1broseidon/gridswitch/internal/grid"
	"github.com/1broseidon/gridswitch/internal/keyboard"
	"github.com/1broseidon/gridswitch/internal/nav"
)

// Snapshots is the slice of the state cache the controller needs.
type Snapshots interface {
	Snapshot() *catalog.Snapshot
	PromoteFront(window uint32) bool
	Invalidate()
}

// Focuser brings a window to the foreground.
type Focuser interface {
	FocusWindow(window uint32) error
}

// Controller reacts to keyboard commands: it shows and hides the switcher,
// rebuilds the grid, moves the selection and performs commit/cancel.
type Controller struct {
	snaps   Snapshots
	builder *grid.Builder
	focus   Focuser
	logger  *slog.Logger

	// OnUpdate, when set, is called after every state change so an external
	// renderer can repaint. Runs on the controller goroutine.
	OnUpdate func()

	mu      sync.Mutex
	visible bool
	typing  bool
	search  []rune
	grid    *grid.Grid
	pos     nav.Position
}

// New creates a controller. builder carries the column configuration and
// tile geometry; focus activates the committed window.
func New(snaps Snapshots, builder *grid.Builder, focus Focuser, logger *slog.Logger) *Controller {
	return &Controller{
		snaps:   snaps,
		builder: builder,
		focus:   focus,
		logger:  logger,
	}
}

// SetBuilder swaps the grid builder after a config reload. The new builder
// takes effect the next time the switcher is shown.
func (c *Controller) SetBuilder(b *grid.Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder = b
}

// Run drains the keyboard command queue until stop is closed. Commands are
// processed strictly in emission order.
func (c *Controller) Run(msgs <-chan keyboard.Message, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case m := <-msgs:
			c.Handle(m)
		}
	}
}

// Handle processes one command.
func (c *Controller) Handle(m keyboard.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch m.Cmd {
	case keyboard.CmdSwitchForward:
		c.step(0, +1)
	case keyboard.CmdSwitchReverse:
		c.step(0, -1)
	case keyboard.CmdActivateTypingMode:
		c.showTyping()
	case keyboard.CmdTypeChar:
		c.typeChar(m.Rune)
	case keyboard.CmdMoveLeft:
		c.move(-1, 0)
	case keyboard.CmdMoveRight:
		c.move(+1, 0)
	case keyboard.CmdMoveUp:
		c.move(0, -1)
	case keyboard.CmdMoveDown:
		c.move(0, +1)
	case keyboard.CmdCommitSwitch:
		c.commit()
	case keyboard.CmdCancelSwitch:
		c.hide()
	}

	if c.OnUpdate != nil {
		c.OnUpdate()
	}
}

// step advances the MRU cycle, showing the switcher first if needed.
func (c *Controller) step(dx, dy int) {
	if !c.visible {
		if !c.show() {
			return
		}
		// The initial position already sits on the MRU entry; the first
		// trigger press moves off it to the previously used window.
	}
	c.pos = nav.Adjust(c.pos, dx, dy, c.grid)
}

func (c *Controller) move(dx, dy int) {
	if !c.visible {
		return
	}
	c.pos = nav.Adjust(c.pos, dx, dy, c.grid)
}

func (c *Controller) showTyping() {
	if c.show() {
		c.typing = true
	}
}

// show builds the grid from the current snapshot and makes the switcher
// visible. An empty grid suppresses display entirely: with no tasks there is
// nothing to switch to.
func (c *Controller) show() bool {
	snap := c.snaps.Snapshot()
	if snap == nil {
		return false
	}

	c.search = nil
	c.grid = c.builder.Build(snap.WindowsByZOrder, snap.WindowsByTaskbarOrder, "")
	if c.grid.Empty() {
		c.grid = nil
		return false
	}

	pos, ok := nav.Initial(c.grid)
	if !ok {
		c.grid = nil
		return false
	}
	c.visible = true
	c.pos = pos
	return true
}

// typeChar appends r to the search accumulator and rebuilds the grid with
// the new filter.
func (c *Controller) typeChar(r rune) {
	if !c.visible || !c.typing {
		return
	}
	c.search = append(c.search, r)

	snap := c.snaps.Snapshot()
	if snap == nil {
		return
	}
	c.grid = c.builder.Build(snap.WindowsByZOrder, snap.WindowsByTaskbarOrder, string(c.search))
	if pos, ok := nav.Initial(c.grid); ok {
		c.pos = pos
	} else {
		c.pos = nav.Position{}
	}
}

func (c *Controller) commit() {
	if !c.visible {
		return
	}
	task := c.grid.At(c.pos.Column, c.pos.Row)
	c.hide()

	if task == nil {
		return
	}
	window := task.Window
	if window == 0 {
		c.logger.Debug("commit on task with no window", "task", task.Name)
		return
	}
	if err := c.focus.FocusWindow(window); err != nil {
		c.logger.Warn("failed to focus window", "window", window, "error", err)
		return
	}
	if !c.snaps.PromoteFront(window) {
		// The window vanished from the snapshot between show and commit;
		// force a rebuild so the stale entry disappears.
		c.snaps.Invalidate()
	}
}

func (c *Controller) hide() {
	c.visible = false
	c.typing = false
	c.search = nil
	c.grid = nil
	c.pos = nav.Position{}
}

// Visible reports whether the switcher is currently shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Grid returns the current grid, nil when hidden. The grid is immutable
// once built, so callers may read it without further locking.
func (c *Controller) Grid() *grid.Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid
}

// Selected returns the task under the cursor, nil when hidden or when the
// cursor sits on an empty cell.
func (c *Controller) Selected() *grid.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible || c.grid == nil {
		return nil
	}
	return c.grid.At(c.pos.Column, c.pos.Row)
}

// Search returns the current type-search accumulator.
func (c *Controller) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.search)
}

// WindowCount returns the number of windows in the current snapshot.
func (c *Controller) WindowCount() int {
	snap := c.snaps.Snapshot()
	if snap == nil {
		return 0
	}
	return len(snap.WindowsByZOrder)
}
