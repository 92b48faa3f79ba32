package catalog

import (
	"time"

	"github.com/pkg/errors"

	"github.com/1broseidon/gridswitch/internal/grid"
)

// ErrElementUnavailable marks a transient discovery failure: the window or
// taskbar being inspected vanished mid-walk. Discovery retries once after a
// short delay, then degrades to an empty snapshot.
var ErrElementUnavailable = errors.New("element unavailable")

// EWMH window type and state atoms the application-window heuristic keys on.
const (
	typeNormal       = "_NET_WM_WINDOW_TYPE_NORMAL"
	stateSkipTaskbar = "_NET_WM_STATE_SKIP_TASKBAR"
)

// Prober is the read-only window-system surface the catalog builds from.
// The X11 implementation lives in internal/x11; tests substitute a fake.
type Prober interface {
	// StackingList returns the top-level windows front-to-back.
	StackingList() ([]uint32, error)

	// LocateTaskbar finds the shell's taskbar container window. It is
	// expensive, so the result is cached in ProcessCache until the handle
	// goes stale.
	LocateTaskbar() (uint32, error)

	// TaskbarButtons walks the taskbar's children in visual order.
	TaskbarButtons(taskbar uint32) ([]Button, error)

	WindowName(window uint32) string
	WindowClass(window uint32) string
	WindowPID(window uint32) uint32
	ValidWindow(window uint32) bool
	Minimized(window uint32) bool
	WindowTypes(window uint32) []string
	WindowStates(window uint32) []string
	TransientFor(window uint32) uint32
	Activatable(window uint32) bool

	ExePath(pid uint32) (string, error)
	Icon(window uint32) (*grid.Icon, error)
}

// Button is one taskbar entry as discovered, before window matching.
type Button struct {
	Index int
	Name  string
}

// Options tune snapshot construction.
type Options struct {
	// NormalizeExempt lists substrings whose presence in a display name
	// bypasses space normalization.
	NormalizeExempt []string

	// RequireWindowMatch drops taskbar buttons that resolved to no window.
	RequireWindowMatch bool

	// RetryDelay is the pause before the single discovery retry.
	RetryDelay time.Duration
}

// Catalog builds snapshots from a Prober.
type Catalog struct {
	probe Prober
	opts  Options
}

// New creates a catalog over probe.
func New(probe Prober, opts Options) *Catalog {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &Catalog{probe: probe, opts: opts}
}

// BuildSnapshot constructs a fresh snapshot. prev carries resolved window
// classes forward so steady-state rebuilds do not re-probe every window (nil
// forces cold resolution); cache memoizes per-process values across
// rebuilds. A transient discovery failure is retried once; if the retry also
// fails the snapshot degrades to empty lists.
func (c *Catalog) BuildSnapshot(prev *Snapshot, cache *ProcessCache) (*Snapshot, error) {
	snap, err := c.build(prev, cache)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrElementUnavailable) {
		return &Snapshot{}, err
	}

	time.Sleep(c.opts.RetryDelay)
	cache.InvalidateTaskbar()

	snap, err = c.build(prev, cache)
	if err != nil {
		return &Snapshot{}, errors.Wrap(err, "discovery retry")
	}
	return snap, nil
}

func (c *Catalog) build(prev *Snapshot, cache *ProcessCache) (*Snapshot, error) {
	windows, err := c.enumerateWindows(prev, cache)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate windows")
	}

	buttons, err := c.enumerateButtons(cache)
	if err != nil {
		return nil, errors.Wrap(err, "enumerate taskbar")
	}

	return c.match(windows, buttons), nil
}

// enumerateWindows walks the stacking order front-to-back and keeps the
// windows that behave like application windows. Windows already present in
// prev adopt its resolved class instead of starting cold.
func (c *Catalog) enumerateWindows(prev *Snapshot, cache *ProcessCache) ([]*grid.Task, error) {
	stack, err := c.probe.StackingList()
	if err != nil {
		return nil, err
	}

	var carried map[uint32]*grid.Task
	if prev != nil {
		carried = make(map[uint32]*grid.Task, len(prev.WindowsByZOrder))
		for _, t := range prev.WindowsByZOrder {
			carried[t.Window] = t
		}
	}

	seen := make(map[uint32]bool, len(stack))
	tasks := make([]*grid.Task, 0, len(stack))
	for _, win := range stack {
		if !c.applicationWindow(win, seen) {
			continue
		}
		seen[win] = true

		name := grid.NormalizeName(c.probe.WindowName(win), c.opts.NormalizeExempt)
		task := grid.NewWindowTask(win, name, c.probe.WindowClass)
		if old := carried[win]; old != nil {
			task.AdoptClass(old)
		}
		pid := c.probe.WindowPID(win)
		task.ExePath = cache.ExePath(pid, c.probe.ExePath)
		task.Icon = cache.Icon(pid, func() (*grid.Icon, error) {
			return c.probe.Icon(win)
		})
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// applicationWindow decides whether win is a switch target. Windows
// explicitly typed normal are always included; otherwise untyped windows
// survive unless they are unnamed, non-activatable, marked skip-taskbar, or
// transient for a window already listed.
func (c *Catalog) applicationWindow(win uint32, seen map[uint32]bool) bool {
	for _, st := range c.probe.WindowStates(win) {
		if st == stateSkipTaskbar {
			return false
		}
	}

	types := c.probe.WindowTypes(win)
	for _, tp := range types {
		if tp == typeNormal {
			return true
		}
	}
	if len(types) > 0 {
		// Typed but never normal: a dock, menu, utility or splash window.
		return false
	}

	if c.probe.WindowName(win) == "" {
		return false
	}
	if !c.probe.Activatable(win) {
		return false
	}
	if owner := c.probe.TransientFor(win); owner != 0 && seen[owner] {
		return false
	}
	return true
}

func (c *Catalog) enumerateButtons(cache *ProcessCache) ([]*grid.Task, error) {
	taskbar, err := cache.Taskbar(c.probe.ValidWindow, c.probe.LocateTaskbar)
	if err != nil {
		return nil, err
	}

	raw, err := c.probe.TaskbarButtons(taskbar)
	if err != nil {
		return nil, err
	}

	tasks := make([]*grid.Task, 0, len(raw))
	for _, b := range raw {
		name := grid.NormalizeName(b.Name, c.opts.NormalizeExempt)
		if name == "" {
			continue
		}
		tasks = append(tasks, grid.NewButtonTask(b.Index, name))
	}
	return tasks, nil
}

// match reconciles the two lists by normalized name. Windows without any
// taskbar presence are removed; buttons resolve their associated window
// through the name map, first window wins on duplicates. A matched button
// also adopts its window's class resolution so class-pattern grouping treats
// the two lists alike.
func (c *Catalog) match(windows, buttons []*grid.Task) *Snapshot {
	buttonNames := make(map[string]bool, len(buttons))
	for _, b := range buttons {
		buttonNames[b.Name] = true
	}

	kept := windows[:0]
	byName := make(map[string]*grid.Task, len(windows))
	for _, w := range windows {
		if !buttonNames[w.Name] {
			continue
		}
		kept = append(kept, w)
		if _, dup := byName[w.Name]; !dup {
			byName[w.Name] = w
		}
	}

	matched := buttons[:0]
	for _, b := range buttons {
		if w, ok := byName[b.Name]; ok {
			b.Window = w.Window
			b.AdoptClass(w)
		} else if c.opts.RequireWindowMatch {
			continue
		}
		matched = append(matched, b)
	}

	return &Snapshot{
		WindowsByZOrder:       kept,
		WindowsByTaskbarOrder: matched,
	}
}
