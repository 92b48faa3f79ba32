package catalog

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/gridswitch/internal/grid"
)

// ProcessCache memoizes the expensive per-process lookups (executable path,
// icon) plus the resolved taskbar handle across snapshot rebuilds. Lookup
// failures are cached as empty values so a window with an unreadable process
// does not get re-probed every tick.
type ProcessCache struct {
	exe     map[uint32]string
	icons   map[uint32]*grid.Icon
	taskbar uint32
}

// NewProcessCache creates an empty cache.
func NewProcessCache() *ProcessCache {
	return &ProcessCache{
		exe:   make(map[uint32]string),
		icons: make(map[uint32]*grid.Icon),
	}
}

// Clear discards everything, including the taskbar handle.
func (c *ProcessCache) Clear() {
	c.exe = make(map[uint32]string)
	c.icons = make(map[uint32]*grid.Icon)
	c.taskbar = 0
}

// InvalidateTaskbar drops only the cached taskbar handle.
func (c *ProcessCache) InvalidateTaskbar() {
	c.taskbar = 0
}

// ExePath returns the memoized executable path for pid, calling lookup on a
// miss. A failed lookup memoizes the empty string.
func (c *ProcessCache) ExePath(pid uint32, lookup func(uint32) (string, error)) string {
	if path, ok := c.exe[pid]; ok {
		return path
	}
	path, err := lookup(pid)
	if err != nil {
		path = ""
	}
	c.exe[pid] = path
	return path
}

// Icon returns the memoized icon for pid, calling lookup on a miss.
func (c *ProcessCache) Icon(pid uint32, lookup func() (*grid.Icon, error)) *grid.Icon {
	if icon, ok := c.icons[pid]; ok {
		return icon
	}
	icon, err := lookup()
	if err != nil {
		icon = nil
	}
	c.icons[pid] = icon
	return icon
}

// Taskbar returns the cached taskbar handle when it is still valid,
// otherwise resolves it through locate and caches the result.
func (c *ProcessCache) Taskbar(valid func(uint32) bool, locate func() (uint32, error)) (uint32, error) {
	if c.taskbar != 0 && valid(c.taskbar) {
		return c.taskbar, nil
	}
	taskbar, err := locate()
	if err != nil {
		c.taskbar = 0
		return 0, err
	}
	c.taskbar = taskbar
	return taskbar, nil
}

// StateCache owns the current snapshot. A background goroutine rebuilds it
// on a fixed interval; every fullEvery-th tick discards the process cache to
// bound staleness. Readers load the snapshot lock-free via atomic pointer.
type StateCache struct {
	catalog *Catalog
	logger  *slog.Logger

	interval  time.Duration
	fullEvery int

	snap    atomic.Pointer[Snapshot]
	invalid atomic.Bool

	mu    sync.Mutex // serializes rebuilds; cache is only touched under it
	cache *ProcessCache

	stop chan struct{}
	done chan struct{}
}

// NewStateCache creates a cache over catalog. interval is the refresh
// period; every fullEvery-th refresh is a cold rebuild.
func NewStateCache(catalog *Catalog, interval time.Duration, fullEvery int, logger *slog.Logger) *StateCache {
	if fullEvery < 1 {
		fullEvery = 1
	}
	return &StateCache{
		catalog:   catalog,
		logger:    logger,
		interval:  interval,
		fullEvery: fullEvery,
		cache:     NewProcessCache(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the background refresh goroutine.
func (s *StateCache) Start() {
	go s.run()
}

// Stop signals the refresh goroutine and waits for it to exit.
func (s *StateCache) Stop() {
	close(s.stop)
	<-s.done
}

func (s *StateCache) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			tick++
			s.Refresh(tick%s.fullEvery == 0)
		}
	}
}

// Snapshot returns the current snapshot, building one synchronously when
// none exists yet or the last one was invalidated.
func (s *StateCache) Snapshot() *Snapshot {
	if snap := s.snap.Load(); snap != nil && !s.invalid.Load() {
		return snap
	}
	s.Refresh(false)
	return s.snap.Load()
}

// Refresh rebuilds the snapshot and publishes it. full discards the process
// cache first, forcing cold per-process lookups.
func (s *StateCache) Refresh(full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *Snapshot
	if full {
		s.cache.Clear()
	} else {
		prev = s.snap.Load()
	}

	snap, err := s.catalog.BuildSnapshot(prev, s.cache)
	if err != nil {
		s.logger.Warn("snapshot degraded to empty", "error", err, "full", full)
	}
	s.invalid.Store(false)
	s.snap.Store(snap)
}

// Invalidate marks the current snapshot stale; the next Snapshot call
// rebuilds. Used on window create/destroy notifications.
func (s *StateCache) Invalidate() {
	s.invalid.Store(true)
}

// PromoteFront publishes a copy of the current snapshot with window moved
// to the front of the Z-order, serialized against concurrent rebuilds. It
// reports whether the window was present.
func (s *StateCache) PromoteFront(window uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	if snap == nil {
		return false
	}
	next, ok := snap.WithFront(window)
	if !ok {
		return false
	}
	s.snap.Store(next)
	return true
}

// NotifyNewForeground records a foreground activation by promoting window
// to the front of the published Z-order. An unknown window is logged and
// ignored; the periodic rebuild will pick it up.
func (s *StateCache) NotifyNewForeground(window uint32) {
	if !s.PromoteFront(window) {
		s.logger.Debug("foreground window not in snapshot", "window", window)
	}
}
