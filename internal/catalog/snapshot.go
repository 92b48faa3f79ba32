// Package catalog discovers the open application windows and the taskbar's
// button list, reconciles the two into an immutable snapshot, and keeps that
// snapshot fresh on a timer. Snapshots are published by atomic pointer swap;
// readers never see a partially built one.
package catalog

import "github.com/1broseidon/gridswitch/internal/grid"

// Snapshot is a point-in-time model of the switchable windows. It is
// immutable after construction; a foreground activation publishes a fresh
// snapshot through WithFront instead of reordering the shared one, so
// concurrent readers never observe a half-moved list.
type Snapshot struct {
	// WindowsByZOrder holds the application windows front-to-back; index 0
	// is the foreground window.
	WindowsByZOrder []*grid.Task

	// WindowsByTaskbarOrder holds the taskbar buttons in visual order. Each
	// button's Window field is either 0 or a handle present in
	// WindowsByZOrder.
	WindowsByTaskbarOrder []*grid.Task
}

// Empty reports whether the snapshot contains no switch targets.
func (s *Snapshot) Empty() bool {
	return len(s.WindowsByZOrder) == 0 && len(s.WindowsByTaskbarOrder) == 0
}

// WithFront returns a snapshot with the task wrapping window moved to the
// front of the Z-order. The receiver is never modified: the Z-order slice is
// copied, the tasks and the taskbar list are shared. The second return is
// false when the window is not in the snapshot. When the window already
// leads the Z-order the receiver itself is returned.
func (s *Snapshot) WithFront(window uint32) (*Snapshot, bool) {
	for i, t := range s.WindowsByZOrder {
		if t.Window != window {
			continue
		}
		if i == 0 {
			return s, true
		}
		zorder := make([]*grid.Task, len(s.WindowsByZOrder))
		zorder[0] = t
		copy(zorder[1:i+1], s.WindowsByZOrder[:i])
		copy(zorder[i+1:], s.WindowsByZOrder[i+1:])
		return &Snapshot{
			WindowsByZOrder:       zorder,
			WindowsByTaskbarOrder: s.WindowsByTaskbarOrder,
		}, true
	}
	return nil, false
}
