package grid

import (
	"regexp"
	"strings"
)

// GroupDef assigns taskbar buttons to a named visual group. A button matches
// when every configured pattern matches; a group with no patterns matches
// everything.
type GroupDef struct {
	Name  string
	Title *regexp.Regexp
	Class *regexp.Regexp
}

func (g *GroupDef) matches(t *Task) bool {
	if g.Title == nil && g.Class == nil {
		return true
	}
	if g.Title != nil && !g.Title.MatchString(t.Name) {
		return false
	}
	if g.Class != nil && !g.Class.MatchString(t.ClassName()) {
		return false
	}
	return true
}

// ColumnDef is an ordered list of groups stacked into one left-side column.
type ColumnDef struct {
	Name   string
	Groups []GroupDef
}

// Layout holds the pixel geometry knobs for grid assembly.
type Layout struct {
	TileWidth        int
	TileHeight       int
	Gutter           int // spacing between tiles and between sibling columns
	MajorGutter      int // spacing between the left, MRU and right areas
	GroupSpacing     int // extra vertical spacing before a group boundary
	MaxRows          int // maximum rows per overflow column
	PlaceholderWidth int // width reserved for an empty left/right area
}

// Probe answers the two live-window questions the builder needs. The real
// implementation talks to the display server; tests supply fakes.
type Probe interface {
	ValidWindow(window uint32) bool
	Minimized(window uint32) bool
}

// Grid is the sparse, column-major arrangement of tasks produced by Build.
// Cells are nil where a column has no task (the leading alignment cell of
// every non-MRU column, and the tail of short columns).
type Grid struct {
	TasksByColumn [][]*Task
	MruTasks      []*Task
	TasksFlat     []*Task
	MruColumn     int  // index into TasksByColumn
	Bounds        Rect // overall pixel size
	SkipInitial   bool // first MRU entry is minimized yet reported frontmost
}

// Empty reports whether the grid holds no tasks at all.
func (g *Grid) Empty() bool {
	return len(g.TasksFlat) == 0
}

// Columns returns the number of columns.
func (g *Grid) Columns() int {
	return len(g.TasksByColumn)
}

// RowsIn returns the number of cells (including empties) in a column.
func (g *Grid) RowsIn(col int) int {
	if col < 0 || col >= len(g.TasksByColumn) {
		return 0
	}
	return len(g.TasksByColumn[col])
}

// At returns the task at the given cell, or nil for empty or out-of-range.
func (g *Grid) At(col, row int) *Task {
	if col < 0 || col >= len(g.TasksByColumn) {
		return nil
	}
	column := g.TasksByColumn[col]
	if row < 0 || row >= len(column) {
		return nil
	}
	return column[row]
}

// Builder partitions a snapshot into an MRU column, configured grouped
// columns and overflow columns, and computes tile geometry.
type Builder struct {
	probe    Probe
	mruCount int
	columns  []ColumnDef
	layout   Layout
}

// NewBuilder creates a grid builder. columns may be empty, in which case all
// matched taskbar buttons flow to the overflow side.
func NewBuilder(probe Probe, mruCount int, columns []ColumnDef, layout Layout) *Builder {
	return &Builder{
		probe:    probe,
		mruCount: mruCount,
		columns:  columns,
		layout:   layout,
	}
}

// Build arranges the snapshot's task lists into a grid. zorder is front-most
// first; taskbar is in visual taskbar order. A non-empty filter restricts the
// MRU column to matching names and suppresses the left/right areas entirely.
func (b *Builder) Build(zorder, taskbar []*Task, filter string) *Grid {
	filter = strings.ToLower(strings.TrimSpace(filter))

	mru := b.buildMru(zorder, filter)

	var leftColumns [][]*Task
	var overflow []*Task
	if filter == "" {
		leftColumns, overflow = b.partitionButtons(taskbar)
	}
	rightColumns := chunkColumns(overflow, b.layout.MaxRows)

	g := &Grid{MruTasks: mru}

	if len(mru) == 0 && len(leftColumns) == 0 && len(rightColumns) == 0 {
		return g
	}

	// Column-major assembly: left area, MRU column, right area. Every
	// non-MRU column gets one empty leading cell so the MRU column's row 0
	// lines up with a blank row elsewhere.
	for _, col := range leftColumns {
		g.TasksByColumn = append(g.TasksByColumn, prependEmpty(col))
	}
	g.MruColumn = len(g.TasksByColumn)
	g.TasksByColumn = append(g.TasksByColumn, append([]*Task(nil), mru...))
	for _, col := range rightColumns {
		g.TasksByColumn = append(g.TasksByColumn, prependEmpty(col))
	}

	for _, col := range g.TasksByColumn {
		for _, t := range col {
			if t != nil {
				g.TasksFlat = append(g.TasksFlat, t)
			}
		}
	}

	b.assignGeometry(g, len(leftColumns), len(rightColumns))

	if len(mru) > 0 && b.probe.Minimized(mru[0].Window) {
		// Some full-screen remote-desktop sessions stay at the front of
		// Z-order while minimized; the initial selection must step past
		// them.
		g.SkipInitial = true
	}

	return g
}

func (b *Builder) buildMru(zorder []*Task, filter string) []*Task {
	var mru []*Task
	for _, t := range zorder {
		if len(mru) >= b.mruCount {
			break
		}
		if !b.probe.ValidWindow(t.Window) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(t.Name), filter) {
			continue
		}
		mru = append(mru, t)
	}
	return mru
}

// partitionButtons walks the taskbar in visual order, placing each button in
// the first matching group; unmatched buttons accumulate into the overflow
// list. Returns only non-empty left columns.
func (b *Builder) partitionButtons(taskbar []*Task) ([][]*Task, []*Task) {
	buckets := make([][][]*Task, len(b.columns))
	for i := range buckets {
		buckets[i] = make([][]*Task, len(b.columns[i].Groups))
	}

	var overflow []*Task
	for _, btn := range taskbar {
		if a := btn.Associated(); a != 0 && !b.probe.ValidWindow(a) {
			continue
		}
		btn.BeginsGroup = false

		placed := false
		for ci := 0; ci < len(b.columns) && !placed; ci++ {
			for gi := range b.columns[ci].Groups {
				if b.columns[ci].Groups[gi].matches(btn) {
					if len(buckets[ci][gi]) == 0 {
						btn.BeginsGroup = true
					}
					buckets[ci][gi] = append(buckets[ci][gi], btn)
					placed = true
					break
				}
			}
		}
		if !placed {
			overflow = append(overflow, btn)
		}
	}

	var columns [][]*Task
	for ci := range buckets {
		var col []*Task
		for gi := range buckets[ci] {
			col = append(col, buckets[ci][gi]...)
		}
		if len(col) > 0 {
			columns = append(columns, col)
		}
	}
	return columns, overflow
}

// chunkColumns splits the overflow list into fixed-height column chunks.
func chunkColumns(tasks []*Task, maxRows int) [][]*Task {
	if maxRows < 1 {
		maxRows = 1
	}
	var cols [][]*Task
	for len(tasks) > 0 {
		n := maxRows
		if n > len(tasks) {
			n = len(tasks)
		}
		cols = append(cols, tasks[:n])
		tasks = tasks[n:]
	}
	return cols
}

func prependEmpty(col []*Task) []*Task {
	out := make([]*Task, 0, len(col)+1)
	out = append(out, nil)
	return append(out, col...)
}

// assignGeometry computes tile rectangles and the overall bounds. Group
// boundaries add extra vertical spacing, skipped for the first group in a
// column. Empty left/right areas collapse to a placeholder width.
func (b *Builder) assignGeometry(g *Grid, leftCount, rightCount int) {
	l := b.layout
	x := l.Gutter
	maxBottom := 0

	if leftCount == 0 {
		x += l.PlaceholderWidth
	}

	for ci, col := range g.TasksByColumn {
		if ci == g.MruColumn && leftCount > 0 {
			x += l.MajorGutter
		}

		y := l.Gutter
		firstGroupSeen := false
		for _, t := range col {
			if t == nil {
				y += l.TileHeight + l.Gutter
				continue
			}
			if t.BeginsGroup {
				if firstGroupSeen {
					y += l.GroupSpacing
				}
				firstGroupSeen = true
			}
			t.Rect = Rect{X: x, Y: y, Width: l.TileWidth, Height: l.TileHeight}
			y += l.TileHeight + l.Gutter
		}
		if y > maxBottom {
			maxBottom = y
		}

		x += l.TileWidth
		if ci == g.MruColumn && rightCount > 0 {
			x += l.MajorGutter
		} else {
			x += l.Gutter
		}
	}

	if rightCount == 0 {
		x += l.PlaceholderWidth
	}

	g.Bounds = Rect{Width: x, Height: maxBottom + l.Gutter}
}
