// Package nav implements 2-D cursor movement over the sparse grid produced
// by the grid builder, with wrap-around and empty-cell skipping.
package nav

import "github.com/1broseidon/gridswitch/internal/grid"

// Position addresses a grid cell.
type Position struct {
	Column int
	Row    int
}

// Initial returns the starting selection for a freshly built grid: the first
// MRU entry, advanced by one when the builder flagged the front entry as
// minimized-but-frontmost. Returns false when the grid has nothing to select.
func Initial(g *grid.Grid) (Position, bool) {
	if g == nil || g.Empty() {
		return Position{}, false
	}
	pos := Position{Column: g.MruColumn, Row: 0}
	if g.At(pos.Column, pos.Row) == nil {
		pos = skipEmpty(pos, 0, 1, g)
	}
	if g.SkipInitial {
		pos = Adjust(pos, 0, 1, g)
	}
	return pos, true
}

// Adjust moves the cursor by (dx, dy) cells and returns the new position.
// Column movement wraps at both edges. Row movement wraps per the rules
// below; empty cells encountered after positioning are skipped by advancing
// further in the same direction.
func Adjust(pos Position, dx, dy int, g *grid.Grid) Position {
	if g == nil || g.Columns() == 0 {
		return pos
	}

	col := wrap(pos.Column+dx, g.Columns())
	row := pos.Row + dy

	rows := g.RowsIn(col)
	if rows == 0 {
		// Destination column has no cells (an empty MRU column); let the
		// empty-skip walk carry the cursor onward.
		next := skipEmpty(Position{Column: col, Row: pos.Row + dy}, dx, dy, g)
		if g.At(next.Column, next.Row) == nil {
			return pos
		}
		return next
	}

	switch {
	case row < 0:
		// Moving up past row 0 wraps to the last row of the destination
		// column; landing on an empty cell below is handled by skipEmpty.
		row = rows - 1
	case row >= rows:
		if dx == 0 {
			// Purely vertical moves wrap to the top.
			row = 0
		} else {
			// Horizontal moves landing past a shorter column clamp to
			// its last row.
			row = rows - 1
		}
	}

	next := Position{Column: col, Row: row}
	if g.At(col, row) == nil {
		next = skipEmpty(next, dx, dy, g)
	}
	if g.At(next.Column, next.Row) == nil {
		// Nothing reachable in this direction; keep the old position.
		return pos
	}
	return next
}

// skipEmpty advances from pos in the direction of (dx, dy) until a non-empty
// cell is found. Movement follows the same wrap rules as Adjust. Bounded by
// the total cell count so a fully empty grid terminates.
func skipEmpty(pos Position, dx, dy int, g *grid.Grid) Position {
	stepX, stepY := sign(dx), sign(dy)
	if stepX == 0 && stepY == 0 {
		stepY = 1
	}

	limit := 0
	for _, col := range g.TasksByColumn {
		limit += len(col)
	}

	cur := pos
	for i := 0; i < limit; i++ {
		if stepX != 0 {
			cur.Column = wrap(cur.Column+stepX, g.Columns())
			rows := g.RowsIn(cur.Column)
			if rows == 0 {
				continue
			}
			if cur.Row >= rows {
				cur.Row = rows - 1
			}
			if cur.Row < 0 {
				cur.Row = 0
			}
		} else {
			rows := g.RowsIn(cur.Column)
			cur.Row += stepY
			if cur.Row < 0 {
				cur.Row = rows - 1
			} else if cur.Row >= rows {
				cur.Row = 0
			}
		}
		if g.At(cur.Column, cur.Row) != nil {
			return cur
		}
	}
	return pos
}

func wrap(v, n int) int {
	if n <= 0 {
		return 0
	}
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
