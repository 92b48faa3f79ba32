package nav

import (
	"testing"

	"github.com/1broseidon/gridswitch/internal/grid"
)

func task(name string) *grid.Task {
	return grid.NewWindowTask(1, name, nil)
}

// testGrid builds the usual three-area shape: one left column and one right
// column with their leading empty cells, the MRU column in between.
//
//	col0      col1 (MRU)  col2
//	-         M0          -
//	A         M1          C
//	B         M2
//	          M3
func testGrid() *grid.Grid {
	return &grid.Grid{
		TasksByColumn: [][]*grid.Task{
			{nil, task("A"), task("B")},
			{task("M0"), task("M1"), task("M2"), task("M3")},
			{nil, task("C")},
		},
		MruColumn: 1,
	}
}

func TestInitial(t *testing.T) {
	g := testGrid()
	pos, ok := Initial(g)
	if !ok {
		t.Fatal("Initial returned no position")
	}
	if pos != (Position{Column: 1, Row: 0}) {
		t.Errorf("initial = %+v, want MRU head", pos)
	}
}

func TestInitialSkipsMinimizedFront(t *testing.T) {
	g := testGrid()
	g.SkipInitial = true

	pos, ok := Initial(g)
	if !ok {
		t.Fatal("Initial returned no position")
	}
	if pos != (Position{Column: 1, Row: 1}) {
		t.Errorf("initial = %+v, want row 1 past minimized front", pos)
	}
}

func TestInitialEmptyGrid(t *testing.T) {
	if _, ok := Initial(&grid.Grid{}); ok {
		t.Error("Initial on empty grid reported a position")
	}
	if _, ok := Initial(nil); ok {
		t.Error("Initial on nil grid reported a position")
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name   string
		from   Position
		dx, dy int
		want   Position
	}{
		{"down within column", Position{1, 0}, 0, 1, Position{1, 1}},
		{"down past end wraps to top", Position{1, 3}, 0, 1, Position{1, 0}},
		{"up within column", Position{1, 2}, 0, -1, Position{1, 1}},
		{"up past top wraps to bottom", Position{1, 0}, 0, -1, Position{1, 3}},
		{"left to populated cell", Position{1, 1}, -1, 0, Position{0, 1}},
		{"left past first column wraps", Position{0, 1}, -1, 0, Position{2, 1}},
		{"right past last column wraps", Position{2, 1}, 1, 0, Position{0, 1}},
		{"horizontal clamp past shorter column", Position{1, 3}, 1, 0, Position{2, 1}},
		{"up onto leading empty wraps to bottom", Position{0, 1}, 0, -1, Position{0, 2}},
		{"down from bottom skips leading empty", Position{0, 2}, 0, 1, Position{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGrid()
			got := Adjust(tt.from, tt.dx, tt.dy, g)
			if got != tt.want {
				t.Errorf("Adjust(%+v, %d, %d) = %+v, want %+v",
					tt.from, tt.dx, tt.dy, got, tt.want)
			}
		})
	}
}

func TestAdjustNilGridKeepsPosition(t *testing.T) {
	pos := Position{Column: 1, Row: 2}
	if got := Adjust(pos, 0, 1, nil); got != pos {
		t.Errorf("Adjust on nil grid = %+v, want unchanged", got)
	}
}

// Pure vertical movement is a closed cycle: stepping down once per occupied
// cell in a column returns to the starting cell, from any starting cell.
func TestDownCycleIsClosed(t *testing.T) {
	g := testGrid()

	for ci, col := range g.TasksByColumn {
		occupied := 0
		for _, cell := range col {
			if cell != nil {
				occupied++
			}
		}
		for ri, cell := range col {
			if cell == nil {
				continue
			}
			start := Position{Column: ci, Row: ri}
			pos := start
			for i := 0; i < occupied; i++ {
				pos = Adjust(pos, 0, 1, g)
			}
			if pos != start {
				t.Errorf("column %d: down cycle from %+v ended at %+v", ci, start, pos)
			}
		}
	}
}

func TestButtonsOnlyGridNavigable(t *testing.T) {
	// A grid whose MRU column is empty (every window filtered out) still
	// navigates across the button columns.
	g := &grid.Grid{
		TasksByColumn: [][]*grid.Task{
			{nil, task("A")},
			{}, // MRU column, nothing survived
			{nil, task("B")},
		},
		MruColumn: 1,
	}

	got := Adjust(Position{Column: 0, Row: 1}, 1, 0, g)
	if got != (Position{Column: 2, Row: 1}) {
		t.Errorf("right across empty MRU column = %+v, want {2 1}", got)
	}
}
