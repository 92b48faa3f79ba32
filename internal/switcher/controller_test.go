package switcher

import (
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/gridswitch/internal/catalog"
	"github.com/1broseidon/gridswitch/internal/grid"
	"github.com/1broseidon/gridswitch/internal/keyboard"
)

type fakeSnapshots struct {
	snap        *catalog.Snapshot
	promoted    []uint32
	invalidated int
}

func (f *fakeSnapshots) Snapshot() *catalog.Snapshot { return f.snap }
func (f *fakeSnapshots) Invalidate()                 { f.invalidated++ }

func (f *fakeSnapshots) PromoteFront(window uint32) bool {
	if f.snap == nil {
		return false
	}
	next, ok := f.snap.WithFront(window)
	if !ok {
		return false
	}
	f.snap = next
	f.promoted = append(f.promoted, window)
	return true
}

type fakeFocuser struct {
	focused []uint32
	err     error
}

func (f *fakeFocuser) FocusWindow(window uint32) error {
	if f.err != nil {
		return f.err
	}
	f.focused = append(f.focused, window)
	return nil
}

type allValidProbe struct{}

func (allValidProbe) ValidWindow(uint32) bool { return true }
func (allValidProbe) Minimized(uint32) bool   { return false }

func testSnapshot(names ...string) *catalog.Snapshot {
	snap := &catalog.Snapshot{}
	for i, name := range names {
		win := uint32(i + 1)
		snap.WindowsByZOrder = append(snap.WindowsByZOrder,
			grid.NewWindowTask(win, name, nil))
		btn := grid.NewButtonTask(i, name)
		btn.Window = win
		snap.WindowsByTaskbarOrder = append(snap.WindowsByTaskbarOrder, btn)
	}
	return snap
}

func testController(snap *catalog.Snapshot) (*Controller, *fakeFocuser) {
	builder := grid.NewBuilder(allValidProbe{}, 12, nil, grid.Layout{
		TileWidth:  240,
		TileHeight: 36,
		Gutter:     6,
		MaxRows:    8,
	})
	focus := &fakeFocuser{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(&fakeSnapshots{snap: snap}, builder, focus, logger)
	return c, focus
}

func cmd(c keyboard.Command) keyboard.Message { return keyboard.Message{Cmd: c} }

func TestFirstForwardSelectsPreviousWindow(t *testing.T) {
	c, _ := testController(testSnapshot("Editor", "Browser", "Terminal"))

	c.Handle(cmd(keyboard.CmdSwitchForward))

	if !c.Visible() {
		t.Fatal("switcher not visible after first forward")
	}
	sel := c.Selected()
	if sel == nil || sel.Name != "Browser" {
		t.Errorf("selected = %v, want Browser (second MRU entry)", sel)
	}
}

func TestCommitFocusesSelection(t *testing.T) {
	c, focus := testController(testSnapshot("Editor", "Browser", "Terminal"))

	c.Handle(cmd(keyboard.CmdSwitchForward))
	c.Handle(cmd(keyboard.CmdCommitSwitch))

	if c.Visible() {
		t.Error("switcher still visible after commit")
	}
	if len(focus.focused) != 1 || focus.focused[0] != 2 {
		t.Errorf("focused = %v, want [2]", focus.focused)
	}
}

func TestCancelHidesWithoutFocusing(t *testing.T) {
	c, focus := testController(testSnapshot("Editor", "Browser"))

	c.Handle(cmd(keyboard.CmdSwitchForward))
	c.Handle(cmd(keyboard.CmdCancelSwitch))

	if c.Visible() {
		t.Error("switcher still visible after cancel")
	}
	if len(focus.focused) != 0 {
		t.Errorf("cancel focused %v", focus.focused)
	}
}

func TestEmptySnapshotSuppressesDisplay(t *testing.T) {
	c, _ := testController(&catalog.Snapshot{})

	c.Handle(cmd(keyboard.CmdSwitchForward))

	if c.Visible() {
		t.Error("switcher visible with no tasks")
	}
	if c.Grid() != nil {
		t.Error("grid built for empty snapshot")
	}
}

func TestReverseCyclesBackwards(t *testing.T) {
	c, _ := testController(testSnapshot("Editor", "Browser", "Terminal"))

	c.Handle(cmd(keyboard.CmdSwitchReverse))

	// Reverse from the MRU head wraps to the bottom of the column.
	sel := c.Selected()
	if sel == nil || sel.Name != "Terminal" {
		t.Errorf("selected = %v, want Terminal", sel)
	}
}

func TestTypeSearchFiltersGrid(t *testing.T) {
	c, focus := testController(testSnapshot("Notepad", "Calculator"))

	c.Handle(cmd(keyboard.CmdActivateTypingMode))
	if !c.Visible() {
		t.Fatal("switcher not visible after typing mode")
	}

	for _, r := range "note" {
		c.Handle(keyboard.Message{Cmd: keyboard.CmdTypeChar, Rune: r})
	}

	if got := c.Search(); got != "note" {
		t.Errorf("search accumulator = %q, want note", got)
	}
	sel := c.Selected()
	if sel == nil || sel.Name != "Notepad" {
		t.Errorf("selected = %v, want Notepad", sel)
	}

	c.Handle(cmd(keyboard.CmdCommitSwitch))
	if len(focus.focused) != 1 || focus.focused[0] != 1 {
		t.Errorf("focused = %v, want [1] (Notepad)", focus.focused)
	}
}

func TestCommitPromotesFocusedWindow(t *testing.T) {
	builder := grid.NewBuilder(allValidProbe{}, 12, nil, grid.Layout{
		TileWidth:  240,
		TileHeight: 36,
		Gutter:     6,
		MaxRows:    8,
	})
	snaps := &fakeSnapshots{snap: testSnapshot("Editor", "Browser")}
	focus := &fakeFocuser{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(snaps, builder, focus, logger)

	c.Handle(cmd(keyboard.CmdSwitchForward))
	c.Handle(cmd(keyboard.CmdCommitSwitch))

	if len(snaps.promoted) != 1 || snaps.promoted[0] != 2 {
		t.Fatalf("promoted = %v, want [2]", snaps.promoted)
	}
	if snaps.invalidated != 0 {
		t.Errorf("invalidated %d times, want 0", snaps.invalidated)
	}
	if got := snaps.snap.WindowsByZOrder[0].Window; got != 2 {
		t.Errorf("Z-order front = window %d, want 2", got)
	}
}

func TestCommitOnVanishedWindowInvalidates(t *testing.T) {
	builder := grid.NewBuilder(allValidProbe{}, 12, nil, grid.Layout{
		TileWidth:  240,
		TileHeight: 36,
		Gutter:     6,
		MaxRows:    8,
	})
	snaps := &fakeSnapshots{snap: testSnapshot("Editor", "Browser")}
	focus := &fakeFocuser{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(snaps, builder, focus, logger)

	c.Handle(cmd(keyboard.CmdSwitchForward))
	// Browser (window 2) disappears before the commit lands.
	snaps.snap = testSnapshot("Editor")
	c.Handle(cmd(keyboard.CmdCommitSwitch))

	if len(focus.focused) != 1 || focus.focused[0] != 2 {
		t.Fatalf("focused = %v, want [2]", focus.focused)
	}
	if snaps.invalidated != 1 {
		t.Errorf("invalidated %d times, want 1", snaps.invalidated)
	}
}

func TestMovesIgnoredWhileHidden(t *testing.T) {
	c, _ := testController(testSnapshot("Editor"))

	c.Handle(cmd(keyboard.CmdMoveDown))
	c.Handle(cmd(keyboard.CmdCommitSwitch))

	if c.Visible() {
		t.Error("moves while hidden made the switcher visible")
	}
}

func TestOnUpdateFiresPerCommand(t *testing.T) {
	c, _ := testController(testSnapshot("Editor", "Browser"))

	updates := 0
	c.OnUpdate = func() { updates++ }

	c.Handle(cmd(keyboard.CmdSwitchForward))
	c.Handle(cmd(keyboard.CmdCommitSwitch))

	if updates != 2 {
		t.Errorf("OnUpdate fired %d times, want 2", updates)
	}
}
