package keyboard

import "testing"

type step struct {
	ev          Event
	wantSwallow bool
}

func press(keysym uint32) Event   { return Event{Keysym: keysym, Press: true} }
func release(keysym uint32) Event { return Event{Keysym: keysym, Press: false} }

// altPress/altRelease build events the way the X grabs deliver them: the
// modifier never arrives as its own press while idle, it only shows up in
// the state mask of the key it modifies.
func altPress(keysym uint32) Event {
	return Event{Keysym: keysym, Press: true, AltHeld: true}
}

func altRelease(keysym uint32) Event {
	return Event{Keysym: keysym, Press: false, AltHeld: true}
}

func drain(t *testing.T, e *Engine) []Message {
	t.Helper()
	var msgs []Message
	for {
		select {
		case m := <-e.Messages():
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func runSteps(t *testing.T, e *Engine, steps []step) {
	t.Helper()
	for i, s := range steps {
		got := e.HandleKey(s.ev)
		if got != s.wantSwallow {
			t.Errorf("step %d (keysym=0x%x press=%v): swallow = %v, want %v",
				i, s.ev.Keysym, s.ev.Press, got, s.wantSwallow)
		}
	}
}

func wantCommands(t *testing.T, msgs []Message, want []Command) {
	t.Helper()
	if len(msgs) != len(want) {
		t.Fatalf("got %d commands, want %d: %v", len(msgs), len(want), msgs)
	}
	for i, m := range msgs {
		if m.Cmd != want[i] {
			t.Errorf("command %d = %s, want %s", i, m.Cmd, want[i])
		}
	}
}

func TestStandardSwitchCycle(t *testing.T) {
	e := NewEngine(DefaultConfig())

	runSteps(t, e, []step{
		{altPress(KeysymTab), true},   // first event the grabs ever deliver
		{altRelease(KeysymTab), true}, // release of a swallowed key stays swallowed
		{altPress(KeysymTab), true},   // advances
		{altRelease(KeysymTab), true},
		{altRelease(KeysymAltL), false}, // commits, but the release passes through
	})

	wantCommands(t, drain(t, e), []Command{
		CmdSwitchForward,
		CmdSwitchForward,
		CmdCommitSwitch,
	})
	if e.State() != StateIdle {
		t.Errorf("state = %s, want idle", e.State())
	}
}

// The passive grabs never deliver the modifier presses themselves; the first
// event the engine sees for Alt+Tab is the Tab press with Alt (and possibly
// Shift) only in the mask. Classification must work from that alone.
func TestTriggerClassifiedFromEventMask(t *testing.T) {
	t.Run("forward", func(t *testing.T) {
		e := NewEngine(DefaultConfig())
		if !e.HandleKey(Event{Keysym: KeysymTab, Press: true, AltHeld: true}) {
			t.Error("trigger with modifier in mask should be swallowed")
		}
		if e.State() != StateSwitching {
			t.Errorf("state = %s, want switching", e.State())
		}
		wantCommands(t, drain(t, e), []Command{CmdSwitchForward})
	})

	t.Run("reverse", func(t *testing.T) {
		e := NewEngine(DefaultConfig())
		if !e.HandleKey(Event{Keysym: KeysymTab, Press: true, AltHeld: true, ShiftHeld: true}) {
			t.Error("shifted trigger should be swallowed")
		}
		if e.State() != StateSwitching {
			t.Errorf("state = %s, want switching", e.State())
		}
		wantCommands(t, drain(t, e), []Command{CmdSwitchReverse})
	})

	t.Run("release commits", func(t *testing.T) {
		e := NewEngine(DefaultConfig())
		e.HandleKey(Event{Keysym: KeysymTab, Press: true, AltHeld: true})
		drain(t, e)

		if e.HandleKey(altRelease(KeysymAltL)) {
			t.Error("modifier release should pass through")
		}
		wantCommands(t, drain(t, e), []Command{CmdCommitSwitch})
		if e.State() != StateIdle {
			t.Errorf("state = %s, want idle", e.State())
		}
	})
}

func TestShiftReversesDirection(t *testing.T) {
	e := NewEngine(DefaultConfig())

	runSteps(t, e, []step{
		{Event{Keysym: KeysymTab, Press: true, AltHeld: true, ShiftHeld: true}, true},
		{altRelease(KeysymShiftL), true}, // swallowed: switch in progress
		{altPress(KeysymTab), true},      // shift gone from the mask
	})

	wantCommands(t, drain(t, e), []Command{
		CmdSwitchReverse,
		CmdSwitchForward,
	})
}

func TestNavigationAndCommit(t *testing.T) {
	tests := []struct {
		name   string
		keysym uint32
		want   Command
		idle   bool
	}{
		{"left", KeysymLeft, CmdMoveLeft, false},
		{"right", KeysymRight, CmdMoveRight, false},
		{"up", KeysymUp, CmdMoveUp, false},
		{"down", KeysymDown, CmdMoveDown, false},
		{"return", KeysymReturn, CmdCommitSwitch, true},
		{"kp_enter", KeysymKPEnter, CmdCommitSwitch, true},
		{"escape", KeysymEscape, CmdCancelSwitch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultConfig())
			e.HandleKey(altPress(KeysymTab))
			drain(t, e)

			if !e.HandleKey(altPress(tt.keysym)) {
				t.Error("navigation key not swallowed")
			}
			wantCommands(t, drain(t, e), []Command{tt.want})

			wantState := StateSwitching
			if tt.idle {
				wantState = StateIdle
			}
			if e.State() != wantState {
				t.Errorf("state = %s, want %s", e.State(), wantState)
			}
		})
	}
}

func TestTypeSearchMode(t *testing.T) {
	e := NewEngine(DefaultConfig())

	runSteps(t, e, []step{
		{altPress(KeysymGrave), true}, // enters type-search
		{Event{Keysym: 'n', Press: true, AltHeld: true, Rune: 'n'}, true},
		{Event{Keysym: 'o', Press: true, AltHeld: true, Rune: 'o'}, true},
		{altRelease(KeysymAltL), false}, // no commit in type-search; passes through
		{press(KeysymDown), true},       // mode survives the modifier going up
		{press(KeysymReturn), true},
	})

	msgs := drain(t, e)
	wantCommands(t, msgs, []Command{
		CmdActivateTypingMode,
		CmdTypeChar,
		CmdTypeChar,
		CmdMoveDown,
		CmdCommitSwitch,
	})
	if msgs[1].Rune != 'n' || msgs[2].Rune != 'o' {
		t.Errorf("typed runes = %q %q, want n o", msgs[1].Rune, msgs[2].Rune)
	}
	if e.State() != StateIdle {
		t.Errorf("state = %s, want idle", e.State())
	}
}

func TestModifierReleaseInTypeSearchKeepsMode(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.HandleKey(altPress(KeysymGrave))
	drain(t, e)

	if e.HandleKey(altRelease(KeysymAltL)) {
		t.Error("modifier release should pass through")
	}
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("modifier release emitted %v, want nothing", got)
	}
	if e.State() != StateTypeSearch {
		t.Errorf("state = %s, want type_search", e.State())
	}
}

func TestIdleIgnoresTriggerWithoutModifier(t *testing.T) {
	e := NewEngine(DefaultConfig())

	if e.HandleKey(press(KeysymTab)) {
		t.Error("bare Tab should pass through")
	}
	if e.HandleKey(press(KeysymGrave)) {
		t.Error("bare grave should pass through")
	}
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("idle emitted %v, want nothing", got)
	}
}

func TestInjectedEventsIgnored(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.HandleKey(altPress(KeysymTab))
	drain(t, e)

	if e.HandleKey(Event{Keysym: KeysymReturn, Press: true, Injected: true}) {
		t.Error("injected event should pass through")
	}
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("injected event emitted %v, want nothing", got)
	}
	if e.State() != StateSwitching {
		t.Errorf("state = %s, want switching", e.State())
	}
}

func TestUnrelatedKeysSwallowedWhileSwitching(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.HandleKey(altPress(KeysymTab))
	drain(t, e)

	if !e.HandleKey(Event{Keysym: 'q', Press: true, AltHeld: true, Rune: 'q'}) {
		t.Error("unrelated key should be swallowed while switching")
	}
	if got := drain(t, e); len(got) != 0 {
		t.Errorf("unrelated key emitted %v, want nothing", got)
	}
}
