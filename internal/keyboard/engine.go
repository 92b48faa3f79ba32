// Package keyboard implements the global keyboard state machine that turns
// raw key events into abstract switch commands. The Engine is pure and
// synchronous; the X11 hook in hook.go feeds it events and applies its
// swallow/pass-through decisions to the display server.
package keyboard

import "log"

// X keysym values for the keys the engine cares about.
const (
	KeysymTab     = 0xff09
	KeysymGrave   = 0x0060
	KeysymUp      = 0xff52
	KeysymDown    = 0xff54
	KeysymLeft    = 0xff51
	KeysymRight   = 0xff53
	KeysymReturn  = 0xff0d
	KeysymKPEnter = 0xff8d
	KeysymEscape  = 0xff1b
	KeysymShiftL  = 0xffe1
	KeysymShiftR  = 0xffe2
	KeysymAltL    = 0xffe9
	KeysymAltR    = 0xffea
)

// Command is an abstract switch command delivered to the controller.
type Command int

const (
	CmdNone Command = iota
	CmdSwitchForward
	CmdSwitchReverse
	CmdActivateTypingMode
	CmdMoveLeft
	CmdMoveRight
	CmdMoveUp
	CmdMoveDown
	CmdCommitSwitch
	CmdCancelSwitch
	CmdTypeChar
)

// String returns the string representation of the command.
func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdSwitchForward:
		return "switch_forward"
	case CmdSwitchReverse:
		return "switch_reverse"
	case CmdActivateTypingMode:
		return "activate_typing"
	case CmdMoveLeft:
		return "move_left"
	case CmdMoveRight:
		return "move_right"
	case CmdMoveUp:
		return "move_up"
	case CmdMoveDown:
		return "move_down"
	case CmdCommitSwitch:
		return "commit"
	case CmdCancelSwitch:
		return "cancel"
	case CmdTypeChar:
		return "type_char"
	default:
		return "unknown"
	}
}

// Message is one entry on the engine-to-controller queue. Rune is set only
// for CmdTypeChar.
type Message struct {
	Cmd  Command
	Rune rune
}

// State is the engine's mode.
type State int

const (
	// StateIdle passes all events through untouched.
	StateIdle State = iota
	// StateSwitching is the standard Alt-Tab cycle.
	StateSwitching
	// StateTypeSearch routes printable keys into the search accumulator.
	StateTypeSearch
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSwitching:
		return "switching"
	case StateTypeSearch:
		return "type_search"
	default:
		return "unknown"
	}
}

// Event is one raw key transition. AltHeld and ShiftHeld carry the modifier
// state from the X event's state mask: while idle only the trigger combos are
// grabbed, so the modifier presses themselves go to the focused client and
// the mask is the engine's only view of them. Injected marks events
// synthesized by the switcher's own simulated input; they are ignored
// entirely to avoid feedback loops.
type Event struct {
	Keysym    uint32
	Press     bool
	Injected  bool
	AltHeld   bool
	ShiftHeld bool
	Rune      rune // printable character, 0 when none
}

// Config selects the trigger keys. The modifier is Alt and is not
// configurable; Shift reverses direction.
type Config struct {
	TriggerKeysym uint32 // starts/advances the standard switch (default Tab)
	SearchKeysym  uint32 // enters type-search mode (default grave)
}

// DefaultConfig returns the stock Alt-Tab / Alt-` binding.
func DefaultConfig() Config {
	return Config{
		TriggerKeysym: KeysymTab,
		SearchKeysym:  KeysymGrave,
	}
}

// Engine classifies key events into commands. HandleKey must stay O(1): it
// runs inside the display server's frozen-event window and a slow decision
// stalls keyboard delivery system-wide. All rebuild/rescan work happens on
// the controller side of the queue.
type Engine struct {
	cfg   Config
	state State

	// Modifier state is seeded from each non-modifier event's mask and kept
	// current by explicit up/down events once the active grab delivers them;
	// querying the server's modifier map per event is unreliable while the
	// keyboard is frozen.
	shiftDown bool
	altDown   bool

	messages chan Message
}

// NewEngine creates an engine with a buffered FIFO command queue.
func NewEngine(cfg Config) *Engine {
	if cfg.TriggerKeysym == 0 {
		cfg.TriggerKeysym = KeysymTab
	}
	if cfg.SearchKeysym == 0 {
		cfg.SearchKeysym = KeysymGrave
	}
	return &Engine{
		cfg:      cfg,
		messages: make(chan Message, 64),
	}
}

// Messages returns the FIFO command queue drained by the controller.
func (e *Engine) Messages() <-chan Message {
	return e.messages
}

// State returns the current mode.
func (e *Engine) State() State {
	return e.state
}

// HandleKey processes one key transition and reports whether the event must
// be swallowed (true) or passed through to the focused application (false).
// At most one command is emitted per event.
func (e *Engine) HandleKey(ev Event) bool {
	if ev.Injected {
		return false
	}

	switch ev.Keysym {
	case KeysymShiftL, KeysymShiftR:
		e.shiftDown = ev.Press
		// Shift itself is swallowed only while a switch is in progress.
		return e.state != StateIdle
	case KeysymAltL, KeysymAltR:
		e.altDown = ev.Press
		if !ev.Press {
			return e.handleModifierRelease()
		}
		return e.state != StateIdle
	}

	// The mask on a non-modifier event is authoritative: the first event the
	// idle grabs ever deliver is the trigger key itself, with Alt (and maybe
	// Shift) already down in the mask and no modifier press on record.
	e.altDown = ev.AltHeld
	e.shiftDown = ev.ShiftHeld

	switch e.state {
	case StateIdle:
		return e.handleIdle(ev)
	case StateSwitching:
		return e.handleSwitching(ev)
	case StateTypeSearch:
		return e.handleTypeSearch(ev)
	}
	return false
}

func (e *Engine) handleIdle(ev Event) bool {
	if !ev.Press || !e.altDown {
		return false
	}
	switch ev.Keysym {
	case e.cfg.TriggerKeysym:
		e.state = StateSwitching
		e.emitDirection()
		return true
	case e.cfg.SearchKeysym:
		e.state = StateTypeSearch
		e.emit(CmdActivateTypingMode)
		return true
	}
	return false
}

func (e *Engine) handleSwitching(ev Event) bool {
	if !ev.Press {
		// Releases of already-swallowed keys stay swallowed so the
		// focused application never sees half a keystroke.
		return true
	}
	if ev.Keysym == e.cfg.TriggerKeysym {
		// The mode itself implies the modifier is held; no re-check.
		e.emitDirection()
		return true
	}
	if e.handleNavigation(ev.Keysym) {
		return true
	}
	// Everything else is swallowed while switching, to avoid confusing
	// other applications.
	return true
}

func (e *Engine) handleTypeSearch(ev Event) bool {
	if !ev.Press {
		return true
	}
	if e.handleNavigation(ev.Keysym) {
		return true
	}
	if ev.Rune != 0 {
		select {
		case e.messages <- Message{Cmd: CmdTypeChar, Rune: ev.Rune}:
		default:
			log.Printf("keyboard: command queue full, dropping typed rune")
		}
		return true
	}
	return true
}

// handleNavigation implements the navigation keys shared verbatim between
// the standard-switch and type-search modes.
func (e *Engine) handleNavigation(keysym uint32) bool {
	switch keysym {
	case KeysymLeft:
		e.emit(CmdMoveLeft)
	case KeysymRight:
		e.emit(CmdMoveRight)
	case KeysymUp:
		e.emit(CmdMoveUp)
	case KeysymDown:
		e.emit(CmdMoveDown)
	case KeysymReturn, KeysymKPEnter:
		e.emit(CmdCommitSwitch)
		e.state = StateIdle
	case KeysymEscape:
		e.emit(CmdCancelSwitch)
		e.state = StateIdle
	default:
		return false
	}
	return true
}

// handleModifierRelease implements the per-mode modifier-up behavior.
// Releasing the modifier commits a standard switch but the release event is
// deliberately passed through: swallowing a modifier-up confuses certain
// foreground applications. In type-search mode the release is a no-op; the
// asymmetry is intentional and must not be unified.
func (e *Engine) handleModifierRelease() bool {
	if e.state == StateSwitching {
		e.emit(CmdCommitSwitch)
		e.state = StateIdle
	}
	return false
}

func (e *Engine) emitDirection() {
	if e.shiftDown {
		e.emit(CmdSwitchReverse)
	} else {
		e.emit(CmdSwitchForward)
	}
}

func (e *Engine) emit(cmd Command) {
	select {
	case e.messages <- Message{Cmd: cmd}:
	default:
		// The controller has stalled badly; dropping beats blocking the
		// input path.
		log.Printf("keyboard: command queue full, dropping %s", cmd)
	}
}

// KeysymFromName maps the config-file key names to keysym values.
func KeysymFromName(name string) (uint32, bool) {
	switch name {
	case "Tab", "tab":
		return KeysymTab, true
	case "grave", "backtick", "`":
		return KeysymGrave, true
	case "Escape", "escape":
		return KeysymEscape, true
	case "Return", "return", "enter":
		return KeysymReturn, true
	default:
		if len(name) == 1 && name[0] > 0x20 && name[0] < 0x7f {
			return uint32(name[0]), true
		}
		return 0, false
	}
}
