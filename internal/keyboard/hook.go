package keyboard

import (
	"fmt"
	"log"
	"unicode"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Hook wires the pure Engine to the X server. While the engine is idle only
// the trigger combinations are grabbed (passively, with a synchronous
// keyboard mode so each event can be swallowed or replayed individually);
// once a switch starts the whole keyboard is grabbed until the engine
// returns to idle.
type Hook struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	engine *Engine

	grabWindow   xproto.Window
	activeGrab   bool
	passiveCodes []grabbedKey
}

type grabbedKey struct {
	mods uint16
	code xproto.Keycode
}

// Alt plus the lock modifiers users leave on without noticing. CapsLock is
// ModMaskLock; NumLock is resolved from the modifier map at install time.
var lockVariants = []uint16{0, xproto.ModMaskLock}

// NewHook creates the X11 adapter for engine. Call Install before running
// the xevent main loop.
func NewHook(xu *xgbutil.XUtil, engine *Engine) *Hook {
	return &Hook{
		xu:     xu,
		root:   xu.RootWin(),
		engine: engine,
	}
}

// Install creates the grab window, attaches the key handlers and registers
// the passive trigger grabs. A failure here means the switcher cannot see
// any keys at all, so callers treat it as fatal.
func (h *Hook) Install() error {
	keybind.Initialize(h.xu)

	if err := h.ensureGrabWindow(); err != nil {
		return fmt.Errorf("create grab window: %w", err)
	}

	// All key events this client receives come from our own grabs, so a
	// blanket redirect to the dedicated window is safe.
	xevent.RedirectKeyEvents(h.xu, h.grabWindow)

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.handleKey(true, ev.Detail, ev.State, ev.Time)
	}).Connect(h.xu, h.grabWindow)
	xevent.KeyReleaseFun(func(xu *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		h.handleKey(false, ev.Detail, ev.State, ev.Time)
	}).Connect(h.xu, h.grabWindow)

	if err := h.installPassiveGrabs(); err != nil {
		h.Detach()
		return err
	}
	return nil
}

// Detach releases every grab and the event handlers. Used on shutdown and
// when Install fails partway through.
func (h *Hook) Detach() {
	conn := h.xu.Conn()
	for _, g := range h.passiveCodes {
		xproto.UngrabKey(conn, g.code, h.root, g.mods)
	}
	h.passiveCodes = nil
	if h.activeGrab {
		xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
		h.activeGrab = false
	}
	xevent.RedirectKeyEvents(h.xu, 0)
	if h.grabWindow != 0 {
		xevent.Detach(h.xu, h.grabWindow)
		xproto.DestroyWindow(conn, h.grabWindow)
		h.grabWindow = 0
	}
}

func (h *Hook) installPassiveGrabs() error {
	mods := h.lockMasks()

	type combo struct {
		keysym uint32
		mod    uint16
	}
	combos := []combo{
		{h.engine.cfg.TriggerKeysym, xproto.ModMask1},
		{h.engine.cfg.TriggerKeysym, xproto.ModMask1 | xproto.ModMaskShift},
		{h.engine.cfg.SearchKeysym, xproto.ModMask1},
	}

	for _, c := range combos {
		codes := h.keycodesFor(c.keysym)
		if len(codes) == 0 {
			return fmt.Errorf("no keycode maps to keysym 0x%x", c.keysym)
		}
		for _, code := range codes {
			for _, lock := range mods {
				err := xproto.GrabKeyChecked(
					h.xu.Conn(),
					false, // owner_events
					h.root,
					c.mod|lock,
					code,
					xproto.GrabModeAsync, // pointer
					xproto.GrabModeSync,  // keyboard frozen until AllowEvents
				).Check()
				if err != nil {
					return fmt.Errorf("grab keysym 0x%x mods 0x%x: %w", c.keysym, c.mod|lock, err)
				}
				h.passiveCodes = append(h.passiveCodes, grabbedKey{mods: c.mod | lock, code: code})
			}
		}
	}
	return nil
}

// lockMasks returns the modifier masks to grab in addition to the bare
// combination, so CapsLock/NumLock do not defeat the trigger.
func (h *Hook) lockMasks() []uint16 {
	masks := append([]uint16(nil), lockVariants...)
	if num := h.modMaskFor("Num_Lock"); num != 0 {
		masks = append(masks, num, num|xproto.ModMaskLock)
	}
	return masks
}

func (h *Hook) modMaskFor(keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(h.xu, keysym) {
		if mask := keybind.ModGet(h.xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}

// keycodesFor scans the keyboard mapping for every keycode whose first
// column is keysym.
func (h *Hook) keycodesFor(keysym uint32) []xproto.Keycode {
	var codes []xproto.Keycode
	setup := xproto.Setup(h.xu.Conn())
	for kc := setup.MinKeycode; kc <= setup.MaxKeycode; kc++ {
		if uint32(keybind.KeysymGet(h.xu, kc, 0)) == keysym {
			codes = append(codes, kc)
		}
		if kc == setup.MaxKeycode {
			break
		}
	}
	return codes
}

func (h *Hook) ensureGrabWindow() error {
	if h.grabWindow != 0 {
		return nil
	}
	conn := h.xu.Conn()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return err
	}

	// InputOnly window used only as a stable target for redirected key
	// events; it never draws.
	err = xproto.CreateWindowChecked(
		conn,
		0, // depth (must be 0 for InputOnly)
		wid,
		h.root,
		0, 0,
		1, 1,
		0,
		xproto.WindowClassInputOnly,
		xproto.Visualid(0), // CopyFromParent
		xproto.CwEventMask,
		[]uint32{uint32(xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease)},
	).Check()
	if err != nil {
		return err
	}

	xproto.MapWindow(conn, wid)
	h.grabWindow = wid
	return nil
}

// handleKey translates one X key event, lets the engine decide, then thaws
// the keyboard accordingly. Every event we see arrives frozen (passive sync
// grabs while idle, sync keyboard grab while active), so AllowEvents is
// unconditional.
func (h *Hook) handleKey(press bool, detail xproto.Keycode, state uint16, t xproto.Timestamp) {
	keysym := uint32(keybind.KeysymGet(h.xu, detail, 0))

	var r rune
	if s := keybind.LookupString(h.xu, state, detail); len(s) > 0 {
		first := []rune(s)[0]
		if unicode.IsPrint(first) {
			r = first
		}
	}

	swallow := h.engine.HandleKey(Event{
		Keysym:    keysym,
		Press:     press,
		AltHeld:   state&xproto.ModMask1 != 0,
		ShiftHeld: state&xproto.ModMaskShift != 0,
		Rune:      r,
	})

	mode := byte(xproto.AllowReplayKeyboard)
	if swallow {
		mode = xproto.AllowAsyncKeyboard
	}
	xproto.AllowEvents(h.xu.Conn(), mode, t)

	h.reconcileGrab()
}

// reconcileGrab keeps the active keyboard grab in step with the engine's
// mode: grab everything while a switch is in progress, release it when the
// engine goes back to idle.
func (h *Hook) reconcileGrab() {
	active := h.engine.State() != StateIdle
	switch {
	case active && !h.activeGrab:
		if err := h.grabKeyboard(); err != nil {
			log.Printf("keyboard: active grab failed: %v", err)
			return
		}
		h.activeGrab = true
	case !active && h.activeGrab:
		xproto.UngrabKeyboard(h.xu.Conn(), xproto.TimeCurrentTime)
		h.activeGrab = false
	}
}

func (h *Hook) grabKeyboard() error {
	conn := h.xu.Conn()

	grab := func() (*xproto.GrabKeyboardReply, error) {
		return xproto.GrabKeyboard(
			conn,
			false,  // owner_events
			h.root, // grab_window (must be viewable)
			xproto.TimeCurrentTime,
			xproto.GrabModeAsync, // pointer
			xproto.GrabModeSync,  // keyboard
		).Reply()
	}

	reply, err := grab()
	if err != nil {
		return err
	}

	// The passive trigger grab may still hold the keyboard as an implicit
	// active grab by this client; ungrab and retry once.
	if reply.Status == xproto.GrabStatusAlreadyGrabbed {
		xproto.UngrabKeyboard(conn, xproto.TimeCurrentTime)
		reply, err = grab()
		if err != nil {
			return err
		}
	}

	if reply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("keyboard grab failed with status %d", reply.Status)
	}
	return nil
}
