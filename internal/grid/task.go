package grid

import "strings"

// Kind discriminates the two task variants. Tasks are a closed sum: shared
// fields live on Task, variant payloads are only meaningful for their kind.
type Kind int

const (
	// KindWindow is a top-level application window discovered in Z-order.
	KindWindow Kind = iota
	// KindButton is a taskbar button discovered in visual taskbar order.
	KindButton
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindButton:
		return "button"
	default:
		return "unknown"
	}
}

// Rect represents a tile position and size in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Icon holds raw ARGB pixel data for a window icon. The icon is owned by the
// task that holds it and is replaced wholesale on refresh.
type Icon struct {
	Width  int
	Height int
	Argb   []uint32
}

// ClassResolver resolves a window's class name on first use.
type ClassResolver func(window uint32) string

// Task is a switch target: either a window or a taskbar button.
type Task struct {
	Kind        Kind
	Name        string // normalized display name
	Rect        Rect   // assigned by the grid builder
	BeginsGroup bool   // first item placed into its group

	// Window payload. For KindButton, Window holds the associated window
	// handle resolved by name matching (0 when no window matched); it is a
	// lookup key against the snapshot, never an owning reference.
	Window  uint32
	Icon    *Icon
	ExePath string // owning process's executable, "" when unreadable

	// Button payload.
	ButtonIndex int

	class        string
	classKnown   bool
	resolveClass ClassResolver
}

// NewWindowTask wraps a window handle as a task. The class name is resolved
// lazily through resolve and cached for the task's lifetime.
func NewWindowTask(window uint32, name string, resolve ClassResolver) *Task {
	return &Task{
		Kind:         KindWindow,
		Name:         name,
		Window:       window,
		resolveClass: resolve,
	}
}

// NewButtonTask wraps a taskbar button as a task.
func NewButtonTask(index int, name string) *Task {
	return &Task{
		Kind:        KindButton,
		Name:        name,
		ButtonIndex: index,
	}
}

// AdoptClass copies from's class resolution into t: the cached class when
// from has already resolved it, otherwise from's resolver. Used when a button
// is associated to a window and when a rebuilt task replaces one from a
// previous scan.
func (t *Task) AdoptClass(from *Task) {
	t.class = from.class
	t.classKnown = from.classKnown
	t.resolveClass = from.resolveClass
}

// ClassName returns the window class, resolving it on first call. Tasks are
// built and read on the controller goroutine, so no locking is needed.
func (t *Task) ClassName() string {
	if !t.classKnown {
		if t.resolveClass != nil && t.Window != 0 {
			t.class = t.resolveClass(t.Window)
		}
		t.classKnown = true
	}
	return t.class
}

// Associated reports the window handle a button task resolved to, or 0.
func (t *Task) Associated() uint32 {
	if t.Kind != KindButton {
		return 0
	}
	return t.Window
}

// oddSpaces are space-like code points that some applications embed in their
// window titles (word joiners, typographic spaces). They break name matching
// between the window list and the taskbar list, so they collapse to a plain
// ASCII space during normalization.
var oddSpaces = map[rune]bool{
	'\u00a0': true, // no-break space
	'\u2000': true, // en quad through hair space
	'\u2001': true,
	'\u2002': true,
	'\u2003': true,
	'\u2004': true,
	'\u2005': true,
	'\u2006': true,
	'\u2007': true,
	'\u2008': true,
	'\u2009': true,
	'\u200a': true,
	'\u200b': true, // zero-width space
	'\u202f': true, // narrow no-break space
}

// NormalizeName collapses odd space code points in a display name to regular
// spaces. Names containing any of the exempt substrings are returned
// untouched; some applications rely on exotic spacing and matching still
// works because both lists carry the same raw name.
func NormalizeName(name string, exempt []string) string {
	for _, safe := range exempt {
		if safe != "" && strings.Contains(name, safe) {
			return name
		}
	}
	return strings.Map(func(r rune) rune {
		if oddSpaces[r] {
			return ' '
		}
		return r
	}, name)
}
