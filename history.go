package beatpad

// MaxUndo is the number of edits History remembers.
const MaxUndo = 50

// History holds a pattern with its undo and redo stacks. Every pattern
// going in or out is copied, so callers never share step slices with the
// history. The zero value holds an empty pattern.
type History struct {
	present   Pattern
	undoStack []Pattern
	redoStack []Pattern
}

func NewHistory(p Pattern) *History {
	return &History{present: p.Copy()}
}

// Pattern returns a copy of the current pattern.
func (h *History) Pattern() Pattern {
	return h.present.Copy()
}

// Set makes p the current pattern, remembering the previous one for Undo and
// dropping everything that could be redone.
func (h *History) Set(p Pattern) {
	h.undoStack = push(h.undoStack, h.present)
	h.present = p.Copy()
	h.redoStack = h.redoStack[:0]
}

// Edit applies fn to a copy of the current pattern and stores the result as
// with Set.
func (h *History) Edit(fn func(p *Pattern)) Pattern {
	p := h.present.Copy()
	fn(&p)
	h.Set(p)
	return p.Copy()
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// Undo steps back one edit and returns the resulting pattern, or false when
// there is nothing to undo.
func (h *History) Undo() (Pattern, bool) {
	if !h.CanUndo() {
		return Pattern{}, false
	}
	h.redoStack = append(h.redoStack, h.present)
	h.present = h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	return h.present.Copy(), true
}

// Redo reapplies the last undone edit.
func (h *History) Redo() (Pattern, bool) {
	if !h.CanRedo() {
		return Pattern{}, false
	}
	h.undoStack = push(h.undoStack, h.present)
	h.present = h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	return h.present.Copy(), true
}

func push(stack []Pattern, p Pattern) []Pattern {
	stack = append(stack, p)
	if len(stack) > MaxUndo {
		copy(stack, stack[len(stack)-MaxUndo:])
		stack = stack[:MaxUndo]
	}
	return stack
}
