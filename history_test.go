package beatpad_test

import (
	"testing"

	"github.com/beatpad/beatpad"
)

func kickOn(p beatpad.Pattern, step int) bool {
	i := p.TrackIndex("kick")
	return i >= 0 && p.Tracks[i].Active(step)
}

func TestHistoryUndoRedo(t *testing.T) {
	h := beatpad.NewHistory(beatpad.DefaultPattern())
	if h.CanUndo() || h.CanRedo() {
		t.Fatalf("new history should have nothing to undo or redo")
	}
	for step := 0; step < 3; step++ {
		h.Edit(func(p *beatpad.Pattern) { p.ToggleSoundOnStep("kick", step, beatpad.SoundTypeDrum) })
	}
	p, ok := h.Undo()
	if !ok || kickOn(p, 2) || !kickOn(p, 1) {
		t.Fatalf("undo should drop only the last edit")
	}
	p, ok = h.Redo()
	if !ok || !kickOn(p, 2) {
		t.Fatalf("redo should bring the last edit back")
	}
	h.Undo()
	h.Edit(func(p *beatpad.Pattern) { p.BPM = 90 })
	if h.CanRedo() {
		t.Fatalf("a new edit should drop the redo stack")
	}
	for h.CanUndo() {
		h.Undo()
	}
	if p := h.Pattern(); kickOn(p, 0) || p.BPM != beatpad.DefaultBPM {
		t.Fatalf("undoing everything should give back the first pattern")
	}
	if _, ok := h.Undo(); ok {
		t.Fatalf("undo on empty stack should fail")
	}
}

func TestHistoryIsBounded(t *testing.T) {
	h := beatpad.NewHistory(beatpad.DefaultPattern())
	for i := 0; i < beatpad.MaxUndo+10; i++ {
		h.Edit(func(p *beatpad.Pattern) { p.BPM = float64(60 + i) })
	}
	n := 0
	for h.CanUndo() {
		h.Undo()
		n++
	}
	if n != beatpad.MaxUndo {
		t.Fatalf("got %d undo steps, expected %d", n, beatpad.MaxUndo)
	}
	if got := h.Pattern().BPM; got != 69 {
		t.Fatalf("oldest remembered tempo is %v, expected 69", got)
	}
}

func TestHistoryDoesNotAlias(t *testing.T) {
	p := beatpad.DefaultPattern()
	h := beatpad.NewHistory(p)
	p.ToggleSoundOnStep("kick", 0, beatpad.SoundTypeDrum)
	if kickOn(h.Pattern(), 0) {
		t.Fatalf("history should hold its own copy")
	}
	got := h.Pattern()
	got.ToggleSoundOnStep("kick", 0, beatpad.SoundTypeDrum)
	if kickOn(h.Pattern(), 0) {
		t.Fatalf("Pattern should return a copy")
	}
}
