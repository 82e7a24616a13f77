// Package validation checks the semantic consistency of a parsed HELM
// notation: id uniqueness, monomer legality, grouping references,
// connection endpoints and attachment-point usage.
package validation

import (
	"fmt"

	"github.com/turtacn/helmkit/internal/domain/notation"
)

// SlotKey identifies one attachment point of one monomer occurrence.
type SlotKey struct {
	PolymerID notation.PolymerID
	Position  int
	RGroup    string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("(%s,%d,%s)", k.PolymerID, k.Position, k.RGroup)
}

// SlotTracker records the attachment points consumed by connections during
// one validation pass.  A tracker must not outlive the pass.
type SlotTracker struct {
	used map[SlotKey]struct{}
}

// NewSlotTracker returns an empty tracker.
func NewSlotTracker() *SlotTracker {
	return &SlotTracker{used: make(map[SlotKey]struct{})}
}

// Has reports whether the slot is already consumed.
func (t *SlotTracker) Has(k SlotKey) bool {
	_, ok := t.used[k]
	return ok
}

// Add consumes a slot.  Adding a consumed slot is a programming error and
// panics; callers check Has first.
func (t *SlotTracker) Add(k SlotKey) {
	if t.Has(k) {
		panic("validation: slot " + k.String() + " added twice")
	}
	t.used[k] = struct{}{}
}

// Len returns the number of consumed slots.
func (t *SlotTracker) Len() int {
	return len(t.used)
}
