package notation

import "strings"

// PolymerNotation is a declared simple polymer: its id plus an ordered
// element sequence.  Element order defines the unit positions used by
// connections.
type PolymerNotation struct {
	ID         PolymerID
	Elements   []MonomerNotation
	Annotation string
}

// NewPolymer builds a PolymerNotation.
func NewPolymer(id PolymerID, elements ...MonomerNotation) *PolymerNotation {
	return &PolymerNotation{ID: id, Elements: elements}
}

// ElementsString renders the element sequence without braces.
func (p *PolymerNotation) ElementsString() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.String()
	}
	return strings.Join(parts, ".")
}

// String renders the polymer as ID{elements}"annotation".
func (p *PolymerNotation) String() string {
	s := p.ID.String() + "{" + p.ElementsString() + "}"
	if p.Annotation != "" {
		s += `"` + p.Annotation + `"`
	}
	return s
}

// HasAmbiguity reports whether any element is a Group or List.
func (p *PolymerNotation) HasAmbiguity() bool {
	for _, e := range p.Elements {
		if IsAmbiguous(e) {
			return true
		}
	}
	return false
}
