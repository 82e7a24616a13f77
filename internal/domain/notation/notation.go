package notation

import "strings"

// HELM2Version is the version marker closing a HELM2 string.
const HELM2Version = "V2.0"

// Notation is the aggregate root of a parsed HELM string.
type Notation struct {
	Polymers    []*PolymerNotation
	Connections []ConnectionNotation
	Groupings   []GroupingNotation
	Annotations []AnnotationNotation
}

// Polymer returns the first declared polymer with the given id.
func (n *Notation) Polymer(id PolymerID) (*PolymerNotation, bool) {
	for _, p := range n.Polymers {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Grouping returns the first declared grouping with the given id.
func (n *Notation) Grouping(id PolymerID) (*GroupingNotation, bool) {
	for i := range n.Groupings {
		if n.Groupings[i].ID == id {
			return &n.Groupings[i], true
		}
	}
	return nil, false
}

// IDs returns every declared polymer and group id in declaration order,
// duplicates included.
func (n *Notation) IDs() []PolymerID {
	ids := make([]PolymerID, 0, len(n.Polymers)+len(n.Groupings))
	for _, p := range n.Polymers {
		ids = append(ids, p.ID)
	}
	for _, g := range n.Groupings {
		ids = append(ids, g.ID)
	}
	return ids
}

// HasID reports whether id is declared as a polymer or group.
func (n *Notation) HasID(id PolymerID) bool {
	if _, ok := n.Polymer(id); ok {
		return true
	}
	_, ok := n.Grouping(id)
	return ok
}

// ResolveMembers expands id to the polymers it stands for.  A simple polymer
// resolves to itself; a group entity resolves, recursively, to the polymers
// of its members.  Unknown ids resolve to nothing.
func (n *Notation) ResolveMembers(id PolymerID) []*PolymerNotation {
	return n.resolveMembers(id, map[PolymerID]bool{})
}

func (n *Notation) resolveMembers(id PolymerID, seen map[PolymerID]bool) []*PolymerNotation {
	if seen[id] {
		return nil
	}
	seen[id] = true
	if p, ok := n.Polymer(id); ok {
		return []*PolymerNotation{p}
	}
	g, ok := n.Grouping(id)
	if !ok {
		return nil
	}
	var out []*PolymerNotation
	for _, m := range g.Members {
		out = append(out, n.resolveMembers(m.ID, seen)...)
	}
	return out
}

// HasAmbiguity reports whether the notation uses any HELM2-only construct:
// monomer groups or lists, groupings, ambiguous connections or blobs.
func (n *Notation) HasAmbiguity() bool {
	if len(n.Groupings) > 0 {
		return true
	}
	for _, p := range n.Polymers {
		if p.ID.Kind == KindBlob || p.HasAmbiguity() {
			return true
		}
	}
	for _, c := range n.Connections {
		if !c.IsSpecific() {
			return true
		}
	}
	return false
}

// String renders the notation in HELM2 form.
func (n *Notation) String() string {
	polymers := make([]string, len(n.Polymers))
	for i, p := range n.Polymers {
		polymers[i] = p.String()
	}
	conns := make([]string, len(n.Connections))
	for i, c := range n.Connections {
		conns[i] = c.String()
	}
	groups := make([]string, len(n.Groupings))
	for i, g := range n.Groupings {
		groups[i] = g.String()
	}
	annots := make([]string, len(n.Annotations))
	for i, a := range n.Annotations {
		annots[i] = a.String()
	}
	return strings.Join([]string{
		strings.Join(polymers, "|"),
		strings.Join(conns, "|"),
		strings.Join(groups, "|"),
		strings.Join(annots, "|"),
		HELM2Version,
	}, "$")
}
