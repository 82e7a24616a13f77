package notation

import "strings"

// GroupMember is one polymer referenced by a grouping, with optional ratio.
type GroupMember struct {
	ID    PolymerID
	Ratio string
}

func (m GroupMember) String() string {
	if m.Ratio == "" {
		return m.ID.String()
	}
	return m.ID.String() + ":" + m.Ratio
}

// GroupingNotation declares a group entity standing for several polymers,
// e.g. GROUP1(PEPTIDE1+PEPTIDE2).
type GroupingNotation struct {
	ID      PolymerID
	Kind    GroupKind
	Members []GroupMember
}

func (g GroupingNotation) String() string {
	parts := make([]string, len(g.Members))
	for i, m := range g.Members {
		parts[i] = m.String()
	}
	return g.ID.String() + "(" + strings.Join(parts, g.Kind.Separator()) + ")"
}

// MemberIDs returns the referenced ids in declaration order.
func (g GroupingNotation) MemberIDs() []PolymerID {
	ids := make([]PolymerID, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// AnnotationNotation is a free-text annotation.  Target is set when the text
// is scoped to one polymer (written ID{...}); nil for whole-notation tags.
type AnnotationNotation struct {
	Text   string
	Target *PolymerID
}

func (a AnnotationNotation) String() string {
	if a.Target == nil {
		return a.Text
	}
	return a.Target.String() + "{" + a.Text + "}"
}
