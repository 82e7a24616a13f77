package notation

import (
	"regexp"
	"strconv"
	"strings"
)

// MonomerNotation is a single element of a polymer sequence.  It is a closed
// sum type: the only implementations are *Unit, *List, *Group and *RNAUnit,
// and callers are expected to switch over exactly those four.
type MonomerNotation interface {
	// PolymerType is the type inherited from the owning polymer.
	PolymerType() Kind
	// Occurrences is the repeat count of the element (always >= 1).
	Occurrences() int
	// String renders the element in HELM form.
	String() string

	isMonomerNotation()
}

// GroupKind distinguishes mixtures ("+") from ordered choices (",").
type GroupKind int

const (
	GroupMixture GroupKind = iota
	GroupOr
)

// Separator returns the HELM separator for the group kind.
func (k GroupKind) Separator() string {
	if k == GroupOr {
		return ","
	}
	return "+"
}

func (k GroupKind) String() string {
	if k == GroupOr {
		return "or"
	}
	return "mixture"
}

// ─────────────────────────────────────────────────────────────────────────────
// Unit
// ─────────────────────────────────────────────────────────────────────────────

// Unit references a single monomer by id.  ID is stored without bracket
// quoting; inline SMILES are kept verbatim.
type Unit struct {
	ID         string
	Type       Kind
	Count      int
	Annotation string
}

// NewUnit builds a Unit with a count of one.
func NewUnit(kind Kind, id string) *Unit {
	return &Unit{ID: id, Type: kind, Count: 1}
}

func (u *Unit) PolymerType() Kind  { return u.Type }
func (u *Unit) Occurrences() int   { return normCount(u.Count) }
func (u *Unit) isMonomerNotation() {}

// Symbol renders the monomer id, bracket-quoted when required.
func (u *Unit) Symbol() string {
	return QuoteID(u.Type, u.ID)
}

func (u *Unit) String() string {
	return u.Symbol() + suffix(u.Count, u.Annotation)
}

var reSimpleID = regexp.MustCompile(`^[A-Za-z0-9_\-*?]+$`)

// QuoteID returns id in the form HELM requires inside a polymer: peptide and
// nucleotide ids longer than one character, and any id that is not a plain
// identifier (inline SMILES), are wrapped in brackets.
func QuoteID(kind Kind, id string) string {
	if len(id) <= 1 {
		return id
	}
	if !reSimpleID.MatchString(id) {
		return "[" + id + "]"
	}
	if kind == KindPeptide || kind == KindRNA {
		return "[" + id + "]"
	}
	return id
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

// List is an unambiguous concatenation such as (A.G.C), repeated Count times.
type List struct {
	Elements   []MonomerNotation
	Type       Kind
	Count      int
	Annotation string
}

func (l *List) PolymerType() Kind  { return l.Type }
func (l *List) Occurrences() int   { return normCount(l.Count) }
func (l *List) isMonomerNotation() {}

func (l *List) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ".") + ")" + suffix(l.Count, l.Annotation)
}

// ─────────────────────────────────────────────────────────────────────────────
// Group
// ─────────────────────────────────────────────────────────────────────────────

// GroupElement is one alternative of a monomer group with its optional ratio.
type GroupElement struct {
	Notation MonomerNotation
	Ratio    string
}

func (g GroupElement) String() string {
	if g.Ratio == "" {
		return g.Notation.String()
	}
	return g.Notation.String() + ":" + g.Ratio
}

// Group is a set of alternatives, either a mixture (A+G) or a choice (A,G).
// It never resolves to a single monomer.
type Group struct {
	Elements   []GroupElement
	Kind       GroupKind
	Type       Kind
	Count      int
	Annotation string
}

func (g *Group) PolymerType() Kind  { return g.Type }
func (g *Group) Occurrences() int   { return normCount(g.Count) }
func (g *Group) isMonomerNotation() {}

func (g *Group) String() string {
	parts := make([]string, len(g.Elements))
	for i, e := range g.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, g.Kind.Separator()) + ")" + suffix(g.Count, g.Annotation)
}

// MemberIDs returns the monomer ids of the group's alternatives that are
// plain units.
func (g *Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Elements))
	for _, e := range g.Elements {
		if u, ok := e.Notation.(*Unit); ok {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// ─────────────────────────────────────────────────────────────────────────────
// RNAUnit
// ─────────────────────────────────────────────────────────────────────────────

// RNAUnit is a nucleotide written as sugar(base)linker, e.g. R(A)P.  Sugar is
// always present; Base and Linker are optional.  A lone monomer in an RNA
// polymer (such as a terminal P) is an RNAUnit with only Sugar set.
type RNAUnit struct {
	Sugar      MonomerNotation
	Base       MonomerNotation
	Linker     MonomerNotation
	Type       Kind
	Count      int
	Annotation string
}

func (r *RNAUnit) PolymerType() Kind  { return KindRNA }
func (r *RNAUnit) Occurrences() int   { return normCount(r.Count) }
func (r *RNAUnit) isMonomerNotation() {}

// Contents returns the present sub-units in sugar, base, linker order.
func (r *RNAUnit) Contents() []MonomerNotation {
	out := make([]MonomerNotation, 0, 3)
	for _, c := range []MonomerNotation{r.Sugar, r.Base, r.Linker} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (r *RNAUnit) String() string {
	var sb strings.Builder
	if r.Sugar != nil {
		sb.WriteString(r.Sugar.String())
	}
	if r.Base != nil {
		sb.WriteString("(")
		sb.WriteString(r.Base.String())
		sb.WriteString(")")
	}
	if r.Linker != nil {
		sb.WriteString(r.Linker.String())
	}
	sb.WriteString(suffix(r.Count, r.Annotation))
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func normCount(c int) int {
	if c < 1 {
		return 1
	}
	return c
}

func suffix(count int, annotation string) string {
	var s string
	if count > 1 {
		s = "'" + strconv.Itoa(count) + "'"
	}
	if annotation != "" {
		s += `"` + annotation + `"`
	}
	return s
}

// IsAmbiguous reports whether the element is a Group or List, or contains
// one: those are HELM2-only constructs.
func IsAmbiguous(m MonomerNotation) bool {
	switch v := m.(type) {
	case *Group, *List:
		return true
	case *RNAUnit:
		for _, c := range v.Contents() {
			if IsAmbiguous(c) {
				return true
			}
		}
	}
	return false
}
