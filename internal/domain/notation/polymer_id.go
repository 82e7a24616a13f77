// Package notation provides the HELM notation model: polymer identifiers,
// monomer notations, polymers, connections, groupings and annotations, plus
// the Notation aggregate that ties them together.
//
// Values in this package are treated as immutable once handed to the
// validator or canonicalizer; nothing in the engine mutates a Notation.
package notation

import (
	"regexp"
	"strconv"

	"github.com/turtacn/helmkit/pkg/errors"
)

// Kind is the polymer type of a HELM entity.
type Kind int

const (
	KindUnknown Kind = iota
	KindPeptide
	KindRNA
	KindChem
	KindBlob
	KindGroup
)

// String returns the HELM id prefix of the kind.
func (k Kind) String() string {
	switch k {
	case KindPeptide:
		return "PEPTIDE"
	case KindRNA:
		return "RNA"
	case KindChem:
		return "CHEM"
	case KindBlob:
		return "BLOB"
	case KindGroup:
		return "GROUP"
	default:
		return "UNKNOWN"
	}
}

// IsPolymer reports whether the kind names a simple polymer rather than a
// group entity.
func (k Kind) IsPolymer() bool {
	return k >= KindPeptide && k <= KindBlob
}

// ParseKind maps a HELM id prefix to its Kind.  Both "G" and "GROUP" are
// accepted for group entities; String always renders "GROUP".
func ParseKind(prefix string) (Kind, bool) {
	switch prefix {
	case "PEPTIDE":
		return KindPeptide, true
	case "RNA":
		return KindRNA, true
	case "CHEM":
		return KindChem, true
	case "BLOB":
		return KindBlob, true
	case "G", "GROUP":
		return KindGroup, true
	}
	return KindUnknown, false
}

// PolymerID identifies a polymer or group entity, e.g. PEPTIDE1 or GROUP2.
type PolymerID struct {
	Kind  Kind
	Index int
}

// NewPolymerID builds a PolymerID.
func NewPolymerID(kind Kind, index int) PolymerID {
	return PolymerID{Kind: kind, Index: index}
}

// String renders the id in HELM form.
func (id PolymerID) String() string {
	return id.Kind.String() + strconv.Itoa(id.Index)
}

// IsGroup reports whether the id names a group entity.
func (id PolymerID) IsGroup() bool {
	return id.Kind == KindGroup
}

var rePolymerID = regexp.MustCompile(`^(PEPTIDE|RNA|CHEM|BLOB|GROUP|G)([1-9][0-9]*)$`)

// ParsePolymerID parses a HELM polymer or group id.
func ParsePolymerID(s string) (PolymerID, error) {
	m := rePolymerID.FindStringSubmatch(s)
	if m == nil {
		return PolymerID{}, errors.New(errors.ErrCodeParseFailed, "invalid polymer id").
			WithDetailf("id=%q", s)
	}
	kind, _ := ParseKind(m[1])
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return PolymerID{}, errors.Wrap(err, errors.ErrCodeParseFailed, "invalid polymer index")
	}
	return PolymerID{Kind: kind, Index: idx}, nil
}

// MustParsePolymerID is ParsePolymerID that panics on error.  Intended for
// tests and constant tables.
func MustParsePolymerID(s string) PolymerID {
	id, err := ParsePolymerID(s)
	if err != nil {
		panic(err)
	}
	return id
}
