package notation

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// Wildcard is the unconstrained unit or R-group specifier.
	Wildcard = "?"
	// PairLabel is the R-group label of an RNA base-pair (hydrogen bond).
	PairLabel = "pair"
)

var reRGroup = regexp.MustCompile(`^R[1-9][0-9]*$`)

// IsRGroupLabel reports whether s is an explicit R<n> attachment label.
func IsRGroupLabel(s string) bool {
	return reRGroup.MatchString(s)
}

// ConnectionNotation is an inter- or intra-polymer bond.  Unit specifiers
// are kept as written: a 1-based position, "?", a monomer id, or a group of
// ids such as "(A,G)".
type ConnectionNotation struct {
	SourceID     PolymerID
	TargetID     PolymerID
	SourceUnit   string
	TargetUnit   string
	SourceRGroup string
	TargetRGroup string
	Annotation   string
}

// UnitPosition parses a unit specifier as a 1-based position.
func UnitPosition(unit string) (int, bool) {
	n, err := strconv.Atoi(unit)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func isExplicitRGroup(label string) bool {
	return label == PairLabel || IsRGroupLabel(label)
}

// IsSpecific reports whether both endpoints name exactly one position and an
// explicit R-group (or pair), and neither endpoint is a group entity.
func (c ConnectionNotation) IsSpecific() bool {
	if c.SourceID.IsGroup() || c.TargetID.IsGroup() {
		return false
	}
	if _, ok := UnitPosition(c.SourceUnit); !ok {
		return false
	}
	if _, ok := UnitPosition(c.TargetUnit); !ok {
		return false
	}
	return isExplicitRGroup(c.SourceRGroup) && isExplicitRGroup(c.TargetRGroup)
}

// IsPair reports whether the connection is an RNA base pair.
func (c ConnectionNotation) IsPair() bool {
	return c.SourceRGroup == PairLabel && c.TargetRGroup == PairLabel
}

// Reversed returns the connection with source and target swapped.
func (c ConnectionNotation) Reversed() ConnectionNotation {
	return ConnectionNotation{
		SourceID:     c.TargetID,
		TargetID:     c.SourceID,
		SourceUnit:   c.TargetUnit,
		TargetUnit:   c.SourceUnit,
		SourceRGroup: c.TargetRGroup,
		TargetRGroup: c.SourceRGroup,
		Annotation:   c.Annotation,
	}
}

// Render writes the connection using the given id renderer, which lets the
// canonicalizer substitute renumbered ids.
func (c ConnectionNotation) Render(idOf func(PolymerID) string) string {
	var sb strings.Builder
	sb.WriteString(idOf(c.SourceID))
	sb.WriteString(",")
	sb.WriteString(idOf(c.TargetID))
	sb.WriteString(",")
	sb.WriteString(c.SourceUnit)
	sb.WriteString(":")
	sb.WriteString(c.SourceRGroup)
	sb.WriteString("-")
	sb.WriteString(c.TargetUnit)
	sb.WriteString(":")
	sb.WriteString(c.TargetRGroup)
	if c.Annotation != "" {
		sb.WriteString(`"` + c.Annotation + `"`)
	}
	return sb.String()
}

// String renders the connection in HELM form, e.g. PEPTIDE1,PEPTIDE2,2:R3-1:R1.
func (c ConnectionNotation) String() string {
	return c.Render(PolymerID.String)
}
