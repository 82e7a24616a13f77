package notation

import (
	"math"
	"strings"
)

// RNAPart names the sub-unit an RNA position refers to.
type RNAPart int

const (
	PartNone RNAPart = iota
	PartSugar
	PartBase
	PartLinker
)

// Position is one monomer occurrence of a polymer after flattening counts,
// lists and RNA units.
type Position struct {
	// Index is the 1-based unit position used by connections.
	Index int
	// Element is the 0-based index of the owning top-level element.
	Element int
	// Notation is the *Unit or *Group occupying the position.
	Notation MonomerNotation
	Part     RNAPart
}

// Positions flattens a polymer's elements into 1-based unit positions.  A
// Unit with count n takes n positions, a List its expanded elements times
// its count, an RNA unit one position per present sub-unit, and a Group one
// position per occurrence.
func Positions(p *PolymerNotation) []Position {
	var out []Position
	for i, e := range p.Elements {
		out = appendPositions(out, i, e, PartNone)
	}
	return out
}

func appendPositions(out []Position, element int, m MonomerNotation, part RNAPart) []Position {
	switch v := m.(type) {
	case *Unit:
		for k := 0; k < v.Occurrences(); k++ {
			out = append(out, Position{Index: len(out) + 1, Element: element, Notation: v, Part: part})
		}
	case *Group:
		for k := 0; k < v.Occurrences(); k++ {
			out = append(out, Position{Index: len(out) + 1, Element: element, Notation: v, Part: part})
		}
	case *List:
		for k := 0; k < v.Occurrences(); k++ {
			for _, e := range v.Elements {
				out = appendPositions(out, element, e, part)
			}
		}
	case *RNAUnit:
		for k := 0; k < v.Occurrences(); k++ {
			if v.Sugar != nil {
				out = appendPositions(out, element, v.Sugar, PartSugar)
			}
			if v.Base != nil {
				out = appendPositions(out, element, v.Base, PartBase)
			}
			if v.Linker != nil {
				out = appendPositions(out, element, v.Linker, PartLinker)
			}
		}
	}
	return out
}

// Len returns the number of unit positions of p without flattening it.  The
// count saturates at math.MaxInt.
func Len(p *PolymerNotation) int {
	n := 0
	for _, e := range p.Elements {
		n = addSat(n, ElementLen(e))
	}
	return n
}

// ElementLen returns the number of unit positions m occupies, counting its
// repeat count.
func ElementLen(m MonomerNotation) int {
	switch v := m.(type) {
	case *Unit, *Group:
		return m.Occurrences()
	case *List:
		return mulSat(sumLen(v.Elements), v.Occurrences())
	case *RNAUnit:
		return mulSat(sumLen(v.Contents()), v.Occurrences())
	}
	return 0
}

func sumLen(ms []MonomerNotation) int {
	n := 0
	for _, m := range ms {
		n = addSat(n, ElementLen(m))
	}
	return n
}

// At returns the position with 1-based index i, walking repeat counts
// arithmetically instead of flattening p.
func At(p *PolymerNotation, i int) (Position, bool) {
	if i < 1 {
		return Position{}, false
	}
	rest := i
	for el, e := range p.Elements {
		n := ElementLen(e)
		if rest <= n {
			pos, ok := locate(e, rest, PartNone)
			pos.Index, pos.Element = i, el
			return pos, ok
		}
		rest -= n
	}
	return Position{}, false
}

// locate finds the i-th position (1-based) inside one element.
func locate(m MonomerNotation, i int, part RNAPart) (Position, bool) {
	switch v := m.(type) {
	case *Unit, *Group:
		return Position{Notation: m, Part: part}, true
	case *List:
		return locateIn(v.Elements, nil, part, i)
	case *RNAUnit:
		var ms []MonomerNotation
		var parts []RNAPart
		for _, c := range []struct {
			m    MonomerNotation
			part RNAPart
		}{{v.Sugar, PartSugar}, {v.Base, PartBase}, {v.Linker, PartLinker}} {
			if c.m != nil {
				ms = append(ms, c.m)
				parts = append(parts, c.part)
			}
		}
		return locateIn(ms, parts, part, i)
	}
	return Position{}, false
}

// locateIn finds the i-th position in a repeated sequence of elements.
// parts, when set, gives the RNA part of each element; otherwise every
// element keeps part.
func locateIn(ms []MonomerNotation, parts []RNAPart, part RNAPart, i int) (Position, bool) {
	per := sumLen(ms)
	if per == 0 {
		return Position{}, false
	}
	i = (i-1)%per + 1
	for k, m := range ms {
		n := ElementLen(m)
		if i <= n {
			if parts != nil {
				part = parts[k]
			}
			return locate(m, i, part)
		}
		i -= n
	}
	return Position{}, false
}

func addSat(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func mulSat(a, b int) int {
	if a != 0 && b > math.MaxInt/a {
		return math.MaxInt
	}
	return a * b
}

// MatchPositions returns the positions whose monomer matches id.  A Unit
// matches on its id; a Group matches when id is one of its alternatives.
func MatchPositions(p *PolymerNotation, id string) []int {
	return MatchIn(Positions(p), id)
}

// MatchIn is MatchPositions over already flattened positions.
func MatchIn(positions []Position, id string) []int {
	id = strings.TrimSuffix(strings.TrimPrefix(id, "["), "]")
	var out []int
	for _, pos := range positions {
		switch v := pos.Notation.(type) {
		case *Unit:
			if v.ID == id {
				out = append(out, pos.Index)
			}
		case *Group:
			for _, m := range v.MemberIDs() {
				if m == id {
					out = append(out, pos.Index)
					break
				}
			}
		}
	}
	return out
}
