package validation

import (
	"strings"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ConnectionValidator checks connection endpoints and attachment usage.
type ConnectionValidator struct {
	resolver *monomer.Resolver
}

// NewConnectionValidator returns a ConnectionValidator resolving monomers
// through r.
func NewConnectionValidator(r *monomer.Resolver) *ConnectionValidator {
	return &ConnectionValidator{resolver: r}
}

// endpoint is one resolved side of a connection on one concrete polymer.
// positions and monomers are parallel; both are empty for a "?" unit.
type endpoint struct {
	polymer   *notation.PolymerNotation
	rgroup    string
	positions []int
	monomers  [][]*monomer.Monomer
}

// pass is the state of one ValidateAll call.
type pass struct {
	slots *SlotTracker
	// flat holds each polymer's flattened positions, built on first use.
	flat map[*notation.PolymerNotation][]notation.Position
}

func (ps *pass) positions(p *notation.PolymerNotation) []notation.Position {
	if out, ok := ps.flat[p]; ok {
		return out
	}
	out := notation.Positions(p)
	ps.flat[p] = out
	return out
}

// ValidateAll checks every connection against n.  Slot occupancy is tracked
// across all connections of the call; only specific connections consume
// slots.  The first failure aborts.
func (v *ConnectionValidator) ValidateAll(conns []notation.ConnectionNotation, n *notation.Notation) error {
	ps := &pass{slots: NewSlotTracker(), flat: make(map[*notation.PolymerNotation][]notation.Position)}
	for i, c := range conns {
		if err := v.validate(i+1, c, n, ps); err != nil {
			return err
		}
	}
	return nil
}

func (v *ConnectionValidator) validate(index int, c notation.ConnectionNotation, n *notation.Notation, ps *pass) error {
	for _, id := range []notation.PolymerID{c.SourceID, c.TargetID} {
		if !n.HasID(id) {
			return errors.New(errors.ErrCodeUnknownPolymerID, "connection references an undeclared polymer").
				WithDetailf("connection=%d polymer=%s", index, id)
		}
	}

	sources, err := v.resolveSide(index, n, ps, c.SourceID, c.SourceUnit, c.SourceRGroup)
	if err != nil {
		return err
	}
	targets, err := v.resolveSide(index, n, ps, c.TargetID, c.TargetUnit, c.TargetRGroup)
	if err != nil {
		return err
	}

	srcPair := c.SourceRGroup == notation.PairLabel
	tgtPair := c.TargetRGroup == notation.PairLabel
	if srcPair || tgtPair {
		if srcPair != tgtPair {
			return errors.New(errors.ErrCodeInvalidRNAConnection, "pair must connect to pair").
				WithDetailf("connection=%d", index)
		}
		for _, side := range [][]endpoint{sources, targets} {
			if err := checkPairing(index, side); err != nil {
				return err
			}
		}
	} else {
		for _, side := range [][]endpoint{sources, targets} {
			if err := checkAttachments(index, side); err != nil {
				return err
			}
		}
	}

	if !c.IsSpecific() {
		return nil
	}
	srcPos, _ := notation.UnitPosition(c.SourceUnit)
	tgtPos, _ := notation.UnitPosition(c.TargetUnit)
	keys := []SlotKey{
		{PolymerID: c.SourceID, Position: srcPos, RGroup: c.SourceRGroup},
		{PolymerID: c.TargetID, Position: tgtPos, RGroup: c.TargetRGroup},
	}
	if keys[0] == keys[1] {
		return errors.New(errors.ErrCodeAttachmentAlreadyOccupied, "connection joins an attachment point to itself").
			WithDetailf("connection=%d polymer=%s position=%d rgroup=%s", index, keys[0].PolymerID, keys[0].Position, keys[0].RGroup)
	}
	for _, k := range keys {
		if ps.slots.Has(k) {
			return errors.New(errors.ErrCodeAttachmentAlreadyOccupied, "attachment point already used by another connection").
				WithDetailf("connection=%d polymer=%s position=%d rgroup=%s", index, k.PolymerID, k.Position, k.RGroup)
		}
		ps.slots.Add(k)
	}
	return nil
}

// resolveSide expands id (a polymer or group entity) to concrete polymers and
// resolves the unit specifier on each.
func (v *ConnectionValidator) resolveSide(index int, n *notation.Notation, ps *pass, id notation.PolymerID, unit, rgroup string) ([]endpoint, error) {
	polymers := n.ResolveMembers(id)
	if len(polymers) == 0 {
		return nil, errors.New(errors.ErrCodeUnknownPolymerID, "group entity has no member polymers").
			WithDetailf("connection=%d polymer=%s", index, id)
	}
	out := make([]endpoint, 0, len(polymers))
	for _, p := range polymers {
		ep := endpoint{polymer: p, rgroup: rgroup}
		if unit == notation.Wildcard {
			out = append(out, ep)
			continue
		}
		positions, err := ps.unitPositions(p, unit)
		if err != nil {
			return nil, err.WithDetailf("connection=%d polymer=%s unit=%s %s", index, p.ID, unit, err.Detail)
		}
		for _, pos := range positions {
			at, _ := notation.At(p, pos)
			ms, err := v.resolver.ResolveAt(at)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeUnknown, "cannot resolve connection endpoint").
					WithDetailf("connection=%d polymer=%s position=%d", index, p.ID, pos)
			}
			ep.positions = append(ep.positions, pos)
			ep.monomers = append(ep.monomers, ms)
		}
		out = append(out, ep)
	}
	return out, nil
}

// unitPositions resolves a unit specifier to 1-based positions.  Numeric
// specifiers are positions, range-checked against the polymer length;
// anything else is matched against monomer ids.  A parenthesised list such as
// (A,G) requires every member to match.
func (ps *pass) unitPositions(p *notation.PolymerNotation, unit string) ([]int, *errors.AppError) {
	length := notation.Len(p)
	items := []string{unit}
	if len(unit) >= 2 && unit[0] == '(' && unit[len(unit)-1] == ')' {
		items = strings.FieldsFunc(unit[1:len(unit)-1], func(r rune) bool { return r == ',' || r == '+' })
	}

	seen := map[int]bool{}
	var out []int
	for _, it := range items {
		var matched []int
		if pos, ok := notation.UnitPosition(it); ok {
			if pos > length {
				return nil, errors.New(errors.ErrCodeMonomerNotFound, "unit position outside polymer")
			}
			matched = []int{pos}
		} else {
			matched = notation.MatchIn(ps.positions(p), it)
			if len(matched) == 0 {
				return nil, errors.New(errors.ErrCodeMonomerNotFound, "monomer not found in polymer").
					WithDetailf("monomer=%s", it)
			}
		}
		for _, m := range matched {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeMonomerNotFound, "empty unit specifier")
	}
	return out, nil
}

func checkPairing(index int, side []endpoint) error {
	for _, ep := range side {
		for i, ms := range ep.monomers {
			for _, m := range ms {
				if m.PolymerType != notation.KindRNA || m.Role != monomer.RoleBranch {
					return errors.New(errors.ErrCodeInvalidRNAConnection, "base pairs must join nucleotide branch monomers").
						WithDetailf("connection=%d polymer=%s position=%d monomer=%s role=%s",
							index, ep.polymer.ID, ep.positions[i], m.ID, m.Role)
				}
			}
		}
	}
	return nil
}

func checkAttachments(index int, side []endpoint) error {
	for _, ep := range side {
		if ep.rgroup == notation.Wildcard {
			continue
		}
		for i, ms := range ep.monomers {
			for _, m := range ms {
				if !m.HasAttachment(ep.rgroup) {
					return errors.New(errors.ErrCodeAttachmentPointMissing, "monomer has no such attachment point").
						WithDetailf("connection=%d polymer=%s position=%d monomer=%s rgroup=%s",
							index, ep.polymer.ID, ep.positions[i], m.ID, ep.rgroup)
				}
			}
		}
	}
	return nil
}
