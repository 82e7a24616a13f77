package validation

import (
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Validator runs the structural checks over a notation.
type Validator struct {
	resolver    *monomer.Resolver
	connections *ConnectionValidator
}

// NewValidator returns a Validator reading monomers from db.  chem may be
// nil to reject inline SMILES.
func NewValidator(db monomer.Database, chem monomer.Chemistry) *Validator {
	r := monomer.NewResolver(db, chem)
	return &Validator{resolver: r, connections: NewConnectionValidator(r)}
}

// Validate checks, in order: id uniqueness, monomer legality, grouping
// references, connections and annotation targets.  It returns the first
// failure.
func (v *Validator) Validate(n *notation.Notation) error {
	if n == nil || len(n.Polymers) == 0 {
		return errors.New(errors.ErrCodeInvalidMonomer, "notation declares no polymers")
	}
	checks := []func(*notation.Notation) error{
		checkUniqueIDs,
		v.checkMonomers,
		checkGroupings,
		v.checkConnections,
		checkAnnotations,
	}
	for _, check := range checks {
		if err := check(n); err != nil {
			return err
		}
	}
	return nil
}

func checkUniqueIDs(n *notation.Notation) error {
	seen := make(map[notation.PolymerID]bool)
	for _, id := range n.IDs() {
		if seen[id] {
			return errors.New(errors.ErrCodeDuplicateIDs, "polymer or group id declared twice").
				WithDetailf("id=%s", id)
		}
		seen[id] = true
	}
	return nil
}

func (v *Validator) checkMonomers(n *notation.Notation) error {
	for _, p := range n.Polymers {
		if p.ID.Kind == notation.KindBlob {
			continue
		}
		for i, e := range p.Elements {
			if bad := foreignElement(e, p.ID.Kind); bad != nil {
				return errors.New(errors.ErrCodeInvalidMonomer, "monomer type does not match polymer").
					WithDetailf("polymer=%s element=%d notation=%s type=%s", p.ID, i+1, bad, bad.PolymerType())
			}
			if u, ok := e.(*notation.Unit); ok && monomer.IsSentinel(u.Type, u.ID) {
				continue
			}
			ms, err := v.resolver.Resolve(e, i)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidMonomer, "invalid monomer").
					WithDetailf("polymer=%s element=%d notation=%s", p.ID, i+1, e)
			}
			if len(ms) == 0 {
				return errors.New(errors.ErrCodeInvalidMonomer, "element resolves to no monomer").
					WithDetailf("polymer=%s element=%d", p.ID, i+1)
			}
		}
	}
	return nil
}

// foreignElement returns the first notation inside e whose type is not kind,
// or nil.
func foreignElement(e notation.MonomerNotation, kind notation.Kind) notation.MonomerNotation {
	if e.PolymerType() != kind {
		return e
	}
	var inner []notation.MonomerNotation
	switch v := e.(type) {
	case *notation.List:
		inner = v.Elements
	case *notation.Group:
		for _, g := range v.Elements {
			inner = append(inner, g.Notation)
		}
	case *notation.RNAUnit:
		inner = v.Contents()
	}
	for _, c := range inner {
		if bad := foreignElement(c, kind); bad != nil {
			return bad
		}
	}
	return nil
}

func checkGroupings(n *notation.Notation) error {
	for _, g := range n.Groupings {
		for _, m := range g.Members {
			if m.ID == g.ID {
				return errors.New(errors.ErrCodeInvalidGrouping, "grouping references itself").
					WithDetailf("group=%s", g.ID)
			}
			if !n.HasID(m.ID) {
				return errors.New(errors.ErrCodeInvalidGrouping, "grouping references an undeclared id").
					WithDetailf("group=%s member=%s", g.ID, m.ID)
			}
		}
	}
	return nil
}

func (v *Validator) checkConnections(n *notation.Notation) error {
	if err := v.connections.ValidateAll(n.Connections, n); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConnection, "invalid connection")
	}
	return nil
}

func checkAnnotations(n *notation.Notation) error {
	for i, a := range n.Annotations {
		if a.Target != nil && !n.HasID(*a.Target) {
			return errors.New(errors.ErrCodeInvalidAnnotation, "annotation targets an undeclared id").
				WithDetailf("annotation=%d id=%s", i+1, a.Target)
		}
	}
	return nil
}
