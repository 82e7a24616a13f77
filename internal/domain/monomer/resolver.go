package monomer

import (
	"regexp"

	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Resolver maps monomer notations to Monomer records.
type Resolver struct {
	db   Database
	chem Chemistry
}

// NewResolver returns a Resolver over db.  chem may be nil, in which case
// inline SMILES are never accepted.
func NewResolver(db Database, chem Chemistry) *Resolver {
	return &Resolver{db: db, chem: chem}
}

// Database returns the database the resolver reads from.
func (r *Resolver) Database() Database { return r.db }

// Resolve returns the monomers behind n, the element at 0-based position
// within its polymer.  Units give one monomer, groups one per alternative,
// lists and RNA units their members in order.  A single-content RNA unit at
// position 0 also yields the library phosphate, since the first nucleotide of
// a strand may omit it.
func (r *Resolver) Resolve(n notation.MonomerNotation, position int) ([]*Monomer, error) {
	if u, ok := n.(*notation.RNAUnit); ok && position == 0 {
		contents := u.Contents()
		if len(contents) == 1 {
			out, err := r.resolve(contents[0], notation.PartNone)
			if err != nil {
				return nil, err
			}
			if p, ok := r.db.GetMonomer(notation.KindRNA, "P"); ok {
				out = append(out, p)
			}
			return out, nil
		}
	}
	return r.resolve(n, notation.PartNone)
}

// ResolveAt resolves the notation occupying one flattened unit position.
func (r *Resolver) ResolveAt(pos notation.Position) ([]*Monomer, error) {
	return r.resolve(pos.Notation, pos.Part)
}

func (r *Resolver) resolve(n notation.MonomerNotation, part notation.RNAPart) ([]*Monomer, error) {
	switch v := n.(type) {
	case *notation.Unit:
		m, err := r.ResolveUnit(v, part)
		if err != nil {
			return nil, err
		}
		return []*Monomer{m}, nil
	case *notation.Group:
		out := make([]*Monomer, 0, len(v.Elements))
		for _, e := range v.Elements {
			ms, err := r.resolve(e.Notation, part)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		}
		return out, nil
	case *notation.List:
		var out []*Monomer
		for _, e := range v.Elements {
			ms, err := r.resolve(e, part)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		}
		return out, nil
	case *notation.RNAUnit:
		var out []*Monomer
		parts := []struct {
			n    notation.MonomerNotation
			part notation.RNAPart
		}{{v.Sugar, notation.PartSugar}, {v.Base, notation.PartBase}, {v.Linker, notation.PartLinker}}
		for _, p := range parts {
			if p.n == nil {
				continue
			}
			ms, err := r.resolve(p.n, p.part)
			if err != nil {
				return nil, err
			}
			out = append(out, ms...)
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeUnknownMonomer, "unsupported monomer notation")
}

// ResolveUnit resolves a single monomer reference.  Library entries win;
// otherwise sentinel symbols and blob content give placeholder records, and
// any other id is tried as inline SMILES.
func (r *Resolver) ResolveUnit(u *notation.Unit, part notation.RNAPart) (*Monomer, error) {
	if m, ok := r.db.GetMonomer(u.Type, u.ID); ok {
		return m, nil
	}
	if u.Type == notation.KindBlob || IsSentinel(u.Type, u.ID) {
		return placeholder(u, part), nil
	}
	if r.chem == nil || !r.chem.ValidateSMILES(u.ID) {
		return nil, errors.New(errors.ErrCodeUnknownMonomer, "unknown monomer").
			WithDetailf("type=%s id=%q", u.Type, u.ID)
	}
	canonical, err := r.chem.CanonicalizeSMILES(u.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidSMILES, "cannot canonicalize inline SMILES").
			WithDetailf("type=%s smiles=%q", u.Type, u.ID)
	}

	analog := adHocAnalog(u.Type, part)
	m := &Monomer{
		PolymerType:     u.Type,
		Role:            inferRole(u.Type, analog),
		NaturalAnalog:   analog,
		Attachments:     AttachmentsFromSMILES(u.ID),
		AdHoc:           true,
		SMILES:          u.ID,
		CanonicalSMILES: canonical,
	}
	r.db.AddAdHocMonomer(m)
	return m, nil
}

func placeholder(u *notation.Unit, part notation.RNAPart) *Monomer {
	analog := u.ID
	if u.Type == notation.KindBlob {
		analog = ""
	}
	role := RoleUndefined
	switch {
	case u.Type == notation.KindPeptide && u.ID == SymbolUnknownPeptide:
		role = RoleBackbone
	case u.Type == notation.KindRNA && u.ID == SymbolUnknownRNA:
		role = RoleBranch
		if part == notation.PartSugar || part == notation.PartLinker {
			role = RoleBackbone
		}
	}
	return &Monomer{ID: u.ID, PolymerType: u.Type, Role: role, NaturalAnalog: analog, Unknown: true}
}

// adHocAnalog picks the natural analog of an inline nucleotide monomer from
// the sub-unit it occupies.
func adHocAnalog(kind notation.Kind, part notation.RNAPart) string {
	if kind != notation.KindRNA {
		return "X"
	}
	switch part {
	case notation.PartSugar:
		return "R"
	case notation.PartBase:
		return "N"
	default:
		return "P"
	}
}

// inferRole applies the nucleotide analog heuristic: P and R are backbone,
// anything else is a branch.  Peptide and chem monomers are always backbone.
func inferRole(kind notation.Kind, analog string) Role {
	if kind != notation.KindRNA {
		return RoleBackbone
	}
	if analog == "P" || analog == "R" {
		return RoleBackbone
	}
	return RoleBranch
}

var reAttachment = regexp.MustCompile(`\[\*:([1-9][0-9]*)\]|_R([1-9][0-9]*)`)

// AttachmentsFromSMILES collects the R-group labels marked in a SMILES string
// with [*:n] or _Rn.  Without markers the monomer is assumed to expose R1
// and R2.
func AttachmentsFromSMILES(smiles string) []string {
	labels := map[string]bool{}
	for _, m := range reAttachment.FindAllStringSubmatch(smiles, -1) {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		labels["R"+n] = true
	}
	if len(labels) == 0 {
		return []string{"R1", "R2"}
	}
	return sortedAttachments(labels)
}
