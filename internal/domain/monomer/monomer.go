// Package monomer holds the monomer view used by validation and
// canonicalization: the Monomer record, the Database and Chemistry
// collaborator contracts, an in-memory store seeded with the standard HELM
// library, and the Resolver that maps monomer notations to records.
package monomer

import (
	"sort"

	"github.com/turtacn/helmkit/internal/domain/notation"
)

// Role is the structural role of a monomer inside its polymer.
type Role string

const (
	RoleBackbone  Role = "backbone"
	RoleBranch    Role = "branch"
	RoleUndefined Role = "undefined"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleBackbone, RoleBranch, RoleUndefined:
		return true
	}
	return false
}

// Monomer is a read-only view of a monomer record.
type Monomer struct {
	ID            string
	PolymerType   notation.Kind
	Role          Role
	NaturalAnalog string
	Attachments   []string
	Name          string

	// AdHoc marks monomers synthesized from inline SMILES.
	AdHoc bool
	// SMILES is the structure as written; CanonicalSMILES is the chemistry
	// engine's normal form of it.
	SMILES          string
	CanonicalSMILES string

	// Unknown marks placeholder records for sentinel symbols and blob
	// content.  Unknown monomers accept any attachment label.
	Unknown bool
}

// HasAttachment reports whether the monomer exposes the given R-group.
func (m *Monomer) HasAttachment(label string) bool {
	if m.Unknown {
		return true
	}
	for _, a := range m.Attachments {
		if a == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of m.
func (m *Monomer) Clone() *Monomer {
	c := *m
	c.Attachments = append([]string(nil), m.Attachments...)
	return &c
}

// Database is the monomer lookup collaborator.
type Database interface {
	HasMonomer(kind notation.Kind, id string) bool
	GetMonomer(kind notation.Kind, id string) (*Monomer, bool)
	// AddAdHocMonomer registers a synthesized monomer so later lookups of the
	// same inline SMILES return it.  An empty ID is assigned AM#<n>.
	AddAdHocMonomer(m *Monomer)
}

// Chemistry is the SMILES collaborator.
type Chemistry interface {
	ValidateSMILES(smiles string) bool
	CanonicalizeSMILES(smiles string) (string, error)
}

const (
	SymbolUnknownPeptide = "X"
	SymbolUnknownRNA     = "N"
	SymbolUnknown        = "?"
	SymbolUnspecified    = "_"
)

// IsSentinel reports whether id is a placeholder symbol accepted without a
// library entry: X for peptides, N for nucleotides, ? and _ everywhere.
func IsSentinel(kind notation.Kind, id string) bool {
	switch id {
	case SymbolUnknown, SymbolUnspecified:
		return true
	case SymbolUnknownPeptide:
		return kind == notation.KindPeptide
	case SymbolUnknownRNA:
		return kind == notation.KindRNA
	}
	return false
}

func sortedAttachments(labels map[string]bool) []string {
	out := make([]string, 0, len(labels))
	for l := range labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
