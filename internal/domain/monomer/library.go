package monomer

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// LibraryFile is the YAML layout of an extra monomer library:
//
//	monomers:
//	  - id: Aib
//	    polymer_type: PEPTIDE
//	    role: backbone
//	    natural_analog: A
//	    attachments: [R1, R2]
//	    smiles: "CC(C)(N[*:1])C([*:2])=O"
type LibraryFile struct {
	Monomers []LibraryEntry `yaml:"monomers"`
}

// LibraryEntry is one monomer record of a LibraryFile.
type LibraryEntry struct {
	ID            string   `yaml:"id"`
	PolymerType   string   `yaml:"polymer_type"`
	Role          string   `yaml:"role"`
	NaturalAnalog string   `yaml:"natural_analog"`
	Attachments   []string `yaml:"attachments"`
	SMILES        string   `yaml:"smiles"`
	Name          string   `yaml:"name"`
}

// ToMonomer converts the entry to a checked Monomer.
func (e LibraryEntry) ToMonomer() (*Monomer, error) {
	kind, ok := notation.ParseKind(strings.ToUpper(strings.TrimSpace(e.PolymerType)))
	if !ok || !kind.IsPolymer() {
		return nil, errors.New(errors.ErrCodeLibraryInvalid, "unknown polymer type").
			WithDetailf("id=%s polymer_type=%q", e.ID, e.PolymerType)
	}
	m := &Monomer{
		ID:              e.ID,
		PolymerType:     kind,
		Role:            Role(strings.ToLower(e.Role)),
		NaturalAnalog:   e.NaturalAnalog,
		Attachments:     e.Attachments,
		Name:            e.Name,
		SMILES:          e.SMILES,
		CanonicalSMILES: e.SMILES,
	}
	if len(m.Attachments) == 0 && m.SMILES != "" {
		m.Attachments = AttachmentsFromSMILES(m.SMILES)
	}
	if err := Check(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseLibrary decodes a YAML monomer library.
func ParseLibrary(data []byte) ([]*Monomer, error) {
	var f LibraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLibraryInvalid, "cannot decode monomer library")
	}
	out := make([]*Monomer, 0, len(f.Monomers))
	for _, e := range f.Monomers {
		m, err := e.ToMonomer()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadLibrary reads and decodes the YAML monomer library at path.
func LoadLibrary(path string) ([]*Monomer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLibraryInvalid, "cannot read monomer library").
			WithDetailf("path=%s", path)
	}
	return ParseLibrary(data)
}

// EncodeLibrary renders monomers in the LibraryFile layout.
func EncodeLibrary(monomers []*Monomer) ([]byte, error) {
	f := LibraryFile{Monomers: make([]LibraryEntry, 0, len(monomers))}
	for _, m := range monomers {
		f.Monomers = append(f.Monomers, LibraryEntry{
			ID:            m.ID,
			PolymerType:   m.PolymerType.String(),
			Role:          string(m.Role),
			NaturalAnalog: m.NaturalAnalog,
			Attachments:   m.Attachments,
			SMILES:        m.SMILES,
			Name:          m.Name,
		})
	}
	return yaml.Marshal(f)
}
