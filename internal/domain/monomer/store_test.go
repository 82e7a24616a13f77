package monomer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

const extraLibrary = `
monomers:
  - id: Orn
    polymer_type: PEPTIDE
    role: backbone
    natural_analog: K
    smiles: "NCCC[C@H](N[*:1])C([*:2])=O"
    name: Ornithine
  - id: Bio
    polymer_type: chem
    attachments: [R1]
`

func TestMemoryStore_Standard(t *testing.T) {
	s := NewStandardStore()
	assert.True(t, s.HasMonomer(notation.KindPeptide, "K"))
	assert.True(t, s.HasMonomer(notation.KindRNA, "sP"))
	assert.True(t, s.HasMonomer(notation.KindChem, "PEG2"))
	assert.False(t, s.HasMonomer(notation.KindChem, "K"))

	peptides := s.List(notation.KindPeptide)
	require.NotEmpty(t, peptides)
	for i := 1; i < len(peptides); i++ {
		assert.Less(t, peptides[i-1].ID, peptides[i].ID)
	}
	assert.Equal(t, s.Len(), len(s.List(notation.KindUnknown)))
}

func TestMemoryStore_AdHoc(t *testing.T) {
	s := NewMemoryStore()
	a := &Monomer{PolymerType: notation.KindChem, SMILES: "C[*:1]", AdHoc: true}
	b := &Monomer{PolymerType: notation.KindChem, SMILES: "CC[*:1]", AdHoc: true}
	s.AddAdHocMonomer(a)
	s.AddAdHocMonomer(b)
	assert.Equal(t, "AM#1", a.ID)
	assert.Equal(t, "AM#2", b.ID)

	got, ok := s.GetMonomer(notation.KindChem, "C[*:1]")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Empty(t, s.List(notation.KindChem))
}

func TestMemoryStore_Put(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put(&Monomer{ID: "Orn", PolymerType: notation.KindPeptide, Attachments: []string{"R1", "R2"}}))
	m, ok := s.GetMonomer(notation.KindPeptide, "Orn")
	require.True(t, ok)
	assert.Equal(t, RoleUndefined, m.Role)

	for _, bad := range []*Monomer{
		nil,
		{PolymerType: notation.KindPeptide},
		{ID: "x", PolymerType: notation.KindGroup},
		{ID: "x", PolymerType: notation.KindPeptide, Role: "side"},
		{ID: "x", PolymerType: notation.KindPeptide, Attachments: []string{"Q1"}},
	} {
		assert.True(t, errors.IsCode(s.Put(bad), errors.ErrCodeLibraryInvalid))
	}
}

func TestSession_IsolatesAdHoc(t *testing.T) {
	base := NewStandardStore()
	before := base.Len()
	sess := NewSession(base)

	sess.AddAdHocMonomer(&Monomer{PolymerType: notation.KindChem, SMILES: "C[*:1]", AdHoc: true})
	assert.True(t, sess.HasMonomer(notation.KindChem, "C[*:1]"))
	assert.True(t, sess.HasMonomer(notation.KindPeptide, "A"))
	assert.False(t, base.HasMonomer(notation.KindChem, "C[*:1]"))
	assert.Equal(t, before, base.Len())
}

func TestParseLibrary(t *testing.T) {
	ms, err := ParseLibrary([]byte(extraLibrary))
	require.NoError(t, err)
	require.Len(t, ms, 2)

	orn := ms[0]
	assert.Equal(t, notation.KindPeptide, orn.PolymerType)
	assert.Equal(t, RoleBackbone, orn.Role)
	assert.Equal(t, []string{"R1", "R2"}, orn.Attachments)
	assert.Equal(t, notation.KindChem, ms[1].PolymerType)

	_, err = ParseLibrary([]byte("monomers: [{id: Q, polymer_type: DNA}]"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeLibraryInvalid))
	_, err = ParseLibrary([]byte("monomers: {"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeLibraryInvalid))
}

func TestEncodeLibrary_RoundTrip(t *testing.T) {
	ms, err := ParseLibrary([]byte(extraLibrary))
	require.NoError(t, err)
	data, err := EncodeLibrary(ms)
	require.NoError(t, err)
	again, err := ParseLibrary(data)
	require.NoError(t, err)
	assert.Equal(t, ms, again)
}

func TestLoadLibrary_Missing(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeLibraryInvalid))
}

func TestWatchLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monomers: []\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewStandardStore()
	reloaded := make(chan int, 8)
	require.NoError(t, WatchLibrary(ctx, path, store, nil, func(n int, err error) {
		if err == nil {
			reloaded <- n
		}
	}))

	require.NoError(t, os.WriteFile(path, []byte(extraLibrary), 0o644))

	deadline := time.After(5 * time.Second)
	for !store.HasMonomer(notation.KindPeptide, "Orn") {
		select {
		case <-reloaded:
		case <-deadline:
			t.Fatal("library was not reloaded")
		}
	}
	assert.True(t, store.HasMonomer(notation.KindChem, "Bio"))
}
