package monomer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

type storeKey struct {
	kind notation.Kind
	id   string
}

// MemoryStore is a Database held in memory.  It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[storeKey]*Monomer
	bySMILES map[storeKey]*Monomer
	adHocN   int
}

// NewMemoryStore returns a store holding the given monomers.
func NewMemoryStore(monomers ...*Monomer) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[storeKey]*Monomer),
		bySMILES: make(map[storeKey]*Monomer),
	}
	for _, m := range monomers {
		s.byID[storeKey{m.PolymerType, m.ID}] = m
	}
	return s
}

// NewStandardStore returns a store seeded with the built-in standard library.
func NewStandardStore() *MemoryStore {
	return NewMemoryStore(StandardLibrary()...)
}

func (s *MemoryStore) HasMonomer(kind notation.Kind, id string) bool {
	_, ok := s.GetMonomer(kind, id)
	return ok
}

func (s *MemoryStore) GetMonomer(kind notation.Kind, id string) (*Monomer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := storeKey{kind, id}
	if m, ok := s.byID[k]; ok {
		return m, true
	}
	m, ok := s.bySMILES[k]
	return m, ok
}

func (s *MemoryStore) AddAdHocMonomer(m *Monomer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		s.adHocN++
		m.ID = fmt.Sprintf("AM#%d", s.adHocN)
	}
	s.byID[storeKey{m.PolymerType, m.ID}] = m
	if m.SMILES != "" {
		s.bySMILES[storeKey{m.PolymerType, m.SMILES}] = m
	}
}

// Put adds or replaces a library monomer after checking it.
func (s *MemoryStore) Put(m *Monomer) error {
	if err := Check(m); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[storeKey{m.PolymerType, m.ID}] = m
	return nil
}

// Merge puts every monomer, stopping at the first invalid record.
func (s *MemoryStore) Merge(monomers []*Monomer) error {
	for _, m := range monomers {
		if err := s.Put(m); err != nil {
			return err
		}
	}
	return nil
}

// List returns the library monomers of kind sorted by id.  KindUnknown lists
// every kind.  Ad hoc monomers are excluded.
func (s *MemoryStore) List(kind notation.Kind) []*Monomer {
	s.mu.RLock()
	out := make([]*Monomer, 0, len(s.byID))
	for k, m := range s.byID {
		if m.AdHoc || (kind != notation.KindUnknown && k.kind != kind) {
			continue
		}
		out = append(out, m)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].PolymerType != out[j].PolymerType {
			return out[i].PolymerType < out[j].PolymerType
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of stored monomers, ad hoc ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Check verifies that a library record is usable.
func Check(m *Monomer) error {
	if m == nil || m.ID == "" {
		return errors.New(errors.ErrCodeLibraryInvalid, "monomer id is required")
	}
	if !m.PolymerType.IsPolymer() {
		return errors.New(errors.ErrCodeLibraryInvalid, "monomer polymer type is invalid").
			WithDetailf("id=%s", m.ID)
	}
	if m.Role == "" {
		m.Role = RoleUndefined
	}
	if !m.Role.IsValid() {
		return errors.New(errors.ErrCodeLibraryInvalid, "monomer role is invalid").
			WithDetailf("id=%s role=%s", m.ID, m.Role)
	}
	for _, a := range m.Attachments {
		if !notation.IsRGroupLabel(a) {
			return errors.New(errors.ErrCodeLibraryInvalid, "attachment label must be R<n>").
				WithDetailf("id=%s attachment=%s", m.ID, a)
		}
	}
	return nil
}

// Session layers per-call ad hoc monomers over a shared Database, so inline
// SMILES monomers live only as long as one validation or canonicalization.
type Session struct {
	base  Database
	local *MemoryStore
}

// NewSession returns a Session over base.
func NewSession(base Database) *Session {
	return &Session{base: base, local: NewMemoryStore()}
}

func (s *Session) HasMonomer(kind notation.Kind, id string) bool {
	_, ok := s.GetMonomer(kind, id)
	return ok
}

func (s *Session) GetMonomer(kind notation.Kind, id string) (*Monomer, bool) {
	if m, ok := s.local.GetMonomer(kind, id); ok {
		return m, true
	}
	return s.base.GetMonomer(kind, id)
}

func (s *Session) AddAdHocMonomer(m *Monomer) {
	s.local.AddAdHocMonomer(m)
}

// AdHocCount returns the number of monomers synthesized in this session.
func (s *Session) AdHocCount() int {
	return s.local.Len()
}
