package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/helmkit/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// pgx fakes
// ─────────────────────────────────────────────────────────────────────────────

// fakeRows serves canned rows through the pgx.Rows interface.
type fakeRows struct {
	rows    [][]any
	idx     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]string:
			*p = row[i].([]string)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type execCall struct {
	sql  string
	args []any
}

// fakeQuerier records every call and replays configured results.
type fakeQuerier struct {
	rows     *fakeRows
	queryErr error
	execErr  error
	execTag  string
	queries  []execCall
	execs    []execCall
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, execCall{sql: sql, args: args})
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return q.rows, nil
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, execCall{sql: sql, args: args})
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	tag := q.execTag
	if tag == "" {
		tag = "INSERT 0 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Suite
// ─────────────────────────────────────────────────────────────────────────────

type MonomerRepoTestSuite struct {
	suite.Suite
	db   *fakeQuerier
	repo *MonomerRepository
}

func (s *MonomerRepoTestSuite) SetupTest() {
	s.db = &fakeQuerier{}
	s.repo = NewMonomerRepository(s.db, logging.NewNopLogger())
}

func aibRow() []any {
	return []any{"PEPTIDE", "Aib", "aminoisobutyric acid", "backbone", "A", []string{"R1", "R2"}, "CC(C)(N[*:1])C([*:2])=O"}
}

func (s *MonomerRepoTestSuite) TestList_All() {
	s.db.rows = &fakeRows{rows: [][]any{
		{"CHEM", "PEG2", "", "undefined", "", []string{"R1", "R2"}, ""},
		aibRow(),
	}}

	got, err := s.repo.List(context.Background(), notation.KindUnknown)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(notation.KindChem, got[0].PolymerType)
	s.Equal(monomer.RoleUndefined, got[0].Role)
	s.Equal("Aib", got[1].ID)
	s.Equal(monomer.RoleBackbone, got[1].Role)
	s.Equal([]string{"R1", "R2"}, got[1].Attachments)
	s.True(s.db.rows.closed)

	s.Require().Len(s.db.queries, 1)
	s.NotContains(s.db.queries[0].sql, "WHERE")
	s.Empty(s.db.queries[0].args)
}

func (s *MonomerRepoTestSuite) TestList_ByKind() {
	s.db.rows = &fakeRows{rows: [][]any{aibRow()}}

	_, err := s.repo.List(context.Background(), notation.KindPeptide)
	s.Require().NoError(err)
	s.Contains(s.db.queries[0].sql, "WHERE polymer_type = $1")
	s.Equal([]any{"PEPTIDE"}, s.db.queries[0].args)
}

func (s *MonomerRepoTestSuite) TestList_Errors() {
	s.db.queryErr = errors.New("connection refused")
	_, err := s.repo.List(context.Background(), notation.KindUnknown)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))

	s.db.queryErr = nil
	s.db.rows = &fakeRows{rows: [][]any{aibRow()}, scanErr: errors.New("bad column")}
	_, err = s.repo.List(context.Background(), notation.KindUnknown)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))

	s.db.rows = &fakeRows{err: errors.New("stream reset")}
	_, err = s.repo.List(context.Background(), notation.KindUnknown)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *MonomerRepoTestSuite) TestList_InvalidStoredRow() {
	s.db.rows = &fakeRows{rows: [][]any{{"BLOB", "x", "", "", "", []string{}, ""}}}

	_, err := s.repo.List(context.Background(), notation.KindUnknown)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeLibraryInvalid))
}

func (s *MonomerRepoTestSuite) TestUpsert() {
	m := &monomer.Monomer{ID: "Aib", PolymerType: notation.KindPeptide, Role: monomer.RoleBackbone, NaturalAnalog: "A"}

	s.Require().NoError(s.repo.Upsert(context.Background(), m))
	s.Require().Len(s.db.execs, 1)
	s.Contains(s.db.execs[0].sql, "ON CONFLICT (polymer_type, id) DO UPDATE")
	s.Equal([]any{"PEPTIDE", "Aib", "", "backbone", "A", []string{}, ""}, s.db.execs[0].args)
}

func (s *MonomerRepoTestSuite) TestUpsert_Rejects() {
	err := s.repo.Upsert(context.Background(), &monomer.Monomer{PolymerType: notation.KindPeptide})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeLibraryInvalid))

	err = s.repo.Upsert(context.Background(), &monomer.Monomer{ID: "AM#1", PolymerType: notation.KindChem, AdHoc: true})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeLibraryInvalid))
	s.Empty(s.db.execs)
}

func (s *MonomerRepoTestSuite) TestUpsertAll_StopsAtFailure() {
	s.db.execErr = errors.New("unique violation")
	n, err := s.repo.UpsertAll(context.Background(), []*monomer.Monomer{
		{ID: "Aib", PolymerType: notation.KindPeptide},
		{ID: "Nle", PolymerType: notation.KindPeptide},
	})
	s.Equal(0, n)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
	s.Len(s.db.execs, 1)
}

func (s *MonomerRepoTestSuite) TestDelete() {
	s.db.execTag = "DELETE 1"
	s.NoError(s.repo.Delete(context.Background(), notation.KindPeptide, "Aib"))
	s.Equal([]any{"PEPTIDE", "Aib"}, s.db.execs[0].args)

	s.db.execTag = "DELETE 0"
	err := s.repo.Delete(context.Background(), notation.KindPeptide, "Aib")
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func (s *MonomerRepoTestSuite) TestLoadInto() {
	s.db.rows = &fakeRows{rows: [][]any{
		aibRow(),
		{"PEPTIDE", "Tza", "thiazolylalanine", "backbone", "A", []string{"R1", "R2"}, ""},
	}}
	store := monomer.NewStandardStore()
	before := store.Len()

	n, err := s.repo.LoadInto(context.Background(), store)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(before+1, store.Len(), "Aib replaces the built-in record")
	s.True(store.HasMonomer(notation.KindPeptide, "Tza"))
	aib, ok := store.GetMonomer(notation.KindPeptide, "Aib")
	s.Require().True(ok)
	s.Equal("aminoisobutyric acid", aib.Name)
}

func TestMonomerRepoSuite(t *testing.T) {
	suite.Run(t, new(MonomerRepoTestSuite))
}

func TestFakeRowsSatisfiesPgx(t *testing.T) {
	var rows pgx.Rows = &fakeRows{}
	require.NotNil(t, rows)
	assert.False(t, rows.Next())
}
