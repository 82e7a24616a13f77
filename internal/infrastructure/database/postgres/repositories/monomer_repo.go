// Package repositories holds the PostgreSQL repositories of helmkit.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Querier is the subset of *pgxpool.Pool and pgx.Tx the repository uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// MonomerRepository
// ─────────────────────────────────────────────────────────────────────────────

// MonomerRepository persists library monomers in the monomers table.  Ad hoc
// monomers are never stored.
type MonomerRepository struct {
	db     Querier
	logger logging.Logger
}

// NewMonomerRepository constructs a MonomerRepository over db.
func NewMonomerRepository(db Querier, logger logging.Logger) *MonomerRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MonomerRepository{db: db, logger: logger}
}

const (
	selectMonomers = `SELECT polymer_type, id, name, role, natural_analog, attachments, smiles
		FROM monomers`

	upsertMonomer = `INSERT INTO monomers (polymer_type, id, name, role, natural_analog, attachments, smiles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (polymer_type, id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			natural_analog = EXCLUDED.natural_analog,
			attachments = EXCLUDED.attachments,
			smiles = EXCLUDED.smiles,
			updated_at = NOW()`

	deleteMonomer = `DELETE FROM monomers WHERE polymer_type = $1 AND id = $2`
)

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

// List returns the stored monomers of kind ordered by polymer type and id.
// notation.KindUnknown lists every kind.
func (r *MonomerRepository) List(ctx context.Context, kind notation.Kind) ([]*monomer.Monomer, error) {
	query := selectMonomers
	var args []any
	if kind != notation.KindUnknown {
		query += ` WHERE polymer_type = $1`
		args = append(args, kind.String())
	}
	query += ` ORDER BY polymer_type, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query monomers")
	}
	defer rows.Close()

	var out []*monomer.Monomer
	for rows.Next() {
		var e monomer.LibraryEntry
		if err := rows.Scan(&e.PolymerType, &e.ID, &e.Name, &e.Role, &e.NaturalAnalog, &e.Attachments, &e.SMILES); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan monomer row")
		}
		m, err := e.ToMonomer()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate monomer rows")
	}

	r.logger.Debug("Listed monomers", logging.String("kind", kind.String()), logging.Int("count", len(out)))
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Upsert / Delete
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts or replaces one library monomer after checking it.
func (r *MonomerRepository) Upsert(ctx context.Context, m *monomer.Monomer) error {
	if err := monomer.Check(m); err != nil {
		return err
	}
	if m.AdHoc {
		return errors.New(errors.ErrCodeLibraryInvalid, "ad hoc monomers are not persisted").
			WithDetailf("id=%s", m.ID)
	}
	attachments := m.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	_, err := r.db.Exec(ctx, upsertMonomer,
		m.PolymerType.String(), m.ID, m.Name, string(m.Role), m.NaturalAnalog, attachments, m.SMILES)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert monomer").
			WithDetailf("polymer_type=%s id=%s", m.PolymerType, m.ID)
	}
	return nil
}

// UpsertAll upserts every monomer and returns how many were written before
// the first failure.
func (r *MonomerRepository) UpsertAll(ctx context.Context, monomers []*monomer.Monomer) (int, error) {
	for i, m := range monomers {
		if err := r.Upsert(ctx, m); err != nil {
			return i, err
		}
	}
	r.logger.Info("Upserted monomers", logging.Int("count", len(monomers)))
	return len(monomers), nil
}

// Delete removes one monomer.  Deleting an absent monomer returns NotFound.
func (r *MonomerRepository) Delete(ctx context.Context, kind notation.Kind, id string) error {
	tag, err := r.db.Exec(ctx, deleteMonomer, kind.String(), id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete monomer")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("monomer not found").WithDetailf("polymer_type=%s id=%s", kind, id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// LoadInto
// ─────────────────────────────────────────────────────────────────────────────

// LoadInto merges every stored monomer into store, overriding entries with
// the same polymer type and id, and returns how many were loaded.
func (r *MonomerRepository) LoadInto(ctx context.Context, store *monomer.MemoryStore) (int, error) {
	monomers, err := r.List(ctx, notation.KindUnknown)
	if err != nil {
		return 0, err
	}
	if err := store.Merge(monomers); err != nil {
		return 0, err
	}
	r.logger.Info("Loaded monomers from PostgreSQL", logging.Int("count", len(monomers)))
	return len(monomers), nil
}
