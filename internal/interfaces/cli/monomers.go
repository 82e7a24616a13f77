package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres"
	"github.com/turtacn/helmkit/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// MonomerTable lists monomer records.
type MonomerTable struct {
	Monomers []MonomerRow `json:"monomers"`
}

// MonomerRow is one listed monomer.
type MonomerRow struct {
	ID            string   `json:"id"`
	PolymerType   string   `json:"polymer_type"`
	Role          string   `json:"role"`
	NaturalAnalog string   `json:"natural_analog"`
	Attachments   []string `json:"attachments"`
	SMILES        string   `json:"smiles,omitempty"`
}

func newMonomerTable(monomers []*monomer.Monomer) MonomerTable {
	t := MonomerTable{Monomers: make([]MonomerRow, 0, len(monomers))}
	for _, m := range monomers {
		t.Monomers = append(t.Monomers, MonomerRow{
			ID:            m.ID,
			PolymerType:   m.PolymerType.String(),
			Role:          string(m.Role),
			NaturalAnalog: m.NaturalAnalog,
			Attachments:   m.Attachments,
			SMILES:        m.SMILES,
		})
	}
	return t
}

func (t MonomerTable) TableHeaders() []string {
	return []string{"TYPE", "ID", "ROLE", "ANALOG", "ATTACHMENTS"}
}

func (t MonomerTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Monomers))
	for _, m := range t.Monomers {
		rows = append(rows, []string{m.PolymerType, m.ID, m.Role, m.NaturalAnalog, strings.Join(m.Attachments, ",")})
	}
	return rows
}

func (t MonomerTable) String() string {
	return FormatTable(t.TableHeaders(), t.TableRows())
}

// MigrationReport is the output of helmctl monomers migrate status.
type MigrationReport struct {
	Version uint     `json:"version"`
	Dirty   bool     `json:"dirty"`
	Files   []string `json:"files"`
}

func (r MigrationReport) String() string {
	return fmt.Sprintf("version: %d\ndirty:   %t\nfiles:   %s\n", r.Version, r.Dirty, strings.Join(r.Files, ", "))
}

// NewMonomersCmd creates the monomers command tree.
func NewMonomersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monomers",
		Short: "Inspect and manage the monomer library",
	}
	cmd.AddCommand(
		newMonomersListCmd(),
		newMonomersExportCmd(),
		newMonomersCheckCmd(),
		newMonomersSyncCmd(),
		newMonomersPushCmd(),
		newMonomersDeleteCmd(),
		newMonomersMigrateCmd(),
	)
	return cmd
}

func parseKindFlag(s string) (notation.Kind, error) {
	if s == "" {
		return notation.KindUnknown, nil
	}
	kind, ok := notation.ParseKind(strings.ToUpper(s))
	if !ok || !kind.IsPolymer() {
		return notation.KindUnknown, errors.InvalidParam("unknown polymer type").WithDetailf("type=%s", s)
	}
	return kind, nil
}

func newMonomersListCmd() *cobra.Command {
	var (
		kindFlag string
		fromDB   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library monomers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			var monomers []*monomer.Monomer
			if fromDB {
				err = withRepository(cmd.Context(), cliCtx, func(repo *repositories.MonomerRepository) error {
					monomers, err = repo.List(cmd.Context(), kind)
					return err
				})
				if err != nil {
					return err
				}
			} else {
				monomers = cliCtx.Store.List(kind)
			}
			return PrintResult(cmd, newMonomerTable(monomers))
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "type", "t", "", "polymer type filter (PEPTIDE, RNA, CHEM, BLOB)")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "list the PostgreSQL monomer table instead of the loaded store")
	return cmd
}

func newMonomersExportCmd() *cobra.Command {
	var (
		kindFlag string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the loaded monomers as a YAML library",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			data, err := monomer.EncodeLibrary(cliCtx.Store.List(kind))
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "cannot write library").WithDetailf("file=%s", out)
			}
			cliCtx.Logger.Info("Monomer library exported", logging.String("file", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "type", "t", "", "polymer type filter (PEPTIDE, RNA, CHEM, BLOB)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newMonomersCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Check a YAML monomer library without loading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			monomers, err := monomer.LoadLibrary(args[0])
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%s: %d monomers", args[0], len(monomers)))
			return nil
		},
	}
}

func newMonomersSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upsert the loaded library monomers into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), cliCtx, func(repo *repositories.MonomerRepository) error {
				n, err := repo.UpsertAll(cmd.Context(), cliCtx.Store.List(notation.KindUnknown))
				if err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("%d monomers synchronized", n))
				return nil
			})
		},
	}
}

func newMonomersPushCmd() *cobra.Command {
	var kindFlag string
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Publish the loaded library monomers to the object store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.objectStore == nil {
				return errors.InvalidParam("object_store is not enabled in the configuration")
			}
			kind, err := parseKindFlag(kindFlag)
			if err != nil {
				return err
			}
			monomers := cliCtx.Store.List(kind)
			if err := cliCtx.objectStore.PublishLibrary(cmd.Context(), monomers); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%d monomers published to %s/%s", len(monomers),
				cliCtx.Config.ObjectStore.Bucket, cliCtx.Config.ObjectStore.LibraryObject))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "type", "t", "", "polymer type filter (PEPTIDE, RNA, CHEM, BLOB)")
	return cmd
}

func newMonomersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete TYPE ID",
		Short: "Remove a monomer from the PostgreSQL table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindFlag(args[0])
			if err != nil {
				return err
			}
			if kind == notation.KindUnknown {
				return errors.InvalidParam("polymer type is required")
			}
			return withRepository(cmd.Context(), cliCtx, func(repo *repositories.MonomerRepository) error {
				if err := repo.Delete(cmd.Context(), kind, args[1]); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("deleted %s %s", kind, args[1]))
				return nil
			})
		},
	}
}

func newMonomersMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL monomer schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := postgresDSN(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(dsn); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := postgresDSN(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(dsn, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := postgresDSN(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(dsn)
			if err != nil {
				return err
			}
			files, err := postgres.EmbeddedMigrations()
			if err != nil {
				return err
			}
			return PrintResult(cmd, MigrationReport{Version: version, Dirty: dirty, Files: files})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.InvalidParam("version must be an integer").WithDetailf("version=%s", args[0])
			}
			dsn, err := postgresDSN(cmd)
			if err != nil {
				return err
			}
			if err := postgres.ForceMigrationVersion(dsn, version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

func postgresDSN(cmd *cobra.Command) (string, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return "", err
	}
	if !cliCtx.Config.Postgres.Enabled {
		return "", errors.InvalidParam("postgres is not enabled in the configuration")
	}
	return postgres.BuildDSN(cliCtx.Config.Postgres), nil
}

// withRepository opens a pool for the duration of fn.
func withRepository(ctx context.Context, cliCtx *CLIContext, fn func(*repositories.MonomerRepository) error) error {
	if !cliCtx.Config.Postgres.Enabled {
		return errors.InvalidParam("postgres is not enabled in the configuration")
	}
	conn, err := postgres.NewConnection(ctx, cliCtx.Config.Postgres, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(repositories.NewMonomerRepository(conn.Pool(), cliCtx.Logger))
}
