// Package cli implements helmctl, the command-line front end of helmkit.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	"github.com/turtacn/helmkit/internal/infrastructure/chemistry"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/storage/minio"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit codes of helmctl.
const (
	ExitOK      = 0
	ExitInvalid = 1 // at least one notation was rejected
	ExitError   = 2 // usage, configuration or infrastructure failure
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath    string
	LogLevel      string
	OutputFormat  string
	Verbose       bool
	Timeout       time.Duration
	LibraryPath   string
	MaxCandidates int
	NoCache       bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Store        *monomer.MemoryStore
	Service      notation.Service
	OutputFormat string
	Verbose      bool

	cancel      context.CancelFunc
	redis       *redis.Client
	objectStore *minio.Client
}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "helmctl",
		Short: "Validate and canonicalize HELM notation",
		Long: "helmctl validates HELM1 and HELM2 strings against the monomer library,\n" +
			"computes canonical forms and projects HELM2 notation to HELM1.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				cliCtx.close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: HELMKIT_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "global operation timeout")
	pf.StringVar(&opts.LibraryPath, "library", "", "extra YAML monomer library; overrides monomers.library_path")
	pf.IntVar(&opts.MaxCandidates, "max-candidates", 0, "canonical candidate bound; overrides canonical.max_candidates")
	pf.BoolVar(&opts.NoCache, "no-cache", false, "skip the Redis canonical cache even when configured")

	cmd.AddCommand(
		NewValidateCmd(),
		NewCanonicalCmd(),
		NewLegacyCmd(),
		NewFormatCmd(),
		NewCompareCmd(),
		NewMonomersCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes config, logger, monomer store and service,
// then stores the CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam("unsupported output format").WithDetailf("output=%s", opts.OutputFormat)
	}

	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, opts.Timeout)

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		cancel:       cancel,
	}

	var sources []notation.MonomerSource
	if cfg.ObjectStore.Enabled {
		cliCtx.objectStore, err = minio.NewClient(ctx, cfg.ObjectStore, logger)
		if err != nil {
			cancel()
			return err
		}
		sources = append(sources, cliCtx.objectStore)
	}
	cliCtx.Store, err = notation.NewStore(ctx, cfg.Monomers.LibraryPath, logger, sources...)
	if err != nil {
		cancel()
		return err
	}

	svcOpts := []notation.Option{
		notation.WithMaxCandidates(cfg.Canonical.MaxCandidates),
		notation.WithParseLimits(cfg.Parser.MaxRepeat, cfg.Parser.MaxUnits),
	}
	if cfg.Redis.Enabled && !opts.NoCache {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Canonical cache unavailable, continuing without it", logging.Err(err))
		} else {
			cliCtx.redis = client
			svcOpts = append(svcOpts, notation.WithCache(redis.NewCanonicalCache(client, logger,
				redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithTTL(cfg.Redis.TTL))))
		}
	}
	cliCtx.Service = notation.NewService(cliCtx.Store, chemistry.NewEngine(), logger, svcOpts...)

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

func (c *CLIContext) close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.Logger.Sync()
}

// initConfig loads configuration with priority: flags > env > file > defaults.
func initConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LibraryPath != "" {
		cfg.Monomers.LibraryPath = opts.LibraryPath
	}
	if opts.MaxCandidates > 0 {
		cfg.Canonical.MaxCandidates = opts.MaxCandidates
	}
	return cfg, nil
}

// initLogger creates a console logger on stderr so stdout carries results
// only.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       level,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps a command error to the process exit code.  Rejected
// notations exit with ExitInvalid; anything else is ExitError.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.IsCode(err, errors.ErrCodeValidation) {
		return ExitInvalid
	}
	switch errors.ModuleForCode(errors.RootCode(err)) {
	case "VAL", "CON", "MON", "CAN", "LEG", "PAR":
		return ExitInvalid
	}
	return ExitError
}

// ─────────────────────────────────────────────────────────────────────────────
// Output helpers
// ─────────────────────────────────────────────────────────────────────────────

// PrintResult outputs data in the format specified by CLIContext.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}

	switch cliCtx.OutputFormat {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprint(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

// printTable outputs data as a table if it provides headers and rows,
// otherwise falls back to text.
func printTable(cmd *cobra.Command, data interface{}) error {
	type tableProvider interface {
		TableHeaders() []string
		TableRows() [][]string
	}

	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, colWidths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		// Skips the root pre-run; version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		PersistentPostRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "helmctl %s\ncommit: %s\nbuilt:  %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
