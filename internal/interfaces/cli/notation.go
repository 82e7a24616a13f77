package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

// maxLineSize bounds a single HELM line read from a file or stdin.
const maxLineSize = 4 << 20

// ─────────────────────────────────────────────────────────────────────────────
// Input
// ─────────────────────────────────────────────────────────────────────────────

// readInputs collects HELM strings from args, the --file flag and stdin.
// A "-" argument or no input at all reads stdin.  Blank lines and lines
// starting with '#' are skipped in files and stdin.
func readInputs(cmd *cobra.Command, args []string, file string) ([]string, error) {
	var out []string
	useStdin := len(args) == 0 && file == ""
	for _, a := range args {
		if a == "-" {
			useStdin = true
			continue
		}
		out = append(out, a)
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, errors.InvalidParam("cannot open input file").WithDetailf("file=%s", file).WithCause(err)
		}
		defer f.Close()
		lines, err := readLines(f)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	if useStdin {
		lines, err := readLines(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	if len(out) == 0 {
		return nil, errors.InvalidParam("no HELM input given")
	}
	return out, nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.InvalidParam("cannot read input").WithCause(err)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reports
// ─────────────────────────────────────────────────────────────────────────────

// ValidateRow is the validation outcome of one input.
type ValidateRow struct {
	Input string `json:"input"`
	*notation.ValidateResult
}

// ValidateReport is the output of helmctl validate.
type ValidateReport struct {
	Results []ValidateRow `json:"results"`
	Invalid int           `json:"invalid"`
}

func (r ValidateReport) TableHeaders() []string {
	return []string{"#", "VALID", "VERSION", "CODE", "INPUT"}
}

func (r ValidateReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for i, res := range r.Results {
		code := ""
		if res.Error != nil {
			code = res.Error.Code
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatBool(res.Valid), res.Version, code, res.Input})
	}
	return rows
}

func (r ValidateReport) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		if res.Valid {
			fmt.Fprintf(&sb, "valid    %s\n", res.Input)
			continue
		}
		fmt.Fprintf(&sb, "invalid  %s\n         [%s] %s", res.Input, res.Error.Code, res.Error.Message)
		if res.Error.Detail != "" {
			fmt.Fprintf(&sb, ": %s", res.Error.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// TransformRow is the outcome of canonical, legacy or format for one input.
type TransformRow struct {
	Input  string              `json:"input"`
	Output string              `json:"output,omitempty"`
	Error  *notation.ErrorInfo `json:"error,omitempty"`
}

// TransformReport is the output of helmctl canonical, legacy and format.
type TransformReport struct {
	Operation string         `json:"operation"`
	Results   []TransformRow `json:"results"`
	Failed    int            `json:"failed"`
}

func (r TransformReport) TableHeaders() []string {
	return []string{"#", "INPUT", "RESULT"}
}

func (r TransformReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Results))
	for i, res := range r.Results {
		out := res.Output
		if res.Error != nil {
			out = "error: " + res.Error.Code
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), res.Input, out})
	}
	return rows
}

// String prints one result per line so the output can be piped.
func (r TransformReport) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		if res.Error != nil {
			fmt.Fprintf(&sb, "error: [%s] %s: %s\n", res.Error.Code, res.Error.Message, res.Input)
			continue
		}
		sb.WriteString(res.Output)
		sb.WriteString("\n")
	}
	return sb.String()
}

// CompareReport is the output of helmctl compare.
type CompareReport struct {
	*notation.CompareResult
}

func (r CompareReport) String() string {
	verdict := "different"
	if r.Equal {
		verdict = "equal"
	}
	return fmt.Sprintf("%s\n  %s\n  %s\n", verdict, r.CanonicalA, r.CanonicalB)
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate [HELM...]",
		Short: "Validate HELM notations against the monomer library",
		Long: "Validate parses each notation and checks polymer ids, monomers, groupings,\n" +
			"annotations and connections.  Exits with status 1 if any notation is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(cmd, args, file)
			if err != nil {
				return err
			}
			return runValidate(cmd, cliCtx, inputs)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read one HELM string per line from file")
	return cmd
}

func runValidate(cmd *cobra.Command, cliCtx *CLIContext, inputs []string) error {
	report := ValidateReport{Results: make([]ValidateRow, 0, len(inputs))}
	for _, in := range inputs {
		res, err := cliCtx.Service.Validate(cmd.Context(), &notation.Input{HELM: in})
		if err != nil {
			return err
		}
		if !res.Valid {
			report.Invalid++
		}
		report.Results = append(report.Results, ValidateRow{Input: in, ValidateResult: res})
	}
	cliCtx.Logger.Debug("Validation finished",
		logging.Int("inputs", len(inputs)),
		logging.Int("invalid", report.Invalid))

	if err := PrintResult(cmd, report); err != nil {
		return err
	}
	if report.Invalid > 0 {
		return errors.Newf(errors.ErrCodeValidation, "%d of %d notations are invalid", report.Invalid, len(inputs))
	}
	return nil
}

type transformFunc func(ctx context.Context, svc notation.Service, helm string) (string, error)

func newTransformCmd(use, short, long string, fn transformFunc) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   use + " [HELM...]",
		Short: short,
		Long:  long,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			inputs, err := readInputs(cmd, args, file)
			if err != nil {
				return err
			}
			return runTransform(cmd, cliCtx, use, inputs, fn)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read one HELM string per line from file")
	return cmd
}

func runTransform(cmd *cobra.Command, cliCtx *CLIContext, op string, inputs []string, fn transformFunc) error {
	report := TransformReport{Operation: op, Results: make([]TransformRow, 0, len(inputs))}
	for _, in := range inputs {
		out, err := fn(cmd.Context(), cliCtx.Service, in)
		row := TransformRow{Input: in, Output: out}
		if err != nil {
			if !isNotationError(err) {
				return err
			}
			row.Error = notation.ErrorInfoFor(err)
			report.Failed++
		}
		report.Results = append(report.Results, row)
	}
	if err := PrintResult(cmd, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return errors.Newf(errors.ErrCodeValidation, "%s failed for %d of %d notations", op, report.Failed, len(inputs))
	}
	return nil
}

// isNotationError reports whether err rejects the input rather than
// signalling an infrastructure problem.
func isNotationError(err error) bool {
	return ExitCode(err) == ExitInvalid
}

// NewCanonicalCmd creates the canonical command.
func NewCanonicalCmd() *cobra.Command {
	return newTransformCmd("canonical",
		"Print the canonical form of HELM notations",
		"Canonical validates each notation and prints its canonical HELM1-style string.\n"+
			"Equal canonical forms denote the same molecule.",
		func(ctx context.Context, svc notation.Service, helm string) (string, error) {
			res, err := svc.Canonicalize(ctx, &notation.Input{HELM: helm})
			if err != nil {
				return "", err
			}
			return res.Canonical, nil
		})
}

// NewLegacyCmd creates the legacy command.
func NewLegacyCmd() *cobra.Command {
	return newTransformCmd("legacy",
		"Project HELM notations to HELM1",
		"Legacy validates each notation and renders it in HELM1 syntax, keeping polymer\n"+
			"ids and order.  Notations using HELM2-only features are rejected.",
		func(ctx context.Context, svc notation.Service, helm string) (string, error) {
			res, err := svc.Legacy(ctx, &notation.Input{HELM: helm})
			if err != nil {
				return "", err
			}
			return res.Legacy, nil
		})
}

// NewFormatCmd creates the format command.
func NewFormatCmd() *cobra.Command {
	return newTransformCmd("format",
		"Re-render HELM notations as HELM2",
		"Format parses each notation without validating it and prints the HELM2 rendering.",
		func(ctx context.Context, svc notation.Service, helm string) (string, error) {
			res, err := svc.Format(ctx, &notation.Input{HELM: helm})
			if err != nil {
				return "", err
			}
			return res.HELM2, nil
		})
}

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare HELM_A HELM_B",
		Short: "Report whether two HELM notations describe the same molecule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			res, err := cliCtx.Service.Compare(cmd.Context(), &notation.CompareInput{A: args[0], B: args[1]})
			if err != nil {
				return err
			}
			return PrintResult(cmd, CompareReport{CompareResult: res})
		},
	}
}
