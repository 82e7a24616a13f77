// Package notation provides the application-level service for HELM notation
// operations.  It sits between the CLI and HTTP handlers and the domain
// packages, adding parsing, per-call monomer sessions, caching, metrics and
// logging around the validation and canonicalization engine.
package notation

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/turtacn/helmkit/internal/domain/canonical"
	"github.com/turtacn/helmkit/internal/domain/monomer"
	domainNotation "github.com/turtacn/helmkit/internal/domain/notation"
	"github.com/turtacn/helmkit/internal/domain/parser"
	"github.com/turtacn/helmkit/internal/domain/validation"
	"github.com/turtacn/helmkit/internal/infrastructure/database/redis"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

// Service defines the notation application operations.
type Service interface {
	Validate(ctx context.Context, input *Input) (*ValidateResult, error)
	Canonicalize(ctx context.Context, input *Input) (*CanonicalResult, error)
	Legacy(ctx context.Context, input *Input) (*LegacyResult, error)
	Format(ctx context.Context, input *Input) (*FormatResult, error)
	Compare(ctx context.Context, input *CompareInput) (*CompareResult, error)
	// SetMaxCandidates changes the canonicalization bound for later calls.
	SetMaxCandidates(n int)
}

// Input carries one HELM string.
type Input struct {
	HELM string `json:"helm"`
}

// CompareInput carries the two HELM strings to compare.
type CompareInput struct {
	A string `json:"a"`
	B string `json:"b"`
}

// ErrorInfo is the client-facing view of a failure.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ValidateResult reports whether a notation is valid.  Invalid notations are
// a result, not an error.
type ValidateResult struct {
	Valid       bool       `json:"valid"`
	Version     string     `json:"version"`
	Polymers    int        `json:"polymers"`
	Connections int        `json:"connections"`
	Groupings   int        `json:"groupings"`
	AdHoc       int        `json:"adhoc_monomers"`
	Error       *ErrorInfo `json:"error,omitempty"`
}

// CanonicalResult is a canonical form and how it was obtained.
type CanonicalResult struct {
	Canonical  string        `json:"canonical"`
	Candidates int           `json:"candidates"`
	Cached     bool          `json:"cached"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// LegacyResult is the HELM1 projection of a notation.
type LegacyResult struct {
	Legacy string `json:"legacy"`
}

// FormatResult is a notation re-rendered in HELM2.
type FormatResult struct {
	Version string `json:"version"`
	HELM2   string `json:"helm2"`
}

// CompareResult tells whether two notations describe the same molecule.
type CompareResult struct {
	Equal      bool   `json:"equal"`
	CanonicalA string `json:"canonical_a"`
	CanonicalB string `json:"canonical_b"`
}

// CanonicalCache is the cache contract the service needs.
type CanonicalCache interface {
	GetOrCompute(ctx context.Context, helm string,
		compute func(ctx context.Context) (*redis.CanonicalEntry, error)) (*redis.CanonicalEntry, bool, error)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithMaxCandidates bounds the canonical search.  Non-positive values keep
// the default.
func WithMaxCandidates(n int) Option {
	return func(s *serviceImpl) {
		if n > 0 {
			s.maxCandidates.Store(int64(n))
		}
	}
}

// WithParseLimits bounds repeat counts and the expanded unit count of one
// notation.  Non-positive values keep the parser defaults.
func WithParseLimits(maxRepeat, maxUnits int) Option {
	return func(s *serviceImpl) {
		s.limits = parser.Limits{MaxRepeat: maxRepeat, MaxUnits: maxUnits}
	}
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

func WithCache(c CanonicalCache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// serviceImpl implements Service.
type serviceImpl struct {
	db            monomer.Database
	chem          monomer.Chemistry
	logger        logging.Logger
	metrics       *prometheus.AppMetrics
	cache         CanonicalCache
	limits        parser.Limits
	maxCandidates atomic.Int64
}

// NewService creates a notation service over the shared monomer database.
// Every call works in its own monomer.Session, so ad hoc monomers never leak
// into db.
func NewService(db monomer.Database, chem monomer.Chemistry, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		db:     db,
		chem:   chem,
		logger: logger,
	}
	s.maxCandidates.Store(canonical.DefaultMaxCandidates)
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = prometheus.NewNopAppMetrics()
	}
	return s
}

func (s *serviceImpl) SetMaxCandidates(n int) {
	if n > 0 {
		s.maxCandidates.Store(int64(n))
		s.logger.Info("Canonical candidate bound updated", logging.Int("max_candidates", n))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Validate
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Validate(ctx context.Context, input *Input) (*ValidateResult, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	res := &ValidateResult{Version: parser.Detect(input.HELM).String()}

	n, err := parser.ParseWithLimits(input.HELM, s.limits)
	if err == nil {
		res.Polymers = len(n.Polymers)
		res.Connections = len(n.Connections)
		res.Groupings = len(n.Groupings)

		session := monomer.NewSession(s.db)
		err = validation.NewValidator(session, s.chem).Validate(n)
		res.AdHoc = session.AdHocCount()
		prometheus.RecordAdHocMonomers(s.metrics, res.AdHoc)
	}

	prometheus.RecordNotationRequest(s.metrics, "validate", nil)
	if err != nil {
		res.Error = errorInfo(err)
		prometheus.RecordValidation(s.metrics, res.Error.Code)
		s.logger.Debug("Notation invalid",
			logging.String("code", res.Error.Code),
			logging.String("detail", res.Error.Detail))
		return res, nil
	}
	res.Valid = true
	prometheus.RecordValidation(s.metrics, "")
	return res, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonicalize
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Canonicalize(ctx context.Context, input *Input) (*CanonicalResult, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	start := time.Now()

	compute := func(context.Context) (*redis.CanonicalEntry, error) {
		return s.canonicalize(input.HELM)
	}

	var (
		entry *redis.CanonicalEntry
		hit   bool
		err   error
	)
	if s.cache != nil {
		entry, hit, err = s.cache.GetOrCompute(ctx, input.HELM, compute)
		if err == nil {
			prometheus.RecordCacheAccess(s.metrics, "canonical", hit)
		}
	} else {
		entry, err = compute(ctx)
	}
	elapsed := time.Since(start)

	prometheus.RecordNotationRequest(s.metrics, "canonicalize", err)
	if !hit {
		candidates := 0
		if entry != nil {
			candidates = entry.Candidates
		}
		prometheus.RecordCanonicalization(s.metrics, elapsed, candidates, err)
	}
	if err != nil {
		s.logger.Debug("Canonicalization failed", logging.String("code", string(errors.RootCode(err))), logging.Err(err))
		return nil, err
	}

	s.logger.Debug("Notation canonicalized",
		logging.Int("candidates", entry.Candidates),
		logging.Bool("cached", hit),
		logging.Duration("elapsed", elapsed))
	return &CanonicalResult{
		Canonical:  entry.Canonical,
		Candidates: entry.Candidates,
		Cached:     hit,
		Elapsed:    elapsed,
	}, nil
}

// canonicalize parses, validates and canonicalizes helm in a fresh session.
func (s *serviceImpl) canonicalize(helm string) (*redis.CanonicalEntry, error) {
	n, session, err := s.parseAndValidate(helm)
	if err != nil {
		return nil, err
	}
	c := canonical.NewCanonicalizer(session, s.chem, canonical.Options{MaxCandidates: int(s.maxCandidates.Load())})
	res, err := c.CanonicalizeResult(n)
	if err != nil {
		return nil, err
	}
	return &redis.CanonicalEntry{Canonical: res.HELM, Candidates: res.Candidates}, nil
}

func (s *serviceImpl) parseAndValidate(helm string) (*domainNotation.Notation, *monomer.Session, error) {
	n, err := parser.ParseWithLimits(helm, s.limits)
	if err != nil {
		return nil, nil, err
	}
	session := monomer.NewSession(s.db)
	if err := validation.NewValidator(session, s.chem).Validate(n); err != nil {
		return nil, nil, err
	}
	prometheus.RecordAdHocMonomers(s.metrics, session.AdHocCount())
	return n, session, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Legacy / Format / Compare
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Legacy(ctx context.Context, input *Input) (*LegacyResult, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	n, _, err := s.parseAndValidate(input.HELM)
	if err == nil {
		var out string
		out, err = canonical.NewLegacyProjector().ToLegacyForm(n)
		if err == nil {
			prometheus.RecordNotationRequest(s.metrics, "legacy", nil)
			return &LegacyResult{Legacy: out}, nil
		}
	}
	prometheus.RecordNotationRequest(s.metrics, "legacy", err)
	s.logger.Debug("Legacy projection failed", logging.String("code", string(errors.RootCode(err))))
	return nil, err
}

func (s *serviceImpl) Format(ctx context.Context, input *Input) (*FormatResult, error) {
	if err := checkInput(input); err != nil {
		return nil, err
	}
	n, err := parser.ParseWithLimits(input.HELM, s.limits)
	prometheus.RecordNotationRequest(s.metrics, "format", err)
	if err != nil {
		return nil, err
	}
	return &FormatResult{Version: parser.Detect(input.HELM).String(), HELM2: n.String()}, nil
}

func (s *serviceImpl) Compare(ctx context.Context, input *CompareInput) (*CompareResult, error) {
	if input == nil {
		return nil, errors.InvalidParam("two notations are required")
	}
	a, err := s.Canonicalize(ctx, &Input{HELM: input.A})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "cannot canonicalize first notation")
	}
	b, err := s.Canonicalize(ctx, &Input{HELM: input.B})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "cannot canonicalize second notation")
	}
	return &CompareResult{
		Equal:      a.Canonical == b.Canonical,
		CanonicalA: a.Canonical,
		CanonicalB: b.Canonical,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func checkInput(input *Input) error {
	if input == nil || strings.TrimSpace(input.HELM) == "" {
		return errors.InvalidParam("helm is required")
	}
	return nil
}

// errorInfo reports the most specific code in err's chain, so a wrapped
// connection failure surfaces as its CON_* code.
func errorInfo(err error) *ErrorInfo {
	info := &ErrorInfo{Code: string(errors.RootCode(err)), Message: err.Error()}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		info.Message = ae.Message
		info.Detail = ae.Detail
	}
	return info
}

// ErrorInfoFor is errorInfo for the interface layers.
func ErrorInfoFor(err error) *ErrorInfo {
	return errorInfo(err)
}
