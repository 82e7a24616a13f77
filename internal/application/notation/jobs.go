package notation

import (
	"context"
	"strings"

	"github.com/turtacn/helmkit/pkg/errors"
)

// Job operations accepted by JobProcessor.
const (
	OpValidate     = "validate"
	OpCanonicalize = "canonicalize"
	OpLegacy       = "legacy"
	OpFormat       = "format"
	OpCompare      = "compare"
)

// JobRequest is one queued notation operation.  HELM is used by every
// operation except compare, which reads A and B.
type JobRequest struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	HELM      string `json:"helm,omitempty"`
	A         string `json:"a,omitempty"`
	B         string `json:"b,omitempty"`
}

// JobResult carries either the operation result or the failure.  Result is
// one of the *Result types of Service.
type JobResult struct {
	ID        string      `json:"id"`
	Operation string      `json:"operation"`
	Result    interface{} `json:"result,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
}

// OK reports whether the job succeeded.
func (r *JobResult) OK() bool { return r.Error == nil }

// JobProcessor runs queued jobs against a Service.
type JobProcessor struct {
	service Service
}

func NewJobProcessor(service Service) *JobProcessor {
	return &JobProcessor{service: service}
}

// Process runs req and never returns an error: every failure, including an
// unknown operation, is reported in the result.  Server-side failures keep
// their internal code so the producer can tell them from bad input.
func (p *JobProcessor) Process(ctx context.Context, req *JobRequest) *JobResult {
	if req == nil {
		return &JobResult{Error: errorInfo(errors.InvalidParam("job request is required"))}
	}
	op := strings.ToLower(strings.TrimSpace(req.Operation))
	res := &JobResult{ID: req.ID, Operation: op}

	var (
		out interface{}
		err error
	)
	input := &Input{HELM: req.HELM}
	switch op {
	case OpValidate:
		out, err = p.service.Validate(ctx, input)
	case OpCanonicalize:
		out, err = p.service.Canonicalize(ctx, input)
	case OpLegacy:
		out, err = p.service.Legacy(ctx, input)
	case OpFormat:
		out, err = p.service.Format(ctx, input)
	case OpCompare:
		out, err = p.service.Compare(ctx, &CompareInput{A: req.A, B: req.B})
	default:
		err = errors.InvalidParam("unknown job operation").WithDetailf("operation=%s", req.Operation)
	}
	if err != nil {
		res.Error = errorInfo(err)
		return res
	}
	res.Result = out
	return res
}
