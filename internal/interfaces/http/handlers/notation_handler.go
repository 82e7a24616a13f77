package handlers

import (
	"net/http"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
)

// NotationHandler serves the /api/v1/notations endpoints.
type NotationHandler struct {
	service     notation.Service
	logger      logging.Logger
	maxBodySize int64
}

// NewNotationHandler creates a NotationHandler.  A non-positive maxBodySize
// leaves request bodies unbounded.
func NewNotationHandler(service notation.Service, logger logging.Logger, maxBodySize int64) *NotationHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &NotationHandler{service: service, logger: logger, maxBodySize: maxBodySize}
}

// Validate handles POST /api/v1/notations/validate.  An invalid notation is
// a 200 with valid=false.
func (h *NotationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var in notation.Input
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}
	res, err := h.service.Validate(r.Context(), &in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Canonicalize handles POST /api/v1/notations/canonicalize.
func (h *NotationHandler) Canonicalize(w http.ResponseWriter, r *http.Request) {
	var in notation.Input
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}
	res, err := h.service.Canonicalize(r.Context(), &in)
	if err != nil {
		h.logFailure("canonicalize", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Legacy handles POST /api/v1/notations/legacy.
func (h *NotationHandler) Legacy(w http.ResponseWriter, r *http.Request) {
	var in notation.Input
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}
	res, err := h.service.Legacy(r.Context(), &in)
	if err != nil {
		h.logFailure("legacy", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Format handles POST /api/v1/notations/format.
func (h *NotationHandler) Format(w http.ResponseWriter, r *http.Request) {
	var in notation.Input
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}
	res, err := h.service.Format(r.Context(), &in)
	if err != nil {
		h.logFailure("format", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Compare handles POST /api/v1/notations/compare.
func (h *NotationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var in notation.CompareInput
	if !decodeJSON(w, r, h.maxBodySize, &in) {
		return
	}
	res, err := h.service.Compare(r.Context(), &in)
	if err != nil {
		h.logFailure("compare", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *NotationHandler) logFailure(op string, err error) {
	info := notation.ErrorInfoFor(err)
	h.logger.Debug("Notation request rejected",
		logging.String("operation", op),
		logging.String("code", info.Code),
		logging.String("detail", info.Detail))
}
