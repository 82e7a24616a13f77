// Package handlers implements the helmserver HTTP endpoints.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error *notation.ErrorInfo `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError maps err to an HTTP status through its outermost code and
// reports the most specific code in the body.  Errors without a client code
// are masked.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if status >= http.StatusInternalServerError {
		writeJSON(w, status, ErrorResponse{Error: &notation.ErrorInfo{
			Code:    string(errors.ErrCodeInternal),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		}})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: notation.ErrorInfoFor(err)})
}

// decodeJSON reads a bounded JSON body into dst.  On failure it writes the
// response itself and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBodySize int64, dst interface{}) bool {
	if maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: &notation.ErrorInfo{
			Code:    string(errors.ErrCodeBadRequest),
			Message: "request body too large",
		}})
		return false
	}
	msg := "invalid JSON body"
	if stderrors.Is(err, io.EOF) {
		msg = "request body is empty"
	}
	writeError(w, errors.New(errors.ErrCodeBadRequest, msg).WithDetail(err.Error()))
	return false
}
