package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.  The
// prefix before the underscore names the module that raises it.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Structural validator error codes
const (
	ErrCodeDuplicateIDs      ErrorCode = "VAL_001"
	ErrCodeInvalidMonomer    ErrorCode = "VAL_002"
	ErrCodeInvalidGrouping   ErrorCode = "VAL_003"
	ErrCodeInvalidConnection ErrorCode = "VAL_004"
	ErrCodeInvalidAnnotation ErrorCode = "VAL_005"
)

// Connection validator error codes; always wrapped in ErrCodeInvalidConnection
// when surfaced by the structural validator.
const (
	ErrCodeUnknownPolymerID          ErrorCode = "CON_001"
	ErrCodeMonomerNotFound           ErrorCode = "CON_002"
	ErrCodeInvalidRNAConnection      ErrorCode = "CON_003"
	ErrCodeAttachmentPointMissing    ErrorCode = "CON_004"
	ErrCodeAttachmentAlreadyOccupied ErrorCode = "CON_005"
)

// Monomer resolver error codes
const (
	ErrCodeUnknownMonomer ErrorCode = "MON_001"
	ErrCodeInvalidSMILES  ErrorCode = "MON_002"
	ErrCodeLibraryInvalid ErrorCode = "MON_003"
)

// Canonicalizer error codes
const (
	ErrCodeUnsupported       ErrorCode = "CAN_001"
	ErrCodeTooManyCandidates ErrorCode = "CAN_002"
)

// Legacy projector error codes
const (
	ErrCodeHasAmbiguity ErrorCode = "LEG_001"
)

// Notation parser error codes
const (
	ErrCodeParseFailed ErrorCode = "PAR_001"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,

	ErrCodeDuplicateIDs:      http.StatusUnprocessableEntity,
	ErrCodeInvalidMonomer:    http.StatusUnprocessableEntity,
	ErrCodeInvalidGrouping:   http.StatusUnprocessableEntity,
	ErrCodeInvalidConnection: http.StatusUnprocessableEntity,
	ErrCodeInvalidAnnotation: http.StatusUnprocessableEntity,

	ErrCodeUnknownPolymerID:          http.StatusUnprocessableEntity,
	ErrCodeMonomerNotFound:           http.StatusUnprocessableEntity,
	ErrCodeInvalidRNAConnection:      http.StatusUnprocessableEntity,
	ErrCodeAttachmentPointMissing:    http.StatusUnprocessableEntity,
	ErrCodeAttachmentAlreadyOccupied: http.StatusUnprocessableEntity,

	ErrCodeUnknownMonomer: http.StatusUnprocessableEntity,
	ErrCodeInvalidSMILES:  http.StatusUnprocessableEntity,
	ErrCodeLibraryInvalid: http.StatusInternalServerError,

	ErrCodeUnsupported:       http.StatusUnprocessableEntity,
	ErrCodeTooManyCandidates: http.StatusUnprocessableEntity,

	ErrCodeHasAmbiguity: http.StatusUnprocessableEntity,

	ErrCodeParseFailed: http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",

	ErrCodeDuplicateIDs:      "duplicate polymer or group ids",
	ErrCodeInvalidMonomer:    "invalid monomer",
	ErrCodeInvalidGrouping:   "invalid grouping",
	ErrCodeInvalidConnection: "invalid connection",
	ErrCodeInvalidAnnotation: "invalid annotation",

	ErrCodeUnknownPolymerID:          "unknown polymer id",
	ErrCodeMonomerNotFound:           "monomer not found in polymer",
	ErrCodeInvalidRNAConnection:      "invalid RNA base-pair connection",
	ErrCodeAttachmentPointMissing:    "attachment point missing on monomer",
	ErrCodeAttachmentAlreadyOccupied: "attachment point already occupied",

	ErrCodeUnknownMonomer: "unknown monomer",
	ErrCodeInvalidSMILES:  "invalid SMILES",
	ErrCodeLibraryInvalid: "invalid monomer library",

	ErrCodeUnsupported:       "notation not supported by canonicalization",
	ErrCodeTooManyCandidates: "too many canonical candidates",

	ErrCodeHasAmbiguity: "notation has HELM2-only ambiguity",

	ErrCodeParseFailed: "failed to parse HELM notation",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
