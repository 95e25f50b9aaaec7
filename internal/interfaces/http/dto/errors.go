package dto

import "net/http"

// ErrCodeBadRequest is used for malformed request bodies.
const ErrCodeBadRequest = "BAD_REQUEST"

// ErrCodeInternal is used when the error type is unknown.
const ErrCodeInternal = "INTERNAL"

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Group-fatal business failures map to 422: the request was well formed
// but the group cannot settle.
var errorCodeHTTPStatus = map[string]int{
	"NOT_FOUND":               http.StatusNotFound,
	"INVALID_INPUT":           http.StatusBadRequest,
	"MISSING_SKU":             http.StatusUnprocessableEntity,
	"ZERO_COST":               http.StatusUnprocessableEntity,
	"RECONCILE_MISMATCH":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_CODES":      http.StatusUnprocessableEntity,
	"INVALID_DOCUMENT_NUMBER": http.StatusUnprocessableEntity,
	"INVALID_SUPPLIER":        http.StatusUnprocessableEntity,
	"ALREADY_SETTLED":         http.StatusConflict,
	"SCHEMA_MISMATCH":         http.StatusInternalServerError,
	"INFRASTRUCTURE":          http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
