// Package apperr defines the typed error carried between the Google clients,
// the persistence layer and the HTTP handlers, and renders it as JSON.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeGoogleNotConnected  = "GOOGLE_NOT_CONNECTED"
	CodeTokenExchangeFailed = "TOKEN_EXCHANGE_FAILED"
	CodeOAuthRevoked        = "OAUTH_REVOKED"
	CodeUserInfoFailed      = "USERINFO_FAILED"
	CodeDriveListFailed     = "DRIVE_LIST_FAILED"
	CodeDriveMetadataFailed = "DRIVE_METADATA_FAILED"
	CodeDriveDownloadFailed = "DRIVE_DOWNLOAD_FAILED"
	CodeDriveError          = "DRIVE_ERROR"
	CodeImportFailed        = "IMPORT_FAILED"
	CodeFileNotStored       = "FILE_NOT_STORED"
	CodeFileNotFound        = "FILE_NOT_FOUND"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeConfigError         = "CONFIG_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error is a status-aware application error.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds an error whose HTTP status is derived from its code.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: StatusFor(code)}
}

// Wrap attaches a cause to a new error. The cause is kept for logs only.
func Wrap(err error, code, message string) *Error {
	e := New(code, message)
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case CodeValidation, CodeGoogleNotConnected:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeOAuthRevoked:
		return http.StatusUnauthorized
	case CodeNotFound, CodeFileNotFound, CodeFileNotStored:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Write renders err. Errors that are not *Error become a generic 500 with fallbackCode.
func Write(w http.ResponseWriter, err error, fallbackCode string) {
	e, ok := As(err)
	if !ok {
		if fallbackCode == "" {
			fallbackCode = CodeInternal
		}
		e = New(fallbackCode, "An unexpected error occurred")
	}
	status := e.Status
	if status == 0 {
		status = StatusFor(e.Code)
	}
	WriteCode(w, status, e.Code, e.Message)
}

// WriteCode writes an error body with an explicit status.
func WriteCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Body{Error: code, Message: message})
}
