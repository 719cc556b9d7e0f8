package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error with a stable code and the HTTP status it maps to.
type Error struct {
	Kind    string
	Code    int
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the error code so that errors.Is works against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy carrying additional detail.
func (e *Error) WithDetail(format string, args ...any) *Error {
	cpy := *e
	cpy.Detail = fmt.Sprintf(format, args...)
	return &cpy
}

// Wrap returns a copy wrapping err.
func (e *Error) Wrap(err error) *Error {
	cpy := *e
	cpy.Err = err
	return &cpy
}

func newError(kind string, code, status int, message string) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: message}
}

var (
	ErrSaveAccessDenied         = newError("SAVE_ACCESS_DENIED", 10001, http.StatusForbidden, "missing permission to save files")
	ErrReadAccessDenied         = newError("READ_ACCESS_DENIED", 10011, http.StatusForbidden, "missing permission to read files")
	ErrDeleteAccessDenied       = newError("DELETE_ACCESS_DENIED", 10021, http.StatusForbidden, "missing permission to delete files")
	ErrUnableCommitTransaction  = newError("UNABLE_COMMIT_TRANSACTION", 10031, http.StatusForbidden, "unable to commit the transaction")
	ErrAccountNotFound          = newError("ACCOUNT_NOT_FOUND", 10041, http.StatusNotFound, "unable to find a storage account for the organization")
	ErrContainerNotExists       = newError("CONTAINER_NOT_EXISTS", 10051, http.StatusBadRequest, "the requested space does not exist")
	ErrOrganizationNotFound     = newError("ORGANIZATION_NOT_FOUND", 10061, http.StatusNotFound, "organization not found")
	ErrOrganizationManagerError = newError("ORGANIZATIONMANAGER_ERROR", 10071, http.StatusBadRequest, "organization manager returned an error")
	ErrMalformedResponse        = newError("MALFORMED_RESPONSE", 10081, http.StatusBadGateway, "organization manager returned a malformed response")
	ErrInvalidParameter         = newError("INVALID_PARAMETER", 10091, http.StatusBadRequest, "invalid request parameter")
	ErrUnknown                  = newError("UNKNOWN_ERROR", 50000, http.StatusInternalServerError, "an unknown error occurred")
)

// AsError maps any error to a domain error, defaulting to UNKNOWN_ERROR.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrUnknown.Wrap(err)
}

// DeniedError returns the access denied error for an operation class.
func DeniedError(class OperationClass) *Error {
	switch class {
	case ClassWrite:
		return ErrSaveAccessDenied
	case ClassDelete:
		return ErrDeleteAccessDenied
	default:
		return ErrReadAccessDenied
	}
}
