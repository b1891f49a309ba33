package shared

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"details,omitempty"`
}

// FieldError describes a single rejected field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by the domain and the REST layer
const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_FAILED"
	CodeIDExists         = "ID_EXISTS"
	CodeIDNull           = "ID_NULL"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInvalidPassword  = "INVALID_PASSWORD"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeStorageFailure   = "STORAGE_FAILURE"
	CodeInvalidOperation = "INVALID_STATE"
)

// Common domain errors
var (
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrIdentityAssigned = NewDomainError(CodeIDExists, "A new record cannot already have an ID")
	ErrIdentityMissing  = NewDomainError(CodeIDNull, "Invalid id")
	ErrInvalidInput     = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrAlreadyExists    = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrUnauthorized     = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden        = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidPassword  = NewDomainError(CodeInvalidPassword, "Incorrect password")
	ErrInvalidState     = NewDomainError(CodeInvalidOperation, "Operation not allowed in current state")
	ErrUnknownReference = NewDomainError(CodeInvalidInput, "Referenced record does not exist")
)

// Validation collects field errors and turns them into a single DomainError.
type Validation struct {
	entity string
	fields []FieldError
}

// NewValidation starts collecting field errors for the named entity.
func NewValidation(entity string) *Validation {
	return &Validation{entity: entity}
}

// Require records an error when ok is false.
func (v *Validation) Require(ok bool, field, message string) *Validation {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: message})
	}
	return v
}

// Err returns nil when every check passed.
func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	names := make([]string, len(v.fields))
	for i, f := range v.fields {
		names[i] = f.Field
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("%s is invalid: %s", v.entity, strings.Join(names, ", ")),
		Fields:  v.fields,
	}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
