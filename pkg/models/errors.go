package models

import "fmt"

// ProviderError – a failure talking to the hosted identity provider.
// Supports errors.As and errors.Unwrap.
//
// These never cross into page code raw; the auth layer converts them into
// AuthState fields.
type ProviderError struct {
	op  string
	err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error during %s: %v", e.op, e.err)
}

func (e *ProviderError) Unwrap() error {
	return e.err
}

// NewProviderError wraps a provider transport failure with the operation name.
func NewProviderError(op string, err error) error {
	return &ProviderError{op: op, err: err}
}

// StoreError – a failure interacting with the hosted relational store.
// Supports errors.As and errors.Unwrap.
type StoreError struct {
	table string
	err   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error on %q: %v", e.table, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

// NewStoreError wraps a data-store failure with the table it occurred on.
func NewStoreError(table string, err error) error {
	return &StoreError{table: table, err: err}
}

// AuthError – a credential rejection from the identity provider, carrying a
// message suitable for showing directly to the user. Supports errors.As.
type AuthError struct {
	msg string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.msg
}

// NewAuthError creates a new AuthError with a user-displayable message.
func NewAuthError(msg string) error {
	return &AuthError{msg: msg}
}

// ValidationError – for invalid parameters before they reach the provider.
// Supports errors.As.
type ValidationError struct {
	msg string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.msg
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}
