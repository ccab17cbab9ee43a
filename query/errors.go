package query

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed build errors below.
var (
	// ErrReference is matched by ReferenceError.
	ErrReference = errors.New("ormato: reference error")

	// ErrValidation is matched by ValidationError.
	ErrValidation = errors.New("ormato: validation error")

	// ErrUnsupportedExpression is matched by UnsupportedExpressionError.
	ErrUnsupportedExpression = errors.New("ormato: unsupported expression")
)

// ReferenceError reports a column or alias that none of the models involved
// in a query declares.
type ReferenceError struct {
	Model  string // empty when the reference was not scoped to a model
	Column string
}

// Error returns the error string.
func (e *ReferenceError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("ormato: unknown column %q in %s", e.Column, e.Model)
	}
	return fmt.Sprintf("ormato: unknown column %q", e.Column)
}

// Is reports whether the target error matches ErrReference.
func (e *ReferenceError) Is(err error) bool { return err == ErrReference }

// ValidationError reports a malformed query: a negative limit or offset,
// a bad filter expression or a parameter count mismatch.
type ValidationError struct {
	Reason string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return "ormato: invalid query: " + e.Reason
}

// Is reports whether the target error matches ErrValidation.
func (e *ValidationError) Is(err error) bool { return err == ErrValidation }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedExpressionError reports an operator outside the supported set.
type UnsupportedExpressionError struct {
	Op string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("ormato: unsupported operator %q", e.Op)
}

// Is reports whether the target error matches ErrUnsupportedExpression.
func (e *UnsupportedExpressionError) Is(err error) bool { return err == ErrUnsupportedExpression }

// IsReferenceError returns true if the error is a ReferenceError.
func IsReferenceError(err error) bool {
	var e *ReferenceError
	return err != nil && (errors.As(err, &e) || errors.Is(err, ErrReference))
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var e *ValidationError
	return err != nil && (errors.As(err, &e) || errors.Is(err, ErrValidation))
}

// IsUnsupportedExpression returns true if the error is an
// UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	var e *UnsupportedExpressionError
	return err != nil && (errors.As(err, &e) || errors.Is(err, ErrUnsupportedExpression))
}
