package schema

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("ormato: configuration error")

// ConfigurationError reports an invalid model, constraint or type mapping.
// It is raised at registration or generation time, never at query time.
type ConfigurationError struct {
	Model  string
	Column string
	Reason string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	switch {
	case e.Model != "" && e.Column != "":
		return fmt.Sprintf("ormato: configuration error on %s.%s: %s", e.Model, e.Column, e.Reason)
	case e.Model != "":
		return fmt.Sprintf("ormato: configuration error on %s: %s", e.Model, e.Reason)
	}
	return "ormato: configuration error: " + e.Reason
}

// Is reports whether the target error matches ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// Configf returns a ConfigurationError for the given model.
func Configf(model, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Model: model, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e) || errors.Is(err, ErrConfiguration)
}
