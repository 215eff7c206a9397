package analyzer

import (
	"errors"
	"fmt"
)

// ErrUnknownAnalysis is returned for names that are not registered.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// ConfigError rejects contradictory or invalid parameters before any
// scanning starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
