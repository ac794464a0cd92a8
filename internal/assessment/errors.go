package assessment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("assessment session not found")
	ErrForbidden     = errors.New("forbidden")
	ErrNotActive     = fmt.Errorf("%w: session is not active", ErrForbidden)
	ErrIncomplete    = errors.New("assessment has unanswered questions")
	ErrInvalidAnswer = errors.New("invalid answer")
	ErrConfiguration = errors.New("catalog configuration error")
)

// ConfigError reports catalog data the resolver cannot work with, such as a
// detected symptom with no follow-up set. It matches ErrConfiguration.
type ConfigError struct {
	SymptomID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("catalog configuration error: symptom %q: %s", e.SymptomID, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
