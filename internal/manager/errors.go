package manager

import (
	"errors"
	"fmt"

	"modelyaml/pkg/types"
)

// modelNotFoundError is returned by definition lookups and deletes for an unknown id.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns an error when a requested model id is not present in the store.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// invalidDefinitionError rejects a write that failed validation.
type invalidDefinitionError struct {
	model    string
	problems []types.Problem
}

func (e invalidDefinitionError) Error() string {
	if len(e.problems) == 1 {
		return fmt.Sprintf("invalid definition %s: %s", e.model, describe(e.problems[0]))
	}
	return fmt.Sprintf("invalid definition %s: %d problems, first: %s", e.model, len(e.problems), describe(e.problems[0]))
}

// IsInvalidDefinition reports whether err rejects a definition write.
func IsInvalidDefinition(err error) bool {
	var e invalidDefinitionError
	return errors.As(err, &e)
}

// Problems returns the validation problems carried by err, if any.
func Problems(err error) []types.Problem {
	var e invalidDefinitionError
	if errors.As(err, &e) {
		return e.problems
	}
	return nil
}

func describe(p types.Problem) string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}
