package registry

import (
	"errors"
	"fmt"
)

// invalidModelIDError rejects ids not of the form org/name.
type invalidModelIDError struct{ id string }

func (e invalidModelIDError) Error() string { return fmt.Sprintf("invalid model id %q: want org/name", e.id) }

// IsInvalidModelID reports whether err rejects a malformed model id.
func IsInvalidModelID(err error) bool {
	var e invalidModelIDError
	return errors.As(err, &e)
}

// DuplicateBaseKeyError signals a concrete base key already declared by another model.
type DuplicateBaseKeyError struct {
	Key   string
	Owner string
	Model string
}

func (e *DuplicateBaseKeyError) Error() string {
	return fmt.Sprintf("concrete base key %q of %s is already declared by %s", e.Key, e.Model, e.Owner)
}

// IsDuplicateBaseKey reports whether err is a DuplicateBaseKeyError.
func IsDuplicateBaseKey(err error) bool {
	var e *DuplicateBaseKeyError
	return errors.As(err, &e)
}
