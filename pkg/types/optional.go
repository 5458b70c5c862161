package types

import "encoding/json"

// Optional represents a value of type T that may be absent. The zero value is
// absent. Absence is preserved through JSON: a missing key or a null decodes to
// an absent Optional, and an absent Optional is dropped by `omitzero`.
type Optional[T any] struct {
	value T
	set   bool
}

// Some creates a present Optional[T].
func Some[T any](value T) Optional[T] {
	return Optional[T]{value: value, set: true}
}

// Value returns the value if present, otherwise the provided default value or the zero value of T.
func (o Optional[T]) Value(defaultValue ...T) T {
	if o.set {
		return o.value
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	var zero T
	return zero
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool { return o.set }

// IsZero reports whether the value is absent. Used by `omitzero`.
func (o Optional[T]) IsZero() bool { return !o.set }

// Set stores a value and marks it present.
func (o *Optional[T]) Set(t T) {
	o.value = t
	o.set = true
}

// MarshalJSON implements [json.Marshaler].
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.set {
		return json.Marshal(o.value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.set = true
	return nil
}
