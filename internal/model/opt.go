package model

import (
	"bytes"
	"encoding/json"
)

// Opt is a patch field for an optional value. It tells apart the three states
// a JSON merge patch can express:
//
//	key absent          → Set == false          (keep current value)
//	"key": null         → Set == true, Null     (clear)
//	"key": <value>      → Set == true, Value    (overwrite)
//
// encoding/json only calls UnmarshalJSON for keys that are present, which is
// what makes the "absent" state observable.
type Opt[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Opt that overwrites with v.
func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

// Clear returns an Opt that clears the field.
func Clear[T any]() Opt[T] { return Opt[T]{Set: true, Null: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(b, &o.Value)
}

// MarshalJSON implements json.Marshaler. An unset Opt encodes as null; use
// omitzero on the field to drop it entirely.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero lets `omitzero` drop unset fields when encoding.
func (o Opt[T]) IsZero() bool { return !o.Set }

// Merge returns the patched value for a field whose zero value means "absent".
func (o Opt[T]) Merge(current T) T {
	if !o.Set {
		return current
	}
	if o.Null {
		var zero T
		return zero
	}
	return o.Value
}

// MergePtr is Merge for fields stored as pointers (nil = absent).
func (o Opt[T]) MergePtr(current *T) *T {
	if !o.Set {
		return current
	}
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
