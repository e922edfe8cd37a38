// Package config implements the layered, self-documenting test-run configuration.
//
// Every setting is an Option that remembers its description, its default and
// whether it was explicitly set. Merge uses that flag per leaf option, so a
// partially overridden section keeps the untouched values of the base.
package config

import (
	"encoding/json"
	"fmt"
)

// Option wraps a setting value together with its description and default.
// The zero value is not useful; create options with NewOption.
type Option[T any] struct {
	description string
	def         T
	value       T
	modified    bool
}

// NewOption creates an option holding its default value.
func NewOption[T any](description string, defaultValue T) Option[T] {
	return Option[T]{
		description: description,
		def:         defaultValue,
		value:       defaultValue,
	}
}

// Option kinds used by the configuration sections.
type (
	BoolOption               = Option[bool]
	StringOption             = Option[string]
	StringArrayOption        = Option[[]string]
	DecimalOption            = Option[float64]
	ContainerInfoArrayOption = Option[[]ContainerInfo]
)

// Value returns the current value.
func (o Option[T]) Value() T {
	return o.value
}

// Default returns the documented default value.
func (o Option[T]) Default() T {
	return o.def
}

// Description returns the help text of the option.
func (o Option[T]) Description() string {
	return o.description
}

// IsOriginalValue reports whether the option still holds the value it was
// constructed with, i.e. it was never explicitly set.
func (o Option[T]) IsOriginalValue() bool {
	return !o.modified
}

// IsModified is the inverse of IsOriginalValue.
func (o Option[T]) IsModified() bool {
	return o.modified
}

// With returns a copy of o holding v, marked as explicitly set.
// Setting an option to its own default still counts as an override.
func (o Option[T]) With(v T) Option[T] {
	o.value = v
	o.modified = true
	return o
}

// Set replaces the value in place and marks the option as explicitly set.
func (o *Option[T]) Set(v T) {
	*o = o.With(v)
}

// String renders the option as "description (value, default: default)".
func (o Option[T]) String() string {
	return fmt.Sprintf("%s (%v, default: %v)", o.description, o.value, o.def)
}

// MarshalJSON encodes only the current value.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.value)
}

// setting is the type-erased view of an option used by the field tables.
type setting interface {
	IsModified() bool
	Description() string
	valueAny() any
	defaultAny() any
	decode(raw any) (outcome, error)
	copyFrom(src setting)
}

func (o *Option[T]) valueAny() any {
	return o.value
}

func (o *Option[T]) defaultAny() any {
	return o.def
}

// decode coerces raw into T and assigns it. Values that cannot be coerced
// leave the option untouched.
func (o *Option[T]) decode(raw any) (outcome, error) {
	if raw == nil {
		return outcomeDefault, nil
	}
	v, err := coerce[T](raw)
	if err != nil {
		return outcomeInvalid, err
	}
	o.Set(v)
	return outcomeValue, nil
}

// copyFrom overwrites o with src. Mismatched option types are a programming
// error in a field table and panic.
func (o *Option[T]) copyFrom(src setting) {
	s, ok := src.(*Option[T])
	if !ok {
		panic(fmt.Sprintf("config: cannot copy %T into %T", src, o))
	}
	*o = *s
}

// field binds an option to its key inside a section.
type field struct {
	key string
	opt setting
}

// section is implemented by every configuration section.
type section interface {
	fields() []field
}
