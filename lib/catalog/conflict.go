package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownReference is returned when a record points at a genre, country or
// other entity that does not exist.
var ErrUnknownReference = errors.New("unknown reference")

// ConflictError blocks a mutation that would break a uniqueness rule or the
// movie type policy. Field and Value name what clashed.
type ConflictError struct {
	Entity string
	Field  string
	Value  any
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s %v: %s", e.Entity, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s with %s %v already exists", e.Entity, e.Field, e.Value)
}

func conflict(entity, field string, value any) error {
	return &ConflictError{Entity: entity, Field: field, Value: value}
}
