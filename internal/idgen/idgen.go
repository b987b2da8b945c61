// Package idgen generates identifiers for checks and model call records.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces time-sortable RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed type prefix ("chk_", "llm_") to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the generator used when a component is not given one.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// CheckID is the generator for compliance check identifiers.
var CheckID = Prefixed("chk_", UUIDv7())

// CallID is the generator for model call log identifiers.
var CallID = Prefixed("llm_", UUIDv7())
