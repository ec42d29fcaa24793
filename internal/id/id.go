// Package id provides a type-safe UUID identifier shared by the stage,
// pruner, and pipeline packages.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a UUIDv4-backed identifier used for stages, interface states, and
// solutions. It is a plain string under the hood so it is cheap to use as a
// map key and to log.
type ID string

// New generates a fresh ID. It never fails: uuid.New uses crypto/rand,
// which on practical systems does not return an error.
func New() ID {
	return ID(uuid.New().String())
}

// Parse validates s as a UUID and returns it as an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("id: empty string")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("id: invalid uuid %q: %w", s, err)
	}
	return ID(parsed.String()), nil
}

// String returns the string representation.
func (i ID) String() string {
	return string(i)
}

// IsZero reports whether the ID is unset.
func (i ID) IsZero() bool {
	return i == ""
}
