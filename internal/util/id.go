// Package util contains small internal helpers shared across packages.
package util

import "github.com/google/uuid"

// NewID generates a new unique identifier.
//
// Used for matches, challenges, competitors and evaluations so all entity
// identifiers share one format.
func NewID() string { return uuid.NewString() }
