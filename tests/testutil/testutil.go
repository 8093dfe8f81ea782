// Package testutil holds helpers shared by the nursery integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID returns a deterministic UUID for seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// SpeciesID returns a stable species id for name, e.g. "acer-rubrum"
func SpeciesID(name string) uuid.UUID {
	return NewTestUUID("species/" + name)
}

// ContextWithTimeout returns a context cancelled at test cleanup or after
// timeout, whichever comes first
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
