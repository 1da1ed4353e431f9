package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no ledger row matches
var ErrNotFound = errors.New("artifact not found")

// Artifact is one ledger row
type Artifact struct {
	ID          string
	Name        string // File name served under /api/images/
	Path        string
	Fingerprint string
	Size        int64
	CreatedAt   time.Time
}

// ArtifactLedger records rendered images for caching and expiry
type ArtifactLedger interface {
	// Record adds or replaces the row for a.ID
	Record(ctx context.Context, a Artifact) error

	// Get looks an artifact up by file name
	Get(ctx context.Context, name string) (*Artifact, error)

	// Expired lists artifacts created before cutoff, oldest first
	Expired(ctx context.Context, cutoff time.Time) ([]Artifact, error)

	// Delete removes the row for id; deleting a missing row is not an error
	Delete(ctx context.Context, id string) error

	// Count returns the number of recorded artifacts
	Count(ctx context.Context) (int, error)

	// Close releases resources
	Close() error
}
