package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is returned when an artifact doesn't exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactTooLarge is returned when an artifact exceeds the maximum size.
	ErrArtifactTooLarge = errors.New("artifact exceeds maximum size")

	// ErrInvalidKey is returned when an artifact key is invalid.
	ErrInvalidKey = errors.New("invalid artifact key")

	// ErrStoreNotInitialized is returned when operations are attempted on an uninitialized store.
	ErrStoreNotInitialized = errors.New("artifact store not initialized")
)

// ArtifactError wraps an error with artifact context.
type ArtifactError struct {
	Op  string // Operation that failed
	Key string // Artifact key involved
	Err error  // Underlying error
}

func (e *ArtifactError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// NewArtifactError creates a new ArtifactError.
func NewArtifactError(op, key string, err error) *ArtifactError {
	return &ArtifactError{Op: op, Key: key, Err: err}
}

// IsNotFound returns true if the error indicates an artifact was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrArtifactNotFound)
}
