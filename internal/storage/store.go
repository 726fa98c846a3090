// Package storage provides the artifact store that tool handlers write
// generated media into. Local mode uses a filesystem backend; server mode
// uses NATS JetStream Object Store.
package storage

import (
	"context"
	"io"
	"strconv"
	"time"
)

// ArtifactStore persists generated artifacts (thumbnail PNGs) by key.
type ArtifactStore interface {
	// Put stores an artifact and returns its metadata.
	Put(ctx context.Context, key string, reader io.Reader, opts PutOptions) (*ArtifactInfo, error)

	// Get retrieves an artifact by key. Caller must close the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, *ArtifactInfo, error)

	// Delete removes an artifact by key.
	Delete(ctx context.Context, key string) error

	// List returns artifacts matching the optional prefix.
	List(ctx context.Context, prefix string) ([]*ArtifactInfo, error)

	// Close releases any resources held by the store.
	Close() error
}

// ArtifactInfo contains metadata about a stored artifact.
type ArtifactInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutOptions configures artifact upload behavior.
type PutOptions struct {
	// ContentType is the MIME type of the artifact.
	ContentType string
}

// Config holds configuration for the artifact store.
type Config struct {
	// BucketName is the NATS Object Store bucket name.
	BucketName string `yaml:"bucket" json:"bucket"`

	// MaxArtifactSize is the maximum allowed artifact size in bytes (default: 25 MB).
	MaxArtifactSize int64 `yaml:"max_artifact_size" json:"max_artifact_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BucketName:      "greenroom-artifacts",
		MaxArtifactSize: 25 * 1024 * 1024, // 25 MB
	}
}

// GenerateThumbnailKey generates a key for a generated thumbnail PNG.
func GenerateThumbnailKey(userID int64) string {
	return "thumbnails/" + strconv.FormatInt(userID, 10) + "/" + generateULID() + ".png"
}
