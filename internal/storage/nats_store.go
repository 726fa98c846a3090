package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSArtifactStore stores artifacts in a NATS JetStream Object Store
// bucket, for deployments where workers and the API run as separate
// processes sharing no filesystem.
type NATSArtifactStore struct {
	js     nats.JetStreamContext
	bucket nats.ObjectStore
	config Config
}

func NewNATSArtifactStore(js nats.JetStreamContext, config Config) (*NATSArtifactStore, error) {
	if js == nil {
		return nil, ErrStoreNotInitialized
	}
	if config.BucketName == "" {
		config = DefaultConfig()
	}

	bucket, err := js.ObjectStore(config.BucketName)
	if err != nil {
		if err == nats.ErrBucketNotFound || err == nats.ErrStreamNotFound || strings.Contains(err.Error(), "stream not found") {
			bucket, err = js.CreateObjectStore(&nats.ObjectStoreConfig{
				Bucket:      config.BucketName,
				Description: "Generated media artifacts",
			})
			if err != nil {
				return nil, NewArtifactError("create_bucket", config.BucketName, err)
			}
		} else {
			return nil, NewArtifactError("get_bucket", config.BucketName, err)
		}
	}

	return &NATSArtifactStore{js: js, bucket: bucket, config: config}, nil
}

func (s *NATSArtifactStore) Put(ctx context.Context, key string, reader io.Reader, opts PutOptions) (*ArtifactInfo, error) {
	if s.bucket == nil {
		return nil, ErrStoreNotInitialized
	}
	if key == "" {
		return nil, NewArtifactError("put", "", ErrInvalidKey)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewArtifactError("put", key, fmt.Errorf("read input: %w", err))
	}
	if s.config.MaxArtifactSize > 0 && int64(len(data)) > s.config.MaxArtifactSize {
		return nil, NewArtifactError("put", key, ErrArtifactTooLarge)
	}

	checksum := sha256.Sum256(data)
	checksumHex := hex.EncodeToString(checksum[:])

	meta := &nats.ObjectMeta{
		Name:    key,
		Headers: make(nats.Header),
	}
	if opts.ContentType != "" {
		meta.Headers.Set("Content-Type", opts.ContentType)
	}
	meta.Headers.Set("X-Checksum", checksumHex)

	if _, err := s.bucket.Put(meta, bytes.NewReader(data)); err != nil {
		return nil, NewArtifactError("put", key, err)
	}

	return &ArtifactInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		Checksum:    checksumHex,
		CreatedAt:   time.Now(),
	}, nil
}

func (s *NATSArtifactStore) Get(ctx context.Context, key string) (io.ReadCloser, *ArtifactInfo, error) {
	if s.bucket == nil {
		return nil, nil, ErrStoreNotInitialized
	}

	obj, err := s.bucket.Get(key)
	if err != nil {
		if err == nats.ErrObjectNotFound {
			return nil, nil, NewArtifactError("get", key, ErrArtifactNotFound)
		}
		return nil, nil, NewArtifactError("get", key, err)
	}

	info, err := obj.Info()
	if err != nil {
		obj.Close()
		return nil, nil, NewArtifactError("get", key, err)
	}

	return obj, objectInfoToArtifact(info), nil
}

func (s *NATSArtifactStore) Delete(ctx context.Context, key string) error {
	if s.bucket == nil {
		return ErrStoreNotInitialized
	}

	if err := s.bucket.Delete(key); err != nil {
		if err == nats.ErrObjectNotFound {
			return NewArtifactError("delete", key, ErrArtifactNotFound)
		}
		return NewArtifactError("delete", key, err)
	}
	return nil
}

func (s *NATSArtifactStore) List(ctx context.Context, prefix string) ([]*ArtifactInfo, error) {
	if s.bucket == nil {
		return nil, ErrStoreNotInitialized
	}

	objects, err := s.bucket.List()
	if err != nil {
		if err == nats.ErrNoObjectsFound {
			return nil, nil
		}
		return nil, NewArtifactError("list", prefix, err)
	}

	var result []*ArtifactInfo
	for _, info := range objects {
		if info.Deleted {
			continue
		}
		if prefix != "" && !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		result = append(result, objectInfoToArtifact(info))
	}
	return result, nil
}

func (s *NATSArtifactStore) Close() error {
	return nil
}

func objectInfoToArtifact(info *nats.ObjectInfo) *ArtifactInfo {
	artifact := &ArtifactInfo{
		Key:       info.Name,
		Size:      int64(info.Size),
		CreatedAt: info.ModTime,
	}
	if info.Headers != nil {
		artifact.ContentType = info.Headers.Get("Content-Type")
		artifact.Checksum = info.Headers.Get("X-Checksum")
	}
	return artifact
}

var _ ArtifactStore = (*NATSArtifactStore)(nil)
