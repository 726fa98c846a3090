package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FSArtifactStore stores artifacts on a filesystem through afero. Local
// mode uses the OS filesystem; tests use an in-memory one.
type FSArtifactStore struct {
	fs     afero.Fs
	root   string
	config Config
}

// NewFSArtifactStore creates a store rooted at dir on the given filesystem.
func NewFSArtifactStore(fs afero.Fs, dir string, config Config) (*FSArtifactStore, error) {
	if fs == nil {
		return nil, ErrStoreNotInitialized
	}
	if config.MaxArtifactSize == 0 {
		config = DefaultConfig()
	}

	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, NewArtifactError("init", dir, err)
	}

	return &FSArtifactStore{fs: fs, root: dir, config: config}, nil
}

// NewLocalArtifactStore creates an OS-filesystem store rooted at dir.
func NewLocalArtifactStore(dir string) (*FSArtifactStore, error) {
	return NewFSArtifactStore(afero.NewOsFs(), dir, DefaultConfig())
}

func (s *FSArtifactStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return path.Join(s.root, key), nil
}

func (s *FSArtifactStore) Put(ctx context.Context, key string, reader io.Reader, opts PutOptions) (*ArtifactInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, NewArtifactError("put", key, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, NewArtifactError("put", key, fmt.Errorf("read input: %w", err))
	}
	if s.config.MaxArtifactSize > 0 && int64(len(data)) > s.config.MaxArtifactSize {
		return nil, NewArtifactError("put", key, ErrArtifactTooLarge)
	}

	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return nil, NewArtifactError("put", key, err)
	}
	if err := afero.WriteFile(s.fs, full, data, 0o644); err != nil {
		return nil, NewArtifactError("put", key, err)
	}

	checksum := sha256.Sum256(data)

	return &ArtifactInfo{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		Checksum:    hex.EncodeToString(checksum[:]),
		CreatedAt:   time.Now(),
	}, nil
}

func (s *FSArtifactStore) Get(ctx context.Context, key string) (io.ReadCloser, *ArtifactInfo, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, nil, NewArtifactError("get", key, err)
	}

	stat, err := s.fs.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, NewArtifactError("get", key, ErrArtifactNotFound)
		}
		return nil, nil, NewArtifactError("get", key, err)
	}

	file, err := s.fs.Open(full)
	if err != nil {
		return nil, nil, NewArtifactError("get", key, err)
	}

	return file, &ArtifactInfo{
		Key:       key,
		Size:      stat.Size(),
		CreatedAt: stat.ModTime(),
	}, nil
}

func (s *FSArtifactStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return NewArtifactError("delete", key, err)
	}

	if err := s.fs.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return NewArtifactError("delete", key, ErrArtifactNotFound)
		}
		return NewArtifactError("delete", key, err)
	}
	return nil
}

func (s *FSArtifactStore) List(ctx context.Context, prefix string) ([]*ArtifactInfo, error) {
	var result []*ArtifactInfo

	err := afero.Walk(s.fs, s.root, func(walked string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		key := strings.TrimPrefix(strings.TrimPrefix(walked, s.root), "/")
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		result = append(result, &ArtifactInfo{
			Key:       key,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, NewArtifactError("list", prefix, err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (s *FSArtifactStore) Close() error {
	return nil
}

var _ ArtifactStore = (*FSArtifactStore)(nil)
