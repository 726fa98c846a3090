package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newMemStore(t *testing.T) *FSArtifactStore {
	t.Helper()

	store, err := NewFSArtifactStore(afero.NewMemMapFs(), "artifacts", DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestFSStorePutGetDelete(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	payload := []byte("png bytes")
	info, err := store.Put(ctx, "thumbnails/1/a.png", bytes.NewReader(payload), PutOptions{ContentType: "image/png"})
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), info.Size)
	}
	if info.Checksum == "" {
		t.Error("expected checksum to be set")
	}

	reader, got, err := store.Get(ctx, "thumbnails/1/a.png")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("payload mismatch")
	}
	if got.Key != "thumbnails/1/a.png" {
		t.Errorf("unexpected key %s", got.Key)
	}

	if err := store.Delete(ctx, "thumbnails/1/a.png"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "thumbnails/1/a.png"); !IsNotFound(err) {
		t.Errorf("expected not-found after delete, got %v", err)
	}
}

func TestFSStoreRejectsTraversalKeys(t *testing.T) {
	store := newMemStore(t)

	_, err := store.Put(context.Background(), "../escape.png", strings.NewReader("x"), PutOptions{})
	if err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestFSStoreEnforcesMaxSize(t *testing.T) {
	store, err := NewFSArtifactStore(afero.NewMemMapFs(), "artifacts", Config{MaxArtifactSize: 4})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	_, err = store.Put(context.Background(), "big.png", strings.NewReader("too large"), PutOptions{})
	if err == nil {
		t.Fatal("expected oversized artifact to be rejected")
	}
}

func TestFSStoreListByPrefix(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	for _, key := range []string{"thumbnails/1/a.png", "thumbnails/1/b.png", "thumbnails/2/c.png"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("put %s failed: %v", key, err)
		}
	}

	listed, err := store.List(ctx, "thumbnails/1/")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 artifacts under prefix, got %d", len(listed))
	}
}
