package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStoreUpload(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080/photos/")

	url, err := store.Upload(context.Background(), "alistamientos/ABC123/frontal-1700000000000.jpg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Upload: unexpected error: %v", err)
	}
	if url != "http://localhost:8080/photos/alistamientos/ABC123/frontal-1700000000000.jpg" {
		t.Errorf("Upload: unexpected URL %s", url)
	}

	data, err := os.ReadFile(filepath.Join(root, "alistamientos", "ABC123", "frontal-1700000000000.jpg"))
	if err != nil {
		t.Fatalf("reading stored blob: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("stored blob content mismatch: %q", data)
	}
}

func TestLocalStoreUploadEmptyPath(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost:8080/photos")

	if _, err := store.Upload(context.Background(), "", []byte("x")); err == nil {
		t.Error("Upload: expected error for empty path")
	}
}

// Traversal segments must not escape the store root.
func TestLocalStoreConfinesPath(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080/photos")

	if _, err := store.Upload(context.Background(), "../../etc/escape.jpg", []byte("x")); err != nil {
		t.Fatalf("Upload: unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "etc", "escape.jpg")); err != nil {
		t.Errorf("expected blob inside the store root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(filepath.Dir(root)), "etc", "escape.jpg")); err == nil {
		t.Error("blob escaped the store root")
	}
}

func TestLocalStoreCancelledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost:8080/photos")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Upload(ctx, "a/b.jpg", []byte("x")); err == nil {
		t.Error("Upload: expected error for cancelled context")
	}
}
