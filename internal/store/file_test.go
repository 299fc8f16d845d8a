package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "william penn foundation"); ok {
		t.Fatal("unexpected hit on empty store")
	}

	if err := s.Put(ctx, "william penn foundation", "https://williampennfoundation.org/"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	url, ok, err := s.Get(ctx, "william penn foundation")
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if url != "https://williampennfoundation.org/" {
		t.Errorf("Get = %q", url)
	}
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.json")
	ctx := context.Background()

	s1, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s1.Put(ctx, "ford foundation", "https://fordfoundation.org/"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s1.Close()

	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	url, ok, _ := s2.Get(ctx, "ford foundation")
	if !ok || url != "https://fordfoundation.org/" {
		t.Errorf("entry lost across reopen: ok=%v url=%q", ok, url)
	}
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.json")
	s, _ := NewFileStore(path)
	ctx := context.Background()

	s.Put(ctx, "k", "https://example.org/")
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("entry survived Delete")
	}
	// Deleting a missing key succeeds.
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestFileStoreReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.json")
	s, _ := NewFileStore(path)
	ctx := context.Background()

	s.Put(ctx, "a", "https://a.org/")
	s.Put(ctx, "b", "https://b.org/")

	all, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 2 || all["a"] != "https://a.org/" || all["b"] != "https://b.org/" {
		t.Errorf("ReadAll = %v", all)
	}
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "resolved.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.Put(context.Background(), "k", "https://example.org/"); err != nil {
		t.Fatalf("Put into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolved.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Error("expected error for corrupt store file")
	}
}
