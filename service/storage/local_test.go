package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame_000001.jpg")
	svc := NewLocal()

	if err := svc.StoreFile(path, []byte("first")); err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	if err := svc.StoreFile(path, []byte("second")); err != nil {
		t.Fatalf("StoreFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestStoreFileMissingDirectory(t *testing.T) {
	svc := NewLocal()
	if err := svc.StoreFile(filepath.Join(t.TempDir(), "nope", "a.jpg"), []byte("x")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame_000001.raw")
	if err := os.WriteFile(path, []byte("raw"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewLocal()
	if err := svc.RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
	if err := svc.RemoveFile(path); err != nil {
		t.Errorf("removing a missing file: %v", err)
	}
}
