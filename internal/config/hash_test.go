package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestComputeAndVerifyHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.yaml")
	if err := os.WriteFile(path, []byte("queue:\n  bound: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	hash, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatalf("ComputeBlake3Hash: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(hash))
	}

	if err := VerifyFileHash(path, hash); err != nil {
		t.Errorf("VerifyFileHash with correct hash: %v", err)
	}
	if err := VerifyFileHash(path, "deadbeef"); err == nil {
		t.Error("expected mismatch error")
	}
}

func TestComputeHashMissingFile(t *testing.T) {
	if _, err := ComputeBlake3Hash(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
