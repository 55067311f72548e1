package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"vodmill/internal/fileutil"
)

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	size, err := fileutil.FileSize(path)
	if err != nil {
		t.Fatalf("file size: %v", err)
	}
	if size != 5 {
		t.Fatalf("size = %d, want 5", size)
	}

	if _, err := fileutil.FileSize(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := fileutil.FileSize(dir); err == nil {
		t.Fatal("expected error for directory")
	}
}
