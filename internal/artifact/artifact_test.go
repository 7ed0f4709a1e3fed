package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFile_WriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	f := NewFile(path)

	if err := f.Write("first run\nwith two lines\n"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := f.Write("second\n"); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("artifact = %q, want overwrite with %q", data, "second\n")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the artifact in dir, found %d entries", len(entries))
	}
}

func TestFile_WriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := NewFile(path).Write(""); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("size = %d, want 0", info.Size())
	}
}

func TestFile_MissingDirFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.txt")
	if err := NewFile(path).Write("x"); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestNewFile_DefaultPath(t *testing.T) {
	if NewFile("").Path != DefaultPath {
		t.Fatalf("expected default path %q", DefaultPath)
	}
}
