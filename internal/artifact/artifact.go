// Package artifact persists the text captured by an extraction.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultPath is where the artifact is written when no path is configured.
const DefaultPath = "config.txt"

// Writer stores the artifact of a successful extraction.
type Writer interface {
	Write(content string) error
}

// File writes the artifact to a plain text file, replacing any previous
// content. The file is written to a temporary sibling and renamed so a
// failed write never leaves a half-written artifact behind.
type File struct {
	Path string
}

// NewFile creates a file writer for path, or DefaultPath when empty.
func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{Path: path}
}

// Write replaces the file's content.
func (f *File) Write(content string) error {
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("replace artifact %s: %w", f.Path, err)
	}
	return nil
}
