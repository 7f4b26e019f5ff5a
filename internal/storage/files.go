package storage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type FileStore interface {
	// DeleteStoredFile reports whether the file referenced by ref is gone.
	DeleteStoredFile(ref string) bool
}

type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) DeleteStoredFile(ref string) bool {
	path, ok := s.resolve(ref)
	if !ok {
		slog.Warn("image_delete_rejected", "ref", ref, "reason", "path escapes image root")
		return false
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true
		}
		slog.Warn("image_delete_failed", "ref", ref, "error", err)
		return false
	}
	return true
}

func (s *LocalStore) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || filepath.IsAbs(ref) {
		return "", false
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", false
	}
	path := filepath.Join(root, filepath.Clean(ref))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return path, true
}

type Nop struct{}

func (Nop) DeleteStoredFile(string) bool { return true }
