// Package fs provides the filesystem abstraction the rest of ninjabazel
// builds on. Reading and writing files on disk is explicitly out of scope
// for the lowering engine itself (spec.md §1); this package is the thin,
// swappable collaborator every component takes a dependency on instead of
// calling os.* directly (grounded on ninja's FileReader/DiskInterface
// abstraction in maruel-nin/disk_interface.go, trimmed to what this tool
// needs).
package fs

import (
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// A FileSystem is everything the pipeline needs from disk.
type FileSystem interface {
	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)
	// Exists reports whether path names an existing file or directory.
	Exists(path string) bool
	// IsDir reports whether path names an existing directory.
	IsDir(path string) bool
	// WriteFile writes data to path, creating parent directories as needed.
	WriteFile(path string, data []byte) error
	// Walk walks the tree rooted at root, calling callback with paths
	// relative to root for every regular file found.
	Walk(root string, callback func(relPath string) error) error
	// Copy copies src to dst, creating parent directories as needed.
	Copy(src, dst string) error
}

// OS is the real, disk-backed FileSystem implementation.
type OS struct{}

// ReadFile implements FileSystem.
func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists implements FileSystem.
func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir implements FileSystem.
func (OS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteFile implements FileSystem.
func (OS) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Walk implements FileSystem, walking via godirwalk for the same reason
// please's src/fs/walk.go reaches for it over filepath.Walk: it avoids an
// extra lstat per entry on most platforms.
func (OS) Walk(root string, callback func(relPath string) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, info *godirwalk.Dirent) error {
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return callback(rel)
		},
		Unsorted: false,
	})
}

// Copy copies src to dst, creating parent directories and preserving src's
// file mode.
func (OS) Copy(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0775); err != nil {
		return err
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(src); err == nil {
		perm = info.Mode()
	}
	return os.WriteFile(dst, data, perm)
}
