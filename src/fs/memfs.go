package fs

import (
	"fmt"
	"sort"
	"strings"
)

// MemFS is an in-memory FileSystem used by tests across the pipeline so
// that the parser, resolvers and generator executor can be exercised
// without touching the real disk.
type MemFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{files: map[string][]byte{}, dirs: map[string]bool{}}
}

// Put seeds the filesystem with a file's contents.
func (m *MemFS) Put(path, contents string) {
	path = Canonicalize(path)
	m.files[path] = []byte(contents)
	for dir := TopLevelDir(path); dir != ""; {
		m.dirs[dir] = true
		break
	}
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	path = Canonicalize(path)
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", path)
	}
	return data, nil
}

func (m *MemFS) Exists(path string) bool {
	path = Canonicalize(path)
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.dirs[path]
}

func (m *MemFS) IsDir(path string) bool {
	return m.dirs[Canonicalize(path)]
}

func (m *MemFS) WriteFile(path string, data []byte) error {
	m.files[Canonicalize(path)] = data
	return nil
}

func (m *MemFS) Walk(root string, callback func(relPath string) error) error {
	root = Canonicalize(root)
	prefix := root + "/"
	var matches []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			matches = append(matches, strings.TrimPrefix(p, prefix))
		}
	}
	sort.Strings(matches)
	for _, rel := range matches {
		if err := callback(rel); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemFS) Copy(src, dst string) error {
	data, err := m.ReadFile(src)
	if err != nil {
		return err
	}
	return m.WriteFile(dst, data)
}
