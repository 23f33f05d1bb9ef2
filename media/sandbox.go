package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned when a resolved path would escape the storage root.
var ErrUnsafePath = errors.New("path escapes storage root")

// Sandbox confines filesystem operations to a single root directory. File
// names are server-generated, but they are still used as path components, so
// every externally influenced fragment goes through Resolve before touching
// disk.
type Sandbox struct {
	root string
}

// NewSandbox validates that root is an absolute path to an existing directory.
func NewSandbox(root string) (*Sandbox, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("storage root '%s' is not absolute", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat storage root '%s': %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root '%s' is not a directory", root)
	}
	return &Sandbox{root: filepath.Clean(root)}, nil
}

// Root returns the absolute root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins the segments under the root and returns the absolute path.
// The result is always a strict descendant of the root; anything that cleans
// to the root itself or outside it fails with ErrUnsafePath.
func (s *Sandbox) Resolve(segments ...string) (string, error) {
	parts := append([]string{s.root}, segments...)
	resolved := filepath.Clean(filepath.Join(parts...))

	if resolved == s.root || !strings.HasPrefix(resolved, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, filepath.Join(segments...))
	}
	return resolved, nil
}
