package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the document root
var ErrOutsideRoot = errors.New("path is outside the document root")

// PathValidator confines local template and export paths to one directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator for root. The directory does not
// have to exist yet.
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("document root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document root: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute document root
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve turns path into an absolute path inside the root. Relative paths
// are taken relative to the root; NUL bytes are stripped.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !v.Contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// ValidatePath reports an error if path is not inside the root
func (v *PathValidator) ValidatePath(path string) error {
	_, err := v.Resolve(path)
	return err
}

// ValidateDirectory checks that dir is inside the root and, if it exists, is
// a directory.
func (v *PathValidator) ValidateDirectory(dir string) error {
	abs, err := v.Resolve(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// Contains reports whether the absolute path abs lies inside the root, both
// lexically and after resolving symlinks.
func (v *PathValidator) Contains(abs string) bool {
	clean := filepath.Clean(abs)

	realRoot := v.root
	if resolved, err := filepath.EvalSymlinks(v.root); err == nil {
		realRoot = resolved
	}

	realPath := clean
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		realPath = resolved
	}

	return (within(clean, v.root) || within(clean, realRoot)) &&
		(within(realPath, v.root) || within(realPath, realRoot))
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
