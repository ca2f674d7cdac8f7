package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	StoreExtension = ".kv"
	MaxNameLength  = 128
)

var (
	ErrEmptyName   = errors.New("empty store name not allowed")
	ErrInvalidName = errors.New("invalid store name")
	ErrNameEscapes = errors.New("store name escapes workspace")
)

// ValidateStoreName checks that name can be used as a file name inside the
// workspace. Names are limited to letters, digits, '.', '_' and '-', must
// not start with a dot and must not contain path separators.
func ValidateStoreName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	}

	// Rejects separators, "..", absolute paths and reserved names
	if !filepath.IsLocal(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %s", ErrNameEscapes, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %s starts with a dot", ErrInvalidName, name)
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %s contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// Workspace is the directory holding named stores. Lookups go through
// os.Root, so they cannot leave the directory even through symlinks.
type Workspace struct {
	root *os.Root
	dir  string
}

// OpenWorkspace opens dir as a workspace, creating it with owner-only
// permissions if it does not exist.
func OpenWorkspace(dir string) (*Workspace, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	return &Workspace{
		root: root,
		dir:  absPath,
	}, nil
}

// Close releases the workspace directory handle.
func (w *Workspace) Close() error {
	if w.root != nil {
		return w.root.Close()
	}
	return nil
}

// Dir returns the absolute workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the file path of the named store.
func (w *Workspace) Path(name string) (string, error) {
	if err := ValidateStoreName(name); err != nil {
		return "", err
	}
	return filepath.Join(w.dir, name+StoreExtension), nil
}

// Exists reports whether the named store has a file in the workspace.
func (w *Workspace) Exists(name string) (bool, error) {
	if err := ValidateStoreName(name); err != nil {
		return false, err
	}

	info, err := w.root.Stat(name + StoreExtension)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// List returns the names of all stores in the workspace, sorted.
func (w *Workspace) List() ([]string, error) {
	d, err := w.root.Open(".")
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), StoreExtension)
		if !ok || ValidateStoreName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
