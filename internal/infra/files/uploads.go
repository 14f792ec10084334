package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// Dir is the flat directory holding uploaded image files.
type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Save writes data under a generated name. The client filename only
// contributes its extension.
func (d *Dir) Save(originalName string, data io.Reader) (string, error) {
	name := uuid.NewString() + safeExt(originalName)
	path := filepath.Join(d.root, name)

	file, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return path, nil
}

func (d *Dir) Read(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

func (d *Dir) Exists(path string) (bool, error) {
	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Remove deletes the file at path. A missing file is not an error; the
// returned bool reports whether anything was removed.
func (d *Dir) Remove(path string) (bool, error) {
	err := os.Remove(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove file: %w", err)
	}
	return true, nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}
