package extract

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir is where a bundle's assets are stored
type Dir interface {
	// Exists reports whether name is already present.
	Exists(name string) (bool, error)
	// WriteFile stores data under name. A partially written file must
	// never become visible under name.
	WriteFile(name string, data []byte) error
}

// OSDir is a directory on the local filesystem, created on first write
type OSDir string

func (d OSDir) Exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(string(d), name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// WriteFile writes to a temporary sibling and renames it into place
func (d OSDir) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(string(d), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(string(d), "."+name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(string(d), name))
}
