package primitives

import (
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Filepath is a type-safe wrapper around file paths used for heap files and
// the write-ahead log.
type Filepath string

// Hash derives a TableID from the path. The same path always yields the same
// ID; zero is remapped so that the result is always a valid TableID.
func (f Filepath) Hash() TableID {
	h := xxhash.Sum64String(string(f))
	if h == 0 {
		h = 1
	}
	return TableID(h)
}

// Dir returns the directory portion of the file path.
func (f Filepath) Dir() Filepath {
	return Filepath(filepath.Dir(string(f)))
}

// Base returns the last element of the path.
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Join appends path elements to the file path.
func (f Filepath) Join(elem ...string) Filepath {
	return Filepath(filepath.Join(append([]string{string(f)}, elem...)...))
}

// Exists reports whether a file or directory exists at this path.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// MkdirAll creates the directory and any missing parents.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(string(f), perm)
}

// Remove deletes the file at this path.
func (f Filepath) Remove() error {
	return os.Remove(string(f))
}

func (f Filepath) String() string {
	return string(f)
}
