// Package filesystem provides the filesystem seam used by the manifest store and the sync engine.
package filesystem

import (
	"io/fs"
	"os"
)

// FileSystem exposes the filesystem operations required to manage the vendoring root.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Rename(oldPath string, newPath string) error
	MkdirAll(path string, permissions fs.FileMode) error
	MkdirTemp(parentDirectory string, pattern string) (string, error)
	RemoveAll(path string) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// OSFileSystem implements FileSystem using the operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Rename renames a path.
func (OSFileSystem) Rename(oldPath string, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// MkdirTemp creates a uniquely named directory inside parentDirectory.
func (OSFileSystem) MkdirTemp(parentDirectory string, pattern string) (string, error) {
	return os.MkdirTemp(parentDirectory, pattern)
}

// RemoveAll deletes a path and any children. A missing path is not an error.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file with the supplied permissions.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}
