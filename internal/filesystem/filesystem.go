package filesystem

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Filesystem is the slice of file system behaviour the processor, the glob
// expander and the CLI depend on. Tests substitute in-memory or
// fault-injecting implementations.
type Filesystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	Open(name string) (fs.File, error)
	Abs(path string) (string, error)
}

// DefaultFS implements the Filesystem interface using the standard `os` and `filepath` packages.
// It represents the real, underlying filesystem of the host operating system.
type DefaultFS struct{}

func (DefaultFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (DefaultFS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

func (DefaultFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

func (DefaultFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

// FSAdapter exposes an fs.FS (fstest.MapFS, embed.FS, ...) as a Filesystem.
// Names are interpreted as slash-separated paths relative to the root of FS;
// a leading "./" or "/" is ignored.
type FSAdapter struct {
	FS fs.FS
}

func (a FSAdapter) Stat(name string) (fs.FileInfo, error) {
	return fs.Stat(a.FS, a.clean(name))
}

func (a FSAdapter) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(a.FS, a.clean(name))
}

func (a FSAdapter) Open(name string) (fs.File, error) {
	return a.FS.Open(a.clean(name))
}

func (a FSAdapter) Abs(name string) (string, error) {
	cleaned := a.clean(name)
	if cleaned == "." {
		return "/", nil
	}
	return "/" + cleaned, nil
}

func (FSAdapter) clean(name string) string {
	name = path.Clean(filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}
