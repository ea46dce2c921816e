package batchrename

import (
	"io/fs"
	"os"
)

// FileSystem is the set of filesystem calls the executor needs. Every rename is
// a single rename syscall.
type FileSystem interface {
	Rename(oldPath, newPath string) error
	Lstat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OSFileSystem implements FileSystem against the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (OSFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}
