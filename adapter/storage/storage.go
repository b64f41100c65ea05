// Package storage implements the file operations behind the journal.
package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/vinicius-lino-figueiredo/polodb/domain"
)

// osOps is the subset of package os used by [Storage]. Tests replace it to
// simulate disk failures.
type osOps interface {
	IsNotExist(err error) bool
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Rename(oldpath string, newpath string) error
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type osImpl struct{}

func (osImpl) IsNotExist(err error) bool                    { return os.IsNotExist(err) }
func (osImpl) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (osImpl) Remove(name string) error                     { return os.Remove(name) }
func (osImpl) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }
func (osImpl) Stat(name string) (os.FileInfo, error)        { return os.Stat(name) }

func (osImpl) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (osImpl) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// platform hooks, replaced on windows.
var (
	osSpecificEnsureDir = func(o osOps, dir string, mode os.FileMode) error {
		return o.MkdirAll(dir, mode)
	}
	osSpecificSync = func(f *os.File, _ bool) error {
		return f.Sync()
	}
)

// Storage implements [domain.Storage].
type Storage struct {
	os osOps
}

// NewStorage returns a new implementation of [domain.Storage].
func NewStorage() domain.Storage {
	return &Storage{os: osImpl{}}
}

// AppendFile implements [domain.Storage]. The data is synced before the
// function returns, so a committed transaction survives a crash.
func (s *Storage) AppendFile(filename string, mode os.FileMode, data []byte) (int, error) {
	f, err := s.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, mode)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	if err := osSpecificSync(f, false); err != nil {
		_ = f.Close()
		return n, domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return n, domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return n, nil
}

// CrashSafeWriteFileLines implements [domain.Storage]. The lines are written
// to a temporary file that replaces filename once flushed.
func (s *Storage) CrashSafeWriteFileLines(filename string, lines [][]byte, dirMode os.FileMode, fileMode os.FileMode) error {
	tempFilename := filename + "~"

	if err := s.flushToStorage(filepath.Dir(filename), true, dirMode); err != nil {
		return err
	}

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		if err := s.flushToStorage(filename, false, fileMode); err != nil {
			return err
		}
	}

	if err := s.writeFileLines(tempFilename, lines, fileMode); err != nil {
		return err
	}
	if err := s.flushToStorage(tempFilename, false, fileMode); err != nil {
		return err
	}
	if err := s.os.Rename(tempFilename, filename); err != nil {
		return err
	}
	return s.flushToStorage(filepath.Dir(filename), true, dirMode)
}

// EnsureDatafileIntegrity implements [domain.Storage]. If a compaction was
// interrupted after the temporary file was written, the temporary file is
// promoted.
func (s *Storage) EnsureDatafileIntegrity(filename string, mode os.FileMode) error {
	tempFilename := filename + "~"

	exists, err := s.Exists(filename)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tempExists, err := s.Exists(tempFilename)
	if err != nil {
		return err
	}
	if !tempExists {
		return s.os.WriteFile(filename, nil, mode)
	}
	return s.os.Rename(tempFilename, filename)
}

// EnsureParentDirectoryExists implements [domain.Storage].
func (s *Storage) EnsureParentDirectoryExists(filename string, mode os.FileMode) error {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return err
	}
	return osSpecificEnsureDir(s.os, dir, mode)
}

// Exists implements [domain.Storage].
func (s *Storage) Exists(filename string) (bool, error) {
	if _, err := s.os.Stat(filename); err != nil {
		if s.os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadFileStream implements [domain.Storage].
func (s *Storage) ReadFileStream(filename string, mode os.FileMode) (io.ReadCloser, error) {
	return s.os.OpenFile(filename, os.O_RDONLY, mode)
}

// Remove implements [domain.Storage].
func (s *Storage) Remove(filename string) error {
	return s.os.Remove(filename)
}

// Size implements [domain.Storage].
func (s *Storage) Size(filename string) (int64, error) {
	info, err := s.os.Stat(filename)
	if err != nil {
		if s.os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return info.Size(), nil
}

// Truncate implements [domain.Storage].
func (s *Storage) Truncate(filename string, size int64, mode os.FileMode) error {
	f, err := s.os.OpenFile(filename, os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return err
	}
	if err := osSpecificSync(f, false); err != nil {
		_ = f.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}

func (s *Storage) flushToStorage(filename string, isDir bool, mode os.FileMode) error {
	flags := os.O_RDWR
	if isDir {
		flags = os.O_RDONLY
	}

	f, err := s.os.OpenFile(filename, flags, mode)
	if err != nil {
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := osSpecificSync(f, isDir); err != nil {
		_ = f.Close()
		return domain.ErrFlushToStorage{ErrorOnFsync: err}
	}
	if err := f.Close(); err != nil {
		return domain.ErrFlushToStorage{ErrorOnClose: err}
	}
	return nil
}

func (s *Storage) writeFileLines(filename string, lines [][]byte, mode os.FileMode) error {
	f, err := s.os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err = f.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}
