package image

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jgivc/emojifetch/internal/common"
	"github.com/spf13/afero"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// imageStorage owns the output directory. Every file it writes lives directly in it.
type imageStorage struct {
	fs  afero.Fs
	dir string
	log *slog.Logger
}

func NewImageStorage(dir string, log *slog.Logger) *imageStorage {
	return NewImageStorageWithFS(afero.NewOsFs(), dir, log)
}

func NewImageStorageWithFS(fs afero.Fs, dir string, log *slog.Logger) *imageStorage {
	return &imageStorage{
		fs:  fs,
		dir: dir,
		log: log.With(slog.String("item", "ImageStorage")),
	}
}

// EnsureDir creates the output directory with missing parents.
func (s *imageStorage) EnsureDir() error {
	info, err := s.fs.Stat(s.dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", common.ErrNotADirectory, s.dir)
		}

		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("cannot stat output dir %s: %w", s.dir, err)
	}

	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("cannot create output dir %s: %w", s.dir, err)
	}

	s.log.Debug("Output dir created", slog.String("dir", s.dir))

	return nil
}

func (s *imageStorage) Path(fileName string) string {
	return filepath.Join(s.dir, fileName)
}

func checkFileName(fileName string) error {
	if fileName == "" || fileName == "." || fileName == ".." || filepath.Base(fileName) != fileName {
		return fmt.Errorf("%w: %q", common.ErrInvalidFileName, fileName)
	}

	return nil
}

// Exists reports whether anything is present at the destination.
func (s *imageStorage) Exists(fileName string) (bool, error) {
	if err := checkFileName(fileName); err != nil {
		return false, err
	}

	ok, err := afero.Exists(s.fs, s.Path(fileName))
	if err != nil {
		return false, fmt.Errorf("cannot check file %s: %w", fileName, err)
	}

	return ok, nil
}

// Write copies r into a new file. An existing file is never truncated.
// A partially written file is removed.
func (s *imageStorage) Write(fileName string, r io.Reader) (int64, error) {
	if err := checkFileName(fileName); err != nil {
		return 0, err
	}

	path := s.Path(fileName)

	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return 0, fmt.Errorf("cannot create file %s: %w", path, err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		s.remove(path)

		return n, fmt.Errorf("cannot write file %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		s.remove(path)

		return n, fmt.Errorf("cannot close file %s: %w", path, err)
	}

	return n, nil
}

func (s *imageStorage) remove(path string) {
	if err := s.fs.Remove(path); err != nil {
		s.log.Error("Cannot remove partial file", slog.String("path", path), slog.Any("error", err))
	}
}
