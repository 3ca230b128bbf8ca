// Package filestore keeps attachment bytes on an afero filesystem, laid out
// as <root>/tickets/<ticket id>/<stored filename>.
package filestore

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

var ErrInvalidName = stderrors.New("filestore: invalid stored filename")

type Store struct {
	fs   afero.Fs
	root string
}

func New(fsys afero.Fs, root string) *Store {
	return &Store{fs: fsys, root: filepath.Clean(root)}
}

// NewOS stores files on the host filesystem under root.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

func (s *Store) ticketDir(ticketID int64) string {
	return filepath.Join(s.root, "tickets", strconv.FormatInt(ticketID, 10))
}

// Path returns where a stored file lives. Names that would escape the ticket
// directory are rejected.
func (s *Store) Path(ticketID int64, storedFilename string) (string, error) {
	if storedFilename == "" || storedFilename == "." || storedFilename == ".." ||
		strings.ContainsAny(storedFilename, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.ticketDir(ticketID), storedFilename), nil
}

func (s *Store) Save(ticketID int64, storedFilename string, content []byte) (string, error) {
	path, err := s.Path(ticketID, storedFilename)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(s.ticketDir(ticketID), dirPerm); err != nil {
		return "", fmt.Errorf("create ticket directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, content, filePerm); err != nil {
		return "", fmt.Errorf("write %s: %w", storedFilename, err)
	}
	return path, nil
}

func (s *Store) Open(ticketID int64, storedFilename string) (io.ReadSeekCloser, error) {
	path, err := s.Path(ticketID, storedFilename)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(path)
}

// Delete removes a stored file. Removing a file that is already gone is not
// an error.
func (s *Store) Delete(ticketID int64, storedFilename string) error {
	path, err := s.Path(ticketID, storedFilename)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
