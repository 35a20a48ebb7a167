package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a document has not been written yet.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidName is returned for names that would escape the data directory.
	ErrInvalidName = errors.New("invalid document name")
)

const indent = "  "

// FileInfo describes a stored document.
type FileInfo struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// FileStore keeps one JSON document per file inside a single directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is not created
// until Ensure is called.
func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir %q: %w", dir, err)
	}
	return &FileStore{dir: abs}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Ensure creates the data directory and its parents if absent.
func (s *FileStore) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (s *FileStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes payload re-indented with two spaces. The document is written to
// a temporary file first and renamed over the target, so readers never see a
// partial file and a failed write leaves the previous version in place.
func (s *FileStore) Save(name string, payload json.RawMessage) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", indent); err != nil {
		return fmt.Errorf("format %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("save %s: %w", name, err)
	}

	return nil
}

// Load returns the stored document.
func (s *FileStore) Load(name string) (json.RawMessage, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	return data, nil
}

func (s *FileStore) Stat(name string) (FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return FileInfo{}, err
	}

	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}

	return FileInfo{
		Name:      name,
		Size:      fi.Size(),
		UpdatedAt: fi.ModTime().UTC(),
	}, nil
}
