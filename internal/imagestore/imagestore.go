// Package imagestore persists uploaded item images on local disk. Files are
// written after the item's creation response has been sent, so the item's
// image list is eventually consistent.
package imagestore

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxImagesPerItem caps the number of image attachments accepted per item.
const MaxImagesPerItem = 5

// PublicPrefix is the URL path prefix the stored files are served under.
const PublicPrefix = "/uploads"

// Store writes uploaded images to a directory on local disk.
type Store struct {
	dir string
}

// New creates the upload directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a single uploaded file under a fresh uuid name, preserving the
// original extension, and returns its public URL path.
func (s *Store) Save(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return PublicPrefix + "/" + name, nil
}

// SaveAll stores every file and returns the public paths in upload order.
// It stops at the first failure; already written files are kept.
func (s *Store) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		path, err := s.Save(file)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
