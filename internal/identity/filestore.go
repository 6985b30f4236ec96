package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"github.com/magiconair/properties"
)

// DefaultFileName is the properties file written at the workspace root.
const DefaultFileName = "dynamic_package.properties"

const fileHeader = "Auto-generated random package name"

// FileStore keeps the identity record in a Java properties file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the properties file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the properties file path.
func (s *FileStore) Location() string {
	return s.path
}

// Load reads the properties file. A missing file, or a file without a
// package.name value, yields a nil record. Unparseable content or an
// identity that is not a legal package name yields a StoreCorruptError.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	p, err := properties.Load(data, properties.ISO_8859_1)
	if err != nil {
		return nil, &StoreCorruptError{Location: s.path, Cause: err}
	}

	name := strings.TrimSpace(p.GetString(KeyPackageName, ""))
	if name == "" {
		return nil, nil
	}
	if !ValidPackageName(name) {
		return nil, &StoreCorruptError{
			Location: s.path,
			Cause:    fmt.Errorf("%s %q is not a valid package name", KeyPackageName, name),
		}
	}

	created := strings.TrimSpace(p.GetString(KeyGeneratedTime, ""))
	return &Record{
		Identity:    name,
		CreatedAt:   parseCreated(created),
		CreatedText: created,
	}, nil
}

// Save atomically replaces the properties file with rec.
func (s *FileStore) Save(ctx context.Context, rec Record) error {
	p := properties.NewProperties()
	p.DisableExpansion = true
	p.WriteSeparator = "="
	if _, _, err := p.Set(KeyPackageName, rec.Identity); err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyPackageName, err)
	}
	if _, _, err := p.Set(KeyGeneratedTime, rec.Created()); err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyGeneratedTime, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "#%s\n", fileHeader)
	if _, err := p.Write(&buf, properties.ISO_8859_1); err != nil {
		return fmt.Errorf("failed to encode properties: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Clear deletes the properties file if present.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}
