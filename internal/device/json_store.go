package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// registryFileMode is used when the registry file does not exist yet.
const registryFileMode = 0644

// JSONStore keeps the registry as a single JSON array in one file.
//
// Thread Safety:
//   - One mutex serialises Read, Write and Update within the process.
//   - Writes go to a temporary file that is renamed over the registry, so
//     readers in other processes never see a half-written document.
type JSONStore struct {
	path   string
	mu     sync.Mutex
	logger Logger
}

// NewJSONStore returns a store backed by the file at path. The file is not
// touched until the first operation.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, logger: noopLogger{}}
}

// SetLogger sets the logger for the store.
func (s *JSONStore) SetLogger(logger Logger) {
	s.logger = logger
}

// Path returns the registry file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Read loads the registry. A missing file, an unreadable file, or a
// document that is not an array of devices is a storage error.
func (s *JSONStore) Read(ctx context.Context) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(ctx)
}

// Write replaces the registry file with devices.
func (s *JSONStore) Write(ctx context.Context, devices []Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, devices)
}

// Update holds the store lock across the read, fn and the write.
func (s *JSONStore) Update(ctx context.Context, fn func([]Device) ([]Device, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, err := s.readLocked(ctx)
	if err != nil {
		return err
	}
	next, err := fn(devices)
	if err != nil {
		return err
	}
	return s.writeLocked(ctx, next)
}

func (s *JSONStore) readLocked(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStorage, s.path, err)
	}
	return decodeRegistry(data, s.path)
}

func (s *JSONStore) writeLocked(ctx context.Context, devices []Device) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := checkRegistry(devices); err != nil {
		return err
	}

	data, err := encodeRegistry(devices)
	if err != nil {
		return fmt.Errorf("%w: encoding registry: %w", ErrStorage, err)
	}

	mode := os.FileMode(registryFileMode)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStorage, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("%w: writing %s: %w", ErrStorage, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("%w: syncing %s: %w", ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrStorage, tmpName, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrStorage, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", ErrStorage, s.path, err)
	}

	s.logger.Debug("registry written", "path", s.path, "devices", len(devices))
	return nil
}

// decodeRegistry parses a registry document. source names it in errors.
func decodeRegistry(data []byte, source string) ([]Device, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s: registry must be a JSON array", ErrStorage, source)
	}

	devices := []Device{}
	if err := json.Unmarshal(trimmed, &devices); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrStorage, source, err)
	}
	if err := checkRegistry(devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// encodeRegistry renders devices as a two-space indented JSON array with
// non-ASCII and HTML characters left as-is.
func encodeRegistry(devices []Device) ([]byte, error) {
	if devices == nil {
		devices = []Device{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(devices); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
