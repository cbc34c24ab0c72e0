package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/domain"
)

// FileStore persists the full user mapping as one JSON file, rewritten
// wholesale on every save. All mutations go through Update, which serializes
// concurrent load-modify-save cycles behind a single mutex so interleaved
// writers cannot lose each other's updates.
type FileStore struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

// New creates a FileStore backed by the JSON file at path.
func New(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load reads the full user mapping. A missing or malformed file yields an
// empty mapping, never a parse error: corrupt state is logged and treated as
// empty.
func (s *FileStore) Load() (domain.Users, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Users{}, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}

	var users domain.Users
	if err := json.Unmarshal(data, &users); err != nil {
		s.log.Warn("users file is malformed, starting from empty state",
			zap.String("path", s.path), zap.Error(err))
		return domain.Users{}, nil
	}
	if users == nil {
		users = domain.Users{}
	}
	return users, nil
}

// Save rewrites the whole mapping atomically (temp file + rename).
func (s *FileStore) Save(users domain.Users) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}

// Update runs one load→mutate→save cycle under the store mutex. fn receives
// the freshly loaded mapping and mutates it in place.
func (s *FileStore) Update(fn func(users domain.Users)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Load()
	if err != nil {
		return err
	}
	fn(users)
	return s.Save(users)
}
