package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"companion/internal/modules/session/domain"
	sessionout "companion/internal/modules/session/port/out"
	apperrors "companion/internal/platform/errors"
)

// FileStateStore keeps the blob in <data>/.companion/<storage key>.json.
type FileStateStore struct {
	path string
}

func NewFileStateStore(dataDir string) sessionout.StateStore {
	return &FileStateStore{path: filepath.Join(dataDir, ".companion", domain.StorageKey+".json")}
}

func (s *FileStateStore) Load(_ context.Context) ([]byte, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNoPersistedState
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(payload) == 0 {
		return nil, apperrors.ErrNoPersistedState
	}
	return payload, nil
}

// Save writes through a temp file so a crash never leaves a torn blob.
func (s *FileStateStore) Save(_ context.Context, blob []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (s *FileStateStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
