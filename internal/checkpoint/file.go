package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/monument-wall/wall-service/internal/domain"
)

// FileStore keeps state as one small JSON/marker file per address under
// a local directory. Fine for a single instance; use RedisStore when the
// service runs replicated.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) checkpointPath(address string) string {
	return filepath.Join(s.dir, "checkpoint-"+domain.NormalizeAddress(address)+".json")
}

func (s *FileStore) celebratedPath(address string) string {
	return filepath.Join(s.dir, "celebrated-"+domain.NormalizeAddress(address))
}

func (s *FileStore) SaveCheckpoint(_ context.Context, cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return os.WriteFile(s.checkpointPath(cp.WalletAddress), data, 0o644)
}

func (s *FileStore) LoadCheckpoint(_ context.Context, address string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.checkpointPath(address))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *FileStore) ClearCheckpoint(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.checkpointPath(address))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) HasCelebrated(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.celebratedPath(address))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) MarkCelebrated(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.WriteFile(s.celebratedPath(address), []byte("1"), 0o644)
}
