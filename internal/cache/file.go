package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// envelope is the on-disk schema: one JSON file per key.
type envelope struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// FileStore keeps one JSON file per key under a directory. Writes go through
// a temp file followed by rename, so readers never see a half-written entry.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		dir = "data/cache"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, ErrMiss
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMiss
	}
	ts, err := time.Parse(time.RFC3339, env.Timestamp)
	if err != nil {
		return nil, ErrMiss
	}
	if s.now().Sub(ts) > s.ttl {
		return nil, ErrMiss
	}
	return env.Data, nil
}

// GetStale reads an entry ignoring its age. Corrupt entries still miss.
func (s *FileStore) GetStale(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, ErrMiss
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMiss
	}
	return env.Data, nil
}

func (s *FileStore) Put(_ context.Context, key string, payload []byte) error {
	env := envelope{
		Timestamp: s.now().Format(time.RFC3339),
		Data:      json.RawMessage(payload),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
