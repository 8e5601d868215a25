package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps sessions in a single 0600 JSON file so that separate CLI
// invocations share the signed-in identity. Blobs use the same binary
// encoding as [RedisStore].
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

type fileRecord struct {
	Blob      string `json:"blob"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// NewFileStore creates a [FileStore] at path. Parent directories are created
// on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Save writes sess under its slot.
func (s *FileStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	rec := fileRecord{Blob: base64.StdEncoding.EncodeToString(data)}
	if ttl > 0 {
		rec.ExpiresAt = s.now().Add(ttl).Unix()
	}
	records[sess.Slot] = rec
	return s.write(records)
}

// Get loads the slot's session.
func (s *FileStore) Get(_ context.Context, slot string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := records[slot]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.ExpiresAt > 0 && rec.ExpiresAt <= s.now().Unix() {
		delete(records, slot)
		if err := s.write(records); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	data, err := base64.StdEncoding.DecodeString(rec.Blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sess, nil
}

// Delete removes the slot's session.
func (s *FileStore) Delete(_ context.Context, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[slot]; !ok {
		return nil
	}
	delete(records, slot)
	return s.write(records)
}

func (s *FileStore) load() (map[string]fileRecord, error) {
	records := make(map[string]fileRecord)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return records, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return records, nil
}

func (s *FileStore) write(records map[string]fileRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
