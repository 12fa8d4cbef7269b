package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
)

// SamplePool is the accumulated training data. It grows append-only; texts
// and labels are parallel slices.
type SamplePool struct {
	Texts       []string  `json:"texts"`
	Labels      []string  `json:"labels"`
	LastUpdated time.Time `json:"last_updated"`
	Count       int       `json:"count"`
}

// DistinctLabels returns the number of distinct labels in the pool
func (p *SamplePool) DistinctLabels() int {
	seen := make(map[string]bool, len(p.Labels))
	for _, label := range p.Labels {
		seen[label] = true
	}
	return len(seen)
}

// SampleStore persists the sample pool to disk. Writes go through a temp
// file and an atomic rename so a failed write never leaves partial state.
type SampleStore struct {
	path   string
	mu     sync.Mutex
	logger ectologger.Logger
}

// NewSampleStore creates a sample store rooted at dir
func NewSampleStore(dir string, logger ectologger.Logger) *SampleStore {
	return &SampleStore{
		path:   filepath.Join(dir, "samples.json"),
		logger: logger,
	}
}

// Load reads the pool from disk. A missing file yields an empty pool.
func (s *SampleStore) Load() (*SamplePool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SampleStore) load() (*SamplePool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SamplePool{}, nil
		}
		return nil, fmt.Errorf("failed to read sample pool: %w", err)
	}

	var pool SamplePool
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to parse sample pool: %w", err)
	}
	return &pool, nil
}

// Append adds one labeled sample and persists the pool immediately.
func (s *SampleStore) Append(text, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.load()
	if err != nil {
		return err
	}

	pool.Texts = append(pool.Texts, text)
	pool.Labels = append(pool.Labels, label)
	pool.Count = len(pool.Texts)
	pool.LastUpdated = time.Now().UTC()

	return s.write(pool)
}

// Replace overwrites the persisted pool wholesale.
func (s *SampleStore) Replace(pool *SamplePool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool.Count = len(pool.Texts)
	pool.LastUpdated = time.Now().UTC()
	return s.write(pool)
}

func (s *SampleStore) write(pool *SamplePool) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to encode sample pool: %w", err)
	}

	return atomicWrite(s.path, data)
}

// atomicWrite writes data to a temp file in the target directory and renames
// it over the destination.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
