package filtering

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

const versionsFormat = 1

// SourceVersion records what was last fetched for a list URL.
type SourceVersion struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	SHA256       string    `json:"sha256"`
	Size         int64     `json:"size"`
	FetchedAt    time.Time `json:"fetched_at"`
}

type versionsFile struct {
	Version       int                      `json:"version"`
	Sources       map[string]SourceVersion `json:"sources"`
	LastCheckTime time.Time                `json:"last_check_time"`
}

// VersionStore persists per-URL list versions in a JSON metadata file.
type VersionStore struct {
	mu   sync.Mutex
	path string
}

// NewVersionStore creates a store backed by path. The file is created on
// first write.
func NewVersionStore(path string) *VersionStore {
	return &VersionStore{path: path}
}

// Get returns the stored version for url.
func (s *VersionStore) Get(url string) (SourceVersion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		return SourceVersion{}, false
	}
	v, ok := meta.Sources[url]
	return v, ok
}

// Set stores the version for url and bumps the last check time.
func (s *VersionStore) Set(url string, v SourceVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		meta = &versionsFile{Version: versionsFormat}
	}
	if meta.Sources == nil {
		meta.Sources = make(map[string]SourceVersion)
	}
	meta.Sources[url] = v
	meta.LastCheckTime = time.Now()
	return s.save(meta)
}

// LastCheckTime returns when a version was last recorded.
func (s *VersionStore) LastCheckTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.load()
	if err != nil {
		return time.Time{}
	}
	return meta.LastCheckTime
}

func (s *VersionStore) load() (*versionsFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var meta versionsFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse version metadata: %w", err)
	}
	if meta.Version != versionsFormat {
		return nil, errors.New("version metadata format mismatch")
	}
	return &meta, nil
}

func (s *VersionStore) save(meta *versionsFile) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, listFilePerm); err != nil {
		return err
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		_ = os.Remove(tempFile)
		return err
	}
	return nil
}
