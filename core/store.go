package core

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
)

// FileStore reads the data file on every call.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Records() ([]Record, error) {
	return LoadRecords(s.Path)
}

// StaticStore holds the records loaded once at construction. Each call
// returns copies of them.
type StaticStore struct {
	records []Record
}

func NewStaticStore(path string) (*StaticStore, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return nil, err
	}
	return &StaticStore{records: records}, nil
}

func (s *StaticStore) Records() ([]Record, error) {
	return cloneRecords(s.records), nil
}

// WatchedStore serves an in-memory snapshot and reloads it when the data file
// changes on disk. A reload that fails keeps the previous snapshot.
type WatchedStore struct {
	path     string
	mu       sync.RWMutex
	records  []Record
	watcher  *Watcher
	onReload func()
}

func NewWatchedStore(path string, onReload func()) (*WatchedStore, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return nil, err
	}

	s := &WatchedStore{path: filepath.Clean(path), records: records, onReload: onReload}

	// The directory is watched rather than the file so that editors which
	// replace the file by rename keep being observed.
	w, err := WatchPaths([]string{filepath.Dir(s.path)}, func(changed string) {
		if filepath.Clean(changed) == s.path {
			s.reload()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	s.watcher = w
	return s, nil
}

func (s *WatchedStore) reload() {
	records, err := LoadRecords(s.path)
	if err != nil {
		log.Printf("[STORE] keeping previous records, reload of %s failed: %v", s.path, err)
		return
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	log.Printf("[STORE] reloaded %d records from %s", len(records), s.path)
	if s.onReload != nil {
		s.onReload()
	}
}

func (s *WatchedStore) Records() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), nil
}

func (s *WatchedStore) Close() error {
	return s.watcher.Close()
}

// OpenStore builds the record source for the configured reload mode.
func OpenStore(cfg Config, onReload func()) (RecordSource, error) {
	switch cfg.Reload {
	case ReloadAtStartup:
		return NewStaticStore(cfg.DataFile)
	case ReloadOnChange:
		return NewWatchedStore(cfg.DataFile, onReload)
	default:
		return NewFileStore(cfg.DataFile), nil
	}
}
