package storage

import (
	"os"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"bousai/internal/providers"
	"bousai/internal/storage/interfaces"
	"bousai/internal/structures"
)

// KVStoreInterface is the durable key-value store backing every piece of
// persisted engine state. Get treats any storage problem as absence;
// Set and Remove only stage in memory until Flush writes the snapshot.
type KVStoreInterface interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Keys(prefix string) []string
	Load() error
	Flush() error
}

// FileKVStore keeps the whole store as one zstd-compressed JSON map,
// written atomically via tmp+rename.
type FileKVStore struct {
	mu         sync.RWMutex
	path       string
	data       map[string]string
	dirty      bool
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileKVStore(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) KVStoreInterface {
	return &FileKVStore{
		path:       conf.Storage.FilePath,
		data:       make(map[string]string),
		compressor: compressor,
		logger:     logger,
	}
}

func (s *FileKVStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *FileKVStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.dirty = true
}

func (s *FileKVStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.dirty = true
	}
}

func (s *FileKVStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Load reads the snapshot from disk. A missing file is a cold start; a
// corrupt file is logged and also treated as a cold start rather than
// crashing the engine.
func (s *FileKVStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressed, err := s.compressor.Decompress(raw)
	if err != nil {
		s.logger.Warnf(providers.TypeApp, "Corrupt storage snapshot, starting empty: %s", err)
		return nil
	}

	var data map[string]string
	if err := json.Unmarshal(decompressed, &data); err != nil {
		s.logger.Warnf(providers.TypeApp, "Malformed storage snapshot, starting empty: %s", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.dirty = false
	return nil
}

// Flush writes the snapshot when anything changed since the last write.
func (s *FileKVStore) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	jsonData, err := json.Marshal(s.data)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.dirty = false
	s.mu.Unlock()

	data, err := s.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := s.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, s.path)
}
