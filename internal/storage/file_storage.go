package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/studydesk/backend/internal/corpus"
)

// ErrUnsupportedFormat is returned for snapshot files that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// CorpusStorage defines the interface for corpus snapshots
type CorpusStorage interface {
	Save(name string, c *corpus.Corpus) error
	Get(name string) (*corpus.Corpus, error)
	Close() error
}

// FileStorage implements CorpusStorage using the local file system
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Save writes the corpus as <name>.json
func (fs *FileStorage) Save(name string, c *corpus.Corpus) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := filepath.Join(fs.baseDir, safeFilename(name)+".json")

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get loads <name>.json, <name>.yaml or <name>.yml, in that order
func (fs *FileStorage) Get(name string) (*corpus.Corpus, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	base := filepath.Join(fs.baseDir, safeFilename(name))
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		if _, err := os.Stat(base + ext); err == nil {
			return LoadFile(base + ext)
		}
	}
	return nil, fmt.Errorf("corpus %q not found in %s: %w", name, fs.baseDir, os.ErrNotExist)
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

// LoadFile reads a corpus snapshot, choosing the decoder by extension
func LoadFile(path string) (*corpus.Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var c corpus.Corpus
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal corpus %s: %w", path, err)
	}

	return &c, nil
}

// safeFilename keeps alphanumerics, dashes and underscores
func safeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}
