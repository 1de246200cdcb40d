// Package file keeps every roster in one JSON document on disk, keyed by
// "<group>/<kind>". Each commit rewrites the document through a temp file and
// rename so a crash leaves either the old or the new state.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/domain"
	"github.com/dkeye/Rota/internal/storage"
)

const driver = "file"

type Store struct {
	path  string
	locks *storage.KeyLocks

	// mu guards data and the file itself; it is held only for map access
	// and the write of one snapshot, never across a mutator. The snapshot
	// write is global: commits on different keys queue behind each other's
	// fsync.
	mu   sync.Mutex
	data map[domain.Key]domain.Roster
}

var _ core.RosterStore = (*Store)(nil)

// Open loads path. A missing file starts an empty store; an unparsable one
// is moved aside to "<path>.corrupt-<unix>" and the store starts empty.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	s := &Store{
		path:  filepath.Clean(path),
		locks: storage.NewKeyLocks(),
		data:  make(map[domain.Key]domain.Roster),
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("module", "storage.file").Str("path", s.path).Msg("no state file, starting fresh")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file store: read %s: %w", s.path, err)
	}

	data, err := decode(raw)
	if err != nil {
		storage.Corrupt(driver, s.path, err)
		aside := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
		if rerr := os.Rename(s.path, aside); rerr != nil {
			log.Error().Err(rerr).Str("module", "storage.file").Msg("could not move corrupt state aside")
		}
		return s, nil
	}
	s.data = data
	log.Info().Str("module", "storage.file").Str("path", s.path).Int("rosters", len(data)).Msg("state loaded")
	return s, nil
}

func decode(raw []byte) (map[domain.Key]domain.Roster, error) {
	var doc map[string]domain.Roster
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[domain.Key]domain.Roster, len(doc))
	for k, r := range doc {
		key, err := domain.ParseKey(k)
		if err != nil {
			return nil, err
		}
		out[key] = r
	}
	return out, nil
}

func encode(data map[domain.Key]domain.Roster) ([]byte, error) {
	doc := make(map[string]domain.Roster, len(data))
	for k, r := range data {
		doc[k.String()] = r
	}
	return json.MarshalIndent(doc, "", "  ")
}

func (s *Store) load(key domain.Key) (domain.Roster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data[key]
	return r.Clone(), ok
}

// commit writes the document with key set to r. In-memory state changes only
// after the file is safely replaced.
func (s *Store) commit(key domain.Key, r domain.Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[domain.Key]domain.Roster, len(s.data)+1)
	for k, v := range s.data {
		snapshot[k] = v
	}
	snapshot[key] = r

	raw, err := encode(snapshot)
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}
	if err := writeAtomic(s.path, raw); err != nil {
		return fmt.Errorf("file store: write %s: %w", s.path, err)
	}
	s.data = snapshot
	return nil
}

func writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) Get(ctx context.Context, key domain.Key) (domain.Roster, error) {
	if err := ctx.Err(); err != nil {
		return domain.Roster{}, err
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	if r, ok := s.load(key); ok {
		return r, nil
	}
	empty := domain.Roster{}
	if err := s.commit(key, empty); err != nil {
		return domain.Roster{}, err
	}
	return empty, nil
}

func (s *Store) Update(ctx context.Context, key domain.Key, fn core.Mutator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	cur, _ := s.load(key)
	next, commit, err := storage.Apply(key, cur, fn)
	if err != nil || !commit {
		return err
	}
	return s.commit(key, next)
}

func (s *Store) Groups(ctx context.Context) ([]domain.GroupID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[domain.GroupID]struct{})
	out := make([]domain.GroupID, 0, len(s.data))
	for k, r := range s.data {
		if r.Empty() {
			continue
		}
		if _, ok := seen[k.Group]; !ok {
			seen[k.Group] = struct{}{}
			out = append(out, k.Group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Close() error { return nil }
