package roles

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Store caches the roles loaded from a directory and refreshes the
// cache when a role file changes on disk. The watcher is best effort,
// when it cannot be started the store falls back to reloading on every
// stale read.
type Store struct {
	dir string

	mu    sync.RWMutex
	roles map[string]*Role
	stale bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewStore loads the roles in dir and begins watching it for changes.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:   dir,
		roles: make(map[string]*Role),
		done:  make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.stale = true
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		s.stale = true
		return s, nil
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.mu.Lock()
				s.stale = true
				s.mu.Unlock()
			}
		case <-s.watcher.Errors:
		}
	}
}

func (s *Store) reload() error {
	loaded, err := LoadDir(s.dir)
	if err != nil {
		return err
	}
	fresh := make(map[string]*Role, len(loaded))
	for _, role := range loaded {
		fresh[role.Slug] = role
	}

	s.mu.Lock()
	s.roles = fresh
	s.stale = false
	s.mu.Unlock()
	return nil
}

// Stale reports whether the cache no longer reflects the directory.
// Stores without a working watcher are always stale.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale || s.watcher == nil
}

func (s *Store) refreshIfStale() error {
	s.mu.RLock()
	stale := s.stale || s.watcher == nil
	s.mu.RUnlock()
	if !stale {
		return nil
	}
	return s.reload()
}

// Role returns the role with the given slug, or nil when unknown.
func (s *Store) Role(slug string) (*Role, error) {
	if err := s.refreshIfStale(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[slug], nil
}

// Roles returns every cached role ordered by slug.
func (s *Store) Roles() ([]*Role, error) {
	if err := s.refreshIfStale(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Close stops the directory watcher.
func (s *Store) Close() {
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}
}
