// Package guidcache keeps wix component GUIDs stable between builds.
//
// Windows Installer tracks components by GUID. If a component's GUID
// changes between two releases, an upgrade treats it as a different
// component, which breaks patching and can leave files behind on
// uninstall. The generator therefore never makes up a GUID for an
// identifier it has seen before: it asks the Cache, which hands back
// the recorded value or persists a freshly minted one.
//
// Entries are only ever added. The whole table is written back to the
// Store after each addition. There is no cross-process locking, so
// only one generator should run against a given store at a time.
package guidcache

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Store persists the identifier table.
type Store interface {
	// Load returns the stored table. A store that does not exist yet
	// returns an empty table. Content that cannot be parsed returns a
	// *CorruptCacheError.
	Load() (map[string]string, error)

	// Save replaces the stored table with ids.
	Save(ids map[string]string) error
}

// CorruptCacheError is returned when the persisted table is not well
// formed. Callers should abort rather than regenerate ids.
type CorruptCacheError struct {
	Location string
	Err      error
}

func (e *CorruptCacheError) Error() string {
	return fmt.Sprintf("corrupt identifier cache %s: %v", e.Location, e.Err)
}

func (e *CorruptCacheError) Unwrap() error {
	return e.Err
}

// Entry is a single identifier to GUID binding.
type Entry struct {
	Key  string
	Guid string
}

// Cache maps identifiers to GUIDs, first seen wins.
type Cache struct {
	store  Store
	ids    map[string]string
	loaded bool
	newID  func() string
}

type Option func(*Cache)

// WithGenerator overrides how new GUIDs are minted.
func WithGenerator(fn func() string) Option {
	return func(c *Cache) {
		c.newID = fn
	}
}

// New returns a Cache backed by store. Nothing is read until the first
// lookup.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		newID: func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) load() error {
	if c.loaded {
		return nil
	}

	ids, err := c.store.Load()
	if err != nil {
		return err
	}
	if ids == nil {
		ids = make(map[string]string)
	}

	c.ids = ids
	c.loaded = true
	return nil
}

// GetOrCreate returns the GUID bound to key. An unknown key gets a new
// random GUID, and the full table is saved before it is returned.
func (c *Cache) GetOrCreate(key string) (string, error) {
	if err := c.load(); err != nil {
		return "", errors.Wrap(err, "loading identifier cache")
	}

	if id, ok := c.ids[key]; ok {
		return id, nil
	}

	id := c.newID()
	c.ids[key] = id

	if err := c.store.Save(c.ids); err != nil {
		delete(c.ids, key)
		return "", errors.Wrapf(err, "saving identifier cache after adding %s", key)
	}

	return id, nil
}

// Len returns the number of known identifiers.
func (c *Cache) Len() (int, error) {
	if err := c.load(); err != nil {
		return 0, errors.Wrap(err, "loading identifier cache")
	}
	return len(c.ids), nil
}

// Entries returns a copy of the table, sorted by key.
func (c *Cache) Entries() ([]Entry, error) {
	if err := c.load(); err != nil {
		return nil, errors.Wrap(err, "loading identifier cache")
	}

	keys := maps.Keys(c.ids)
	sort.Strings(keys)

	entries := make([]Entry, len(keys))
	for i, k := range keys {
		entries[i] = Entry{Key: k, Guid: c.ids[k]}
	}
	return entries, nil
}
