package guidcache

import "golang.org/x/exp/maps"

// MemoryStore holds the table in memory. Useful for tests and dry runs.
type MemoryStore struct {
	ids   map[string]string
	saves int
}

func NewMemoryStore(seed map[string]string) *MemoryStore {
	s := &MemoryStore{ids: make(map[string]string)}
	maps.Copy(s.ids, seed)
	return s
}

func (s *MemoryStore) Load() (map[string]string, error) {
	return maps.Clone(s.ids), nil
}

func (s *MemoryStore) Save(ids map[string]string) error {
	s.ids = maps.Clone(ids)
	s.saves++
	return nil
}

// Saves returns how many times the table has been written.
func (s *MemoryStore) Saves() int {
	return s.saves
}
