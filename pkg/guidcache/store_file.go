package guidcache

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStore keeps the table as a flat json object on disk, the same
// component-ids.json format the installer build has always used.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (map[string]string, error) {
	data, err := ioutil.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", s.path)
	}

	ids := make(map[string]string)
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, &CorruptCacheError{Location: s.path, Err: err}
	}

	return ids, nil
}

// Save writes to a temp file in the same directory, then renames it
// over the old table, so an interrupted save leaves the previous table
// intact.
func (s *FileStore) Save(ids map[string]string) error {
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal identifier table")
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := ioutil.TempFile(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "renaming into %s", s.path)
	}

	return nil
}
