package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"sevasetu/models"
)

// FileStore is a Store backed by a single JSON file. Every mutation rewrites
// the file via a temp file + rename so a crash never leaves a torn blob.
type FileStore struct {
	*MemoryStore
	path string
}

type persistedState struct {
	Version  int                          `json:"version"`
	Sessions map[string]models.Session    `json:"sessions"`
	Values   map[string]map[string]string `json:"values"`
}

// NewFileStore loads (or initialises) a file-backed store at path.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (f *FileStore) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	for role, s := range state.Sessions {
		f.MemoryStore.Set(role, s)
	}
	for role, kv := range state.Values {
		for k, v := range kv {
			f.MemoryStore.SetValue(role, k, v)
		}
	}
	return nil
}

func (f *FileStore) persist() error {
	sessions, values := f.snapshot()
	state := persistedState{Version: 1, Sessions: sessions, Values: values}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}

func (f *FileStore) Set(role string, s models.Session) error {
	if err := f.MemoryStore.Set(role, s); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) Clear(role string) error {
	if err := f.MemoryStore.Clear(role); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) SetValue(role, key, value string) error {
	if err := f.MemoryStore.SetValue(role, key, value); err != nil {
		return err
	}
	return f.persist()
}

func (f *FileStore) DeleteValue(role, key string) error {
	if err := f.MemoryStore.DeleteValue(role, key); err != nil {
		return err
	}
	return f.persist()
}
