package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersistExt is the file extension of states written by FileStore.
const PersistExt = ".persist"

// FileStore persists each state as a YAML document in <dir>/<id>.persist.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory states are written to.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+PersistExt)
}

// Save writes st atomically, replacing any previous file for st.ID.
func (f *FileStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(st.ID); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	st = st.normalize()

	prev, found, err := f.Load(ctx, st.ID)
	if err != nil {
		return err
	}
	st.Revision = 1
	if found {
		st.Revision = prev.Revision + 1
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}

	tmp, err := os.CreateTemp(f.dir, st.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}
	if err := os.Rename(tmp.Name(), f.path(st.ID)); err != nil {
		return fmt.Errorf("save state %s: %w", st.ID, err)
	}
	return nil
}

// Load reads the state saved under id. found is false when no file exists.
func (f *FileStore) Load(ctx context.Context, id string) (st State, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return State{}, false, err
	}
	if err := validateID(id); err != nil {
		return State{}, false, fmt.Errorf("load state: %w", err)
	}

	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("load state %s: %w", id, err)
	}

	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("load state %s: %w", id, err)
	}
	if st.ID == "" {
		st.ID = id
	}
	if st.Facts == nil {
		st.Facts = []string{}
	}
	return st, true, nil
}

// Clear removes the file for id and reports whether one existed.
func (f *FileStore) Clear(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateID(id); err != nil {
		return false, fmt.Errorf("clear state: %w", err)
	}
	err := os.Remove(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("clear state %s: %w", id, err)
	}
	return true, nil
}

// List returns the saved state ids in sorted order.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, PersistExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, PersistExt))
	}
	slices.Sort(ids)
	return ids, nil
}
