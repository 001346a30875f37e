// Package checkpoint snapshots workflow state to YAML files, one per run,
// rewritten after every stage.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store writes snapshots under Dir as <id>.yaml.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the snapshot path for a run.
func (s *Store) Path(id string) string {
	return filepath.Join(s.Dir, id+".yaml")
}

// Save writes v atomically using a temp file and rename.
func (s *Store) Save(id string, v any) error {
	if id == "" {
		return fmt.Errorf("checkpoint: empty run id")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	path := s.Path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming temp checkpoint file: %w", err)
	}
	return nil
}

// Load decodes the snapshot for id into v. It reports false when no
// snapshot exists.
func (s *Store) Load(id string, v any) (bool, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading checkpoint: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing checkpoint %s: %w", id, err)
	}
	return true, nil
}

// List returns the run ids with snapshots, newest first. Ids start with a
// sortable timestamp, so lexical order is chronological.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading checkpoint directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".yaml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
