package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// snapshot is the on-disk form: {"TABLE_KEY": {"columns": {"COL": "TYPE"}}}.
type snapshot map[string]TableSchema

// Load reads a catalog snapshot. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema snapshot %s: %w", path, err)
	}
	return Parse(data, isYAML(path))
}

// Parse decodes snapshot bytes into a catalog. Table keys are added in sorted
// order so lookups are deterministic across runs.
func Parse(data []byte, asYAML bool) (*Catalog, error) {
	var snap snapshot
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &snap)
	} else {
		err = json.Unmarshal(data, &snap)
	}
	if err != nil {
		return nil, fmt.Errorf("decode schema snapshot: %w", err)
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cat := NewCatalog()
	for _, k := range keys {
		cat.AddTable(k, snap[k].Columns)
	}
	return cat, nil
}

// Save writes the catalog to path, creating parent directories.
func Save(path string, cat *Catalog) error {
	snap := make(snapshot, cat.Len())
	for _, k := range cat.Keys() {
		ts, _ := cat.Table(k)
		snap[k] = TableSchema{Columns: ts.Columns}
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(snap)
	} else {
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode schema snapshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema snapshot %s: %w", path, err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
