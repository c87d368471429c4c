package deletion

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"
)

type tomlTableConfig struct {
	Fields     map[string]string `toml:"fields"`
	BatchSize  int               `toml:"batch_size"`
	IndexName  string            `toml:"index_name"`
	IndexField string            `toml:"index_field"`
}

type tomlManifest struct {
	Cascade       map[string]tomlTableConfig `toml:"cascade"`
	Preserve      []string                   `toml:"preserve"`
	StorageFields map[string][]string        `toml:"storage_fields"`
}

// LoadManifest reads a hand-maintained TOML manifest from disk. Cascade
// order follows the order tables appear in the file, which TOML metadata
// exposes, so the file itself is the single source of visiting order.
func LoadManifest(path string) (*Manifest, error) {
	var raw tomlManifest
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode deletion manifest")
	}
	return buildManifest(&raw, meta)
}

// ParseManifest decodes a manifest from TOML text, primarily for tests.
func ParseManifest(data string) (*Manifest, error) {
	var raw tomlManifest
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode deletion manifest")
	}
	return buildManifest(&raw, meta)
}

func buildManifest(raw *tomlManifest, meta toml.MetaData) (*Manifest, error) {
	cascade := make(map[string]TableConfig, len(raw.Cascade))
	for table, tc := range raw.Cascade {
		fields := make(map[string]Strategy, len(tc.Fields))
		for field, s := range tc.Fields {
			strategy, err := ParseStrategy(s)
			if err != nil {
				return nil, errors.Wrapf(err, "table %q field %q", table, field)
			}
			fields[field] = strategy
		}
		cascade[table] = TableConfig{
			Fields:     fields,
			BatchSize:  tc.BatchSize,
			IndexName:  tc.IndexName,
			IndexField: tc.IndexField,
		}
	}

	return NewManifest(Config{
		Order:         declaredCascadeOrder(meta),
		Cascade:       cascade,
		Preserve:      raw.Preserve,
		StorageFields: raw.StorageFields,
	})
}

// declaredCascadeOrder extracts cascade table names in file order from the
// decoder metadata. Keys arrive as dotted paths; a cascade table is the
// second segment of a "cascade.<table>..." key.
func declaredCascadeOrder(meta toml.MetaData) []string {
	var order []string
	seen := make(map[string]struct{})
	for _, key := range meta.Keys() {
		parts := []string(key)
		if len(parts) < 2 || parts[0] != "cascade" {
			continue
		}
		table := parts[1]
		if strings.TrimSpace(table) == "" {
			continue
		}
		if _, ok := seen[table]; ok {
			continue
		}
		seen[table] = struct{}{}
		order = append(order, table)
	}
	return order
}
