package deletion

import (
	"fmt"
	"sort"
)

const (
	// DefaultBatchSize bounds how many documents a single cascade
	// iteration fetches and mutates.
	DefaultBatchSize = 200
	// DefaultIndexName is the per-table index resolving documents by the
	// referenced user.
	DefaultIndexName = "by_user"
	// DefaultIndexField is the document field DefaultIndexName covers when a
	// table does not declare its own.
	DefaultIndexField = "userId"
)

// TableConfig declares how every user-referencing field of one table is
// handled during a cascade.
type TableConfig struct {
	Fields     map[string]Strategy
	BatchSize  int
	IndexName  string
	IndexField string
}

// Manifest is the immutable declarative description of the deletion
// cascade: which tables participate, the per-field strategies, which tables
// are exempt, and which fields carry blob-storage references. It is built
// once at boot and injected into the executor; it is never mutated after
// construction.
type Manifest struct {
	order         []string
	cascade       map[string]TableConfig
	preserve      map[string]struct{}
	storageFields map[string][]string
}

// Config is the raw, decoded form of a manifest before validation. Order
// lists cascade tables in declaration order; when empty, table names are
// sorted so the cascade order is still deterministic.
type Config struct {
	Order         []string
	Cascade       map[string]TableConfig
	Preserve      []string
	StorageFields map[string][]string
}

// NewManifest validates the raw config and freezes it. Strategies must be
// known, batch sizes positive, and no table may be declared both cascaded
// and preserved. Tables with storage fields must participate in the cascade,
// otherwise their files could never be swept.
func NewManifest(cfg Config) (*Manifest, error) {
	preserve := make(map[string]struct{}, len(cfg.Preserve))
	for _, table := range cfg.Preserve {
		if _, ok := preserve[table]; ok {
			return nil, fmt.Errorf("deletion manifest: table %q preserved twice", table)
		}
		preserve[table] = struct{}{}
	}

	cascade := make(map[string]TableConfig, len(cfg.Cascade))
	for table, tc := range cfg.Cascade {
		if _, ok := preserve[table]; ok {
			return nil, fmt.Errorf("deletion manifest: table %q is both cascaded and preserved", table)
		}
		if len(tc.Fields) == 0 {
			return nil, fmt.Errorf("deletion manifest: cascade table %q declares no fields", table)
		}
		for field, strategy := range tc.Fields {
			if _, err := ParseStrategy(string(strategy)); err != nil {
				return nil, fmt.Errorf("deletion manifest: table %q field %q: %w", table, field, err)
			}
		}
		if tc.BatchSize < 0 {
			return nil, fmt.Errorf("deletion manifest: table %q has negative batch size %d", table, tc.BatchSize)
		}
		cascade[table] = tc
	}

	for table := range cfg.StorageFields {
		if _, ok := cascade[table]; !ok {
			return nil, fmt.Errorf("deletion manifest: storage fields declared for non-cascade table %q", table)
		}
	}

	order, err := cascadeOrder(cfg.Order, cascade)
	if err != nil {
		return nil, err
	}

	storageFields := make(map[string][]string, len(cfg.StorageFields))
	for table, fields := range cfg.StorageFields {
		storageFields[table] = append([]string(nil), fields...)
	}

	return &Manifest{
		order:         order,
		cascade:       cascade,
		preserve:      preserve,
		storageFields: storageFields,
	}, nil
}

func cascadeOrder(declared []string, cascade map[string]TableConfig) ([]string, error) {
	if len(declared) == 0 {
		order := make([]string, 0, len(cascade))
		for table := range cascade {
			order = append(order, table)
		}
		sort.Strings(order)
		return order, nil
	}
	if len(declared) != len(cascade) {
		return nil, fmt.Errorf("deletion manifest: declared order lists %d tables, cascade has %d", len(declared), len(cascade))
	}
	seen := make(map[string]struct{}, len(declared))
	order := make([]string, 0, len(declared))
	for _, table := range declared {
		if _, ok := cascade[table]; !ok {
			return nil, fmt.Errorf("deletion manifest: ordered table %q is not a cascade table", table)
		}
		if _, ok := seen[table]; ok {
			return nil, fmt.Errorf("deletion manifest: table %q listed twice in order", table)
		}
		seen[table] = struct{}{}
		order = append(order, table)
	}
	return order, nil
}

// CascadeTables returns every cascade table in declaration order. The order
// is stable across runs so two cascades over identical data visit tables
// identically and produce identical audit entries.
func (m *Manifest) CascadeTables() []string {
	return append([]string(nil), m.order...)
}

// FieldStrategy returns the configured strategy for a field. The second
// return value is false when the field has no entry; the executor treats
// absent fields as preserved so unknown fields are never silently deleted.
func (m *Manifest) FieldStrategy(table, field string) (Strategy, bool) {
	tc, ok := m.cascade[table]
	if !ok {
		return "", false
	}
	strategy, ok := tc.Fields[field]
	return strategy, ok
}

// IsPreserved reports whether a table is exempt from the cascade.
func (m *Manifest) IsPreserved(table string) bool {
	_, ok := m.preserve[table]
	return ok
}

// StorageFields returns the blob-reference fields to sweep for a table, or
// an empty slice when none are configured.
func (m *Manifest) StorageFields(table string) []string {
	return append([]string(nil), m.storageFields[table]...)
}

// BatchSize returns the configured batch size for a table, falling back to
// DefaultBatchSize.
func (m *Manifest) BatchSize(table string) int {
	if tc, ok := m.cascade[table]; ok && tc.BatchSize > 0 {
		return tc.BatchSize
	}
	return DefaultBatchSize
}

// IndexName returns the user-reference index for a table, falling back to
// DefaultIndexName.
func (m *Manifest) IndexName(table string) string {
	if tc, ok := m.cascade[table]; ok && tc.IndexName != "" {
		return tc.IndexName
	}
	return DefaultIndexName
}

// IndexField returns the document field the table's user index covers,
// falling back to DefaultIndexField.
func (m *Manifest) IndexField(table string) string {
	if tc, ok := m.cascade[table]; ok && tc.IndexField != "" {
		return tc.IndexField
	}
	return DefaultIndexField
}

// HasDeleteStrategy reports whether any field of the table is configured
// with StrategyDelete, in which case the whole document is removed.
func (m *Manifest) HasDeleteStrategy(table string) bool {
	tc, ok := m.cascade[table]
	if !ok {
		return false
	}
	for _, strategy := range tc.Fields {
		if strategy == StrategyDelete {
			return true
		}
	}
	return false
}

// VerifyExclusive checks that every given table name appears in exactly one
// of cascade or preserve. Schema tooling feeds it the full list of tables
// carrying user references.
func (m *Manifest) VerifyExclusive(tables []string) error {
	for _, table := range tables {
		_, cascaded := m.cascade[table]
		preserved := m.IsPreserved(table)
		if cascaded && preserved {
			return fmt.Errorf("deletion manifest: table %q is both cascaded and preserved", table)
		}
		if !cascaded && !preserved {
			return fmt.Errorf("deletion manifest: table %q is neither cascaded nor preserved", table)
		}
	}
	return nil
}
