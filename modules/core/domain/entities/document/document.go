package document

// Document is the structural view of one row in a user-data table. The
// cascade touches heterogeneous table schemas generically, so documents are
// field-name-to-value mappings rather than per-table concrete types.
type Document map[string]any

// IDField is the reserved document identifier field.
const IDField = "id"

func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// StringField returns the named field as a string when present and
// string-typed.
func (d Document) StringField(name string) (string, bool) {
	v, ok := d[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy so callers can patch without aliasing
// store-owned state.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
