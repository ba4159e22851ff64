package registry

// Mapping is an insertion-ordered string-keyed map, the in-memory form of
// a group without a type tag.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// Set stores v under key, keeping the original position of an existing key.
func (m *Mapping) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (m *Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// ToMap converts the mapping, and nested mappings, into plain maps.
func (m *Mapping) ToMap() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		v := m.values[k]
		if sub, ok := v.(*Mapping); ok {
			v = sub.ToMap()
		}
		out[k] = v
	}
	return out
}
