package templates

// Value is the tagged union of data the template engine accepts: string,
// number, boolean, ordered list, or ordered map. Contexts carry data only,
// never executable logic.
type Value interface {
	toAny() any
}

// String is a text value.
type String string

// Number is a numeric value.
type Number float64

// Bool is a boolean value.
type Bool bool

// List is an ordered sequence of values.
type List []Value

// Map is an insertion-ordered set of named values.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set adds or replaces a key. First insertion fixes the key's position.
func (m *Map) Set(key string, v Value) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value for key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (s String) toAny() any { return string(s) }
func (n Number) toAny() any { return float64(n) }
func (b Bool) toAny() any   { return bool(b) }

func (l List) toAny() any {
	out := make([]any, len(l))
	for i, v := range l {
		out[i] = v.toAny()
	}
	return out
}

func (m *Map) toAny() any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = m.vals[k].toAny()
	}
	return out
}

// Context is the root data handed to Render. It is always a map.
type Context = *Map
