package prosody

// luaKind tags the active member of a LuaValue.
type luaKind int

const (
	kindBool luaKind = iota
	kindNumber
	kindString
	kindList
	kindMap
)

// LuaValue is a sum type covering every shape a Lua config value can take:
// boolean, number, string, list, or an insertion-ordered map. It is a
// concrete tagged struct rather than an interface so zero values are
// meaningful and callers can't accidentally implement a fifth variant.
type LuaValue struct {
	kind   luaKind
	bool_  bool
	number LuaNumber
	str    string
	list   []LuaValue
	m      *orderedMap
}

// Bool wraps a boolean.
func Bool(b bool) LuaValue { return LuaValue{kind: kindBool, bool_: b} }

// Number wraps a LuaNumber.
func Number(n LuaNumber) LuaValue { return LuaValue{kind: kindNumber, number: n} }

// String wraps a string; it always prints double-quoted.
func String(s string) LuaValue { return LuaValue{kind: kindString, str: s} }

// List wraps an ordered list of values.
func List(items ...LuaValue) LuaValue { return LuaValue{kind: kindList, list: items} }

// Map wraps an insertion-ordered map.
func Map(m *orderedMap) LuaValue { return LuaValue{kind: kindMap, m: m} }

// StringList is a convenience constructor for a list of strings, the most
// common list shape in a Prosody config (modules_enabled, admins, …).
func StringList(items ...string) LuaValue {
	vs := make([]LuaValue, len(items))
	for i, s := range items {
		vs[i] = String(s)
	}
	return List(vs...)
}

// orderedMap is an insertion-ordered string-keyed map of LuaValue,
// implemented as a slice of pairs. A real production service this size
// has at most a few dozen entries per map, so linear key lookup is not a
// concern; what matters is that iteration order exactly matches
// insertion order, which Go's builtin map cannot guarantee.
type orderedMap struct {
	keys   []string
	values map[string]LuaValue
}

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]LuaValue)}
}

// Set inserts or overwrites key. Overwriting an existing key keeps its
// original position (matches insertion-order map semantics used for
// modules_enabled/limits).
func (m *orderedMap) Set(key string, v LuaValue) *orderedMap {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

func (m *orderedMap) Len() int { return len(m.keys) }

// orderedSet is an insertion-ordered set of strings: duplicates are
// dropped, first insertion wins the position. Used for modules_enabled
// and other Prosody sets where order affects nothing semantically but
// reproducibility of the rendered file does.
type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func NewOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) Add(v string) *orderedSet {
	if _, ok := s.seen[v]; ok {
		return s
	}
	s.seen[v] = struct{}{}
	s.order = append(s.order, v)
	return s
}

// AddAll unions other into s, appended after s's existing members in
// other's order — this is the "additional enables appended last so they
// can override defaults" rule from the printer semantics.
func (s *orderedSet) AddAll(other *orderedSet) *orderedSet {
	for _, v := range other.order {
		s.Add(v)
	}
	return s
}

func (s *orderedSet) Contains(v string) bool {
	_, ok := s.seen[v]
	return ok
}

func (s *orderedSet) toLuaValue() LuaValue {
	return StringList(s.order...)
}
