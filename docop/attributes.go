package docop

import (
	"sort"
	"strconv"
	"strings"
)

// Attribute is a single name/value pair of an element.
type Attribute struct {
	Name  string
	Value string
}

// Attributes is an immutable map from attribute name to value, kept sorted by name.
// The zero value is the empty map.
type Attributes struct {
	entries []Attribute
}

// NewAttributes builds an attribute map from entries in strictly ascending name order.
func NewAttributes(entries ...Attribute) (Attributes, error) {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name >= entries[i].Name {
			return Attributes{}, malformed(-1, "attribute %q out of order or repeated", entries[i].Name)
		}
	}
	if len(entries) == 0 {
		return Attributes{}, nil
	}
	return Attributes{entries: append([]Attribute(nil), entries...)}, nil
}

// AttributesFromMap builds an attribute map from a Go map.
func AttributesFromMap(m map[string]string) Attributes {
	if len(m) == 0 {
		return Attributes{}
	}
	entries := make([]Attribute, 0, len(m))
	for k, v := range m {
		entries = append(entries, Attribute{Name: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return Attributes{entries: entries}
}

// Attrs is a shorthand taking alternating names and values. It panics on an odd
// argument count or on names that are not strictly ascending.
func Attrs(kv ...string) Attributes {
	assert(len(kv)%2 == 0, "odd attribute argument count")
	entries := make([]Attribute, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		entries = append(entries, Attribute{Name: kv[i], Value: kv[i+1]})
	}
	a, err := NewAttributes(entries...)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Attributes) Len() int {
	return len(a.entries)
}

// At returns the i-th entry in name order.
func (a Attributes) At(i int) Attribute {
	return a.entries[i]
}

// Get returns the value stored for name.
func (a Attributes) Get(name string) (string, bool) {
	i := sort.Search(len(a.entries), func(i int) bool { return a.entries[i].Name >= name })
	if i < len(a.entries) && a.entries[i].Name == name {
		return a.entries[i].Value, true
	}
	return "", false
}

func (a Attributes) value(name string) *string {
	if v, ok := a.Get(name); ok {
		return &v
	}
	return nil
}

// Map copies the entries into a Go map.
func (a Attributes) Map() map[string]string {
	m := make(map[string]string, len(a.entries))
	for _, e := range a.entries {
		m[e.Name] = e.Value
	}
	return m
}

func (a Attributes) Equal(b Attributes) bool {
	if len(a.entries) != len(b.entries) {
		return false
	}
	for i := range a.entries {
		if a.entries[i] != b.entries[i] {
			return false
		}
	}
	return true
}

// UpdateWith returns a new map with u applied. Every change must name the value
// currently stored (nil for an absent key).
func (a Attributes) UpdateWith(u AttributesUpdate) (Attributes, error) {
	out := make([]Attribute, 0, len(a.entries)+len(u.changes))
	i, j := 0, 0
	for i < len(a.entries) || j < len(u.changes) {
		switch {
		case j == len(u.changes) || (i < len(a.entries) && a.entries[i].Name < u.changes[j].Name):
			out = append(out, a.entries[i])
			i++
		case i == len(a.entries) || u.changes[j].Name < a.entries[i].Name:
			c := u.changes[j]
			if c.Old != nil {
				return Attributes{}, inapplicable(-1, "attribute %q absent, update expects %q", c.Name, *c.Old)
			}
			if c.New != nil {
				out = append(out, Attribute{Name: c.Name, Value: *c.New})
			}
			j++
		default:
			c := u.changes[j]
			if c.Old == nil || *c.Old != a.entries[i].Value {
				return Attributes{}, inapplicable(-1, "attribute %q is %q, update expects %s", c.Name, a.entries[i].Value, formatValue(c.Old))
			}
			if c.New != nil {
				out = append(out, Attribute{Name: c.Name, Value: *c.New})
			}
			i++
			j++
		}
	}
	if len(out) == 0 {
		return Attributes{}, nil
	}
	return Attributes{entries: out}, nil
}

func (a Attributes) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range a.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.Name)
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(e.Value))
	}
	sb.WriteByte('}')
	return sb.String()
}

// AttributeChange is one entry of an AttributesUpdate. A nil Old means the
// attribute was absent, a nil New removes it.
type AttributeChange struct {
	Name string
	Old  *string
	New  *string
}

// AttributesUpdate is an immutable list of attribute changes sorted by name.
type AttributesUpdate struct {
	changes []AttributeChange
}

// NewAttributesUpdate builds an update from changes in strictly ascending name order.
func NewAttributesUpdate(changes ...AttributeChange) (AttributesUpdate, error) {
	for i := 1; i < len(changes); i++ {
		if changes[i-1].Name >= changes[i].Name {
			return AttributesUpdate{}, malformed(-1, "attribute update %q out of order or repeated", changes[i].Name)
		}
	}
	if len(changes) == 0 {
		return AttributesUpdate{}, nil
	}
	return AttributesUpdate{changes: append([]AttributeChange(nil), changes...)}, nil
}

// Update is a shorthand that panics where NewAttributesUpdate returns an error.
func Update(changes ...AttributeChange) AttributesUpdate {
	u, err := NewAttributesUpdate(changes...)
	if err != nil {
		panic(err)
	}
	return u
}

func (u AttributesUpdate) Len() int {
	return len(u.changes)
}

func (u AttributesUpdate) At(i int) AttributeChange {
	return u.changes[i]
}

// Get returns the change for name.
func (u AttributesUpdate) Get(name string) (AttributeChange, bool) {
	i := sort.Search(len(u.changes), func(i int) bool { return u.changes[i].Name >= name })
	if i < len(u.changes) && u.changes[i].Name == name {
		return u.changes[i], true
	}
	return AttributeChange{}, false
}

func (u AttributesUpdate) Equal(v AttributesUpdate) bool {
	if len(u.changes) != len(v.changes) {
		return false
	}
	for i := range u.changes {
		a, b := u.changes[i], v.changes[i]
		if a.Name != b.Name || !equalValue(a.Old, b.Old) || !equalValue(a.New, b.New) {
			return false
		}
	}
	return true
}

// Invert swaps old and new values.
func (u AttributesUpdate) Invert() AttributesUpdate {
	if len(u.changes) == 0 {
		return u
	}
	out := make([]AttributeChange, len(u.changes))
	for i, c := range u.changes {
		out[i] = AttributeChange{Name: c.Name, Old: c.New, New: c.Old}
	}
	return AttributesUpdate{changes: out}
}

// ComposeWith returns the single update equivalent to u followed by v. A key
// changed by both keeps u's old value and v's new value, and disappears when
// the two are equal. v must expect the values u produced.
func (u AttributesUpdate) ComposeWith(v AttributesUpdate) (AttributesUpdate, error) {
	out := make([]AttributeChange, 0, len(u.changes)+len(v.changes))
	i, j := 0, 0
	for i < len(u.changes) || j < len(v.changes) {
		switch {
		case j == len(v.changes) || (i < len(u.changes) && u.changes[i].Name < v.changes[j].Name):
			out = append(out, u.changes[i])
			i++
		case i == len(u.changes) || v.changes[j].Name < u.changes[i].Name:
			out = append(out, v.changes[j])
			j++
		default:
			a, b := u.changes[i], v.changes[j]
			if !equalValue(b.Old, a.New) {
				return AttributesUpdate{}, inapplicable(-1, "attribute %q updated to %s, next update expects %s",
					a.Name, formatValue(a.New), formatValue(b.Old))
			}
			if !equalValue(a.Old, b.New) {
				out = append(out, AttributeChange{Name: a.Name, Old: a.Old, New: b.New})
			}
			i++
			j++
		}
	}
	if len(out) == 0 {
		return AttributesUpdate{}, nil
	}
	return AttributesUpdate{changes: out}, nil
}

// withoutNoops drops changes whose old and new values are equal.
func (u AttributesUpdate) withoutNoops() AttributesUpdate {
	var out []AttributeChange
	for _, c := range u.changes {
		if !equalValue(c.Old, c.New) {
			out = append(out, c)
		}
	}
	return AttributesUpdate{changes: out}
}

func (u AttributesUpdate) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, c := range u.changes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.Name)
		sb.WriteString(": ")
		sb.WriteString(formatValue(c.Old))
		sb.WriteString(" -> ")
		sb.WriteString(formatValue(c.New))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Val returns a pointer to s, for building changes with literal values.
func Val(s string) *string {
	return &s
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func formatValue(v *string) string {
	if v == nil {
		return "null"
	}
	return strconv.Quote(*v)
}
