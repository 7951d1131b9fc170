package docop

import (
	"strings"
)

type itemKind uint8

const (
	charItem itemKind = iota
	startItem
	endItem
)

// item is one addressable position of a document. Elements refer to each
// other through indexes into the document's item slice.
type item struct {
	kind   itemKind
	r      rune
	tag    string
	attrs  Attributes
	ann    Attributes
	parent int // enclosing element start, -1 at the top level
	match  int // the other marker of an element, -1 for characters
}

// Document is an immutable, linearized tree of elements and characters.
// Position p addresses the item at index p; positions run from 0 to Length().
type Document struct {
	items []item
}

// NewDocument returns the empty document.
func NewDocument() *Document {
	return &Document{}
}

// FromOp builds a document by applying an initialization operation to the empty document.
func FromOp(op DocOp) (*Document, error) {
	return NewDocument().Apply(op)
}

// Length returns the number of items.
func (d *Document) Length() int {
	return len(d.items)
}

func (d *Document) at(pos int) (item, bool) {
	if pos < 0 || pos >= len(d.items) {
		return item{}, false
	}
	return d.items[pos], true
}

// ElementStartingAt returns the tag of the element whose start is at pos.
func (d *Document) ElementStartingAt(pos int) (string, bool) {
	it, ok := d.at(pos)
	if !ok || it.kind != startItem {
		return "", false
	}
	return it.tag, true
}

// ElementEndingAt returns the tag of the element whose end is at pos.
func (d *Document) ElementEndingAt(pos int) (string, bool) {
	it, ok := d.at(pos)
	if !ok || it.kind != endItem {
		return "", false
	}
	return it.tag, true
}

// CharAt returns the character at pos.
func (d *Document) CharAt(pos int) (rune, bool) {
	it, ok := d.at(pos)
	if !ok || it.kind != charItem {
		return 0, false
	}
	return it.r, true
}

// AttributesAt returns the attributes of the element starting at pos.
func (d *Document) AttributesAt(pos int) (Attributes, bool) {
	it, ok := d.at(pos)
	if !ok || it.kind != startItem {
		return Attributes{}, false
	}
	return it.attrs, true
}

// container returns the index of the start of the element enclosing the
// insertion point before pos, or -1 at the top level.
func (d *Document) container(pos int) int {
	it, ok := d.at(pos)
	if !ok {
		return -1
	}
	if it.kind == endItem {
		return it.match
	}
	return it.parent
}

// NthEnclosingElementTag returns the tag of the depth-th element around the
// insertion point before pos; depth 0 is the innermost one.
func (d *Document) NthEnclosingElementTag(pos, depth int) (string, bool) {
	if pos < 0 || pos > len(d.items) {
		return "", false
	}
	e := d.container(pos)
	for ; depth > 0 && e >= 0; depth-- {
		e = d.items[e].parent
	}
	if e < 0 {
		return "", false
	}
	return d.items[e].tag, true
}

// RemainingCharactersInElement counts the characters from pos up to the next
// element marker.
func (d *Document) RemainingCharactersInElement(pos int) int {
	n := 0
	for p := pos; p >= 0 && p < len(d.items) && d.items[p].kind == charItem; p++ {
		n++
	}
	return n
}

// AnnotationsAt returns the annotations of the item at pos.
func (d *Document) AnnotationsAt(pos int) Attributes {
	it, _ := d.at(pos)
	return it.ann
}

// Annotation returns the value of key at pos.
func (d *Document) Annotation(pos int, key string) (string, bool) {
	return d.AnnotationsAt(pos).Get(key)
}

// FirstAnnotationChange returns the first position in [start, end) whose value
// for key differs from from (nil meaning unset), or -1.
func (d *Document) FirstAnnotationChange(start, end int, key string, from *string) int {
	if start < 0 {
		start = 0
	}
	if end > len(d.items) {
		end = len(d.items)
	}
	for p := start; p < end; p++ {
		if !equalValue(d.items[p].ann.value(key), from) {
			return p
		}
	}
	return -1
}

// Text returns the characters of the document, without markup.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, it := range d.items {
		if it.kind == charItem {
			sb.WriteRune(it.r)
		}
	}
	return sb.String()
}

// AsInitialization returns the operation that builds d from the empty document.
func (d *Document) AsInitialization() DocOp {
	var n normalizer
	for _, it := range d.items {
		ann := annotationsFromMap(it.ann)
		switch it.kind {
		case charItem:
			n.insert(Characters{Text: string(it.r)}, ann)
		case startItem:
			n.insert(ElementStart{Tag: it.tag, Attrs: it.attrs}, ann)
		case endItem:
			n.insert(ElementEnd{}, ann)
		}
	}
	return n.finish()
}

// Equal compares content, attributes and annotations.
func (d *Document) Equal(o *Document) bool {
	if len(d.items) != len(o.items) {
		return false
	}
	for i := range d.items {
		a, b := d.items[i], o.items[i]
		if a.kind != b.kind || a.r != b.r || a.tag != b.tag || !a.attrs.Equal(b.attrs) || !a.ann.Equal(b.ann) {
			return false
		}
	}
	return true
}

func (d *Document) String() string {
	return d.XML()
}

// link fills in parent and match indexes. It reports false when the element
// markers are unbalanced.
func link(items []item) bool {
	var stack []int
	for i := range items {
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		switch items[i].kind {
		case charItem:
			items[i].parent = parent
			items[i].match = -1
		case startItem:
			items[i].parent = parent
			stack = append(stack, i)
		case endItem:
			if len(stack) == 0 {
				return false
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			items[i].parent = items[start].parent
			items[i].match = start
			items[i].tag = items[start].tag
			items[start].match = i
		}
	}
	return len(stack) == 0
}
