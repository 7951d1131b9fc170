// Package docop implements document operations over linearized, annotated XML-like
// documents, together with the algebra collaborative editing needs: applying an
// operation, composing two sequential operations, transforming two concurrent
// operations into a commuting pair, and inverting an operation.
package docop

import (
	"strings"
	"unicode/utf8"
)

// DocOp is an immutable, well-formed sequence of components.
type DocOp struct {
	comps []Component
}

// New checks the structure of comps and returns the operation they form.
// Errors match ErrMalformedOperation and name the offending component.
func New(comps ...Component) (DocOp, error) {
	if err := checkWellFormed(comps); err != nil {
		return DocOp{}, err
	}
	op := DocOp{comps: make([]Component, len(comps))}
	for i, c := range comps {
		if b, ok := c.(AnnotationBoundary); ok {
			c = b.clone()
		}
		op.comps[i] = c
	}
	return op, nil
}

// Identity returns the operation that retains a document of length n.
func Identity(n int) DocOp {
	if n == 0 {
		return DocOp{}
	}
	return DocOp{comps: []Component{Retain{N: n}}}
}

// Len returns the number of components.
func (op DocOp) Len() int {
	return len(op.comps)
}

// Component returns the i-th component.
func (op DocOp) Component(i int) Component {
	return op.comps[i]
}

// Components returns a copy of the component list.
func (op DocOp) Components() []Component {
	return append([]Component(nil), op.comps...)
}

// InputLength is the length of the documents op applies to.
func (op DocOp) InputLength() int {
	n := 0
	for _, c := range op.comps {
		n += inputLength(c)
	}
	return n
}

// OutputLength is the length of the documents op produces.
func (op DocOp) OutputLength() int {
	n := 0
	for _, c := range op.comps {
		n += outputLength(c)
	}
	return n
}

// IsIdentity reports whether op only retains.
func (op DocOp) IsIdentity() bool {
	for _, c := range op.comps {
		if _, ok := c.(Retain); !ok {
			return false
		}
	}
	return true
}

// Equal compares the component lists. Operations built through Builder,
// Compose or Transform are normalized, so equal effects compare equal.
func (op DocOp) Equal(o DocOp) bool {
	if len(op.comps) != len(o.comps) {
		return false
	}
	for i := range op.comps {
		if !componentEqual(op.comps[i], o.comps[i]) {
			return false
		}
	}
	return true
}

// String renders op in a concise notation, for example
// `__2; ++"ab"; << line {}; >>; --"x"; __3;`.
func (op DocOp) String() string {
	var sb strings.Builder
	for i, c := range op.comps {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(formatComponent(c))
		sb.WriteByte(';')
	}
	return sb.String()
}

func checkWellFormed(comps []Component) error {
	insertDepth, deleteDepth := 0, 0
	var open []string
	for i, c := range comps {
		switch c := c.(type) {
		case Retain:
			if c.N <= 0 {
				return malformed(i, "retain of %d items", c.N)
			}
		case Characters:
			if err := checkText(c.Text); err != "" {
				return malformed(i, "characters: %s", err)
			}
		case DeleteCharacters:
			if err := checkText(c.Text); err != "" {
				return malformed(i, "delete characters: %s", err)
			}
		case ElementStart:
			if c.Tag == "" {
				return malformed(i, "element start without tag")
			}
		case DeleteElementStart:
			if c.Tag == "" {
				return malformed(i, "delete element start without tag")
			}
		case ElementEnd, DeleteElementEnd, ReplaceAttributes, UpdateAttributes:
		case AnnotationBoundary:
			if err := checkBoundary(c, open); err != "" {
				return malformed(i, "annotation boundary: %s", err)
			}
			open = openKeys(open, c)
			continue
		case nil:
			return malformed(i, "nil component")
		default:
			return malformed(i, "unknown component %T", c)
		}

		switch c.(type) {
		case Characters, ElementStart, ElementEnd:
			if deleteDepth > 0 {
				return malformed(i, "insertion inside a deletion")
			}
		case DeleteCharacters, DeleteElementStart, DeleteElementEnd:
			if insertDepth > 0 {
				return malformed(i, "deletion inside an insertion")
			}
		default:
			if insertDepth > 0 || deleteDepth > 0 {
				return malformed(i, "%s inside an insertion or deletion", formatComponent(c))
			}
		}

		switch c.(type) {
		case ElementStart:
			insertDepth++
		case ElementEnd:
			if insertDepth == 0 {
				return malformed(i, "element end without matching start")
			}
			insertDepth--
		case DeleteElementStart:
			deleteDepth++
		case DeleteElementEnd:
			if deleteDepth == 0 {
				return malformed(i, "delete element end without matching start")
			}
			deleteDepth--
		}
	}
	if insertDepth > 0 {
		return malformed(-1, "%d inserted elements left open", insertDepth)
	}
	if deleteDepth > 0 {
		return malformed(-1, "%d deleted elements left open", deleteDepth)
	}
	if len(open) > 0 {
		return malformed(-1, "annotations %s left open", strings.Join(open, ", "))
	}
	return nil
}

func checkText(s string) string {
	if s == "" {
		return "empty text"
	}
	if !utf8.ValidString(s) {
		return "invalid UTF-8"
	}
	return ""
}

func checkBoundary(b AnnotationBoundary, open []string) string {
	for i, k := range b.Ends {
		if i > 0 && b.Ends[i-1] >= k {
			return "ends out of order or repeated at " + k
		}
		if !containsString(open, k) {
			return "end of annotation " + k + " which is not open"
		}
	}
	for i, c := range b.Changes {
		if c.Key == "" {
			return "empty annotation key"
		}
		if i > 0 && b.Changes[i-1].Key >= c.Key {
			return "changes out of order or repeated at " + c.Key
		}
		if containsString(b.Ends, c.Key) {
			return "annotation " + c.Key + " both ended and changed"
		}
	}
	return ""
}

func openKeys(open []string, b AnnotationBoundary) []string {
	var out []string
	for _, k := range open {
		if !containsString(b.Ends, k) {
			out = append(out, k)
		}
	}
	for _, c := range b.Changes {
		if !containsString(out, c.Key) {
			out = append(out, c.Key)
		}
	}
	return out
}
