package schema

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/burntcarrot/wavepad/docop"
)

// DocumentView is the read access validation needs into the base document.
// *docop.Document implements it.
type DocumentView interface {
	Length() int
	ElementStartingAt(pos int) (string, bool)
	ElementEndingAt(pos int) (string, bool)
	CharAt(pos int) (rune, bool)
	AttributesAt(pos int) (docop.Attributes, bool)
	NthEnclosingElementTag(pos, depth int) (string, bool)
	Annotation(pos int, key string) (string, bool)
	FirstAnnotationChange(start, end int, key string, from *string) int
}

var _ DocumentView = (*docop.Document)(nil)

// Validate walks op over doc and returns the first violation, or nil.
func Validate(s DocumentSchema, doc DocumentView, op docop.DocOp) error {
	return walk(s, doc, op, true).Err()
}

// Check walks the whole of op over doc and collects every violation.
func Check(s DocumentSchema, doc DocumentView, op docop.DocOp) *ViolationCollector {
	return walk(s, doc, op, false)
}

// Apply validates op and applies it to doc.
func Apply(s DocumentSchema, doc *docop.Document, op docop.DocOp) (*docop.Document, error) {
	if err := Validate(s, doc, op); err != nil {
		return nil, err
	}
	return doc.Apply(op)
}

func walk(s DocumentSchema, doc DocumentView, op docop.DocOp, failFast bool) *ViolationCollector {
	if s == nil {
		s = NoSchema{}
	}
	a := &automaton{
		schema:   s,
		doc:      doc,
		collect:  &ViolationCollector{},
		failFast: failFast,
	}
	if doc.Length() == 0 {
		a.top = s.RequiredInitialChildren("")
	}
	op.Walk(a)
	a.finish()
	return a.collect
}

// frame is an element the operation is inserting, with the required children
// it still has to receive.
type frame struct {
	tag     string
	pending []string
}

// automaton tracks an operation's progress through the base document (pos)
// and through the document it builds (resultingPos).
type automaton struct {
	schema   DocumentSchema
	doc      DocumentView
	collect  *ViolationCollector
	failFast bool

	index        int
	pos          int
	resultingPos int
	inserts      []frame
	top          []string
	deleteDepth  int
	ann          []docop.AnnotationChange
}

func (a *automaton) stopped() bool {
	return a.failFast && len(a.collect.violations) > 0
}

func (a *automaton) next() {
	a.index++
}

func (a *automaton) violation(r Result, format string, args ...interface{}) {
	a.collect.Add(&Violation{
		Result:       r,
		Index:        a.index,
		Pos:          a.pos,
		ResultingPos: a.resultingPos,
		Reason:       fmt.Sprintf(format, args...),
	})
}

func describeTag(tag string) string {
	if tag == "" {
		return "the top level"
	}
	return "<" + tag + ">"
}

func (a *automaton) enclosingTag() string {
	if k := len(a.inserts); k > 0 {
		return a.inserts[k-1].tag
	}
	tag, _ := a.doc.NthEnclosingElementTag(a.pos, 0)
	return tag
}

// pendingRequired returns the required children still missing at the
// insertion point, or nil where the base document already has them.
func (a *automaton) pendingRequired() *[]string {
	if k := len(a.inserts); k > 0 {
		return &a.inserts[k-1].pending
	}
	if a.doc.Length() == 0 {
		return &a.top
	}
	return nil
}

// atRequiredChild reports whether pos is the first child slot of an existing
// element that has required children.
func (a *automaton) atRequiredChild() bool {
	if a.pos >= a.doc.Length() {
		return false
	}
	parent, _ := a.doc.NthEnclosingElementTag(a.pos, 0)
	if len(a.schema.RequiredInitialChildren(parent)) == 0 {
		return false
	}
	if a.pos == 0 {
		return true
	}
	_, first := a.doc.ElementStartingAt(a.pos - 1)
	return first
}

func (a *automaton) checkAnnotations(n int) {
	for _, c := range a.ann {
		if p := a.doc.FirstAnnotationChange(a.pos, a.pos+n, c.Key, c.Old); p != -1 {
			v, ok := a.doc.Annotation(p, c.Key)
			found := "null"
			if ok {
				found = fmt.Sprintf("%q", v)
			}
			a.violation(InvalidDocument, "annotation %s at %d is %s, operation expects %s", c.Key, p, found, formatValue(c.Old))
			return
		}
	}
}

func (a *automaton) checkAttributes(tag string, attrs docop.Attributes) {
	for i := 0; i < attrs.Len(); i++ {
		at := attrs.At(i)
		if !a.schema.PermitsAttribute(tag, at.Name, at.Value) {
			a.violation(InvalidSchema, "attribute %s=%q not permitted on <%s>", at.Name, at.Value, tag)
			return
		}
	}
}

// retainable reports whether an item of the base document may be kept here.
func (a *automaton) retainable(what string) bool {
	if len(a.inserts) > 0 || a.deleteDepth > 0 {
		a.violation(IllFormed, "%s inside an insertion or deletion", what)
		return false
	}
	return true
}

func (a *automaton) Retain(n int) {
	defer a.next()
	if a.stopped() {
		return
	}
	if n <= 0 {
		a.violation(IllFormed, "retain of %d items", n)
		return
	}
	if a.retainable("retain") {
		if a.pos+n > a.doc.Length() {
			a.violation(InvalidDocument, "retain of %d items past the end of a document of length %d", n, a.doc.Length())
		} else {
			a.checkAnnotations(n)
		}
	}
	a.pos += n
	a.resultingPos += n
}

func (a *automaton) Characters(text string) {
	defer a.next()
	if a.stopped() {
		return
	}
	switch {
	case a.deleteDepth > 0:
		a.violation(IllFormed, "characters inside a deletion")
	case a.pendingRequired() != nil && len(*a.pendingRequired()) > 0:
		a.violation(InvalidSchema, "<%s> required before text", (*a.pendingRequired())[0])
	case a.pendingRequired() == nil && a.atRequiredChild():
		a.violation(InvalidSchema, "text inserted before a required first child")
	default:
		tag := a.enclosingTag()
		switch pc := a.schema.PermittedCharacters(tag); {
		case pc == None:
			a.violation(InvalidSchema, "text not permitted in %s", describeTag(tag))
		case !pc.Permits(text):
			a.violation(InvalidSchema, "text %q has characters not permitted in %s (%s)", text, describeTag(tag), pc)
		}
	}
	a.resultingPos += utf8.RuneCountInString(text)
}

func (a *automaton) ElementStart(tag string, attrs docop.Attributes) {
	defer a.next()
	if a.stopped() {
		return
	}
	if a.deleteDepth > 0 {
		a.violation(IllFormed, "element start inside a deletion")
	} else {
		a.checkAttributes(tag, attrs)
		if parent := a.enclosingTag(); !a.schema.PermitsChild(parent, tag) {
			a.violation(InvalidSchema, "<%s> not permitted in %s", tag, describeTag(parent))
		}
		if pending := a.pendingRequired(); pending != nil && len(*pending) > 0 {
			if (*pending)[0] != tag {
				a.violation(InvalidSchema, "<%s> required here, not <%s>", (*pending)[0], tag)
			}
			*pending = (*pending)[1:]
		} else if pending == nil && a.atRequiredChild() {
			a.violation(InvalidSchema, "<%s> inserted before a required first child", tag)
		}
	}
	a.inserts = append(a.inserts, frame{tag: tag, pending: a.schema.RequiredInitialChildren(tag)})
	a.resultingPos++
}

func (a *automaton) ElementEnd() {
	defer a.next()
	if a.stopped() {
		return
	}
	k := len(a.inserts)
	if k == 0 {
		a.violation(IllFormed, "element end without matching start")
		return
	}
	if f := a.inserts[k-1]; len(f.pending) > 0 {
		a.violation(InvalidSchema, "<%s> requires child <%s>", f.tag, f.pending[0])
	}
	a.inserts = a.inserts[:k-1]
	a.resultingPos++
}

func (a *automaton) DeleteCharacters(text string) {
	defer a.next()
	if a.stopped() {
		return
	}
	n := utf8.RuneCountInString(text)
	if len(a.inserts) > 0 {
		a.violation(IllFormed, "deletion inside an insertion")
	} else {
		p := a.pos
		for _, r := range text {
			got, ok := a.doc.CharAt(p)
			if !ok {
				a.violation(InvalidDocument, "no character at %d to delete", p)
				break
			}
			if got != r {
				a.violation(InvalidDocument, "deleting %q where the document has %q", r, got)
				break
			}
			p++
		}
	}
	a.pos += n
}

func (a *automaton) DeleteElementStart(tag string, attrs docop.Attributes) {
	defer a.next()
	if a.stopped() {
		return
	}
	if len(a.inserts) > 0 {
		a.violation(IllFormed, "deletion inside an insertion")
	} else {
		got, ok := a.doc.ElementStartingAt(a.pos)
		current, _ := a.doc.AttributesAt(a.pos)
		switch {
		case !ok:
			a.violation(InvalidDocument, "no element start to delete")
		case got != tag:
			a.violation(InvalidDocument, "deleting <%s> where the document has <%s>", tag, got)
		case !current.Equal(attrs):
			a.violation(InvalidDocument, "deleting <%s %s> where the document has %s", tag, attrs, current)
		case a.deleteDepth == 0 && a.atRequiredChild():
			a.violation(InvalidSchema, "cannot delete the required first child <%s>", tag)
		}
	}
	a.deleteDepth++
	a.pos++
}

func (a *automaton) DeleteElementEnd() {
	defer a.next()
	if a.stopped() {
		return
	}
	switch {
	case len(a.inserts) > 0:
		a.violation(IllFormed, "deletion inside an insertion")
	case a.deleteDepth == 0:
		a.violation(IllFormed, "delete element end without matching start")
	default:
		if _, ok := a.doc.ElementEndingAt(a.pos); !ok {
			a.violation(InvalidDocument, "no element end to delete")
		}
	}
	if a.deleteDepth > 0 {
		a.deleteDepth--
	}
	a.pos++
}

func (a *automaton) ReplaceAttributes(old, new docop.Attributes) {
	defer a.next()
	if a.stopped() {
		return
	}
	if a.retainable("attribute replacement") {
		tag, ok := a.doc.ElementStartingAt(a.pos)
		current, _ := a.doc.AttributesAt(a.pos)
		switch {
		case !ok:
			a.violation(InvalidDocument, "no element start to change attributes of")
		case !current.Equal(old):
			a.violation(InvalidDocument, "replacing %s where <%s> has %s", old, tag, current)
		default:
			a.checkAnnotations(1)
			a.checkAttributes(tag, new)
		}
	}
	a.pos++
	a.resultingPos++
}

func (a *automaton) UpdateAttributes(u docop.AttributesUpdate) {
	defer a.next()
	if a.stopped() {
		return
	}
	if a.retainable("attribute update") {
		tag, ok := a.doc.ElementStartingAt(a.pos)
		current, _ := a.doc.AttributesAt(a.pos)
		if !ok {
			a.violation(InvalidDocument, "no element start to change attributes of")
		} else {
			a.checkUpdate(tag, current, u)
		}
	}
	a.pos++
	a.resultingPos++
}

func (a *automaton) checkUpdate(tag string, current docop.Attributes, u docop.AttributesUpdate) {
	for i := 0; i < u.Len(); i++ {
		ch := u.At(i)
		v, ok := current.Get(ch.Name)
		if ok != (ch.Old != nil) || (ok && v != *ch.Old) {
			a.violation(InvalidDocument, "updating %s from %s where <%s> has %s", ch.Name, formatValue(ch.Old), tag, current)
			return
		}
	}
	a.checkAnnotations(1)
	for i := 0; i < u.Len(); i++ {
		ch := u.At(i)
		if ch.New != nil && !a.schema.PermitsAttribute(tag, ch.Name, *ch.New) {
			a.violation(InvalidSchema, "attribute %s=%q not permitted on <%s>", ch.Name, *ch.New, tag)
			return
		}
	}
}

func (a *automaton) AnnotationBoundary(b docop.AnnotationBoundary) {
	defer a.next()
	if a.stopped() {
		return
	}
	for _, c := range b.Changes {
		if strings.ContainsAny(c.Key, "?@") {
			a.violation(IllFormed, "annotation key %q contains ? or @", c.Key)
		}
	}
	out := a.ann[:0:0]
	for _, c := range a.ann {
		if containsKey(b.Ends, c.Key) || changesKey(b.Changes, c.Key) {
			continue
		}
		out = append(out, c)
	}
	out = append(out, b.Changes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	a.ann = out
}

func (a *automaton) finish() {
	if a.stopped() {
		return
	}
	switch {
	case len(a.inserts) > 0:
		a.violation(IllFormed, "<%s> left open", a.inserts[len(a.inserts)-1].tag)
	case a.deleteDepth > 0:
		a.violation(IllFormed, "deleted element left open")
	case len(a.ann) > 0:
		a.violation(IllFormed, "annotation %s left open", a.ann[0].Key)
	case a.pos != a.doc.Length():
		a.violation(InvalidDocument, "operation covers %d items, document has %d", a.pos, a.doc.Length())
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func changesKey(changes []docop.AnnotationChange, key string) bool {
	for _, c := range changes {
		if c.Key == key {
			return true
		}
	}
	return false
}

func formatValue(v *string) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%q", *v)
}
