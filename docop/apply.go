package docop

// Apply returns the document produced by op. d is left untouched. Errors
// match ErrInapplicableOperation and carry the position in d where op stopped
// matching.
func (d *Document) Apply(op DocOp) (*Document, error) {
	if n := op.InputLength(); n != d.Length() {
		return nil, inapplicable(-1, "operation expects length %d, document has %d", n, d.Length())
	}
	a := applier{src: d.items, out: make([]item, 0, op.OutputLength())}
	for _, c := range op.comps {
		if err := a.step(c); err != nil {
			return nil, err
		}
	}
	if a.pos != len(d.items) {
		return nil, inapplicable(a.pos, "operation ends before the document")
	}
	if !link(a.out) {
		return nil, inapplicable(-1, "result has unbalanced elements")
	}
	return &Document{items: a.out}, nil
}

type applier struct {
	src []item
	pos int
	ann annotationSet
	out []item
}

func (a *applier) next(what string) (item, error) {
	if a.pos >= len(a.src) {
		return item{}, inapplicable(a.pos, "%s past the end of the document", what)
	}
	return a.src[a.pos], nil
}

// keep copies the next item, applying the open annotation changes.
func (a *applier) keep(it item) error {
	ann := it.ann
	for _, c := range a.ann {
		if !equalValue(ann.value(c.Key), c.Old) {
			return inapplicable(a.pos, "annotation %s is %s, operation expects %s",
				c.Key, formatValue(ann.value(c.Key)), formatValue(c.Old))
		}
		var err error
		ann, err = ann.UpdateWith(Update(AttributeChange{Name: c.Key, Old: c.Old, New: c.New}))
		assert(err == nil, "annotation update after check")
	}
	it.ann = ann
	a.out = append(a.out, it)
	a.pos++
	return nil
}

func (a *applier) inserted(it item) {
	var entries []Attribute
	for _, c := range a.ann {
		if c.New != nil {
			entries = append(entries, Attribute{Name: c.Key, Value: *c.New})
		}
	}
	it.ann = Attributes{entries: entries}
	a.out = append(a.out, it)
}

func (a *applier) step(c Component) error {
	switch c := c.(type) {
	case AnnotationBoundary:
		a.ann = a.ann.apply(c)

	case Retain:
		for i := 0; i < c.N; i++ {
			it, err := a.next("retain")
			if err != nil {
				return err
			}
			if err := a.keep(it); err != nil {
				return err
			}
		}

	case Characters:
		for _, r := range c.Text {
			a.inserted(item{kind: charItem, r: r})
		}

	case ElementStart:
		a.inserted(item{kind: startItem, tag: c.Tag, attrs: c.Attrs})

	case ElementEnd:
		a.inserted(item{kind: endItem})

	case DeleteCharacters:
		for _, r := range c.Text {
			it, err := a.next("delete characters")
			if err != nil {
				return err
			}
			if it.kind != charItem || it.r != r {
				return inapplicable(a.pos, "deleting %q where the document has %s", r, describe(it))
			}
			a.pos++
		}

	case DeleteElementStart:
		it, err := a.next("delete element start")
		if err != nil {
			return err
		}
		if it.kind != startItem || it.tag != c.Tag || !it.attrs.Equal(c.Attrs) {
			return inapplicable(a.pos, "deleting <%s %s> where the document has %s", c.Tag, c.Attrs, describe(it))
		}
		a.pos++

	case DeleteElementEnd:
		it, err := a.next("delete element end")
		if err != nil {
			return err
		}
		if it.kind != endItem {
			return inapplicable(a.pos, "deleting an element end where the document has %s", describe(it))
		}
		a.pos++

	case ReplaceAttributes:
		it, err := a.next("replace attributes")
		if err != nil {
			return err
		}
		if it.kind != startItem || !it.attrs.Equal(c.Old) {
			return inapplicable(a.pos, "replacing attributes %s where the document has %s", c.Old, describe(it))
		}
		it.attrs = c.New
		return a.keep(it)

	case UpdateAttributes:
		it, err := a.next("update attributes")
		if err != nil {
			return err
		}
		if it.kind != startItem {
			return inapplicable(a.pos, "updating attributes of %s", describe(it))
		}
		attrs, err := it.attrs.UpdateWith(c.Update)
		if err != nil {
			return inapplicable(a.pos, "updating <%s>: %v", it.tag, err)
		}
		it.attrs = attrs
		return a.keep(it)

	default:
		panic("docop: unknown component")
	}
	return nil
}

func describe(it item) string {
	switch it.kind {
	case startItem:
		return "<" + it.tag + " " + it.attrs.String() + ">"
	case endItem:
		return "</" + it.tag + ">"
	}
	return "'" + string(it.r) + "'"
}
