package docop

// Builder accumulates components. Build checks and normalizes the result.
//
//	op, err := docop.NewBuilder().Retain(2).Characters("ab").Retain(5).Build()
type Builder struct {
	comps []Component
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Retain appends a retain; n <= 0 is ignored.
func (b *Builder) Retain(n int) *Builder {
	if n > 0 {
		b.comps = append(b.comps, Retain{N: n})
	}
	return b
}

// Characters appends an insertion; empty text is ignored.
func (b *Builder) Characters(s string) *Builder {
	if s != "" {
		b.comps = append(b.comps, Characters{Text: s})
	}
	return b
}

// DeleteCharacters appends a deletion; empty text is ignored.
func (b *Builder) DeleteCharacters(s string) *Builder {
	if s != "" {
		b.comps = append(b.comps, DeleteCharacters{Text: s})
	}
	return b
}

func (b *Builder) ElementStart(tag string, attrs Attributes) *Builder {
	b.comps = append(b.comps, ElementStart{Tag: tag, Attrs: attrs})
	return b
}

func (b *Builder) ElementEnd() *Builder {
	b.comps = append(b.comps, ElementEnd{})
	return b
}

func (b *Builder) DeleteElementStart(tag string, attrs Attributes) *Builder {
	b.comps = append(b.comps, DeleteElementStart{Tag: tag, Attrs: attrs})
	return b
}

func (b *Builder) DeleteElementEnd() *Builder {
	b.comps = append(b.comps, DeleteElementEnd{})
	return b
}

func (b *Builder) ReplaceAttributes(old, new Attributes) *Builder {
	b.comps = append(b.comps, ReplaceAttributes{Old: old, New: new})
	return b
}

func (b *Builder) UpdateAttributes(u AttributesUpdate) *Builder {
	b.comps = append(b.comps, UpdateAttributes{Update: u})
	return b
}

func (b *Builder) AnnotationBoundary(ab AnnotationBoundary) *Builder {
	b.comps = append(b.comps, ab)
	return b
}

// StartAnnotation opens (or changes) key from here on.
func (b *Builder) StartAnnotation(key string, old, new *string) *Builder {
	return b.AnnotationBoundary(AnnotationBoundary{Changes: []AnnotationChange{{Key: key, Old: old, New: new}}})
}

// EndAnnotation closes key.
func (b *Builder) EndAnnotation(key string) *Builder {
	return b.AnnotationBoundary(AnnotationBoundary{Ends: []string{key}})
}

// Build returns the normalized operation, or the first structural error.
func (b *Builder) Build() (DocOp, error) {
	op, err := New(b.comps...)
	if err != nil {
		return DocOp{}, err
	}
	return Normalize(op), nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() DocOp {
	op, err := b.Build()
	if err != nil {
		panic(err)
	}
	return op
}

// Normalize returns the canonical form of op: adjacent retains and character
// runs are merged, no-op attribute updates become retains, deletions precede
// insertions between two retained items, and annotation boundaries appear only
// where the annotation values given to the next item actually change.
// Replacements are kept even when old and new attributes match.
func Normalize(op DocOp) DocOp {
	var n normalizer
	var ann annotationSet
	for _, c := range op.comps {
		switch c := c.(type) {
		case AnnotationBoundary:
			ann = ann.apply(c)
		case Retain, ReplaceAttributes, UpdateAttributes:
			n.retained(c, ann.forRetain())
		case Characters, ElementStart, ElementEnd:
			n.insert(c, ann.forInsert())
		default:
			n.delete(c)
		}
	}
	return n.finish()
}

type pendingInsert struct {
	comp Component
	ann  annotationSet
}

// normalizer receives the items of an operation with the annotation values
// each one needs and emits them in canonical form.
type normalizer struct {
	out     []Component
	open    annotationSet
	deletes []Component
	inserts []pendingInsert
}

// retained emits a retain, replace or update with the annotation changes ann.
func (n *normalizer) retained(c Component, ann annotationSet) {
	n.flush()
	switch r := c.(type) {
	case Retain:
		if r.N == 0 {
			return
		}
	case UpdateAttributes:
		u := r.Update.withoutNoops()
		if u.Len() == 0 {
			c = Retain{N: 1}
		} else {
			c = UpdateAttributes{Update: u}
		}
	}
	ann = ann.forRetain()
	boundary := false
	if !n.open.equal(ann) {
		n.out = append(n.out, n.open.boundaryTo(ann))
		n.open = ann
		boundary = true
	}
	if r, ok := c.(Retain); ok && !boundary && len(n.out) > 0 {
		if last, ok := n.out[len(n.out)-1].(Retain); ok {
			n.out[len(n.out)-1] = Retain{N: last.N + r.N}
			return
		}
	}
	n.out = append(n.out, c)
}

// insert queues an insertion carrying the annotation values ann.
func (n *normalizer) insert(c Component, ann annotationSet) {
	if ch, ok := c.(Characters); ok {
		if ch.Text == "" {
			return
		}
		if k := len(n.inserts); k > 0 {
			if last, ok := n.inserts[k-1].comp.(Characters); ok && n.inserts[k-1].ann.equal(ann) {
				n.inserts[k-1].comp = Characters{Text: last.Text + ch.Text}
				return
			}
		}
	}
	n.inserts = append(n.inserts, pendingInsert{comp: c, ann: ann})
}

// delete queues a deletion. Deletions ignore annotations.
func (n *normalizer) delete(c Component) {
	if d, ok := c.(DeleteCharacters); ok {
		if d.Text == "" {
			return
		}
		if k := len(n.deletes); k > 0 {
			if last, ok := n.deletes[k-1].(DeleteCharacters); ok {
				n.deletes[k-1] = DeleteCharacters{Text: last.Text + d.Text}
				return
			}
		}
	}
	n.deletes = append(n.deletes, c)
}

func (n *normalizer) flush() {
	n.out = append(n.out, n.deletes...)
	n.deletes = n.deletes[:0]
	for _, p := range n.inserts {
		boundary := false
		if !n.open.forInsert().equal(p.ann) {
			n.out = append(n.out, n.open.boundaryTo(p.ann))
			n.open = p.ann
			boundary = true
		}
		if ch, ok := p.comp.(Characters); ok && !boundary && len(n.out) > 0 {
			if last, ok := n.out[len(n.out)-1].(Characters); ok {
				n.out[len(n.out)-1] = Characters{Text: last.Text + ch.Text}
				continue
			}
		}
		n.out = append(n.out, p.comp)
	}
	n.inserts = n.inserts[:0]
}

func (n *normalizer) finish() DocOp {
	n.flush()
	if len(n.open) > 0 {
		n.out = append(n.out, n.open.boundaryTo(nil))
		n.open = nil
	}
	return DocOp{comps: n.out}
}
