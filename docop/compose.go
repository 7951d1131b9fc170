package docop

// Compose returns a single operation with the effect of op1 followed by op2.
// op2 must apply to the documents op1 produces. Content inserted by op1 and
// deleted by op2 cancels out.
func Compose(op1, op2 DocOp) (DocOp, error) {
	if op1.OutputLength() != op2.InputLength() {
		return DocOp{}, inapplicable(-1, "first operation produces length %d, second expects %d",
			op1.OutputLength(), op2.InputLength())
	}
	c := composer{a: newOpIter(op1), b: newOpIter(op2)}
	for {
		switch {
		case !c.a.done() && isDeletion(c.a.cur):
			c.n.delete(c.a.takeAll())
		case !c.b.done() && isInsertion(c.b.cur):
			ann := c.b.ann.forInsert()
			c.n.insert(c.b.takeAll(), ann)
		case c.a.done() && c.b.done():
			return c.n.finish(), nil
		case c.a.done() || c.b.done():
			return DocOp{}, inapplicable(c.pos, "operation lengths do not line up")
		default:
			if err := c.pair(); err != nil {
				return DocOp{}, err
			}
		}
	}
}

// ComposeAll composes a chain of sequential operations.
func ComposeAll(ops ...DocOp) (DocOp, error) {
	if len(ops) == 0 {
		return DocOp{}, nil
	}
	out := ops[0]
	for _, op := range ops[1:] {
		var err error
		if out, err = Compose(out, op); err != nil {
			return DocOp{}, err
		}
	}
	return out, nil
}

type composer struct {
	a, b *opIter
	n    normalizer
	pos  int // position in the intermediate document
}

// pair handles an item produced by op1 and consumed by op2.
func (c *composer) pair() error {
	switch a := c.a.cur.(type) {
	case Retain:
		return c.retained()
	case Characters:
		return c.characters()
	case ElementStart:
		return c.elementStart(a)
	case ElementEnd:
		return c.elementEnd()
	case ReplaceAttributes:
		return c.replace(a)
	case UpdateAttributes:
		return c.update(a)
	}
	panic("docop: unexpected component in compose")
}

func (c *composer) unexpected() error {
	return inapplicable(c.pos, "%s cannot follow %s", formatComponent(c.b.cur), formatComponent(c.a.cur))
}

func (c *composer) retainedAnnotations() (annotationSet, error) {
	a, b := c.a.ann.forRetain(), c.b.ann.forRetain()
	out := make(annotationSet, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j == len(b) || (i < len(a) && a[i].Key < b[j].Key):
			out = append(out, a[i])
			i++
		case i == len(a) || b[j].Key < a[i].Key:
			out = append(out, b[j])
			j++
		default:
			if !equalValue(b[j].Old, a[i].New) {
				return nil, inapplicable(c.pos, "annotation %s set to %s, then expected to be %s",
					a[i].Key, formatValue(a[i].New), formatValue(b[j].Old))
			}
			out = append(out, AnnotationChange{Key: a[i].Key, Old: a[i].Old, New: b[j].New})
			i++
			j++
		}
	}
	return out.forRetain(), nil
}

func (c *composer) insertedAnnotations() (annotationSet, error) {
	values := c.a.ann.forInsert()
	for _, ch := range c.b.ann.forRetain() {
		var current *string
		if v, ok := values.get(ch.Key); ok {
			current = v.New
		}
		if !equalValue(current, ch.Old) {
			return nil, inapplicable(c.pos, "annotation %s inserted as %s, then expected to be %s",
				ch.Key, formatValue(current), formatValue(ch.Old))
		}
		values = values.apply(AnnotationBoundary{Changes: []AnnotationChange{{Key: ch.Key, New: ch.New}}})
	}
	return values.forInsert(), nil
}

func (c *composer) retained() error {
	switch b := c.b.cur.(type) {
	case Retain:
		ann, err := c.retainedAnnotations()
		if err != nil {
			return err
		}
		n := minInt(c.a.size(), b.N)
		c.a.take(n)
		c.b.take(n)
		c.n.retained(Retain{N: n}, ann)
		c.pos += n
	case DeleteCharacters:
		n := minInt(c.a.size(), c.b.size())
		c.a.take(n)
		c.n.delete(c.b.take(n))
		c.pos += n
	case DeleteElementStart, DeleteElementEnd:
		c.a.take(1)
		c.n.delete(c.b.takeAll())
		c.pos++
	case ReplaceAttributes, UpdateAttributes:
		ann, err := c.retainedAnnotations()
		if err != nil {
			return err
		}
		c.a.take(1)
		c.n.retained(c.b.takeAll(), ann)
		c.pos++
	default:
		return c.unexpected()
	}
	return nil
}

func (c *composer) characters() error {
	switch b := c.b.cur.(type) {
	case Retain:
		ann, err := c.insertedAnnotations()
		if err != nil {
			return err
		}
		n := minInt(c.a.size(), b.N)
		c.n.insert(c.a.take(n), ann)
		c.b.take(n)
		c.pos += n
	case DeleteCharacters:
		n := minInt(c.a.size(), c.b.size())
		ins := c.a.take(n).(Characters)
		del := c.b.take(n).(DeleteCharacters)
		if ins.Text != del.Text {
			return inapplicable(c.pos, "deleting %q where %q was inserted", del.Text, ins.Text)
		}
		c.pos += n
	default:
		return c.unexpected()
	}
	return nil
}

func (c *composer) elementStart(a ElementStart) error {
	var out ElementStart
	switch b := c.b.cur.(type) {
	case Retain:
		out = a
	case DeleteElementStart:
		if a.Tag != b.Tag || !a.Attrs.Equal(b.Attrs) {
			return inapplicable(c.pos, "deleting <%s %s> where <%s %s> was inserted", b.Tag, b.Attrs, a.Tag, a.Attrs)
		}
		c.a.take(1)
		c.b.take(1)
		c.pos++
		return nil
	case ReplaceAttributes:
		if !b.Old.Equal(a.Attrs) {
			return inapplicable(c.pos, "replacing %s where %s was inserted", b.Old, a.Attrs)
		}
		out = ElementStart{Tag: a.Tag, Attrs: b.New}
	case UpdateAttributes:
		attrs, err := a.Attrs.UpdateWith(b.Update)
		if err != nil {
			return inapplicable(c.pos, "updating inserted <%s>: %v", a.Tag, err)
		}
		out = ElementStart{Tag: a.Tag, Attrs: attrs}
	default:
		return c.unexpected()
	}
	ann, err := c.insertedAnnotations()
	if err != nil {
		return err
	}
	c.a.take(1)
	c.b.take(1)
	c.n.insert(out, ann)
	c.pos++
	return nil
}

func (c *composer) elementEnd() error {
	switch c.b.cur.(type) {
	case Retain:
		ann, err := c.insertedAnnotations()
		if err != nil {
			return err
		}
		c.n.insert(c.a.take(1), ann)
		c.b.take(1)
	case DeleteElementEnd:
		c.a.take(1)
		c.b.take(1)
	default:
		return c.unexpected()
	}
	c.pos++
	return nil
}

func (c *composer) replace(a ReplaceAttributes) error {
	var out Component
	switch b := c.b.cur.(type) {
	case Retain:
		out = a
	case DeleteElementStart:
		if !b.Attrs.Equal(a.New) {
			return inapplicable(c.pos, "deleting <%s %s> where attributes were replaced by %s", b.Tag, b.Attrs, a.New)
		}
		c.a.take(1)
		c.n.delete(DeleteElementStart{Tag: b.Tag, Attrs: a.Old})
		c.b.take(1)
		c.pos++
		return nil
	case ReplaceAttributes:
		if !b.Old.Equal(a.New) {
			return inapplicable(c.pos, "replacing %s where attributes were replaced by %s", b.Old, a.New)
		}
		out = ReplaceAttributes{Old: a.Old, New: b.New}
	case UpdateAttributes:
		attrs, err := a.New.UpdateWith(b.Update)
		if err != nil {
			return inapplicable(c.pos, "updating replaced attributes: %v", err)
		}
		out = ReplaceAttributes{Old: a.Old, New: attrs}
	default:
		return c.unexpected()
	}
	ann, err := c.retainedAnnotations()
	if err != nil {
		return err
	}
	c.a.take(1)
	c.b.take(1)
	c.n.retained(out, ann)
	c.pos++
	return nil
}

func (c *composer) update(a UpdateAttributes) error {
	var out Component
	switch b := c.b.cur.(type) {
	case Retain:
		out = a
	case DeleteElementStart:
		attrs, err := b.Attrs.UpdateWith(a.Update.Invert())
		if err != nil {
			return inapplicable(c.pos, "deleting <%s %s> after update %s: %v", b.Tag, b.Attrs, a.Update, err)
		}
		c.a.take(1)
		c.n.delete(DeleteElementStart{Tag: b.Tag, Attrs: attrs})
		c.b.take(1)
		c.pos++
		return nil
	case ReplaceAttributes:
		attrs, err := b.Old.UpdateWith(a.Update.Invert())
		if err != nil {
			return inapplicable(c.pos, "replacing %s after update %s: %v", b.Old, a.Update, err)
		}
		out = ReplaceAttributes{Old: attrs, New: b.New}
	case UpdateAttributes:
		u, err := a.Update.ComposeWith(b.Update)
		if err != nil {
			return inapplicable(c.pos, "%v", err)
		}
		out = UpdateAttributes{Update: u}
	default:
		return c.unexpected()
	}
	ann, err := c.retainedAnnotations()
	if err != nil {
		return err
	}
	c.a.take(1)
	c.b.take(1)
	c.n.retained(out, ann)
	c.pos++
	return nil
}
