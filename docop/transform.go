package docop

// Transform takes two operations against the same document and returns
// client' and server' such that applying server then client' gives the same
// document as applying client then server'.
//
// The server wins every tie: its insertions go first at a shared position, and
// its attribute and annotation changes override the client's on the same item.
// Content inserted by one side inside an element the other side deletes is
// deleted along with it.
func Transform(client, server DocOp) (DocOp, DocOp, error) {
	if client.InputLength() != server.InputLength() {
		return DocOp{}, DocOp{}, conflict("client expects length %d, server expects %d",
			client.InputLength(), server.InputLength())
	}
	t := transformer{
		c: side{it: newOpIter(client)},
		s: side{it: newOpIter(server)},
	}
	for {
		cIns := !t.c.it.done() && isInsertion(t.c.it.cur)
		sIns := !t.s.it.done() && isInsertion(t.s.it.cur)
		switch {
		case cIns && (!sIns || t.c.insertDepth > 0):
			t.insertion(&t.c, &t.s)
		case sIns:
			t.insertion(&t.s, &t.c)
		case t.c.it.done() && t.s.it.done():
			return t.c.out.finish(), t.s.out.finish(), nil
		case t.c.it.done() || t.s.it.done():
			return DocOp{}, DocOp{}, conflict("operation lengths do not line up")
		default:
			if err := t.pair(); err != nil {
				return DocOp{}, DocOp{}, err
			}
		}
	}
}

// side is one operation under transformation together with its transformed
// output, which applies to the document produced by the other side.
type side struct {
	it          *opIter
	out         normalizer
	insertDepth int
	deleteDepth int
}

type transformer struct {
	c, s side
}

// insertion moves one inserted item of ins across. If the other side is
// deleting the element around it, the item is deleted too.
func (t *transformer) insertion(ins, other *side) {
	ann := ins.it.ann.forInsert()
	comp := ins.it.takeAll()
	switch comp.(type) {
	case ElementStart:
		ins.insertDepth++
	case ElementEnd:
		ins.insertDepth--
	}
	if other.deleteDepth > 0 {
		other.out.delete(deletionOf(comp))
		return
	}
	ins.out.insert(comp, ann)
	other.out.retained(Retain{N: itemCount(comp)}, nil)
}

func deletionOf(c Component) Component {
	switch c := c.(type) {
	case Characters:
		return DeleteCharacters{Text: c.Text}
	case ElementStart:
		return DeleteElementStart{Tag: c.Tag, Attrs: c.Attrs}
	case ElementEnd:
		return DeleteElementEnd{}
	}
	panic("docop: not an insertion")
}

// annotations splits the annotation changes of an item both sides retain:
// the client keeps the keys the server leaves alone, the server's changes
// start from whatever value the client set.
func (t *transformer) annotations() (client, server annotationSet) {
	ca, sa := t.c.it.ann.forRetain(), t.s.it.ann.forRetain()
	for _, c := range ca {
		if !sa.has(c.Key) {
			client = append(client, c)
		}
	}
	for _, s := range sa {
		if c, ok := ca.get(s.Key); ok {
			s = AnnotationChange{Key: s.Key, Old: c.New, New: s.New}
		}
		server = append(server, s)
	}
	return client, server
}

// pair handles one base document item both sides consume.
func (t *transformer) pair() error {
	cc, sc := t.c.it.cur, t.s.it.cur
	switch {
	case isDeletion(cc) && isDeletion(sc):
		return t.bothDelete()
	case isDeletion(sc):
		return t.deleteAgainst(&t.s, &t.c)
	case isDeletion(cc):
		return t.deleteAgainst(&t.c, &t.s)
	}

	cAnn, sAnn := t.annotations()
	cr, cRetain := cc.(Retain)
	sr, sRetain := sc.(Retain)
	if cRetain && sRetain {
		n := minInt(cr.N, sr.N)
		t.c.it.take(n)
		t.s.it.take(n)
		t.c.out.retained(Retain{N: n}, cAnn)
		t.s.out.retained(Retain{N: n}, sAnn)
		return nil
	}

	var cOut, sOut Component
	switch {
	case sRetain:
		cOut, sOut = cc, Retain{N: 1}
	case cRetain:
		cOut, sOut = Retain{N: 1}, sc
	default:
		var err error
		if cOut, sOut, err = transformAttributes(cc, sc); err != nil {
			return err
		}
	}
	t.c.it.take(1)
	t.s.it.take(1)
	t.c.out.retained(cOut, cAnn)
	t.s.out.retained(sOut, sAnn)
	return nil
}

// bothDelete handles an item deleted by both sides: it is already gone for each.
func (t *transformer) bothDelete() error {
	switch c := t.c.it.cur.(type) {
	case DeleteCharacters:
		if _, ok := t.s.it.cur.(DeleteCharacters); !ok {
			return conflict("client deletes characters, server deletes %s", formatComponent(t.s.it.cur))
		}
		n := minInt(t.c.it.size(), t.s.it.size())
		cd := t.c.it.take(n).(DeleteCharacters)
		sd := t.s.it.take(n).(DeleteCharacters)
		if cd.Text != sd.Text {
			return conflict("client deletes %q, server deletes %q", cd.Text, sd.Text)
		}
	case DeleteElementStart:
		s, ok := t.s.it.cur.(DeleteElementStart)
		if !ok {
			return conflict("client deletes <%s>, server deletes %s", c.Tag, formatComponent(t.s.it.cur))
		}
		if c.Tag != s.Tag || !c.Attrs.Equal(s.Attrs) {
			return conflict("client deletes <%s %s>, server deletes <%s %s>", c.Tag, c.Attrs, s.Tag, s.Attrs)
		}
		t.c.it.take(1)
		t.s.it.take(1)
		t.c.deleteDepth++
		t.s.deleteDepth++
	case DeleteElementEnd:
		if _, ok := t.s.it.cur.(DeleteElementEnd); !ok {
			return conflict("client deletes an element end, server deletes %s", formatComponent(t.s.it.cur))
		}
		t.c.it.take(1)
		t.s.it.take(1)
		t.c.deleteDepth--
		t.s.deleteDepth--
	}
	return nil
}

// deleteAgainst handles an item del deletes and other retains or modifies.
// The deletion carries over to del's output with the item as other left it.
func (t *transformer) deleteAgainst(del, other *side) error {
	switch d := del.it.cur.(type) {
	case DeleteCharacters:
		if _, ok := other.it.cur.(Retain); !ok {
			return conflict("deleting characters under %s", formatComponent(other.it.cur))
		}
		n := minInt(del.it.size(), other.it.size())
		other.it.take(n)
		del.out.delete(del.it.take(n))
	case DeleteElementStart:
		attrs := d.Attrs
		switch o := other.it.cur.(type) {
		case Retain:
		case ReplaceAttributes:
			if !o.Old.Equal(d.Attrs) {
				return conflict("deleting <%s %s> whose attributes are replaced from %s", d.Tag, d.Attrs, o.Old)
			}
			attrs = o.New
		case UpdateAttributes:
			var err error
			if attrs, err = d.Attrs.UpdateWith(o.Update); err != nil {
				return conflict("deleting <%s %s> under update %s: %v", d.Tag, d.Attrs, o.Update, err)
			}
		default:
			return conflict("deleting <%s> under %s", d.Tag, formatComponent(other.it.cur))
		}
		other.it.take(1)
		del.it.take(1)
		del.out.delete(DeleteElementStart{Tag: d.Tag, Attrs: attrs})
		del.deleteDepth++
	case DeleteElementEnd:
		if _, ok := other.it.cur.(Retain); !ok {
			return conflict("deleting an element end under %s", formatComponent(other.it.cur))
		}
		other.it.take(1)
		del.it.take(1)
		del.out.delete(DeleteElementEnd{})
		del.deleteDepth--
	}
	return nil
}

// transformAttributes resolves two attribute changes of the same element in
// favor of the server.
func transformAttributes(cc, sc Component) (Component, Component, error) {
	switch c := cc.(type) {
	case ReplaceAttributes:
		switch s := sc.(type) {
		case ReplaceAttributes:
			if !c.Old.Equal(s.Old) {
				return nil, nil, conflict("replacements start from %s and %s", c.Old, s.Old)
			}
			return Retain{N: 1}, ReplaceAttributes{Old: c.New, New: s.New}, nil
		case UpdateAttributes:
			base, err := c.Old.UpdateWith(s.Update)
			if err != nil {
				return nil, nil, conflict("server update %s against %s: %v", s.Update, c.Old, err)
			}
			u := rebaseUpdate(s.Update, c.New)
			final, err := c.New.UpdateWith(u)
			assert(err == nil, "rebased update must apply")
			return ReplaceAttributes{Old: base, New: final}, UpdateAttributes{Update: u}, nil
		}
	case UpdateAttributes:
		switch s := sc.(type) {
		case ReplaceAttributes:
			base, err := s.Old.UpdateWith(c.Update)
			if err != nil {
				return nil, nil, conflict("client update %s against %s: %v", c.Update, s.Old, err)
			}
			return Retain{N: 1}, ReplaceAttributes{Old: base, New: s.New}, nil
		case UpdateAttributes:
			var client, server []AttributeChange
			for i := 0; i < c.Update.Len(); i++ {
				ch := c.Update.At(i)
				if _, ok := s.Update.Get(ch.Name); !ok {
					client = append(client, ch)
				}
			}
			for i := 0; i < s.Update.Len(); i++ {
				ch := s.Update.At(i)
				if other, ok := c.Update.Get(ch.Name); ok {
					if !equalValue(other.Old, ch.Old) {
						return nil, nil, conflict("updates of %q start from %s and %s", ch.Name, formatValue(other.Old), formatValue(ch.Old))
					}
					ch = AttributeChange{Name: ch.Name, Old: other.New, New: ch.New}
				}
				server = append(server, ch)
			}
			return UpdateAttributes{Update: AttributesUpdate{changes: client}},
				UpdateAttributes{Update: AttributesUpdate{changes: server}}, nil
		}
	}
	return nil, nil, conflict("cannot pair %s with %s", formatComponent(cc), formatComponent(sc))
}

// rebaseUpdate rewrites the old values of u to the values found in attrs.
func rebaseUpdate(u AttributesUpdate, attrs Attributes) AttributesUpdate {
	out := make([]AttributeChange, u.Len())
	for i := 0; i < u.Len(); i++ {
		ch := u.At(i)
		out[i] = AttributeChange{Name: ch.Name, Old: attrs.value(ch.Name), New: ch.New}
	}
	return AttributesUpdate{changes: out}
}
