package docop

// opIter walks the components of an operation, splitting retains and
// character runs on demand. Annotation boundaries are consumed as they are
// reached and folded into ann.
type opIter struct {
	comps []Component
	i     int
	cur   Component
	ann   annotationSet
}

func newOpIter(op DocOp) *opIter {
	it := &opIter{comps: op.comps, i: -1}
	it.advance()
	return it
}

func (it *opIter) advance() {
	it.cur = nil
	for it.i++; it.i < len(it.comps); it.i++ {
		if b, ok := it.comps[it.i].(AnnotationBoundary); ok {
			it.ann = it.ann.apply(b)
			continue
		}
		it.cur = it.comps[it.i]
		return
	}
}

func (it *opIter) done() bool {
	return it.cur == nil
}

// size is the number of items left in the current component.
func (it *opIter) size() int {
	return itemCount(it.cur)
}

// take consumes n items of the current component and returns them.
func (it *opIter) take(n int) Component {
	c := it.cur
	total := itemCount(c)
	assert(n > 0 && n <= total, "take out of range")
	if n == total {
		it.advance()
		return c
	}
	switch c := c.(type) {
	case Retain:
		it.cur = Retain{N: c.N - n}
		return Retain{N: n}
	case Characters:
		head, tail := splitRunes(c.Text, n)
		it.cur = Characters{Text: tail}
		return Characters{Text: head}
	case DeleteCharacters:
		head, tail := splitRunes(c.Text, n)
		it.cur = DeleteCharacters{Text: tail}
		return DeleteCharacters{Text: head}
	}
	panic("docop: splitting an unsplittable component")
}

// takeAll consumes the current component.
func (it *opIter) takeAll() Component {
	return it.take(it.size())
}

func splitRunes(s string, n int) (string, string) {
	for i := range s {
		if n == 0 {
			return s[:i], s[i:]
		}
		n--
	}
	return s, ""
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
