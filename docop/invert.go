package docop

// Invert returns the operation that undoes op on the document op produced
// from doc. Deleted content comes back with the annotations it had in doc.
func Invert(op DocOp, doc *Document) (DocOp, error) {
	if _, err := doc.Apply(op); err != nil {
		return DocOp{}, err
	}
	var n normalizer
	var ann annotationSet
	pos := 0
	for _, c := range op.comps {
		switch c := c.(type) {
		case AnnotationBoundary:
			ann = ann.apply(c)
		case Retain:
			n.retained(c, ann.forRetain().inverted())
			pos += c.N
		case ReplaceAttributes:
			n.retained(ReplaceAttributes{Old: c.New, New: c.Old}, ann.forRetain().inverted())
			pos++
		case UpdateAttributes:
			n.retained(UpdateAttributes{Update: c.Update.Invert()}, ann.forRetain().inverted())
			pos++
		case Characters:
			n.delete(DeleteCharacters{Text: c.Text})
		case ElementStart:
			n.delete(DeleteElementStart{Tag: c.Tag, Attrs: c.Attrs})
		case ElementEnd:
			n.delete(DeleteElementEnd{})
		case DeleteCharacters:
			for _, r := range c.Text {
				n.insert(Characters{Text: string(r)}, annotationsFromMap(doc.items[pos].ann))
				pos++
			}
		case DeleteElementStart:
			n.insert(ElementStart{Tag: c.Tag, Attrs: c.Attrs}, annotationsFromMap(doc.items[pos].ann))
			pos++
		case DeleteElementEnd:
			n.insert(ElementEnd{}, annotationsFromMap(doc.items[pos].ann))
			pos++
		}
	}
	return n.finish(), nil
}
