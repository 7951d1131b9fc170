package docop

// Cursor receives the components of an operation one by one, in order.
type Cursor interface {
	Retain(n int)
	Characters(text string)
	DeleteCharacters(text string)
	ElementStart(tag string, attrs Attributes)
	ElementEnd()
	DeleteElementStart(tag string, attrs Attributes)
	DeleteElementEnd()
	ReplaceAttributes(old, new Attributes)
	UpdateAttributes(u AttributesUpdate)
	AnnotationBoundary(b AnnotationBoundary)
}

// Walk feeds every component of op to c.
func (op DocOp) Walk(c Cursor) {
	for _, comp := range op.comps {
		switch comp := comp.(type) {
		case Retain:
			c.Retain(comp.N)
		case Characters:
			c.Characters(comp.Text)
		case DeleteCharacters:
			c.DeleteCharacters(comp.Text)
		case ElementStart:
			c.ElementStart(comp.Tag, comp.Attrs)
		case ElementEnd:
			c.ElementEnd()
		case DeleteElementStart:
			c.DeleteElementStart(comp.Tag, comp.Attrs)
		case DeleteElementEnd:
			c.DeleteElementEnd()
		case ReplaceAttributes:
			c.ReplaceAttributes(comp.Old, comp.New)
		case UpdateAttributes:
			c.UpdateAttributes(comp.Update)
		case AnnotationBoundary:
			c.AnnotationBoundary(comp.clone())
		}
	}
}
