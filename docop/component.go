package docop

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Component is one step of an operation. The set of components is closed:
// Retain, Characters, DeleteCharacters, ElementStart, ElementEnd,
// DeleteElementStart, DeleteElementEnd, ReplaceAttributes, UpdateAttributes
// and AnnotationBoundary.
type Component interface {
	isComponent()
}

// Retain keeps the next N items unchanged.
type Retain struct {
	N int
}

// Characters inserts Text.
type Characters struct {
	Text string
}

// DeleteCharacters removes Text, which must match the document.
type DeleteCharacters struct {
	Text string
}

// ElementStart inserts the start of an element.
type ElementStart struct {
	Tag   string
	Attrs Attributes
}

// ElementEnd inserts the end of the innermost inserted element.
type ElementEnd struct{}

// DeleteElementStart removes an element start, which must match the document.
type DeleteElementStart struct {
	Tag   string
	Attrs Attributes
}

// DeleteElementEnd removes the end of the innermost deleted element.
type DeleteElementEnd struct{}

// ReplaceAttributes swaps every attribute of the element start at the current position.
type ReplaceAttributes struct {
	Old Attributes
	New Attributes
}

// UpdateAttributes changes some attributes of the element start at the current position.
type UpdateAttributes struct {
	Update AttributesUpdate
}

func (Retain) isComponent()             {}
func (Characters) isComponent()         {}
func (DeleteCharacters) isComponent()   {}
func (ElementStart) isComponent()       {}
func (ElementEnd) isComponent()         {}
func (DeleteElementStart) isComponent() {}
func (DeleteElementEnd) isComponent()   {}
func (ReplaceAttributes) isComponent()  {}
func (UpdateAttributes) isComponent()   {}

// inputLength is the number of source items c consumes.
func inputLength(c Component) int {
	switch c := c.(type) {
	case Retain:
		return c.N
	case DeleteCharacters:
		return utf8.RuneCountInString(c.Text)
	case DeleteElementStart, DeleteElementEnd, ReplaceAttributes, UpdateAttributes:
		return 1
	case Characters, ElementStart, ElementEnd, AnnotationBoundary:
		return 0
	}
	panic(fmt.Sprintf("docop: unknown component %T", c))
}

// outputLength is the number of target items c produces.
func outputLength(c Component) int {
	switch c := c.(type) {
	case Retain:
		return c.N
	case Characters:
		return utf8.RuneCountInString(c.Text)
	case ElementStart, ElementEnd, ReplaceAttributes, UpdateAttributes:
		return 1
	case DeleteCharacters, DeleteElementStart, DeleteElementEnd, AnnotationBoundary:
		return 0
	}
	panic(fmt.Sprintf("docop: unknown component %T", c))
}

// itemCount is the number of document items c covers, on whichever side it acts.
func itemCount(c Component) int {
	switch c := c.(type) {
	case Retain:
		return c.N
	case Characters:
		return utf8.RuneCountInString(c.Text)
	case DeleteCharacters:
		return utf8.RuneCountInString(c.Text)
	case AnnotationBoundary:
		return 0
	}
	return 1
}

func isInsertion(c Component) bool {
	switch c.(type) {
	case Characters, ElementStart, ElementEnd:
		return true
	}
	return false
}

func isDeletion(c Component) bool {
	switch c.(type) {
	case DeleteCharacters, DeleteElementStart, DeleteElementEnd:
		return true
	}
	return false
}

func componentEqual(a, b Component) bool {
	switch a := a.(type) {
	case Retain, Characters, DeleteCharacters, ElementEnd, DeleteElementEnd:
		return a == b
	case ElementStart:
		b, ok := b.(ElementStart)
		return ok && a.Tag == b.Tag && a.Attrs.Equal(b.Attrs)
	case DeleteElementStart:
		b, ok := b.(DeleteElementStart)
		return ok && a.Tag == b.Tag && a.Attrs.Equal(b.Attrs)
	case ReplaceAttributes:
		b, ok := b.(ReplaceAttributes)
		return ok && a.Old.Equal(b.Old) && a.New.Equal(b.New)
	case UpdateAttributes:
		b, ok := b.(UpdateAttributes)
		return ok && a.Update.Equal(b.Update)
	case AnnotationBoundary:
		b, ok := b.(AnnotationBoundary)
		return ok && a.equal(b)
	}
	panic(fmt.Sprintf("docop: unknown component %T", a))
}

// formatComponent renders c in the concise debug notation.
func formatComponent(c Component) string {
	switch c := c.(type) {
	case Retain:
		return "__" + strconv.Itoa(c.N)
	case Characters:
		return "++" + strconv.Quote(c.Text)
	case DeleteCharacters:
		return "--" + strconv.Quote(c.Text)
	case ElementStart:
		return "<< " + c.Tag + " " + c.Attrs.String()
	case ElementEnd:
		return ">>"
	case DeleteElementStart:
		return "x<< " + c.Tag + " " + c.Attrs.String()
	case DeleteElementEnd:
		return "x>>"
	case ReplaceAttributes:
		return "r@ " + c.Old.String() + " -> " + c.New.String()
	case UpdateAttributes:
		return "u@ " + c.Update.String()
	case AnnotationBoundary:
		return "|| " + c.String()
	}
	panic(fmt.Sprintf("docop: unknown component %T", c))
}
