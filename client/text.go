package main

import (
	"errors"
	"unicode/utf8"

	"github.com/burntcarrot/wavepad/docop"
)

// The client edits conversation bodies: <body><line></line>text<line></line>text</body>.
// Each line element after the first shows as a '\n' in the editor's text,
// and a cursor is an index into that text.

const (
	bodyTag = "body"
	lineTag = "line"
)

var errNoBody = errors.New("document has no body")

// visible reports whether the item at pos shows in the editor, and as what.
// first tracks whether the body's first line has been passed.
func visible(doc *docop.Document, pos int, first *bool) (rune, bool) {
	if tag, ok := doc.NthEnclosingElementTag(pos, 0); !ok || tag != bodyTag {
		return 0, false
	}
	if r, ok := doc.CharAt(pos); ok {
		return r, true
	}
	if tag, ok := doc.ElementStartingAt(pos); ok && tag == lineTag {
		if !*first {
			*first = true
			return 0, false
		}
		return '\n', true
	}
	return 0, false
}

// flatten returns the editor text of doc.
func flatten(doc *docop.Document) string {
	var text []rune
	first := false
	for pos := 0; pos < doc.Length(); pos++ {
		if r, ok := visible(doc, pos, &first); ok {
			text = append(text, r)
		}
	}
	return string(text)
}

// docPos returns the document position of the cursor: the position of the
// item shown at cursor, or the end of the body past the last one.
func docPos(doc *docop.Document, cursor int) (int, error) {
	k := 0
	first := false
	for pos := 0; pos < doc.Length(); pos++ {
		if tag, ok := doc.ElementEndingAt(pos); ok && tag == bodyTag {
			return pos, nil
		}
		if _, ok := visible(doc, pos, &first); ok {
			if k == cursor {
				return pos, nil
			}
			k++
		}
	}
	return 0, errNoBody
}

// cursorAt is the inverse of docPos: the number of shown items before pos.
func cursorAt(doc *docop.Document, pos int) int {
	k := 0
	first := false
	for p := 0; p < pos && p < doc.Length(); p++ {
		if _, ok := visible(doc, p, &first); ok {
			k++
		}
	}
	return k
}

// insertText returns the operation typing s at cursor.
func insertText(doc *docop.Document, cursor int, s string) (docop.DocOp, error) {
	pos, err := docPos(doc, cursor)
	if err != nil {
		return docop.DocOp{}, err
	}
	return docop.NewBuilder().
		Retain(pos).
		Characters(s).
		Retain(doc.Length() - pos).
		Build()
}

// insertLine returns the operation breaking the line at cursor.
func insertLine(doc *docop.Document, cursor int) (docop.DocOp, error) {
	pos, err := docPos(doc, cursor)
	if err != nil {
		return docop.DocOp{}, err
	}
	return docop.NewBuilder().
		Retain(pos).
		ElementStart(lineTag, docop.Attrs()).
		ElementEnd().
		Retain(doc.Length() - pos).
		Build()
}

// deleteAt returns the operation removing what the editor shows at cursor:
// a character, or the line element behind a '\n'. It returns false when
// there is nothing to delete.
func deleteAt(doc *docop.Document, cursor int) (docop.DocOp, bool, error) {
	if cursor < 0 || cursor >= utf8.RuneCountInString(flatten(doc)) {
		return docop.DocOp{}, false, nil
	}
	pos, err := docPos(doc, cursor)
	if err != nil {
		return docop.DocOp{}, false, err
	}

	b := docop.NewBuilder().Retain(pos)
	n := 1
	if r, ok := doc.CharAt(pos); ok {
		b.DeleteCharacters(string(r))
	} else {
		attrs, _ := doc.AttributesAt(pos)
		b.DeleteElementStart(lineTag, attrs).DeleteElementEnd()
		n = 2
	}
	op, err := b.Retain(doc.Length() - pos - n).Build()
	return op, err == nil, err
}

// transformPos maps a position in the document op applies to onto the
// document it produces. Text inserted at the position pushes it forward and
// a deleted position collapses onto the deletion point.
func transformPos(op docop.DocOp, pos int) int {
	in, out := 0, 0
	for _, c := range op.Components() {
		switch c := c.(type) {
		case docop.Retain:
			if pos < in+c.N {
				return out + pos - in
			}
			in += c.N
			out += c.N
		case docop.Characters:
			out += utf8.RuneCountInString(c.Text)
		case docop.ElementStart, docop.ElementEnd:
			out++
		case docop.DeleteCharacters:
			n := utf8.RuneCountInString(c.Text)
			if pos < in+n {
				return out
			}
			in += n
		case docop.DeleteElementStart, docop.DeleteElementEnd:
			if pos == in {
				return out
			}
			in++
		case docop.ReplaceAttributes, docop.UpdateAttributes:
			if pos == in {
				return out
			}
			in++
			out++
		}
	}
	return out + pos - in
}
