package main

import (
	"testing"

	"github.com/burntcarrot/wavepad/docop"
	"github.com/google/go-cmp/cmp"
)

const twoLines = "<body><line></line>ab<line></line>c</body>"

func mustParse(t *testing.T, s string) *docop.Document {
	t.Helper()
	doc, err := docop.ParseXML(s)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		description string
		xml         string
		expected    string
	}{
		{description: "empty line", xml: "<body><line></line></body>", expected: ""},
		{description: "one line", xml: "<body><line></line>hi</body>", expected: "hi"},
		{description: "two lines", xml: twoLines, expected: "ab\nc"},
		{description: "empty lines", xml: "<body><line></line><line></line><line></line></body>", expected: "\n\n"},
		{description: "caption text is hidden",
			xml:      `<body><line></line>a<image attachment="x"><caption>cap</caption></image>b</body>`,
			expected: "ab"},
	}

	for _, tc := range tests {
		got := flatten(mustParse(t, tc.xml))
		if !cmp.Equal(got, tc.expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.description, cmp.Diff(got, tc.expected))
		}
	}
}

func TestDocPos(t *testing.T) {
	doc := mustParse(t, twoLines)

	var got []int
	for cursor := 0; cursor <= 4; cursor++ {
		pos, err := docPos(doc, cursor)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, pos)
		if back := cursorAt(doc, pos); back != cursor {
			t.Errorf("(cursor %d) cursorAt(%d) = %d", cursor, pos, back)
		}
	}

	expected := []int{3, 4, 5, 7, 8}
	if !cmp.Equal(got, expected) {
		t.Errorf("got != expected, diff: %v\n", cmp.Diff(got, expected))
	}

	if _, err := docPos(docop.NewDocument(), 0); err == nil {
		t.Error("expected an error for a document without a body")
	}
}

func TestEditOperations(t *testing.T) {
	doc := mustParse(t, twoLines)

	tests := []struct {
		description string
		build       func() (docop.DocOp, error)
		expectedOp  string
		expectedDoc string
	}{
		{description: "insert text",
			build:       func() (docop.DocOp, error) { return insertText(doc, 2, "x") },
			expectedOp:  `__5; ++"x"; __4;`,
			expectedDoc: "abx\nc"},
		{description: "insert at the end",
			build:       func() (docop.DocOp, error) { return insertText(doc, 4, "!") },
			expectedOp:  `__8; ++"!"; __1;`,
			expectedDoc: "ab\nc!"},
		{description: "break line",
			build:       func() (docop.DocOp, error) { return insertLine(doc, 1) },
			expectedOp:  `__4; << line {}; >>; __5;`,
			expectedDoc: "a\nb\nc"},
		{description: "delete character",
			build: func() (docop.DocOp, error) {
				op, _, err := deleteAt(doc, 0)
				return op, err
			},
			expectedOp:  `__3; --"a"; __5;`,
			expectedDoc: "b\nc"},
		{description: "join lines",
			build: func() (docop.DocOp, error) {
				op, _, err := deleteAt(doc, 2)
				return op, err
			},
			expectedOp:  `__5; x<< line {}; x>>; __2;`,
			expectedDoc: "abc"},
	}

	for _, tc := range tests {
		op, err := tc.build()
		if err != nil {
			t.Fatalf("(%s) %v", tc.description, err)
		}
		if !cmp.Equal(op.String(), tc.expectedOp) {
			t.Errorf("(%s) op: got != expected, diff: %v\n", tc.description, cmp.Diff(op.String(), tc.expectedOp))
		}

		result, err := doc.Apply(op)
		if err != nil {
			t.Fatalf("(%s) apply: %v", tc.description, err)
		}
		if got := flatten(result); !cmp.Equal(got, tc.expectedDoc) {
			t.Errorf("(%s) text: got != expected, diff: %v\n", tc.description, cmp.Diff(got, tc.expectedDoc))
		}
	}
}

func TestDeleteAtEnd(t *testing.T) {
	doc := mustParse(t, twoLines)
	for _, cursor := range []int{-1, 4} {
		if _, ok, err := deleteAt(doc, cursor); ok || err != nil {
			t.Errorf("(cursor %d) got ok=%v err=%v, want nothing to delete", cursor, ok, err)
		}
	}
}

func TestTransformPos(t *testing.T) {
	insert := docop.NewBuilder().Retain(3).Characters("xy").Retain(6).MustBuild()
	del := docop.NewBuilder().Retain(3).DeleteCharacters("a").Retain(5).MustBuild()
	join := docop.NewBuilder().Retain(5).DeleteElementStart(lineTag, docop.Attrs()).DeleteElementEnd().Retain(2).MustBuild()

	tests := []struct {
		description string
		op          docop.DocOp
		pos         int
		expected    int
	}{
		{description: "before an insertion", op: insert, pos: 2, expected: 2},
		{description: "at an insertion", op: insert, pos: 3, expected: 5},
		{description: "after an insertion", op: insert, pos: 7, expected: 9},
		{description: "after a deletion", op: del, pos: 4, expected: 3},
		{description: "on a deletion", op: del, pos: 3, expected: 3},
		{description: "on a deleted element", op: join, pos: 6, expected: 5},
		{description: "after a deleted element", op: join, pos: 7, expected: 5},
		{description: "end of document", op: join, pos: 9, expected: 7},
	}

	for _, tc := range tests {
		got := transformPos(tc.op, tc.pos)
		if !cmp.Equal(got, tc.expected) {
			t.Errorf("(%s) got != expected, diff: %v\n", tc.description, cmp.Diff(got, tc.expected))
		}
	}
}
