package docop

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseXML(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func mustApply(t *testing.T, d *Document, op DocOp) *Document {
	t.Helper()
	out, err := d.Apply(op)
	if err != nil {
		t.Fatalf("apply %s to %s: %v", op, d.XML(), err)
	}
	return out
}

func TestDocumentQueries(t *testing.T) {
	d := mustParse(t, "<doc>hello</doc>")

	if got := d.Length(); got != 7 {
		t.Fatalf("got length %d, want 7\n", got)
	}
	if tag, ok := d.ElementStartingAt(0); !ok || tag != "doc" {
		t.Errorf("got (%q, %v) starting at 0\n", tag, ok)
	}
	if tag, ok := d.ElementEndingAt(6); !ok || tag != "doc" {
		t.Errorf("got (%q, %v) ending at 6\n", tag, ok)
	}
	if r, ok := d.CharAt(1); !ok || r != 'h' {
		t.Errorf("got (%q, %v) at 1\n", r, ok)
	}
	if _, ok := d.CharAt(0); ok {
		t.Errorf("element start reported as a character\n")
	}
	if got := d.RemainingCharactersInElement(3); got != 3 {
		t.Errorf("got %d remaining characters at 3, want 3\n", got)
	}
	if got := d.Text(); got != "hello" {
		t.Errorf("got text %q\n", got)
	}
}

func TestNthEnclosingElementTag(t *testing.T) {
	d := mustParse(t, `<body><line t="h1"></line>ab</body>`)

	tests := []struct {
		description string
		pos         int
		depth       int
		want        string
		wantOK      bool
	}{
		{description: "before the root", pos: 0, depth: 0, wantOK: false},
		{description: "inside body", pos: 1, depth: 0, want: "body", wantOK: true},
		{description: "inside line", pos: 2, depth: 0, want: "line", wantOK: true},
		{description: "line's parent", pos: 2, depth: 1, want: "body", wantOK: true},
		{description: "text in body", pos: 3, depth: 0, want: "body", wantOK: true},
		{description: "too deep", pos: 3, depth: 1, wantOK: false},
		{description: "end of document", pos: 6, depth: 0, wantOK: false},
	}

	for _, tc := range tests {
		got, ok := d.NthEnclosingElementTag(tc.pos, tc.depth)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("(%s) got (%q, %v), want (%q, %v)\n", tc.description, got, ok, tc.want, tc.wantOK)
		}
	}

	attrs, ok := d.AttributesAt(1)
	if !ok || attrs.String() != `{t="h1"}` {
		t.Errorf("got attributes %s at 1\n", attrs)
	}
}

func TestXMLRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"<doc>hello</doc>",
		`<body><line t="h1"></line>a &amp; b</body>`,
		`<doc><?a "style"="bold"?>he<?a "style"?>llo</doc>`,
		`<p>x<?a "a"="1" "b"="2"?>y<?a "a"?>z<?a "b"?></p>`,
	}

	for _, tc := range tests {
		got := mustParse(t, tc).XML()
		if !cmp.Equal(got, tc) {
			t.Errorf("round trip changed the document, diff: %v\n", cmp.Diff(got, tc))
		}
	}
}

func TestAnnotationQueries(t *testing.T) {
	d := mustParse(t, `<doc><?a "style"="bold"?>he<?a "style"?>llo</doc>`)

	if v, ok := d.Annotation(1, "style"); !ok || v != "bold" {
		t.Errorf("got (%q, %v) at 1\n", v, ok)
	}
	if _, ok := d.Annotation(3, "style"); ok {
		t.Errorf("style should end at 3\n")
	}

	tests := []struct {
		start, end int
		from       *string
		want       int
	}{
		{start: 0, end: 7, from: nil, want: 1},
		{start: 1, end: 7, from: Val("bold"), want: 3},
		{start: 3, end: 7, from: nil, want: -1},
		{start: 1, end: 3, from: Val("bold"), want: -1},
	}
	for _, tc := range tests {
		if got := d.FirstAnnotationChange(tc.start, tc.end, "style", tc.from); got != tc.want {
			t.Errorf("FirstAnnotationChange(%d, %d, %s) = %d, want %d\n", tc.start, tc.end, formatValue(tc.from), got, tc.want)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		description string
		doc         string
		op          DocOp
		want        string
	}{
		{
			description: "insert characters",
			doc:         "<doc>hello</doc>",
			op:          NewBuilder().Retain(2).Characters("X").Retain(5).MustBuild(),
			want:        "<doc>hXello</doc>",
		},
		{
			description: "delete characters",
			doc:         "<doc>hello</doc>",
			op:          NewBuilder().Retain(1).DeleteCharacters("hel").Retain(3).MustBuild(),
			want:        "<doc>lo</doc>",
		},
		{
			description: "insert element",
			doc:         "<body>ab</body>",
			op:          NewBuilder().Retain(2).ElementStart("line", Attrs("t", "li")).ElementEnd().Retain(2).MustBuild(),
			want:        `<body>a<line t="li"></line>b</body>`,
		},
		{
			description: "delete element",
			doc:         "<body><p>ab</p>c</body>",
			op: NewBuilder().Retain(1).DeleteElementStart("p", Attributes{}).DeleteCharacters("ab").
				DeleteElementEnd().Retain(2).MustBuild(),
			want: "<body>c</body>",
		},
		{
			description: "update attributes",
			doc:         `<doc a="1">x</doc>`,
			op: NewBuilder().UpdateAttributes(Update(
				AttributeChange{Name: "a", Old: Val("1"), New: Val("2")},
				AttributeChange{Name: "b", New: Val("3")},
			)).Retain(2).MustBuild(),
			want: `<doc a="2" b="3">x</doc>`,
		},
		{
			description: "replace attributes",
			doc:         `<doc a="1">x</doc>`,
			op:          NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("c", "4")).Retain(2).MustBuild(),
			want:        `<doc c="4">x</doc>`,
		},
		{
			description: "annotate",
			doc:         "<doc>hello</doc>",
			op: NewBuilder().Retain(1).StartAnnotation("style", nil, Val("bold")).Retain(2).
				EndAnnotation("style").Retain(4).MustBuild(),
			want: `<doc><?a "style"="bold"?>he<?a "style"?>llo</doc>`,
		},
		{
			description: "inserted text takes only the operation's annotations",
			doc:         `<doc><?a "style"="bold"?>he<?a "style"?>llo</doc>`,
			op:          NewBuilder().Retain(2).Characters("X").Retain(5).MustBuild(),
			want:        `<doc><?a "style"="bold"?>h<?a "style"?>X<?a "style"="bold"?>e<?a "style"?>llo</doc>`,
		},
	}

	for _, tc := range tests {
		d := mustParse(t, tc.doc)
		got := mustApply(t, d, tc.op).XML()
		if !cmp.Equal(got, tc.want) {
			t.Errorf("(%s) got != want, diff: %v\n", tc.description, cmp.Diff(got, tc.want))
		}
		if d.XML() != tc.doc {
			t.Errorf("(%s) apply modified its input\n", tc.description)
		}
	}
}

func TestApplyInapplicable(t *testing.T) {
	d := mustParse(t, `<doc a="1">hello</doc>`)

	tests := []struct {
		description string
		op          DocOp
		wantPos     int
	}{
		{description: "too short", op: Identity(3), wantPos: -1},
		{description: "too long", op: Identity(9), wantPos: -1},
		{
			description: "deleting the wrong text",
			op:          NewBuilder().Retain(1).DeleteCharacters("x").Retain(5).MustBuild(),
			wantPos:     1,
		},
		{
			description: "deleting text as an element",
			op: NewBuilder().Retain(1).DeleteElementStart("h", Attributes{}).DeleteElementEnd().
				Retain(4).MustBuild(),
			wantPos: 1,
		},
		{
			description: "replacing with the wrong old attributes",
			op:          NewBuilder().ReplaceAttributes(Attrs("a", "2"), Attributes{}).Retain(6).MustBuild(),
			wantPos:     0,
		},
		{
			description: "updating from the wrong value",
			op:          NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", New: Val("2")})).Retain(6).MustBuild(),
			wantPos:     0,
		},
		{
			description: "annotating from the wrong value",
			op: NewBuilder().Retain(1).StartAnnotation("s", Val("x"), Val("y")).Retain(1).EndAnnotation("s").
				Retain(5).MustBuild(),
			wantPos: 1,
		},
	}

	for _, tc := range tests {
		_, err := d.Apply(tc.op)
		var ierr *InapplicableOperationError
		if !errors.As(err, &ierr) {
			t.Errorf("(%s) got err = %v, want InapplicableOperationError\n", tc.description, err)
			continue
		}
		if !errors.Is(err, ErrInapplicableOperation) {
			t.Errorf("(%s) error does not match ErrInapplicableOperation\n", tc.description)
		}
		if ierr.Pos != tc.wantPos {
			t.Errorf("(%s) got position %d, want %d (%v)\n", tc.description, ierr.Pos, tc.wantPos, err)
		}
	}
}

func TestAsInitialization(t *testing.T) {
	d := mustParse(t, `<body><line t="h1"></line><?a "s"="x"?>ab<?a "s"?>c</body>`)

	op := d.AsInitialization()
	if op.InputLength() != 0 || op.OutputLength() != d.Length() {
		t.Fatalf("initialization has lengths %d -> %d\n", op.InputLength(), op.OutputLength())
	}

	got, err := FromOp(op)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(d) {
		t.Errorf("got %s, want %s\n", got.XML(), d.XML())
	}
}
