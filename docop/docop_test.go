package docop

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewMalformed(t *testing.T) {
	tests := []struct {
		description string
		comps       []Component
		wantIndex   int
	}{
		{description: "zero retain", comps: []Component{Retain{N: 0}}, wantIndex: 0},
		{description: "empty characters", comps: []Component{Retain{N: 1}, Characters{}}, wantIndex: 1},
		{description: "invalid utf-8", comps: []Component{DeleteCharacters{Text: "\xff"}}, wantIndex: 0},
		{description: "element start without tag", comps: []Component{ElementStart{}, ElementEnd{}}, wantIndex: 0},
		{description: "unmatched element end", comps: []Component{Retain{N: 1}, ElementEnd{}}, wantIndex: 1},
		{description: "unmatched delete element end", comps: []Component{DeleteElementEnd{}}, wantIndex: 0},
		{
			description: "retain inside insertion",
			comps:       []Component{ElementStart{Tag: "p"}, Retain{N: 1}, ElementEnd{}},
			wantIndex:   1,
		},
		{
			description: "deletion inside insertion",
			comps:       []Component{ElementStart{Tag: "p"}, DeleteCharacters{Text: "a"}, ElementEnd{}},
			wantIndex:   1,
		},
		{
			description: "insertion inside deletion",
			comps:       []Component{DeleteElementStart{Tag: "p"}, Characters{Text: "a"}, DeleteElementEnd{}},
			wantIndex:   1,
		},
		{
			description: "attribute update inside deletion",
			comps:       []Component{DeleteElementStart{Tag: "p"}, UpdateAttributes{}, DeleteElementEnd{}},
			wantIndex:   1,
		},
		{description: "element left open", comps: []Component{ElementStart{Tag: "p"}}, wantIndex: -1},
		{
			description: "end of a closed annotation",
			comps:       []Component{AnnotationBoundary{Ends: []string{"s"}}, Retain{N: 1}},
			wantIndex:   0,
		},
		{
			description: "annotation left open",
			comps: []Component{
				AnnotationBoundary{Changes: []AnnotationChange{{Key: "s", New: Val("b")}}},
				Retain{N: 1},
			},
			wantIndex: -1,
		},
		{
			description: "annotation changes out of order",
			comps: []Component{
				AnnotationBoundary{Changes: []AnnotationChange{{Key: "t", New: Val("b")}, {Key: "s", New: Val("b")}}},
				Retain{N: 1},
				AnnotationBoundary{Ends: []string{"s", "t"}},
			},
			wantIndex: 0,
		},
	}

	for _, tc := range tests {
		_, err := New(tc.comps...)
		var merr *MalformedOperationError
		if !errors.As(err, &merr) {
			t.Errorf("(%s) got err = %v, want MalformedOperationError\n", tc.description, err)
			continue
		}
		if !errors.Is(err, ErrMalformedOperation) {
			t.Errorf("(%s) error does not match ErrMalformedOperation\n", tc.description)
		}
		if merr.Index != tc.wantIndex {
			t.Errorf("(%s) got index %d, want %d (%v)\n", tc.description, merr.Index, tc.wantIndex, err)
		}
	}
}

func TestNewWellFormed(t *testing.T) {
	op, err := New(
		Retain{N: 1},
		AnnotationBoundary{Changes: []AnnotationChange{{Key: "s", New: Val("b")}}},
		ElementStart{Tag: "line"},
		ElementEnd{},
		DeleteElementStart{Tag: "p", Attrs: Attrs("a", "1")},
		DeleteCharacters{Text: "xy"},
		DeleteElementEnd{},
		AnnotationBoundary{Ends: []string{"s"}},
		UpdateAttributes{Update: Update(AttributeChange{Name: "a", New: Val("1")})},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}

	if got, want := op.InputLength(), 6; got != want {
		t.Errorf("got input length %d, want %d\n", got, want)
	}
	if got, want := op.OutputLength(), 4; got != want {
		t.Errorf("got output length %d, want %d\n", got, want)
	}
}

func TestBuilderNormalizes(t *testing.T) {
	tests := []struct {
		description string
		op          DocOp
		want        string
	}{
		{
			description: "adjacent retains merge",
			op:          NewBuilder().Retain(1).Retain(2).Retain(0).MustBuild(),
			want:        `__3;`,
		},
		{
			description: "adjacent characters merge",
			op:          NewBuilder().Characters("a").Characters("").Characters("b").MustBuild(),
			want:        `++"ab";`,
		},
		{
			description: "deletions precede insertions",
			op: NewBuilder().Retain(2).Characters("ab").ElementStart("line", Attributes{}).ElementEnd().
				DeleteCharacters("x").Retain(3).MustBuild(),
			want: `__2; --"x"; ++"ab"; << line {}; >>; __3;`,
		},
		{
			description: "no-op attribute updates become retains",
			op: NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "b", Old: Val("2"), New: Val("2")})).
				Retain(1).UpdateAttributes(Update()).Retain(1).MustBuild(),
			want: `__4;`,
		},
		{
			description: "replacements that change nothing are kept",
			op: NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("a", "1")).
				Retain(1).MustBuild(),
			want: `r@ {a="1"} -> {a="1"}; __1;`,
		},
		{
			description: "boundaries only where values change",
			op: NewBuilder().Retain(1).
				StartAnnotation("s", nil, Val("b")).Retain(1).EndAnnotation("s").
				StartAnnotation("s", nil, Val("b")).Retain(1).EndAnnotation("s").
				Retain(2).MustBuild(),
			want: `__1; || {s: null -> "b"}; __2; || {} end s; __2;`,
		},
		{
			description: "assertions are dropped",
			op:          NewBuilder().StartAnnotation("s", Val("b"), Val("b")).Retain(4).EndAnnotation("s").MustBuild(),
			want:        `__4;`,
		},
	}

	for _, tc := range tests {
		got := tc.op.String()
		if !cmp.Equal(got, tc.want) {
			t.Errorf("(%s) got != want, diff: %v\n", tc.description, cmp.Diff(got, tc.want))
		}
	}
}

func TestIdentity(t *testing.T) {
	op := Identity(5)
	if got := op.String(); got != "__5;" {
		t.Errorf("got %s, want __5;\n", got)
	}
	if !op.IsIdentity() || op.InputLength() != 5 || op.OutputLength() != 5 {
		t.Errorf("identity has wrong shape: %s\n", op)
	}
	if Identity(0).Len() != 0 {
		t.Errorf("identity of the empty document should have no components\n")
	}
}
