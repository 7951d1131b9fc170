package docop

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTransform(t *testing.T) {
	tests := []struct {
		description string
		doc         string
		client      DocOp
		server      DocOp
		wantClient  string
		wantServer  string
		want        string
	}{
		{
			description: "insertions at the same position, server first",
			doc:         "<doc>hello</doc>",
			client:      NewBuilder().Retain(2).Characters("a").Retain(5).MustBuild(),
			server:      NewBuilder().Retain(2).Characters("b").Retain(5).MustBuild(),
			wantClient:  `__3; ++"a"; __5;`,
			wantServer:  `__2; ++"b"; __6;`,
			want:        "<doc>hbaello</doc>",
		},
		{
			description: "overlapping deletions",
			doc:         "<doc>hello</doc>",
			client:      NewBuilder().Retain(1).DeleteCharacters("hello").Retain(1).MustBuild(),
			server:      NewBuilder().Retain(2).DeleteCharacters("ell").Retain(2).MustBuild(),
			wantClient:  `__1; --"ho"; __1;`,
			wantServer:  `__2;`,
			want:        "<doc></doc>",
		},
		{
			description: "insertion splits a deletion",
			doc:         "<doc>abcde</doc>",
			client:      NewBuilder().Retain(3).Characters("X").Retain(4).MustBuild(),
			server:      NewBuilder().Retain(2).DeleteCharacters("bcd").Retain(2).MustBuild(),
			wantClient:  `__2; ++"X"; __2;`,
			wantServer:  `__2; --"b"; __1; --"cd"; __2;`,
			want:        "<doc>aXe</doc>",
		},
		{
			description: "insertion inside a deleted element",
			doc:         "<doc><p>ab</p></doc>",
			client:      NewBuilder().Retain(3).Characters("X").Retain(3).MustBuild(),
			server: NewBuilder().Retain(1).DeleteElementStart("p", Attributes{}).DeleteCharacters("ab").
				DeleteElementEnd().Retain(1).MustBuild(),
			wantClient: `__2;`,
			wantServer: `__1; x<< p {}; --"aXb"; x>>; __1;`,
			want:       "<doc></doc>",
		},
		{
			description: "element insertion against text insertion",
			doc:         "<doc>hello</doc>",
			client:      NewBuilder().Retain(1).ElementStart("p", Attributes{}).Characters("x").ElementEnd().Retain(6).MustBuild(),
			server:      NewBuilder().Retain(1).Characters("y").Retain(6).MustBuild(),
			wantClient:  `__2; << p {}; ++"x"; >>; __6;`,
			wantServer:  `__1; ++"y"; __9;`,
			want:        "<doc>y<p>x</p>hello</doc>",
		},
		{
			description: "conflicting updates",
			doc:         `<doc a="1">x</doc>`,
			client:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", Old: Val("1"), New: Val("2")})).Retain(2).MustBuild(),
			server:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", Old: Val("1"), New: Val("3")})).Retain(2).MustBuild(),
			wantClient:  `__3;`,
			wantServer:  `u@ {a: "2" -> "3"}; __2;`,
			want:        `<doc a="3">x</doc>`,
		},
		{
			description: "independent updates",
			doc:         `<doc a="1">x</doc>`,
			client:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "b", New: Val("2")})).Retain(2).MustBuild(),
			server:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", Old: Val("1"), New: Val("3")})).Retain(2).MustBuild(),
			wantClient:  `u@ {b: null -> "2"}; __2;`,
			wantServer:  `u@ {a: "1" -> "3"}; __2;`,
			want:        `<doc a="3" b="2">x</doc>`,
		},
		{
			description: "replacement against replacement",
			doc:         `<doc a="1">x</doc>`,
			client:      NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("b", "2")).Retain(2).MustBuild(),
			server:      NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("c", "3")).Retain(2).MustBuild(),
			wantClient:  `__3;`,
			wantServer:  `r@ {b="2"} -> {c="3"}; __2;`,
			want:        `<doc c="3">x</doc>`,
		},
		{
			description: "client replacement against server update",
			doc:         `<doc a="1">x</doc>`,
			client:      NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("b", "2")).Retain(2).MustBuild(),
			server:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", Old: Val("1"), New: Val("3")})).Retain(2).MustBuild(),
			wantClient:  `r@ {a="3"} -> {a="3", b="2"}; __2;`,
			wantServer:  `u@ {a: null -> "3"}; __2;`,
			want:        `<doc a="3" b="2">x</doc>`,
		},
		{
			description: "client update against server replacement",
			doc:         `<doc a="1">x</doc>`,
			client:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "b", New: Val("2")})).Retain(2).MustBuild(),
			server:      NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attrs("c", "3")).Retain(2).MustBuild(),
			wantClient:  `__3;`,
			wantServer:  `r@ {a="1", b="2"} -> {c="3"}; __2;`,
			want:        `<doc c="3">x</doc>`,
		},
		{
			description: "update of a deleted element",
			doc:         `<doc><p a="1"></p></doc>`,
			client:      NewBuilder().Retain(1).UpdateAttributes(Update(AttributeChange{Name: "a", Old: Val("1"), New: Val("2")})).Retain(2).MustBuild(),
			server:      NewBuilder().Retain(1).DeleteElementStart("p", Attrs("a", "1")).DeleteElementEnd().Retain(1).MustBuild(),
			wantClient:  `__2;`,
			wantServer:  `__1; x<< p {a="2"}; x>>; __1;`,
			want:        "<doc></doc>",
		},
	}

	for _, tc := range tests {
		c, s, err := Transform(tc.client, tc.server)
		if err != nil {
			t.Errorf("(%s) unexpected error: %v\n", tc.description, err)
			continue
		}
		if !cmp.Equal(c.String(), tc.wantClient) {
			t.Errorf("(%s) client' differs, diff: %v\n", tc.description, cmp.Diff(c.String(), tc.wantClient))
		}
		if !cmp.Equal(s.String(), tc.wantServer) {
			t.Errorf("(%s) server' differs, diff: %v\n", tc.description, cmp.Diff(s.String(), tc.wantServer))
		}

		d := mustParse(t, tc.doc)
		clientFirst := mustApply(t, mustApply(t, d, tc.client), s)
		serverFirst := mustApply(t, mustApply(t, d, tc.server), c)
		if got := clientFirst.XML(); !cmp.Equal(got, tc.want) {
			t.Errorf("(%s) client then server', diff: %v\n", tc.description, cmp.Diff(got, tc.want))
		}
		if got := serverFirst.XML(); !cmp.Equal(got, tc.want) {
			t.Errorf("(%s) server then client', diff: %v\n", tc.description, cmp.Diff(got, tc.want))
		}
	}
}

func TestTransformAnnotations(t *testing.T) {
	d := mustParse(t, "<doc>hello</doc>")
	client := NewBuilder().Retain(1).StartAnnotation("style", nil, Val("bold")).Retain(2).
		EndAnnotation("style").Retain(4).MustBuild()
	server := NewBuilder().Retain(2).StartAnnotation("style", nil, Val("italic")).Retain(2).
		EndAnnotation("style").Retain(3).MustBuild()

	c, s, err := Transform(client, server)
	if err != nil {
		t.Fatal(err)
	}

	want := `<doc><?a "style"="bold"?>h<?a "style"="italic"?>el<?a "style"?>lo</doc>`
	for _, got := range []*Document{
		mustApply(t, mustApply(t, d, client), s),
		mustApply(t, mustApply(t, d, server), c),
	} {
		if !cmp.Equal(got.XML(), want) {
			t.Errorf("got != want, diff: %v\n", cmp.Diff(got.XML(), want))
		}
	}
}

func TestTransformConflict(t *testing.T) {
	tests := []struct {
		description string
		client      DocOp
		server      DocOp
	}{
		{
			description: "different input lengths",
			client:      Identity(3),
			server:      Identity(4),
		},
		{
			description: "deleting different text at the same place",
			client:      NewBuilder().DeleteCharacters("a").Retain(1).MustBuild(),
			server:      NewBuilder().DeleteCharacters("b").Retain(1).MustBuild(),
		},
		{
			description: "replacing from different attributes",
			client:      NewBuilder().ReplaceAttributes(Attrs("a", "1"), Attributes{}).MustBuild(),
			server:      NewBuilder().ReplaceAttributes(Attrs("a", "2"), Attributes{}).MustBuild(),
		},
		{
			description: "deleting characters the other side treats as an element",
			client:      NewBuilder().DeleteCharacters("a").MustBuild(),
			server:      NewBuilder().UpdateAttributes(Update(AttributeChange{Name: "a", New: Val("1")})).MustBuild(),
		},
	}

	for _, tc := range tests {
		_, _, err := Transform(tc.client, tc.server)
		if !errors.Is(err, ErrTransformConflict) {
			t.Errorf("(%s) got err = %v, want ErrTransformConflict\n", tc.description, err)
		}
	}
}
