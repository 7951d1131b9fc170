package docop

import (
	"math/rand"
	"testing"
)

var propertyDocs = []string{
	"",
	"<doc>hello</doc>",
	`<body><line></line>ab<line t="h1"></line>cd</body>`,
	`<doc a="1"><p>x<?a "s"="a"?>yz<?a "s"?></p>w</doc>`,
}

var propertyValues = []*string{nil, Val("1"), Val("2")}

// randomOp returns a random operation that applies to d.
func randomOp(r *rand.Rand, d *Document) DocOp {
	b := NewBuilder()
	maybeInsert := func() {
		switch r.Intn(8) {
		case 0:
			b.Characters(string(rune('a' + r.Intn(3))))
		case 1:
			b.ElementStart("e", Attributes{}).Characters("t").ElementEnd()
		case 2:
			b.StartAnnotation("q", nil, Val("v")).Characters("z").EndAnnotation("q")
		}
	}

	for p := 0; p < len(d.items); {
		maybeInsert()
		it := d.items[p]
		switch choice := r.Intn(10); {
		case choice < 2 && it.kind == charItem:
			b.DeleteCharacters(string(it.r))
			p++
		case choice < 3 && it.kind == startItem:
			for q := p; q <= it.match; q++ {
				switch del := d.items[q]; del.kind {
				case charItem:
					b.DeleteCharacters(string(del.r))
				case startItem:
					b.DeleteElementStart(del.tag, del.attrs)
				case endItem:
					b.DeleteElementEnd()
				}
			}
			p = it.match + 1
		case choice < 4 && it.kind == startItem:
			b.ReplaceAttributes(it.attrs, Attrs("k", string(rune('1'+r.Intn(3)))))
			p++
		case choice < 5 && it.kind == startItem:
			old := it.attrs.value("k")
			b.UpdateAttributes(Update(AttributeChange{Name: "k", Old: old, New: propertyValues[r.Intn(len(propertyValues))]}))
			p++
		case choice < 7:
			old := it.ann.value("s")
			b.StartAnnotation("s", old, propertyValues[r.Intn(len(propertyValues))]).Retain(1).EndAnnotation("s")
			p++
		default:
			b.Retain(1)
			p++
		}
	}
	maybeInsert()
	return b.MustBuild()
}

func TestTransformConverges(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, src := range propertyDocs {
		d := mustParse(t, src)
		for i := 0; i < 300; i++ {
			client, server := randomOp(r, d), randomOp(r, d)
			c, s, err := Transform(client, server)
			if err != nil {
				t.Fatalf("transform %s against %s on %s: %v", client, server, src, err)
			}
			clientFirst := mustApply(t, mustApply(t, d, client), s)
			serverFirst := mustApply(t, mustApply(t, d, server), c)
			if !clientFirst.Equal(serverFirst) {
				t.Fatalf("client %s, server %s on %s diverged:\n%s\n%s",
					client, server, src, clientFirst.XML(), serverFirst.XML())
			}

			composed, err := Compose(client, s)
			if err != nil {
				t.Fatalf("compose %s with %s: %v", client, s, err)
			}
			if got := mustApply(t, d, composed); !got.Equal(clientFirst) {
				t.Fatalf("compose %s with %s gave %s, want %s", client, s, got.XML(), clientFirst.XML())
			}
		}
	}
}

func TestComposeAssociatesOnRandomChains(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, src := range propertyDocs {
		d0 := mustParse(t, src)
		for i := 0; i < 200; i++ {
			a := randomOp(r, d0)
			d1 := mustApply(t, d0, a)
			b := randomOp(r, d1)
			d2 := mustApply(t, d1, b)
			c := randomOp(r, d2)
			d3 := mustApply(t, d2, c)

			ab, err := Compose(a, b)
			if err != nil {
				t.Fatalf("compose %s with %s: %v", a, b, err)
			}
			left, err := Compose(ab, c)
			if err != nil {
				t.Fatalf("compose %s with %s: %v", ab, c, err)
			}
			bc, err := Compose(b, c)
			if err != nil {
				t.Fatalf("compose %s with %s: %v", b, c, err)
			}
			right, err := Compose(a, bc)
			if err != nil {
				t.Fatalf("compose %s with %s: %v", a, bc, err)
			}

			if !left.Equal(right) {
				t.Fatalf("(a.b).c = %s, a.(b.c) = %s for a=%s b=%s c=%s", left, right, a, b, c)
			}
			if got := mustApply(t, d0, left); !got.Equal(d3) {
				t.Fatalf("(a.b).c gave %s, want %s", got.XML(), d3.XML())
			}
			if got := mustApply(t, d0, right); !got.Equal(d3) {
				t.Fatalf("a.(b.c) gave %s, want %s", got.XML(), d3.XML())
			}
		}
	}
}

func TestInvertRestores(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, src := range propertyDocs {
		d := mustParse(t, src)
		for i := 0; i < 200; i++ {
			op := randomOp(r, d)
			inv, err := Invert(op, d)
			if err != nil {
				t.Fatalf("invert %s: %v", op, err)
			}
			if got := mustApply(t, mustApply(t, d, op), inv); !got.Equal(d) {
				t.Fatalf("undoing %s gave %s, want %s", op, got.XML(), d.XML())
			}
		}
	}
}
