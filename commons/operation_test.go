package commons

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/burntcarrot/wavepad/docop"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestOperationRoundTrip(t *testing.T) {
	op := docop.NewBuilder().
		Retain(1).
		ReplaceAttributes(docop.Attrs("a", "1"), docop.Attrs("b", "2")).
		UpdateAttributes(docop.Update(docop.AttributeChange{Name: "t", Old: docop.Val("h1"), New: nil})).
		StartAnnotation("style", nil, docop.Val("bold")).
		Characters("héllo").
		EndAnnotation("style").
		DeleteCharacters("x").
		ElementStart("line", docop.Attrs("t", "li")).ElementEnd().
		DeleteElementStart("image", docop.Attrs("attachment", "a1")).DeleteElementEnd().
		Retain(2).
		MustBuild()

	b, err := EncodeOp(op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeOp(b)
	if err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	if !got.Equal(op) {
		t.Errorf("got != want, diff: %v\n", cmp.Diff(got.String(), op.String()))
	}
}

func TestOperationWireForm(t *testing.T) {
	op := docop.NewBuilder().Retain(2).Characters("a").Retain(5).MustBuild()

	b, err := EncodeOp(op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `[{"type":"retain","n":2},{"type":"chars","text":"a"},{"type":"retain","n":5}]`
	if string(b) != want {
		t.Errorf("got != want, diff: %v\n", cmp.Diff(string(b), want))
	}
}

func TestDecodeOpErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"unknown component", `[{"type":"teleport"}]`},
		{"unbalanced element", `[{"type":"start","tag":"p"}]`},
		{"unsorted update", `[{"type":"updateAttrs","changes":[{"key":"b","old":null,"new":"1"},{"key":"a","old":null,"new":"1"}]}]`},
		{"end of an unopened annotation", `[{"type":"annotate","ends":["k"]},{"type":"retain","n":1}]`},
		{"empty text", `[{"type":"chars","text":""}]`},
	}

	for _, tc := range tests {
		_, err := DecodeOp([]byte(tc.in))
		if !errors.Is(err, docop.ErrMalformedOperation) {
			t.Errorf("(%s) got %v, want a malformed operation\n", tc.name, err)
		}
	}

	if _, err := DecodeOp([]byte(`{"type":`)); err == nil {
		t.Errorf("decoding broken JSON succeeded\n")
	}
}

func TestMessageCarriesOperation(t *testing.T) {
	op := docop.NewBuilder().Retain(3).DeleteCharacters("hi").Retain(1).MustBuild()
	in := Message{
		Username:  "ada",
		Type:      DeltaMessage,
		ID:        uuid.New(),
		Version:   4,
		Operation: FromDocOp(op),
	}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Message
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if !cmp.Equal(out, in) {
		t.Errorf("got != want, diff: %v\n", cmp.Diff(out, in))
	}

	got, err := out.Operation.DocOp()
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !got.Equal(op) {
		t.Errorf("got %s, want %s\n", got, op)
	}
}
