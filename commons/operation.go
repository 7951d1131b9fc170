package commons

import (
	"encoding/json"
	"fmt"

	"github.com/burntcarrot/wavepad/docop"
)

// ComponentType names a document operation component on the wire.
type ComponentType string

const (
	RetainComponent             ComponentType = "retain"
	CharactersComponent         ComponentType = "chars"
	DeleteCharactersComponent   ComponentType = "deleteChars"
	ElementStartComponent       ComponentType = "start"
	ElementEndComponent         ComponentType = "end"
	DeleteElementStartComponent ComponentType = "deleteStart"
	DeleteElementEndComponent   ComponentType = "deleteEnd"
	ReplaceAttributesComponent  ComponentType = "replaceAttrs"
	UpdateAttributesComponent   ComponentType = "updateAttrs"
	AnnotationComponent         ComponentType = "annotate"
)

// Change is an attribute update entry or an annotation change. A null Old
// means the value was unset, a null New unsets it.
type Change struct {
	Key string  `json:"key"`
	Old *string `json:"old"`
	New *string `json:"new"`
}

// Component is one component of an operation on the wire. Which fields are
// used depends on Type.
type Component struct {
	// Type represents the component type, for example, retain or chars.
	Type ComponentType `json:"type"`

	// N is the retain count.
	N int `json:"n,omitempty"`

	// Text is inserted or deleted text.
	Text string `json:"text,omitempty"`

	Tag   string            `json:"tag,omitempty"`
	Attrs map[string]string `json:"attrs,omitempty"`

	// Old and New are the attribute maps of a replacement.
	Old map[string]string `json:"old,omitempty"`
	New map[string]string `json:"new,omitempty"`

	// Changes are the entries of an attribute update or annotation boundary,
	// sorted by key.
	Changes []Change `json:"changes,omitempty"`

	// Ends are the annotation keys an annotation boundary closes.
	Ends []string `json:"ends,omitempty"`
}

// Operation represents a document operation on the wire.
type Operation []Component

// FromDocOp converts op to its wire form.
func FromDocOp(op docop.DocOp) Operation {
	out := make(Operation, 0, op.Len())
	for _, c := range op.Components() {
		switch c := c.(type) {
		case docop.Retain:
			out = append(out, Component{Type: RetainComponent, N: c.N})
		case docop.Characters:
			out = append(out, Component{Type: CharactersComponent, Text: c.Text})
		case docop.DeleteCharacters:
			out = append(out, Component{Type: DeleteCharactersComponent, Text: c.Text})
		case docop.ElementStart:
			out = append(out, Component{Type: ElementStartComponent, Tag: c.Tag, Attrs: c.Attrs.Map()})
		case docop.ElementEnd:
			out = append(out, Component{Type: ElementEndComponent})
		case docop.DeleteElementStart:
			out = append(out, Component{Type: DeleteElementStartComponent, Tag: c.Tag, Attrs: c.Attrs.Map()})
		case docop.DeleteElementEnd:
			out = append(out, Component{Type: DeleteElementEndComponent})
		case docop.ReplaceAttributes:
			out = append(out, Component{Type: ReplaceAttributesComponent, Old: c.Old.Map(), New: c.New.Map()})
		case docop.UpdateAttributes:
			changes := make([]Change, c.Update.Len())
			for i := range changes {
				ch := c.Update.At(i)
				changes[i] = Change{Key: ch.Name, Old: ch.Old, New: ch.New}
			}
			out = append(out, Component{Type: UpdateAttributesComponent, Changes: changes})
		case docop.AnnotationBoundary:
			changes := make([]Change, len(c.Changes))
			for i, ch := range c.Changes {
				changes[i] = Change{Key: ch.Key, Old: ch.Old, New: ch.New}
			}
			out = append(out, Component{Type: AnnotationComponent, Changes: changes, Ends: c.Ends})
		}
	}
	return out
}

// DocOp rebuilds the operation, checking that it is well formed. Errors
// match docop.ErrMalformedOperation.
func (o Operation) DocOp() (docop.DocOp, error) {
	comps := make([]docop.Component, 0, len(o))
	for i, c := range o {
		comp, err := c.docOpComponent()
		if err != nil {
			return docop.DocOp{}, fmt.Errorf("component %d: %w", i, err)
		}
		comps = append(comps, comp)
	}
	op, err := docop.New(comps...)
	if err != nil {
		return docop.DocOp{}, err
	}
	return docop.Normalize(op), nil
}

func (c Component) docOpComponent() (docop.Component, error) {
	switch c.Type {
	case RetainComponent:
		return docop.Retain{N: c.N}, nil
	case CharactersComponent:
		return docop.Characters{Text: c.Text}, nil
	case DeleteCharactersComponent:
		return docop.DeleteCharacters{Text: c.Text}, nil
	case ElementStartComponent:
		return docop.ElementStart{Tag: c.Tag, Attrs: docop.AttributesFromMap(c.Attrs)}, nil
	case ElementEndComponent:
		return docop.ElementEnd{}, nil
	case DeleteElementStartComponent:
		return docop.DeleteElementStart{Tag: c.Tag, Attrs: docop.AttributesFromMap(c.Attrs)}, nil
	case DeleteElementEndComponent:
		return docop.DeleteElementEnd{}, nil
	case ReplaceAttributesComponent:
		return docop.ReplaceAttributes{Old: docop.AttributesFromMap(c.Old), New: docop.AttributesFromMap(c.New)}, nil
	case UpdateAttributesComponent:
		changes := make([]docop.AttributeChange, len(c.Changes))
		for i, ch := range c.Changes {
			changes[i] = docop.AttributeChange{Name: ch.Key, Old: ch.Old, New: ch.New}
		}
		u, err := docop.NewAttributesUpdate(changes...)
		if err != nil {
			return nil, err
		}
		return docop.UpdateAttributes{Update: u}, nil
	case AnnotationComponent:
		b := docop.AnnotationBoundary{Ends: c.Ends}
		for _, ch := range c.Changes {
			b.Changes = append(b.Changes, docop.AnnotationChange{Key: ch.Key, Old: ch.Old, New: ch.New})
		}
		return b, nil
	}
	return nil, &docop.MalformedOperationError{Index: -1, Reason: fmt.Sprintf("unknown component type %q", c.Type)}
}

// EncodeOp marshals op as a JSON component list.
func EncodeOp(op docop.DocOp) ([]byte, error) {
	return json.Marshal(FromDocOp(op))
}

// DecodeOp unmarshals a JSON component list and rebuilds the operation.
func DecodeOp(b []byte) (docop.DocOp, error) {
	var o Operation
	if err := json.Unmarshal(b, &o); err != nil {
		return docop.DocOp{}, fmt.Errorf("decode operation: %w", err)
	}
	return o.DocOp()
}
