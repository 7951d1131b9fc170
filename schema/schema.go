// Package schema checks document operations against structural policy: which
// elements may nest, which attributes they carry, what text they hold and which
// children they must start with.
package schema

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation is matched by operations that are applicable but would
// produce a document the schema does not allow.
var ErrSchemaViolation = errors.New("schema violation")

// DocumentSchema is the policy an operation is validated against. An empty
// tag stands for the top level of the document.
type DocumentSchema interface {
	PermitsChild(parent, child string) bool
	PermitsAttribute(tag, name, value string) bool
	PermittedCharacters(tag string) PermittedCharacters
	// RequiredInitialChildren lists the tags a new element of type tag must
	// start with, in order.
	RequiredInitialChildren(tag string) []string
}

// PermittedCharacters classifies the text an element may contain.
type PermittedCharacters int

const (
	// None rejects any text.
	None PermittedCharacters = iota
	// BlipText allows text fit for display: no control, bidi, tag or
	// deprecated format characters.
	BlipText
	// Any allows every valid code point.
	Any
)

func (p PermittedCharacters) String() string {
	switch p {
	case None:
		return "none"
	case BlipText:
		return "blip"
	case Any:
		return "any"
	}
	return fmt.Sprintf("PermittedCharacters(%d)", int(p))
}

func (p *PermittedCharacters) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	case "", "none":
		*p = None
	case "blip", "blip_text":
		*p = BlipText
	case "any":
		*p = Any
	default:
		return fmt.Errorf("line %d: unknown characters class %q", value.Line, s)
	}
	return nil
}

// Permits reports whether s is valid UTF-8 and every code point of it is
// allowed.
func (p PermittedCharacters) Permits(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !p.permitsRune(r) {
			return false
		}
	}
	return true
}

func (p PermittedCharacters) permitsRune(r rune) bool {
	switch p {
	case BlipText:
		return goodForBlip(r)
	case Any:
		return !nonCharacter(r)
	}
	return false
}

// Coerce rewrites s so that p permits it: tabs become spaces and every other
// rejected code point or invalid UTF-8 byte becomes U+FFFD. Coercing twice changes nothing. None
// cannot be coerced into and always fails.
func (p PermittedCharacters) Coerce(s string) (string, error) {
	if p == None {
		return "", fmt.Errorf("%w: no text permitted", ErrSchemaViolation)
	}
	if p.Permits(s) {
		return s, nil
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case p.permitsRune(r):
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteByte(' ')
		default:
			sb.WriteRune(utf8.RuneError)
		}
	}
	return sb.String(), nil
}

func nonCharacter(r rune) bool {
	if d := r & 0xFFFF; d == 0xFFFE || d == 0xFFFF {
		return true
	}
	return (0xFDD0 <= r && r <= 0xFDEF) || (0xD800 <= r && r <= 0xDFFF)
}

func goodForBlip(r rune) bool {
	switch {
	case nonCharacter(r):
		return false
	case r <= 0x1F, 0x7F <= r && r <= 0x9F:
		return false
	case 0x206A <= r && r <= 0x206F:
		return false
	case r == 0x200E, r == 0x200F, 0x202A <= r && r <= 0x202E:
		return false
	case 0xE0000 <= r && r <= 0xE007F:
		return false
	}
	return true
}

// NoSchema permits every structure and any text.
type NoSchema struct{}

func (NoSchema) PermitsChild(parent, child string) bool { return true }

func (NoSchema) PermitsAttribute(tag, name, value string) bool { return true }

func (NoSchema) PermittedCharacters(tag string) PermittedCharacters { return Any }

func (NoSchema) RequiredInitialChildren(tag string) []string { return nil }
