package docop

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XML renders the document. Annotation changes are written as processing
// instructions before the first item they apply to: <?a "key"="value"?> sets a
// value and <?a "key"?> clears it.
func (d *Document) XML() string {
	var sb strings.Builder
	var prev Attributes
	for _, it := range d.items {
		writeAnnotationChange(&sb, prev, it.ann)
		prev = it.ann
		switch it.kind {
		case charItem:
			xmlEscape(&sb, string(it.r))
		case startItem:
			sb.WriteByte('<')
			sb.WriteString(it.tag)
			for _, a := range it.attrs.entries {
				sb.WriteByte(' ')
				sb.WriteString(a.Name)
				sb.WriteString(`="`)
				xmlEscape(&sb, a.Value)
				sb.WriteByte('"')
			}
			sb.WriteByte('>')
		case endItem:
			sb.WriteString("</")
			sb.WriteString(it.tag)
			sb.WriteByte('>')
		}
	}
	writeAnnotationChange(&sb, prev, Attributes{})
	return sb.String()
}

func writeAnnotationChange(sb *strings.Builder, from, to Attributes) {
	var parts []string
	i, j := 0, 0
	for i < len(from.entries) || j < len(to.entries) {
		switch {
		case j == len(to.entries) || (i < len(from.entries) && from.entries[i].Name < to.entries[j].Name):
			parts = append(parts, strconv.Quote(from.entries[i].Name))
			i++
		case i == len(from.entries) || to.entries[j].Name < from.entries[i].Name:
			parts = append(parts, strconv.Quote(to.entries[j].Name)+"="+strconv.Quote(to.entries[j].Value))
			j++
		default:
			if from.entries[i].Value != to.entries[j].Value {
				parts = append(parts, strconv.Quote(to.entries[j].Name)+"="+strconv.Quote(to.entries[j].Value))
			}
			i++
			j++
		}
	}
	if len(parts) > 0 {
		sb.WriteString("<?a ")
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteString("?>")
	}
}

func xmlEscape(sb *strings.Builder, s string) {
	_ = xml.EscapeText(sb, []byte(s))
}

// ParseXML builds a document from its XML rendering, as produced by XML.
// The input may hold several top-level nodes or none.
func ParseXML(s string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(s))
	var items []item
	ann := map[string]string{}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		current := AttributesFromMap(ann)
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make(map[string]string, len(t.Attr))
			for _, a := range t.Attr {
				attrs[a.Name.Local] = a.Value
			}
			items = append(items, item{kind: startItem, tag: t.Name.Local, attrs: AttributesFromMap(attrs), ann: current})
		case xml.EndElement:
			items = append(items, item{kind: endItem, ann: current})
		case xml.CharData:
			for _, r := range string(t) {
				items = append(items, item{kind: charItem, r: r, ann: current})
			}
		case xml.ProcInst:
			if t.Target != "a" {
				continue
			}
			if err := parseAnnotationChange(string(t.Inst), ann); err != nil {
				return nil, fmt.Errorf("parse document: %w", err)
			}
		}
	}
	if !link(items) {
		return nil, errors.New("parse document: unbalanced elements")
	}
	return &Document{items: items}, nil
}

// parseAnnotationChange reads `"k"="v"` and `"k"` entries into ann.
func parseAnnotationChange(inst string, ann map[string]string) error {
	rest := strings.TrimSpace(inst)
	for rest != "" {
		key, err := strconv.QuotedPrefix(rest)
		if err != nil {
			return fmt.Errorf("annotation key in %q: %w", inst, err)
		}
		rest = rest[len(key):]
		k, _ := strconv.Unquote(key)
		if strings.HasPrefix(rest, "=") {
			value, err := strconv.QuotedPrefix(rest[1:])
			if err != nil {
				return fmt.Errorf("annotation value in %q: %w", inst, err)
			}
			rest = rest[1+len(value):]
			v, _ := strconv.Unquote(value)
			ann[k] = v
		} else {
			delete(ann, k)
		}
		rest = strings.TrimSpace(rest)
	}
	return nil
}
