package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed conversation.yaml
var conversationYAML []byte

// Element describes one tag: the children it may contain, the children it
// must begin with, its text class and a pattern for each permitted attribute.
type Element struct {
	Children   []string            `yaml:"children"`
	Required   []string            `yaml:"required"`
	Characters PermittedCharacters `yaml:"characters"`
	Attributes map[string]string   `yaml:"attributes"`

	patterns map[string]*regexp.Regexp
}

// Definition is a DocumentSchema read from YAML. Tags absent from Elements
// are not permitted anywhere.
type Definition struct {
	Top      Element            `yaml:"top"`
	Elements map[string]Element `yaml:"elements"`
}

// LoadDefinition reads a definition from the YAML file at path.
func LoadDefinition(path string) (*Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	d, err := ParseDefinition(b)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return d, nil
}

// ParseDefinition decodes and compiles a YAML definition.
func ParseDefinition(b []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if err := d.Top.compile(""); err != nil {
		return nil, err
	}
	for tag, e := range d.Elements {
		if err := e.compile(tag); err != nil {
			return nil, err
		}
		d.Elements[tag] = e
	}
	if err := d.check(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Conversation returns the built-in schema for conversation documents.
func Conversation() *Definition {
	d, err := ParseDefinition(conversationYAML)
	if err != nil {
		panic(err)
	}
	return d
}

func (e *Element) compile(tag string) error {
	e.patterns = make(map[string]*regexp.Regexp, len(e.Attributes))
	for name, pattern := range e.Attributes {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return fmt.Errorf("%s attribute %s: %w", describeTag(tag), name, err)
		}
		e.patterns[name] = re
	}
	return nil
}

// check rejects references to undefined tags and required children that are
// not also permitted.
func (d *Definition) check() error {
	all := map[string]Element{"": d.Top}
	for tag, e := range d.Elements {
		if tag == "" {
			return errors.New("element with an empty tag")
		}
		all[tag] = e
	}
	for tag, e := range all {
		for _, c := range e.Children {
			if _, ok := d.Elements[c]; !ok {
				return fmt.Errorf("%s permits undefined child <%s>", describeTag(tag), c)
			}
		}
		for _, c := range e.Required {
			if !contains(e.Children, c) {
				return fmt.Errorf("%s requires <%s> without permitting it", describeTag(tag), c)
			}
		}
	}
	return nil
}

func (d *Definition) element(tag string) (Element, bool) {
	if tag == "" {
		return d.Top, true
	}
	e, ok := d.Elements[tag]
	return e, ok
}

func (d *Definition) PermitsChild(parent, child string) bool {
	e, ok := d.element(parent)
	return ok && contains(e.Children, child)
}

func (d *Definition) PermitsAttribute(tag, name, value string) bool {
	e, ok := d.element(tag)
	if !ok {
		return false
	}
	re, ok := e.patterns[name]
	return ok && re.MatchString(value)
}

func (d *Definition) PermittedCharacters(tag string) PermittedCharacters {
	e, ok := d.element(tag)
	if !ok {
		return None
	}
	return e.Characters
}

func (d *Definition) RequiredInitialChildren(tag string) []string {
	e, _ := d.element(tag)
	return e.Required
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
