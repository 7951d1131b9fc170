package schema

import (
	"fmt"
	"strings"

	"github.com/burntcarrot/wavepad/docop"
)

// Result grades a validation. Larger values are more severe.
type Result int

const (
	Valid Result = iota
	InvalidSchema
	InvalidDocument
	IllFormed
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case InvalidSchema:
		return "invalid schema"
	case InvalidDocument:
		return "invalid document"
	case IllFormed:
		return "ill-formed"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Violation is one problem found while walking an operation. Index is the
// component, Pos the position in the base document and ResultingPos the
// position in the document the operation builds.
type Violation struct {
	Result       Result
	Index        int
	Pos          int
	ResultingPos int
	Reason       string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: component %d (position %d, resulting %d): %s",
		v.Result, v.Index, v.Pos, v.ResultingPos, v.Reason)
}

// Is matches the sentinel of the violation's grade: ErrSchemaViolation,
// docop.ErrInapplicableOperation or docop.ErrMalformedOperation.
func (v *Violation) Is(target error) bool {
	switch v.Result {
	case InvalidSchema:
		return target == ErrSchemaViolation
	case InvalidDocument:
		return target == docop.ErrInapplicableOperation
	case IllFormed:
		return target == docop.ErrMalformedOperation
	}
	return false
}

// ViolationCollector accumulates every violation of one walk.
type ViolationCollector struct {
	violations []*Violation
}

func (c *ViolationCollector) Add(v *Violation) {
	c.violations = append(c.violations, v)
}

// Violations returns the violations in the order they were found.
func (c *ViolationCollector) Violations() []*Violation {
	return c.violations
}

// Result returns the most severe grade collected.
func (c *ViolationCollector) Result() Result {
	r := Valid
	for _, v := range c.violations {
		if v.Result > r {
			r = v.Result
		}
	}
	return r
}

func (c *ViolationCollector) IsValid() bool {
	return len(c.violations) == 0
}

// Err returns the first of the most severe violations, or nil.
func (c *ViolationCollector) Err() error {
	worst := c.Result()
	for _, v := range c.violations {
		if v.Result == worst {
			return v
		}
	}
	return nil
}

func (c *ViolationCollector) String() string {
	if len(c.violations) == 0 {
		return "valid"
	}
	lines := make([]string, len(c.violations))
	for i, v := range c.violations {
		lines[i] = v.Error()
	}
	return strings.Join(lines, "\n")
}
