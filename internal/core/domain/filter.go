package domain

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// FilterOp is a comparison operator in a metadata condition.
type FilterOp string

// Supported operators.
const (
	OpEq FilterOp = "eq"
	OpNe FilterOp = "ne"
	OpIn FilterOp = "in"
)

// IsValid returns true if the operator is recognised.
func (o FilterOp) IsValid() bool {
	switch o {
	case OpEq, OpNe, OpIn:
		return true
	default:
		return false
	}
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as a metadata field.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Condition is a single predicate over one metadata field.
type Condition struct {
	Field  string   `json:"field"`
	Op     FilterOp `json:"op"`
	Values []string `json:"values"`
}

// Validate checks the condition is well formed.
func (c Condition) Validate() error {
	if !ValidField(c.Field) {
		return fmt.Errorf("%w: bad field name %q", ErrInvalidFilter, c.Field)
	}
	if !c.Op.IsValid() {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
	}
	if len(c.Values) == 0 {
		return fmt.Errorf("%w: no values for field %q", ErrInvalidFilter, c.Field)
	}
	if c.Op != OpIn && len(c.Values) != 1 {
		return fmt.Errorf("%w: operator %s takes one value", ErrInvalidFilter, c.Op)
	}
	return nil
}

// Match evaluates the condition against metadata.
// A missing field matches only OpNe.
func (c Condition) Match(m Metadata) bool {
	v, ok := m.String(c.Field)
	switch c.Op {
	case OpEq:
		return ok && v == c.Values[0]
	case OpNe:
		return !ok || v != c.Values[0]
	case OpIn:
		return ok && slices.Contains(c.Values, v)
	}
	return false
}

// Filter is a conjunction of metadata conditions.
type Filter struct {
	Conditions []Condition `json:"conditions"`
}

// IsEmpty reports whether the filter matches everything.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Conditions) == 0
}

// Validate checks every condition.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, c := range f.Conditions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether metadata satisfies all conditions.
func (f *Filter) Match(m Metadata) bool {
	if f == nil {
		return true
	}
	for _, c := range f.Conditions {
		if !c.Match(m) {
			return false
		}
	}
	return true
}

// ParseFilter builds a filter from expressions of the form
// "field=value", "field!=value" or "field~=a|b|c".
// No expressions yields a nil filter.
func ParseFilter(exprs ...string) (*Filter, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	f := &Filter{}
	for _, expr := range exprs {
		c, err := parseCondition(expr)
		if err != nil {
			return nil, err
		}
		f.Conditions = append(f.Conditions, c)
	}
	return f, nil
}

func parseCondition(expr string) (Condition, error) {
	i := strings.IndexByte(expr, '=')
	if i <= 0 {
		return Condition{}, fmt.Errorf("%w: expected field=value, got %q", ErrInvalidFilter, expr)
	}

	field, value := expr[:i], expr[i+1:]
	c := Condition{Op: OpEq}
	switch {
	case strings.HasSuffix(field, "!"):
		c.Op = OpNe
		field = field[:len(field)-1]
	case strings.HasSuffix(field, "~"):
		c.Op = OpIn
		field = field[:len(field)-1]
	}
	c.Field = strings.TrimSpace(field)

	if c.Op == OpIn {
		for _, v := range strings.Split(value, "|") {
			if v = strings.TrimSpace(v); v != "" {
				c.Values = append(c.Values, v)
			}
		}
	} else {
		c.Values = []string{strings.TrimSpace(value)}
	}

	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// FormatValue renders a metadata value in the canonical form used for
// filtering and metadata scans. Integral floats print without a fraction
// so values decoded from JSON compare equal to their integer originals.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return FormatValue(float64(x))
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
