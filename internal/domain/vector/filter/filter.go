// Package filter models vector query filters: a conjunction of exact metadata matches.
package filter

import (
	"fmt"
	"regexp"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 16

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition is one exact-match predicate over a metadata field.
type Condition struct {
	key   string
	value string
}

// Eq creates an exact match condition.
func Eq(key, value string) (Condition, error) {
	if !keyPattern.MatchString(key) {
		return Condition{}, fmt.Errorf("invalid filter key %q", key)
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the metadata field name.
func (c Condition) Key() string { return c.key }

// Value returns the required field value.
func (c Condition) Value() string { return c.value }

// Expression is an AND of conditions. The zero value matches everything.
type Expression struct {
	conditions []Condition
}

// And validates and combines conditions. Duplicate keys are rejected.
func And(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	seen := make(map[string]struct{}, len(conds))
	for _, c := range conds {
		if c.key == "" {
			return Expression{}, fmt.Errorf("empty condition")
		}
		if _, dup := seen[c.key]; dup {
			return Expression{}, fmt.Errorf("duplicate condition on %q", c.key)
		}
		seen[c.key] = struct{}{}
	}
	out := make([]Condition, len(conds))
	copy(out, conds)
	return Expression{conditions: out}, nil
}

// Conditions returns the conditions in declaration order.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Matches reports whether metadata satisfies every condition.
func (e Expression) Matches(metadata map[string]string) bool {
	for _, c := range e.conditions {
		if metadata[c.key] != c.value {
			return false
		}
	}
	return true
}

// Contradicts reports whether metadata carries a value that violates a condition.
// Fields absent from metadata are not contradictions.
func (e Expression) Contradicts(metadata map[string]string) bool {
	for _, c := range e.conditions {
		if v, ok := metadata[c.key]; ok && v != c.value {
			return true
		}
	}
	return false
}
