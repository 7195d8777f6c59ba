// Package cypher renders Neo4j write statements with escaped literal values.
package cypher

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a property value embedded into a statement.
// It is either a TextValue or a NumberValue.
type Value interface {
	literal() (string, error)
}

// TextValue is a string property, rendered single-quoted and escaped.
type TextValue string

// NumberValue is a numeric property, rendered unquoted.
type NumberValue float64

// Text wraps s as a TextValue.
func Text(s string) Value { return TextValue(s) }

// Number wraps f as a NumberValue.
func Number(f float64) Value { return NumberValue(f) }

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func (v TextValue) literal() (string, error) {
	return "'" + textEscaper.Replace(string(v)) + "'", nil
}

func (v NumberValue) literal() (string, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("number %v has no literal form", f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Format renders v as a Cypher literal.
func Format(v Value) (string, error) {
	if v == nil {
		return "", fmt.Errorf("nil value")
	}
	return v.literal()
}

// Property is a key/value pair of a node or relationship.
type Property struct {
	Key   string
	Value Value
}

// P creates a Property.
func P(key string, v Value) Property { return Property{Key: key, Value: v} }
