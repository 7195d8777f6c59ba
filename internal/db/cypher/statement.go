package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

// Statement is one Cypher statement with optional driver parameters.
type Statement struct {
	Text   string
	Params map[string]any
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s can be used unquoted as a label, key or variable.
func IsIdentifier(s string) bool { return identPattern.MatchString(s) }

// Node identifies a node by label and one key property.
type Node struct {
	Var   string
	Label string
	Key   Property
}

func (n Node) pattern() (string, error) {
	if !IsIdentifier(n.Var) {
		return "", fmt.Errorf("invalid variable %q", n.Var)
	}
	if !IsIdentifier(n.Label) {
		return "", fmt.Errorf("invalid label %q", n.Label)
	}
	if !IsIdentifier(n.Key.Key) {
		return "", fmt.Errorf("invalid key property %q", n.Key.Key)
	}
	lit, err := Format(n.Key.Value)
	if err != nil {
		return "", fmt.Errorf("key %s: %w", n.Key.Key, err)
	}
	return fmt.Sprintf("(%s:%s {%s: %s})", n.Var, n.Label, n.Key.Key, lit), nil
}

// MergeNode renders MERGE on the node key followed by SET of the remaining properties.
func MergeNode(n Node, set ...Property) (Statement, error) {
	pat, err := n.pattern()
	if err != nil {
		return Statement{}, err
	}
	var b strings.Builder
	b.WriteString("MERGE ")
	b.WriteString(pat)
	if err := writeSet(&b, n.Var, set); err != nil {
		return Statement{}, err
	}
	return Statement{Text: b.String()}, nil
}

// MergeEdge renders MERGE of both endpoints and of the relationship between them,
// then SET of the relationship properties.
func MergeEdge(from Node, relVar, relType string, to Node, set ...Property) (Statement, error) {
	if !IsIdentifier(relVar) {
		return Statement{}, fmt.Errorf("invalid variable %q", relVar)
	}
	if !IsIdentifier(relType) {
		return Statement{}, fmt.Errorf("invalid relationship type %q", relType)
	}
	fromPat, err := from.pattern()
	if err != nil {
		return Statement{}, err
	}
	toPat, err := to.pattern()
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE %s MERGE %s MERGE (%s)-[%s:%s]->(%s)",
		fromPat, toPat, from.Var, relVar, relType, to.Var)
	if err := writeSet(&b, relVar, set); err != nil {
		return Statement{}, err
	}
	return Statement{Text: b.String()}, nil
}

func writeSet(b *strings.Builder, variable string, set []Property) error {
	for i, p := range set {
		if !IsIdentifier(p.Key) {
			return fmt.Errorf("invalid property key %q", p.Key)
		}
		lit, err := Format(p.Value)
		if err != nil {
			return fmt.Errorf("property %s: %w", p.Key, err)
		}
		if i == 0 {
			b.WriteString(" SET ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s.%s = %s", variable, p.Key, lit)
	}
	return nil
}
