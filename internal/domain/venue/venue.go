// Package venue holds the Venue aggregate and the classifier/embedding document built from it.
package venue

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
)

// Venue is a place that gets scored against personas and indexed for recommendations.
type Venue struct {
	ID           string
	Name         string
	URL          string
	City         string
	Category     string
	ThumbnailURL string
	Categories   []string
	Features     []string
	Summary      string
}

// Validate checks the fields required to write a venue.
func (v Venue) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidVenue)
	}
	return nil
}

// Metadata returns the filterable attributes stored next to the venue's vector.
func (v Venue) Metadata() map[string]string {
	return map[string]string{
		"city":     v.City,
		"category": v.Category,
		"name":     v.Name,
		"url":      v.URL,
	}
}

// Scored pairs a venue with its classifier output.
type Scored struct {
	Venue  Venue
	Scores persona.Scores
}

// Document field labels, in the order they are rendered.
const (
	LabelName       = "Name"
	LabelCategories = "Categories"
	LabelFeatures   = "Features"
	LabelSummary    = "Summary"
)

// Document is the labelled text representation of a venue.
type Document struct {
	fields [4]string
}

// BuildDocument renders the venue into its document. Missing fields become empty strings.
func BuildDocument(v Venue) Document {
	return Document{fields: [4]string{
		strings.TrimSpace(v.Name),
		joinList(v.Categories),
		joinList(v.Features),
		strings.TrimSpace(v.Summary),
	}}
}

// HasText reports whether any field carries non-blank text.
func (d Document) HasText() bool {
	for _, f := range d.fields {
		if f != "" {
			return true
		}
	}
	return false
}

// String renders every label, one field per line, in fixed order.
func (d Document) String() string {
	labels := [4]string{LabelName, LabelCategories, LabelFeatures, LabelSummary}
	var b strings.Builder
	for i, l := range labels {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
		b.WriteString(": ")
		b.WriteString(d.fields[i])
	}
	return b.String()
}

func joinList(items []string) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
