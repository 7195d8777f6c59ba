// Package recommend holds the request-scoped recommendation query and its result shape.
package recommend

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/vector/filter"
)

// Bounds for TopK.
const (
	MaxTopK     = 100
	DefaultTopK = 10
)

// Query is a validated recommendation request.
type Query struct {
	text     string
	city     string
	category string
	topK     int
}

// NewQuery validates and creates a Query. Failures wrap domain.ErrInvalidQuery.
func NewQuery(text, city, category string, topK int) (Query, error) {
	city = strings.TrimSpace(city)
	category = strings.TrimSpace(category)

	if city == "" {
		return Query{}, fmt.Errorf("%w: city is required", domain.ErrInvalidQuery)
	}
	if category == "" {
		return Query{}, fmt.Errorf("%w: category is required", domain.ErrInvalidQuery)
	}
	if topK < 1 || topK > MaxTopK {
		return Query{}, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", domain.ErrInvalidQuery, MaxTopK, topK)
	}
	return Query{text: text, city: city, category: category, topK: topK}, nil
}

// Text returns the free-text part of the query.
func (q Query) Text() string { return q.text }

// City returns the city filter.
func (q Query) City() string { return q.city }

// Category returns the category filter.
func (q Query) Category() string { return q.category }

// TopK returns the maximum number of results.
func (q Query) TopK() int { return q.topK }

// Filter returns the metadata filter city AND category.
func (q Query) Filter() (filter.Expression, error) {
	city, err := filter.Eq("city", q.city)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	category, err := filter.Eq("category", q.category)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	expr, err := filter.And(city, category)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	return expr, nil
}

// Result is the public projection of a recommended venue.
type Result struct {
	Name string
	URL  string
}
