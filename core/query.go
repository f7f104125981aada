package core

import (
	"errors"
	"maps"
)

// SortDirection represents the sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField represents a field to sort by
type SortField struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Pagination represents pagination parameters. A zero Limit means unbounded.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query describes a read: exact-match filters, a search string, ordering and pagination
type Query struct {
	Filters    map[string]any `json:"filters"`
	Search     string         `json:"search_query"`
	Sort       []SortField    `json:"sort"`
	Pagination Pagination     `json:"pagination"`
}

// NewQuery creates an empty, unbounded query
func NewQuery() *Query {
	return &Query{
		Filters: make(map[string]any),
		Sort:    []SortField{},
	}
}

// WithFilters adds filters to the query
func (q *Query) WithFilters(filters map[string]any) *Query {
	if q.Filters == nil {
		q.Filters = make(map[string]any, len(filters))
	}
	for k, v := range filters {
		q.Filters[k] = v
	}
	return q
}

// WithFilter adds a single filter to the query
func (q *Query) WithFilter(field string, value any) *Query {
	if q.Filters == nil {
		q.Filters = make(map[string]any)
	}
	q.Filters[field] = value
	return q
}

// WithSearch sets the search string
func (q *Query) WithSearch(search string) *Query {
	q.Search = search
	return q
}

// WithSort adds a sort field to the query
func (q *Query) WithSort(field string, direction SortDirection) *Query {
	q.Sort = append(q.Sort, SortField{
		Field:     field,
		Direction: direction,
	})
	return q
}

// WithPagination sets pagination parameters
func (q *Query) WithPagination(limit, offset int) *Query {
	q.Pagination.Limit = limit
	q.Pagination.Offset = offset
	return q
}

// Validate checks the query parameters that do not depend on a table schema
func (q *Query) Validate() error {
	if q.Pagination.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	if q.Pagination.Offset < 0 {
		return errors.New("offset must be non-negative")
	}
	for _, s := range q.Sort {
		if s.Direction != "" && !s.Direction.IsValid() {
			return errors.New("invalid sort direction " + string(s.Direction))
		}
	}
	return nil
}

// Clone returns a deep copy of the query
func (q *Query) Clone() *Query {
	clone := &Query{
		Filters:    maps.Clone(q.Filters),
		Search:     q.Search,
		Sort:       make([]SortField, len(q.Sort)),
		Pagination: q.Pagination,
	}
	if clone.Filters == nil {
		clone.Filters = make(map[string]any)
	}
	copy(clone.Sort, q.Sort)
	return clone
}

// NextPage creates a new query for the next page
func (q *Query) NextPage() *Query {
	next := q.Clone()
	next.Pagination.Offset += next.Pagination.Limit
	return next
}

// HasSort returns true if the query has sorting
func (q *Query) HasSort() bool {
	return len(q.Sort) > 0
}

// ApplyDefaultSort orders by the primary key ascending if no sort is specified
func (q *Query) ApplyDefaultSort(table *Table) {
	if q.HasSort() {
		return
	}
	q.WithSort(table.PrimaryKey().Column, SortAsc)
}

// String returns a string representation of the sort direction
func (sd SortDirection) String() string {
	return string(sd)
}

// IsValid checks if the sort direction is valid
func (sd SortDirection) IsValid() bool {
	return sd == SortAsc || sd == SortDesc
}
