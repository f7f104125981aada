package client

import (
	"net/url"
	"strconv"
	"strings"
)

// URLBuilder provides a fluent interface for building API URLs
type URLBuilder struct {
	basePath string
	params   url.Values
}

// NewURL creates a URL builder for base joined with the escaped path segments
func NewURL(base string, segments ...string) *URLBuilder {
	path := strings.TrimRight(base, "/")
	for _, s := range segments {
		path += "/" + url.PathEscape(s)
	}
	return &URLBuilder{
		basePath: path,
		params:   make(url.Values),
	}
}

// WithPagination sets pagination parameters
func (b *URLBuilder) WithPagination(offset, limit int) *URLBuilder {
	b.params.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		b.params.Set("limit", strconv.Itoa(limit))
	}
	return b
}

// WithSearch sets the search query
func (b *URLBuilder) WithSearch(query string) *URLBuilder {
	if query = strings.TrimSpace(query); query != "" {
		b.params.Set("search_query", query)
	}
	return b
}

// WithParam sets an arbitrary parameter, skipping empty values
func (b *URLBuilder) WithParam(key, value string) *URLBuilder {
	if key != "" && value != "" {
		b.params.Set(key, value)
	}
	return b
}

// RemoveParam removes a parameter
func (b *URLBuilder) RemoveParam(key string) *URLBuilder {
	b.params.Del(key)
	return b
}

// String builds and returns the final URL
func (b *URLBuilder) String() string {
	if len(b.params) == 0 {
		return b.basePath
	}
	return b.basePath + "?" + b.params.Encode()
}
