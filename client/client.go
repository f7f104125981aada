// Package client is a Go client for the EventHawk REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eventhawk/eventhawk/events"
)

const DefaultBaseURL = "http://localhost:8000"

// APIError is returned for every non-2xx response
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eventhawk: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
}

// IsNotFound reports whether err is an APIError with status 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// EventList is a page of events and the number of events matching the query
type EventList struct {
	Events []events.Event `json:"events"`
	Total  int64          `json:"total"`
}

// Health is the response of the health endpoint
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client talks to an EventHawk server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(segments ...string) *URLBuilder {
	return NewURL(c.baseURL, append([]string{"api"}, segments...)...)
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, c.url("health").String(), nil, &h)
	return h, err
}

// CreateEvent creates an event with a caller-chosen id
func (c *Client) CreateEvent(ctx context.Context, e events.Event) (events.Event, error) {
	var created events.Event
	err := c.do(ctx, http.MethodPost, c.url("events").String(), e, &created)
	return created, err
}

// GetEvent fetches one event
func (c *Client) GetEvent(ctx context.Context, id int64) (events.Event, error) {
	var e events.Event
	err := c.do(ctx, http.MethodGet, c.url("events", strconv.FormatInt(id, 10)).String(), nil, &e)
	return e, err
}

// ListEvents fetches a page of events. An empty search lists all events.
func (c *Client) ListEvents(ctx context.Context, offset, limit int, search string) (EventList, error) {
	var list EventList
	target := c.url("events").WithPagination(offset, limit).WithSearch(search).String()
	err := c.do(ctx, http.MethodGet, target, nil, &list)
	return list, err
}

// SearchEvents returns up to limit events matching query
func (c *Client) SearchEvents(ctx context.Context, query string, limit int) ([]events.Event, error) {
	list, err := c.ListEvents(ctx, 0, limit, query)
	return list.Events, err
}

// UpdateEvent applies a partial update and returns the stored event
func (c *Client) UpdateEvent(ctx context.Context, id int64, patch events.EventPatch) (events.Event, error) {
	var updated events.Event
	err := c.do(ctx, http.MethodPut, c.url("events", strconv.FormatInt(id, 10)).String(), patch, &updated)
	return updated, err
}

// DeleteEvent deletes an event
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, c.url("events", strconv.FormatInt(id, 10)).String(), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("eventhawk: delete of event %d was not acknowledged", id)
	}
	return nil
}

// EventsByStatus returns all events with the given status
func (c *Client) EventsByStatus(ctx context.Context, status string) ([]events.Event, error) {
	var list EventList
	err := c.do(ctx, http.MethodGet, c.url("events", "status", status).String(), nil, &list)
	return list.Events, err
}

// EventsByTag returns all events with the given tag
func (c *Client) EventsByTag(ctx context.Context, tag string) ([]events.Event, error) {
	var list EventList
	err := c.do(ctx, http.MethodGet, c.url("events", "tag", tag).String(), nil, &list)
	return list.Events, err
}

// EventCounts returns the number of events per status
func (c *Client) EventCounts(ctx context.Context) (map[string]int64, error) {
	var counts map[string]int64
	err := c.do(ctx, http.MethodGet, c.url("events", "stats", "counts").String(), nil, &counts)
	return counts, err
}

// RecentEvents pages through all events and returns up to limit of those
// whose time is within the last since. Events with unparseable times are skipped.
func (c *Client) RecentEvents(ctx context.Context, since time.Duration, limit int) ([]events.Event, error) {
	const batch = 100
	cutoff := time.Now().Add(-since)

	var recent []events.Event
	for offset := 0; len(recent) < limit; offset += batch {
		page, err := c.ListEvents(ctx, offset, batch, "")
		if err != nil {
			return nil, err
		}
		for _, e := range page.Events {
			at, err := e.At()
			if err != nil || at.Before(cutoff) {
				continue
			}
			recent = append(recent, e)
			if len(recent) == limit {
				break
			}
		}
		if len(page.Events) < batch {
			break
		}
	}
	return recent, nil
}

func (c *Client) do(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Detail string `json:"detail"`
	}
	detail := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Detail != "" {
		detail = body.Detail
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}
