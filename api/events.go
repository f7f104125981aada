package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eventhawk/eventhawk/events"
)

// EventList is a page of events and the number of events matching the query
type EventList struct {
	Events []events.Event `json:"events"`
	Total  int64          `json:"total"`
}

// createRequest requires the caller-supplied id to be present
type createRequest struct {
	ID *int64 `json:"id"`
	events.Event
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == nil {
		writeDetail(w, http.StatusBadRequest, "id is required")
		return
	}
	req.Event.ID = *req.ID

	created, err := s.events.Create(r.Context(), req.Event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseListOptions(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	list, total, err := s.events.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventList{Events: list, Total: total})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	event, err := s.events.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var patch events.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	updated, err := s.events.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.events.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleEventsByStatus(w http.ResponseWriter, r *http.Request) {
	list, err := s.events.ByStatus(r.Context(), r.PathValue("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventList{Events: list, Total: int64(len(list))})
}

func (s *Server) handleEventsByTag(w http.ResponseWriter, r *http.Request) {
	list, err := s.events.ByTag(r.Context(), r.PathValue("tag"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EventList{Events: list, Total: int64(len(list))})
}

func (s *Server) handleEventCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.events.CountsByStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// parseListOptions reads offset, limit and the search string. The search may
// be given as search_query or q.
func (s *Server) parseListOptions(r *http.Request) (events.ListOptions, error) {
	params := r.URL.Query()
	opts := events.ListOptions{Limit: s.opts.PageSize}

	if v := params.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return opts, fmt.Errorf("offset must be a non-negative integer")
		}
		opts.Offset = offset
	}
	if v := params.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > s.opts.MaxPageSize {
			return opts, fmt.Errorf("limit must be an integer between 1 and %d", s.opts.MaxPageSize)
		}
		opts.Limit = limit
	}

	opts.Search = params.Get("search_query")
	if opts.Search == "" {
		opts.Search = params.Get("q")
	}
	opts.Search = strings.TrimSpace(opts.Search)
	return opts, nil
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid event id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}
