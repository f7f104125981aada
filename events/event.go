package events

import (
	"encoding/json"
	"fmt"

	"github.com/eventhawk/eventhawk/core"
)

// Table is the name the events table is registered under
const Table = "events"

// Statuses are the event states reported by CountsByStatus
var Statuses = []string{"active", "pending", "completed", "failed", "cancelled"}

// Event is one row of the events table
type Event struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Summary     string  `db:"summary" json:"summary"`
	Status      string  `db:"status" json:"status"`
	Tag         string  `db:"tag" json:"tag"`
	Time        string  `db:"time" json:"time"`
	Description string  `db:"description" json:"description"`
	EventStart  *string `db:"event_start" json:"event_start"`
	EventEnd    *string `db:"event_end" json:"event_end"`
}

// EventPatch holds the fields of an update. Nil and unset fields are left
// untouched; the optional times can be cleared with an explicit null.
type EventPatch struct {
	Name        *string   `json:"name,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Tag         *string   `json:"tag,omitempty"`
	Time        *string   `json:"time,omitempty"`
	Description *string   `json:"description,omitempty"`
	EventStart  Clearable `json:"event_start,omitzero"`
	EventEnd    Clearable `json:"event_end,omitzero"`
}

// Clearable is an optional patch value that tells apart a missing field,
// an explicit null and a string
type Clearable struct {
	Set   bool
	Value *string
}

// SetTo returns a Clearable that stores s
func SetTo(s string) Clearable {
	return Clearable{Set: true, Value: &s}
}

// Cleared returns a Clearable that stores NULL
func Cleared() Clearable {
	return Clearable{Set: true}
}

// UnmarshalJSON marks the value as set, including for null
func (c *Clearable) UnmarshalJSON(data []byte) error {
	c.Set = true
	c.Value = nil
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	c.Value = &s
	return nil
}

// MarshalJSON encodes the value as a string or null
func (c Clearable) MarshalJSON() ([]byte, error) {
	if c.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*c.Value)
}

// Register adds the events table to the registry
func Register(registry *core.Registry) (*core.Table, error) {
	builder, err := registry.Register(&Event{})
	if err != nil {
		return nil, err
	}
	return builder.WithName(Table).Table()
}

// Record converts the event to a store record
func (e Event) Record() core.Record {
	r := core.Record{
		"id":          e.ID,
		"name":        e.Name,
		"summary":     e.Summary,
		"status":      e.Status,
		"tag":         e.Tag,
		"time":        e.Time,
		"description": e.Description,
		"event_start": nil,
		"event_end":   nil,
	}
	if e.EventStart != nil {
		r["event_start"] = *e.EventStart
	}
	if e.EventEnd != nil {
		r["event_end"] = *e.EventEnd
	}
	return r
}

// Record converts the patch to a partial store record keyed by id
func (p EventPatch) Record(id int64) core.Record {
	r := core.Record{"id": id}
	set := func(column string, v *string) {
		if v != nil {
			r[column] = *v
		}
	}
	set("name", p.Name)
	set("summary", p.Summary)
	set("status", p.Status)
	set("tag", p.Tag)
	set("time", p.Time)
	set("description", p.Description)
	setClearable := func(column string, v Clearable) {
		if !v.Set {
			return
		}
		if v.Value == nil {
			r[column] = nil
			return
		}
		r[column] = *v.Value
	}
	setClearable("event_start", p.EventStart)
	setClearable("event_end", p.EventEnd)
	return r
}

// IsEmpty reports whether the patch changes nothing
func (p EventPatch) IsEmpty() bool {
	return len(p.Record(0)) == 1
}

// FromRecord converts a store record into an Event
func FromRecord(r core.Record) (Event, error) {
	var e Event
	id, ok := r["id"].(int64)
	if !ok {
		return e, fmt.Errorf("record id has type %T", r["id"])
	}
	e.ID = id

	text := map[string]*string{
		"name":        &e.Name,
		"summary":     &e.Summary,
		"status":      &e.Status,
		"tag":         &e.Tag,
		"time":        &e.Time,
		"description": &e.Description,
	}
	for column, dst := range text {
		s, ok := r[column].(string)
		if !ok {
			return e, fmt.Errorf("record %s has type %T", column, r[column])
		}
		*dst = s
	}

	e.EventStart = optional(r["event_start"])
	e.EventEnd = optional(r["event_end"])
	return e, nil
}

func optional(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
