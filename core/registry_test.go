package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Incident struct {
	ID         int64   `db:"id"`
	Name       string  `db:"name"`
	Status     string  `db:"status"`
	Severity   int     `db:"severity"`
	Score      float64 `db:"score"`
	Resolved   bool    `db:"resolved"`
	OwnerEmail string
	EventStart *string `db:"event_start"`
	internal   string
	Scratch    string `db:"-"`
}

type NoKey struct {
	Name string
}

type BadType struct {
	ID   int
	Tags []string
}

func mustTable(t *testing.T) *Table {
	t.Helper()
	reg := NewRegistry()
	table, err := reg.MustRegister(&Incident{}).Table()
	require.NoError(t, err)
	return table
}

func TestRegisterDerivesSchema(t *testing.T) {
	table := mustTable(t)

	assert.Equal(t, "incidents", table.Name)
	assert.Equal(t,
		[]string{"id", "name", "status", "severity", "score", "resolved", "owner_email", "event_start"},
		table.Columns())

	pk := table.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Column)
	assert.True(t, pk.Required)
	assert.False(t, pk.Searchable)

	severity, ok := table.Field("severity")
	require.True(t, ok)
	assert.Equal(t, FieldInt, severity.Kind)

	score, _ := table.Field("Score")
	assert.Equal(t, FieldFloat, score.Kind)

	start, ok := table.Field("event_start")
	require.True(t, ok)
	assert.True(t, start.Nullable)
	assert.False(t, start.Required)
	assert.True(t, start.Searchable)

	_, ok = table.Field("Scratch")
	assert.False(t, ok, "db:\"-\" fields must be skipped")
}

func TestSearchFieldsAreTextOnly(t *testing.T) {
	table := mustTable(t)

	var columns []string
	for _, f := range table.SearchFields() {
		columns = append(columns, f.Column)
	}
	assert.Equal(t, []string{"name", "status", "owner_email", "event_start"}, columns)
}

func TestWithFieldOverrides(t *testing.T) {
	reg := NewRegistry()
	table, err := reg.MustRegister(&Incident{}).
		WithName("Ops_Incidents").
		WithField("OwnerEmail", func(f *FieldBuilder) {
			f.WithDBColumnName("owner").Required(false).Searchable(false)
		}).
		Table()
	require.NoError(t, err)

	assert.Equal(t, "ops_incidents", table.Name)
	owner, ok := table.Field("owner")
	require.True(t, ok)
	assert.True(t, owner.Nullable)
	assert.False(t, owner.Searchable)

	_, ok = reg.Table("incidents")
	assert.False(t, ok)
	found, ok := reg.Table("OPS_INCIDENTS")
	require.True(t, ok)
	assert.Same(t, table, found)
}

func TestRegisterRejectsInvalidModels(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Register(Incident{})
	assert.Error(t, err, "non-pointer model")

	_, err = reg.Register(&NoKey{})
	assert.Error(t, err, "model without primary key")

	_, err = reg.Register(&BadType{})
	assert.Error(t, err, "unsupported field type")

	assert.Empty(t, reg.Tables())
}

func TestRegistrationOrder(t *testing.T) {
	type Alpha struct{ ID int }
	type Beta struct{ ID int }

	reg := NewRegistry()
	reg.MustRegister(&Beta{})
	reg.MustRegister(&Alpha{})

	var names []string
	for _, table := range reg.Tables() {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{"betas", "alphas"}, names)
	assert.Equal(t, []string{"alphas", "betas"}, reg.TableNames())
}

func TestGenerateTableName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Event", "events"},
		{"Category", "categories"},
		{"Status", "statuses"},
		{"EventBatch", "event_batches"},
		{"AuditLog", "audit_logs"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, generateTableName(tt.input))
		})
	}
}

func TestResolveFilters(t *testing.T) {
	table := mustTable(t)

	resolved, err := table.ResolveFilters(map[string]any{"Status": "open", "severity": "3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "open", "severity": int64(3)}, resolved)

	_, err = table.ResolveFilters(map[string]any{"nope": 1})
	assert.Error(t, err)

	_, err = table.ResolveFilters(map[string]any{"severity": "high"})
	assert.Error(t, err)

	resolved, err = table.ResolveFilters(map[string]any{"event_start": nil})
	require.NoError(t, err)
	assert.Nil(t, resolved["event_start"])
}

func TestResolveInsert(t *testing.T) {
	table := mustTable(t)

	full := Record{
		"id": 7, "name": "disk full", "status": "open", "severity": 2,
		"score": 0.5, "resolved": false, "owner_email": "ops@example.com",
	}
	columns, values, err := table.ResolveInsert(full)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "status", "severity", "score", "resolved", "owner_email"}, columns)
	assert.Equal(t, int64(7), values[0])

	missing := Record{"id": 7, "name": "disk full"}
	_, _, err = table.ResolveInsert(missing)
	assert.ErrorContains(t, err, "is required")

	unknown := Record{"id": 7, "bogus": true}
	_, _, err = table.ResolveInsert(unknown)
	assert.ErrorContains(t, err, "unknown field")
}

func TestResolveUpdate(t *testing.T) {
	table := mustTable(t)

	key, set, err := table.ResolveUpdate(Record{"id": float64(7), "status": "closed"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), key)
	assert.Equal(t, map[string]any{"status": "closed"}, set)

	_, _, err = table.ResolveUpdate(Record{"status": "closed"})
	assert.Error(t, err, "update without key")

	_, _, err = table.ResolveUpdate(Record{"id": 7, "name": nil})
	assert.Error(t, err, "required field cannot be nulled")
}
