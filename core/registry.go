package core

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
)

// Record is one row of one table, keyed by column name
type Record map[string]any

// Registry maps table names to their validated schema
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*Table),
	}
}

// Register registers a table described by a pointer to a model struct.
// Columns come from `db` tags, falling back to snake_case field names; the
// table name is the snake_case plural of the type name.
func (r *Registry) Register(model any) (*TableBuilder, error) {
	modelType := reflect.TypeOf(model)
	if modelType == nil || modelType.Kind() != reflect.Ptr || modelType.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("register expects a pointer to a struct, got %T", model)
	}

	table := &Table{
		Name:      generateTableName(modelType.Elem().Name()),
		ModelType: modelType,
		configs:   make(map[string]*FieldConfig),
	}
	if err := table.discoverFields(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Name] = table
	r.order = append(r.order, table.Name)

	return &TableBuilder{registry: r, table: table}, nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(model any) *TableBuilder {
	b, err := r.Register(model)
	if err != nil {
		panic(err)
	}
	return b
}

// Table looks up a table by name, case-insensitively
func (r *Registry) Table(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[strings.ToLower(name)]
	return t, ok
}

// Tables returns all registered tables in registration order
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// TableBuilder refines a registered table
type TableBuilder struct {
	registry *Registry
	table    *Table
	err      error
}

// WithName renames the table
func (tb *TableBuilder) WithName(name string) *TableBuilder {
	name = strings.ToLower(name)
	tb.registry.mu.Lock()
	defer tb.registry.mu.Unlock()

	delete(tb.registry.tables, tb.table.Name)
	for i, n := range tb.registry.order {
		if n == tb.table.Name {
			tb.registry.order[i] = name
		}
	}
	tb.table.Name = name
	tb.registry.tables[name] = tb.table
	return tb
}

// WithField configures the struct field fieldName
func (tb *TableBuilder) WithField(fieldName string, config func(*FieldBuilder)) *TableBuilder {
	builder := NewFieldBuilder()
	config(builder)
	tb.table.configs[fieldName] = builder.Build()

	if err := tb.table.discoverFields(); err != nil && tb.err == nil {
		tb.err = err
	}
	return tb
}

// Table returns the table being built, or the first configuration error
func (tb *TableBuilder) Table() (*Table, error) {
	if tb.err != nil {
		return nil, tb.err
	}
	return tb.table, nil
}

// TableNames returns the registered table names sorted alphabetically
func (r *Registry) TableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func columnName(field reflect.StructField) string {
	tag := field.Tag.Get("db")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strcase.ToSnake(field.Name)
}

func generateTableName(name string) string {
	return pluralize(strcase.ToSnake(name))
}

func pluralize(word string) string {
	if strings.HasSuffix(word, "y") {
		return strings.TrimSuffix(word, "y") + "ies"
	}
	if strings.HasSuffix(word, "s") || strings.HasSuffix(word, "x") ||
		strings.HasSuffix(word, "z") || strings.HasSuffix(word, "ch") ||
		strings.HasSuffix(word, "sh") {
		return word + "es"
	}
	return word + "s"
}
