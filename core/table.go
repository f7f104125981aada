package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/samber/lo"
)

// Table represents a registered table with its field schema
type Table struct {
	Name      string       `json:"name"`
	Fields    []*Field     `json:"fields"`
	ModelType reflect.Type `json:"-"`
	configs   map[string]*FieldConfig
}

// Field resolves a field by column name or by Go field name
func (t *Table) Field(name string) (*Field, bool) {
	for _, f := range t.Fields {
		if f.Column == name || f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// PrimaryKey returns the primary key field
func (t *Table) PrimaryKey() *Field {
	for _, f := range t.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// Columns returns the column names in declaration order
func (t *Table) Columns() []string {
	return lo.Map(t.Fields, func(f *Field, _ int) string { return f.Column })
}

// SearchFields returns the text fields matched by a search query
func (t *Table) SearchFields() []*Field {
	return lo.Filter(t.Fields, func(f *Field, _ int) bool { return f.Searchable })
}

// ResolveFilters validates filter names and values, returning values keyed by column
func (t *Table) ResolveFilters(filters map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(filters))
	for name, value := range filters {
		f, ok := t.Field(name)
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q", name)
		}
		v, err := f.Coerce(value)
		if err != nil {
			return nil, err
		}
		resolved[f.Column] = v
	}
	return resolved, nil
}

// ResolveSort validates a sort field and returns its column
func (t *Table) ResolveSort(name string) (string, error) {
	f, ok := t.Field(name)
	if !ok {
		return "", fmt.Errorf("unknown order_by field %q", name)
	}
	return f.Column, nil
}

// ResolveKey extracts and coerces the primary key value from data
func (t *Table) ResolveKey(data Record) (any, error) {
	pk := t.PrimaryKey()
	raw, ok := lookup(data, pk)
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s is required", pk.Column)
	}
	return pk.Coerce(raw)
}

// ResolveInsert validates a complete record and returns its columns and values
func (t *Table) ResolveInsert(data Record) ([]string, []any, error) {
	if err := t.rejectUnknown(data); err != nil {
		return nil, nil, err
	}

	var columns []string
	var values []any
	for _, f := range t.Fields {
		raw, ok := lookup(data, f)
		if !ok || raw == nil {
			if f.Required {
				return nil, nil, fmt.Errorf("%s is required", f.Column)
			}
			continue
		}
		v, err := f.Coerce(raw)
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, f.Column)
		values = append(values, v)
	}
	return columns, values, nil
}

// ResolveUpdate validates a partial record. It returns the key and the
// column values to set; fields absent from data are not included.
func (t *Table) ResolveUpdate(data Record) (any, map[string]any, error) {
	if err := t.rejectUnknown(data); err != nil {
		return nil, nil, err
	}
	key, err := t.ResolveKey(data)
	if err != nil {
		return nil, nil, err
	}

	set := make(map[string]any)
	for _, f := range t.Fields {
		if f.PrimaryKey {
			continue
		}
		raw, ok := lookup(data, f)
		if !ok {
			continue
		}
		v, err := f.Coerce(raw)
		if err != nil {
			return nil, nil, err
		}
		set[f.Column] = v
	}
	return key, set, nil
}

func (t *Table) rejectUnknown(data Record) error {
	for name := range data {
		if _, ok := t.Field(name); !ok {
			return fmt.Errorf("unknown field %q", name)
		}
	}
	return nil
}

func lookup(data Record, f *Field) (any, bool) {
	if v, ok := data[f.Column]; ok {
		return v, true
	}
	v, ok := data[f.Name]
	return v, ok
}

// discoverFields extracts field information from the model struct using reflection
func (t *Table) discoverFields() error {
	st := t.ModelType
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}

	t.Fields = make([]*Field, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		column := columnName(sf)
		if column == "" {
			continue
		}

		kind, nullable, err := kindOf(sf.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", sf.Name, err)
		}

		f := &Field{
			Name:       sf.Name,
			Column:     column,
			Kind:       kind,
			PrimaryKey: isPrimaryKeyField(sf),
			Required:   !nullable,
			Nullable:   nullable,
			Searchable: kind == FieldText,
		}
		if f.PrimaryKey {
			f.Searchable = false
		}
		if cfg, ok := t.configs[sf.Name]; ok {
			cfg.Apply(f)
		}
		t.Fields = append(t.Fields, f)
	}

	pks := lo.Filter(t.Fields, func(f *Field, _ int) bool { return f.PrimaryKey })
	if len(pks) != 1 {
		return fmt.Errorf("table %s must declare exactly one primary key, found %d", t.Name, len(pks))
	}
	return nil
}

func isPrimaryKeyField(field reflect.StructField) bool {
	dbTag := field.Tag.Get("db")
	if dbTag != "" && (dbTag == "id" || strings.Contains(dbTag, "primary")) {
		return true
	}
	return field.Name == "ID"
}

func kindOf(t reflect.Type) (FieldKind, bool, error) {
	nullable := false
	if t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return FieldInt, nullable, nil
	case reflect.Float32, reflect.Float64:
		return FieldFloat, nullable, nil
	case reflect.String:
		return FieldText, nullable, nil
	case reflect.Bool:
		return FieldBool, nullable, nil
	}
	return "", false, fmt.Errorf("unsupported type %s", t)
}
