package core

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// FieldKind is the storage type of a field
type FieldKind string

const (
	FieldInt   FieldKind = "int"
	FieldFloat FieldKind = "float"
	FieldText  FieldKind = "text"
	FieldBool  FieldKind = "bool"
)

// Field describes one column of a registered table
type Field struct {
	Name       string    `json:"name"`
	Column     string    `json:"column"`
	Kind       FieldKind `json:"kind"`
	PrimaryKey bool      `json:"primary_key"`
	Required   bool      `json:"required"`
	Nullable   bool      `json:"nullable"`
	Searchable bool      `json:"searchable"`
}

// Coerce converts v to the canonical Go value for the field kind:
// int64, float64, string or bool. nil is accepted only for nullable fields.
func (f *Field) Coerce(v any) (any, error) {
	if v == nil {
		if f.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("field %s cannot be null", f.Column)
	}

	switch f.Kind {
	case FieldInt:
		return coerceInt(f.Column, v)
	case FieldFloat:
		return coerceFloat(f.Column, v)
	case FieldText:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		case *string:
			if s == nil {
				return f.Coerce(nil)
			}
			return *s, nil
		}
	case FieldBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err == nil {
				return parsed, nil
			}
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		}
	}

	return nil, fmt.Errorf("field %s expects %s, got %T", f.Column, f.Kind, v)
}

func coerceInt(column string, v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("field %s: value %d overflows int64", column, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		fv := rv.Float()
		if fv != math.Trunc(fv) {
			return nil, fmt.Errorf("field %s expects an integer, got %v", column, fv)
		}
		// math.MaxInt64 rounds up to 2^63 as a float64
		if fv < math.MinInt64 || fv >= math.MaxInt64 {
			return nil, fmt.Errorf("field %s: value %v overflows int64", column, fv)
		}
		return int64(fv), nil
	case reflect.String:
		if n, ok := v.(json.Number); ok {
			return n.Int64()
		}
		parsed, err := strconv.ParseInt(rv.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s expects an integer, got %q", column, rv.String())
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("field %s expects int, got %T", column, v)
}

func coerceFloat(column string, v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		parsed, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s expects a number, got %q", column, rv.String())
		}
		return parsed, nil
	}
	return nil, fmt.Errorf("field %s expects float, got %T", column, v)
}

// FieldConfig holds configuration applied on top of a discovered field
type FieldConfig struct {
	Column     string
	Required   *bool
	Searchable *bool
	PrimaryKey bool
}

// Apply applies the configuration to a Field
func (fc *FieldConfig) Apply(f *Field) {
	if fc.Column != "" {
		f.Column = fc.Column
	}
	if fc.Required != nil {
		f.Required = *fc.Required
		f.Nullable = !*fc.Required
	}
	if fc.Searchable != nil {
		f.Searchable = *fc.Searchable && f.Kind == FieldText
	}
	if fc.PrimaryKey {
		f.PrimaryKey = true
		f.Required = true
		f.Nullable = false
	}
}

// FieldBuilder provides fluent API for configuring fields
type FieldBuilder struct {
	config *FieldConfig
}

// NewFieldBuilder creates a new FieldBuilder
func NewFieldBuilder() *FieldBuilder {
	return &FieldBuilder{
		config: &FieldConfig{},
	}
}

// WithDBColumnName sets the database column name for the field
func (fb *FieldBuilder) WithDBColumnName(column string) *FieldBuilder {
	fb.config.Column = column
	return fb
}

// Required marks the field as required on insert. Optional fields are nullable.
func (fb *FieldBuilder) Required(required bool) *FieldBuilder {
	fb.config.Required = &required
	return fb
}

// Searchable includes or excludes a text field from search
func (fb *FieldBuilder) Searchable(searchable bool) *FieldBuilder {
	fb.config.Searchable = &searchable
	return fb
}

// PrimaryKey marks the field as the primary key
func (fb *FieldBuilder) PrimaryKey() *FieldBuilder {
	fb.config.PrimaryKey = true
	return fb
}

// Build returns the final FieldConfig
func (fb *FieldBuilder) Build() *FieldConfig {
	return fb.config
}
