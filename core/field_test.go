package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldCoerce(t *testing.T) {
	intField := &Field{Column: "id", Kind: FieldInt}
	floatField := &Field{Column: "score", Kind: FieldFloat}
	textField := &Field{Column: "name", Kind: FieldText}
	nullableText := &Field{Column: "event_end", Kind: FieldText, Nullable: true}
	boolField := &Field{Column: "resolved", Kind: FieldBool}

	tests := []struct {
		name    string
		field   *Field
		in      any
		want    any
		wantErr bool
	}{
		{"int from int", intField, 5, int64(5), false},
		{"int from uint8", intField, uint8(5), int64(5), false},
		{"int from integral float", intField, float64(5), int64(5), false},
		{"int from fractional float", intField, 5.5, nil, true},
		{"int from float past int64", intField, 1e20, nil, true},
		{"int from float below int64", intField, -1e20, nil, true},
		{"int from float at 2^63", intField, float64(1 << 63), nil, true},
		{"int from large integral float", intField, 9.2e18, int64(9200000000000000000), false},
		{"int from string", intField, "42", int64(42), false},
		{"int from json number", intField, json.Number("42"), int64(42), false},
		{"int from garbage", intField, "x", nil, true},
		{"int from nil", intField, nil, nil, true},
		{"float from int", floatField, 3, float64(3), false},
		{"float from string", floatField, "2.5", 2.5, false},
		{"text from string", textField, "hello", "hello", false},
		{"text from bytes", textField, []byte("hello"), "hello", false},
		{"text from int", textField, 3, nil, true},
		{"nullable text from nil", nullableText, nil, nil, false},
		{"bool from string", boolField, "true", true, false},
		{"bool from int", boolField, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Coerce(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	err := NewError(KindConflict, "insert", "events", "id %d already exists", 1)

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "insert events: id 1 already exists", err.Error())
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}

func TestParseOperation(t *testing.T) {
	for _, s := range []string{"insert", "update", "delete"} {
		op, err := ParseOperation(s)
		assert.NoError(t, err)
		assert.Equal(t, Operation(s), op)
	}
	_, err := ParseOperation("upsert")
	assert.Error(t, err)
}
