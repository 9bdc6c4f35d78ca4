package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFromAny(t *testing.T) {
	c, err := ContextFromAny(map[string]any{
		"domain": "physics",
		"level":  3,
		"strict": true,
		"tags":   []any{"a", "b"},
		"meta":   map[string]any{"source": "lab"},
	})
	require.NoError(t, err)

	assert.Equal(t, KindString, c["domain"].Kind())
	assert.Equal(t, KindNumber, c["level"].Kind())
	assert.Equal(t, KindBool, c["strict"].Kind())
	assert.Equal(t, KindList, c["tags"].Kind())
	assert.Equal(t, KindMap, c["meta"].Kind())
	assert.True(t, c["level"].Equal(Number(3)))
}

func TestContextFromAnyRejects(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"nil value", map[string]any{"k": nil}},
		{"struct", map[string]any{"k": struct{}{}}},
		{"channel", map[string]any{"k": make(chan int)}},
		{"nested nil", map[string]any{"k": []any{"ok", nil}}},
		{"too deep", map[string]any{"k": map[string]any{"a": map[string]any{"b": map[string]any{"c": []any{"x"}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ContextFromAny(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidContext), "got %v", err)
		})
	}
}

func TestContextTooManyEntries(t *testing.T) {
	m := make(map[string]any, MaxContextEntries+1)
	for i := 0; i <= MaxContextEntries; i++ {
		m[strings.Repeat("k", i+1)] = i
	}
	_, err := ContextFromAny(m)
	assert.True(t, errors.Is(err, ErrInvalidContext))
}

func TestValueString(t *testing.T) {
	v := Map(map[string]Value{
		"b": List(Number(1.5), Bool(false)),
		"a": String("Physics"),
	})
	assert.Equal(t, "{a: Physics, b: [1.5, false]}", v.String())
}

func TestValueEqual(t *testing.T) {
	a := List(String("x"), Map(map[string]Value{"n": Number(1)}))
	b := List(String("x"), Map(map[string]Value{"n": Number(1)}))
	c := List(String("x"), Map(map[string]Value{"n": Number(2)}))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, String("1").Equal(Number(1)))
}

func TestContextJSONRoundTrip(t *testing.T) {
	c, err := ParseContext(`{"domain":"physics","tags":["x","y"],"n":2}`)
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Context
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 3)
	for k, v := range c {
		assert.True(t, v.Equal(back[k]), "key %s", k)
	}
}

func TestParseContext(t *testing.T) {
	c, err := ParseContext("  ")
	require.NoError(t, err)
	assert.Empty(t, c)

	_, err = ParseContext(`{"k": null}`)
	assert.True(t, errors.Is(err, ErrInvalidContext))

	_, err = ParseContext(`not json`)
	assert.True(t, errors.Is(err, ErrInvalidContext))
}

func TestContextValidate(t *testing.T) {
	ok := Context{"a": String("x")}
	assert.NoError(t, ok.Validate())

	bad := Context{"a": Value{}}
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidContext))
}

func TestContextValidateRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c := Context{"x": Number(f)}
		assert.True(t, errors.Is(c.Validate(), ErrInvalidContext), "top level %v", f)

		nested := Context{"x": List(String("a"), Map(map[string]Value{"n": Number(f)}))}
		assert.True(t, errors.Is(nested.Validate(), ErrInvalidContext), "nested %v", f)
	}
	assert.NoError(t, Context{"x": Number(1.5)}.Validate())
}

func TestMemoryItemClone(t *testing.T) {
	c, err := ContextFromAny(map[string]any{"k": "v"})
	require.NoError(t, err)
	orig := MemoryItem{ID: "1", Context: c}

	cp := orig.Clone()
	cp.Context["k"] = String("changed")
	assert.Equal(t, "v", orig.Context["k"].String())
}
