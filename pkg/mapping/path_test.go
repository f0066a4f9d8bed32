package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_NestedPath(t *testing.T) {
	data := map[string]any{
		"result": map[string]any{
			"total": 300,
			"user":  map[string]any{"name": "ada"},
		},
	}

	value, ok := Extract(data, "result.total")
	require.True(t, ok)
	assert.Equal(t, 300, value)

	value, ok = Extract(data, "result.user.name")
	require.True(t, ok)
	assert.Equal(t, "ada", value)
}

func TestExtract_ArrayIndex(t *testing.T) {
	data := map[string]any{
		"items": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}

	value, ok := Extract(data, "items[1].name")
	require.True(t, ok)
	assert.Equal(t, "second", value)

	_, ok = Extract(data, "items[5].name")
	assert.False(t, ok, "out-of-range index is an extraction miss")
}

func TestExtract_Wildcard(t *testing.T) {
	data := map[string]any{"items": []any{"a", "b", "c"}}

	value, ok := Extract(data, "items[*]")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b", "c"}, value)
}

func TestExtract_Misses(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": 1}}

	tests := []struct {
		name string
		path string
	}{
		{"missing key", "a.c"},
		{"traversal through scalar", "a.b.c"},
		{"empty path", ""},
		{"wildcard on non-array", "a[*]"},
		{"malformed index", "a[x]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Extract(data, tt.path)
			assert.False(t, ok)
		})
	}
}

func TestWrite_CreatesIntermediateMaps(t *testing.T) {
	dst := make(map[string]any)

	Write(dst, "user.profile.name", "ada")

	assert.Equal(t, map[string]any{
		"user": map[string]any{
			"profile": map[string]any{"name": "ada"},
		},
	}, dst)
}

func TestWrite_OverwritesScalarSegment(t *testing.T) {
	dst := map[string]any{"user": "scalar"}

	Write(dst, "user.name", "ada")

	assert.Equal(t, map[string]any{"user": map[string]any{"name": "ada"}}, dst)
}
