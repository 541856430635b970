package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/recmin/core"
)

func TestProgramEval(t *testing.T) {
	schema := &core.Schema{
		Header: []string{"user_id", "item_id", "rating", "country"},
		User:   0, Item: 1, Rating: 2, Timestamp: -1,
	}
	row := &core.Interaction{
		User:   "u1",
		Item:   "i1",
		Rating: 4,
		Fields: []string{"u1", "i1", "4", "IT"},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "rating threshold", expr: "rating >= 3.0", want: true},
		{name: "rating threshold false", expr: "rating > 4.0", want: false},
		{name: "field access", expr: `fields["country"] == "IT"`, want: true},
		{name: "string function", expr: `user.startsWith("u") && item != "i2"`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := p.Eval(schema, row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("rating +")
	assert.Error(t, err)

	_, err = Compile("rating * 2.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}
