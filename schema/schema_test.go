package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/recmin/core"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		header   []string
		keywords Keywords
		wantErr  func(error) bool
		want     [4]int
	}{
		{
			name:     "case insensitive substring",
			header:   []string{"USER_ID:token", "ITEM_ID:TOKEN", "RATING:float", "Timestamp:float"},
			keywords: DefaultKeywords(),
			want:     [4]int{0, 1, 2, 3},
		},
		{
			name:     "optional timestamp absent",
			header:   []string{"userId", "movieItem", "rating"},
			keywords: DefaultKeywords(),
			want:     [4]int{0, 1, 2, -1},
		},
		{
			name:     "ambiguous",
			header:   []string{"user_id", "user_name", "item_id", "rating"},
			keywords: DefaultKeywords(),
			wantErr:  core.IsAmbiguousColumn,
		},
		{
			name:     "missing",
			header:   []string{"user_id", "track_id", "rating"},
			keywords: DefaultKeywords(),
			wantErr:  core.IsMissingColumn,
		},
		{
			name:   "item keyword required even if omitted",
			header: []string{"user_id", "rating"},
			keywords: Keywords{
				{Column: core.ColumnUser, Keyword: "user"},
				{Column: core.ColumnRating, Keyword: "rating"},
			},
			wantErr: core.IsMissingColumn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(tt.header, tt.keywords)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, [4]int{s.User, s.Item, s.Rating, s.Timestamp})
		})
	}
}

func TestNormalize(t *testing.T) {
	header := []string{"USER_ID:token", "ITEM_ID:TOKEN", "RATING:float"}
	records := [][]string{
		{"u1", "i1", "5.0"},
		{"u2", "i9", "3"},
	}
	in, err := Load(header, records, DefaultKeywords())
	require.NoError(t, err)

	out, err := Normalize(in, Keywords{
		{Column: core.ColumnUser, Keyword: "user"},
		{Column: core.ColumnItem, Keyword: "item"},
		{Column: core.ColumnRating, Keyword: "rating"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "item", "rating"}, out.Schema.Header)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{"u1", "i1", "5.0"}, out.Rows[0].Fields)
	assert.Equal(t, []string{"u2", "i9", "3"}, out.Rows[1].Fields)
	assert.Equal(t, "5.0", out.Value(0, core.ColumnRating))

	// 输入表不受影响
	assert.Equal(t, header, in.Schema.Header)
	assert.Equal(t, []string{"u1", "i1", "5.0"}, in.Rows[0].Fields)
}

func TestNormalizeOrderFollowsKeywords(t *testing.T) {
	in, err := Load([]string{"ts", "Rating", "Item", "User"}, [][]string{{"1", "4", "a", "x"}}, Keywords{
		{Column: core.ColumnUser, Keyword: "user"},
		{Column: core.ColumnItem, Keyword: "item"},
	})
	require.NoError(t, err)

	out, err := Normalize(in, Keywords{
		{Column: core.ColumnRating, Keyword: "rating"},
		{Column: core.ColumnUser, Keyword: "user"},
		{Column: core.ColumnItem, Keyword: "item"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rating", "user", "item"}, out.Schema.Header)
	assert.Equal(t, []string{"4", "x", "a"}, out.Rows[0].Fields)
}

func TestBindInvalidNumber(t *testing.T) {
	_, err := Load([]string{"user", "item", "rating"}, [][]string{{"u", "i", "five"}}, DefaultKeywords())
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
	assert.Contains(t, err.Error(), "row 1")
}
