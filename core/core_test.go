package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorChecks(t *testing.T) {
	base := Errorf(ModuleSplit, ErrorCodeInvalidRatio, "ratios must sum to 1, got %v", 0.9)
	wrapped := fmt.Errorf("dataset ml-1m: %w", base)

	assert.True(t, IsInvalidRatio(wrapped))
	assert.False(t, IsMissingColumn(wrapped))
	assert.Equal(t, ModuleSplit, GetDomainError(wrapped).Module)
	assert.Nil(t, GetDomainError(errors.New("plain")))
	assert.False(t, IsNotFound(nil))

	cause := errors.New("connection refused")
	de := WrapDomainError(ModuleStore, ErrorCodeUnavailable, "redis localhost:6379", cause)
	assert.ErrorIs(t, de, cause)
	assert.Equal(t, "redis localhost:6379: connection refused", de.Error())
}

func TestStoreNotFound(t *testing.T) {
	assert.True(t, IsStoreNotFound(fmt.Errorf("get: %w", ErrStoreNotFound)))
	assert.False(t, IsStoreNotFound(Errorf(ModuleDataset, ErrorCodeNotFound, "x")))
	assert.True(t, IsNotFound(ErrStoreNotFound))
}

func testTable() *Table {
	s := &Schema{
		Header:    []string{"user_id", "item_id", "rating", "ts"},
		User:      0,
		Item:      1,
		Rating:    2,
		Timestamp: 3,
		Order:     []Column{ColumnUser, ColumnItem, ColumnRating, ColumnTimestamp},
	}
	rows := [][]string{
		{"u2", "a", "5.0", "10"},
		{"u1", "b", "3", "20"},
		{"u2", "c", "4", "30"},
	}
	out := make([]Interaction, len(rows))
	for i, r := range rows {
		out[i] = Interaction{User: r[0], Item: r[1], Fields: r}
	}
	return NewTable(s, out)
}

func TestTable(t *testing.T) {
	tbl := testTable()

	assert.Equal(t, []string{"u2", "u1"}, tbl.Unique(ColumnUser))
	assert.Equal(t, map[string]int{"u1": 1, "u2": 2}, tbl.Counts(ColumnUser))

	keys, groups := tbl.GroupBy(ColumnUser)
	assert.Equal(t, []string{"u1", "u2"}, keys)
	assert.Equal(t, []int{0, 2}, groups["u2"])

	assert.Equal(t, "5.0", tbl.Value(0, ColumnRating))
	assert.Equal(t, []string{"u2", "a", "5.0"}, tbl.CanonicalRecord(0))

	sub := tbl.Select([]int{2, 0})
	assert.Equal(t, "c", sub.Rows[0].Item)
	assert.Equal(t, 3, tbl.Len())

	kept := tbl.Where(func(r *Interaction) bool { return r.User == "u1" })
	assert.Equal(t, 1, kept.Len())
	assert.Same(t, tbl.Schema, kept.Schema)
}

func TestGroupByStringOrder(t *testing.T) {
	tbl := testTable()
	for i, u := range []string{"10", "2", "1"} {
		tbl.Rows[i].User = u
	}
	// 数字 id 也按字符串排序
	keys, groups := tbl.GroupBy(ColumnUser)
	assert.Equal(t, []string{"1", "10", "2"}, keys)
	assert.Equal(t, []int{1}, groups["2"])
}

func TestSchema(t *testing.T) {
	s := testTable().Schema
	assert.True(t, s.HasTimestamp())
	assert.Equal(t, "ts", s.Source(ColumnTimestamp))
	assert.Equal(t, []string{"user", "item", "rating", "timestamp"}, s.Canonical())

	s2 := &Schema{User: 0, Item: 1, Rating: -1, Timestamp: -1}
	err := s2.Require(ModuleMinimize, ColumnRating)
	require.Error(t, err)
	assert.True(t, IsMissingColumn(err))
}

func TestParseColumn(t *testing.T) {
	c, err := ParseColumn("Item")
	require.NoError(t, err)
	assert.Equal(t, ColumnItem, c)

	_, err = ParseColumn("genre")
	assert.True(t, IsInvalidInput(err))
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	assert.Equal(t, a.Perm(20), b.Perm(20))
	assert.NotEqual(t, NewRand(1).Perm(20), NewRand(2).Perm(20))
}

func TestRunContext(t *testing.T) {
	rctx := NewRunContext("ml-1m", 42)
	assert.NotEmpty(t, rctx.RunID)
	other := rctx.WithDataset("ambar")
	assert.Equal(t, rctx.RunID, other.RunID)
	assert.Equal(t, "ambar", other.Dataset)
	assert.Equal(t, "ml-1m", rctx.Dataset)
}
