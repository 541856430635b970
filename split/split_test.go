package split

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/recmin/core"
)

// grid 构造 users 个用户、每个用户 perUser 行的表
func grid(users, perUser int) *core.Table {
	s := &core.Schema{Header: []string{"user", "item", "rating"}, User: 0, Item: 1, Rating: 2, Timestamp: -1}
	var rows []core.Interaction
	for u := 0; u < users; u++ {
		for i := 0; i < perUser; i++ {
			user, item := fmt.Sprintf("u%02d", u), fmt.Sprintf("i%02d", i)
			rows = append(rows, core.Interaction{User: user, Item: item, Rating: float64(i % 5), Fields: []string{user, item, fmt.Sprint(i % 5)}})
		}
	}
	return core.NewTable(s, rows)
}

func TestSample(t *testing.T) {
	in := grid(20, 3)

	out, err := Sample(in, core.ColumnUser, 5, 42)
	require.NoError(t, err)
	assert.Len(t, out.Unique(core.ColumnUser), 5)
	assert.Equal(t, 15, out.Len())

	again, err := Sample(in, core.ColumnUser, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, out.Rows, again.Rows)

	all, err := Sample(in, core.ColumnUser, 20, 7)
	require.NoError(t, err)
	assert.Equal(t, in.Rows, all.Rows)
}

func TestSampleErrors(t *testing.T) {
	in := grid(3, 2)

	_, err := Sample(in, core.ColumnUser, 4, 42)
	require.Error(t, err)
	assert.True(t, core.IsInsufficientPopulation(err))

	_, err = Sample(in, core.ColumnUser, 0, 42)
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
}

func TestSampleNodeUsesRunSeed(t *testing.T) {
	in := grid(10, 2)
	n := &SampleNode{Column: core.ColumnUser, N: 4}
	out, err := n.Process(context.Background(), core.NewRunContext("ds", 9), in)
	require.NoError(t, err)
	want, err := Sample(in, core.ColumnUser, 4, 9)
	require.NoError(t, err)
	assert.Equal(t, want.Rows, out.Rows)
}

func TestByEntity(t *testing.T) {
	in := grid(10, 4)
	first, second, err := ByEntity(in, core.ColumnUser, 0.7, 42)
	require.NoError(t, err)

	u1, u2 := first.Unique(core.ColumnUser), second.Unique(core.ColumnUser)
	assert.Len(t, u1, 7)
	assert.Len(t, u2, 3)
	assert.ElementsMatch(t, in.Unique(core.ColumnUser), append(append([]string{}, u1...), u2...))
	for _, u := range u1 {
		assert.NotContains(t, u2, u)
	}
	assert.Equal(t, in.Len(), first.Len()+second.Len())

	f2, s2, err := ByEntity(in, core.ColumnUser, 0.7, 42)
	require.NoError(t, err)
	assert.Equal(t, first.Rows, f2.Rows)
	assert.Equal(t, second.Rows, s2.Rows)
}

func TestByEntityInvalidRatio(t *testing.T) {
	for _, a := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := ByEntity(grid(2, 2), core.ColumnUser, a, 1)
		require.Error(t, err, "ratio %v", a)
		assert.True(t, core.IsInvalidRatio(err))
	}
}

func TestPerEntity(t *testing.T) {
	in := grid(4, 10)
	first, second, err := PerEntity(in, core.ColumnUser, 0.8, 42)
	require.NoError(t, err)

	fc, sc := first.Counts(core.ColumnUser), second.Counts(core.ColumnUser)
	for _, u := range in.Unique(core.ColumnUser) {
		assert.Equal(t, 8, fc[u])
		assert.Equal(t, 2, sc[u])
	}

	// 只有一行的实体：一侧为空不是错误
	single := grid(1, 1)
	f1, s1, err := PerEntity(single, core.ColumnUser, 0.5, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, f1.Len())
	assert.Equal(t, 1, s1.Len())
}

func TestPerEntity3(t *testing.T) {
	in := grid(3, 10)
	p, err := PerEntity3(in, core.ColumnUser, Ratios{Train: 0.7, Val: 0.1, Test: 0.2}, 42)
	require.NoError(t, err)

	tc, vc, ec := p.Train.Counts(core.ColumnUser), p.Val.Counts(core.ColumnUser), p.Test.Counts(core.ColumnUser)
	for _, u := range in.Unique(core.ColumnUser) {
		assert.Equal(t, 7, tc[u])
		assert.Equal(t, 1, vc[u])
		assert.Equal(t, 2, ec[u])
	}

	// 每一行恰好出现在一个输出中
	seen := make(map[string]int)
	for _, part := range []*core.Table{p.Train, p.Val, p.Test} {
		for _, r := range part.Rows {
			seen[r.User+"/"+r.Item]++
		}
	}
	assert.Len(t, seen, in.Len())
	for k, c := range seen {
		assert.Equal(t, 1, c, k)
	}

	p2, err := PerEntity3(in, core.ColumnUser, Ratios{Train: 0.7, Val: 0.1, Test: 0.2}, 42)
	require.NoError(t, err)
	assert.Equal(t, p.Train.Rows, p2.Train.Rows)
	assert.Equal(t, p.Test.Rows, p2.Test.Rows)
}

func TestPerEntity3Completeness(t *testing.T) {
	for n := 1; n <= 12; n++ {
		in := grid(2, n)
		p, err := PerEntity3(in, core.ColumnUser, DefaultRatios(), int64(n))
		require.NoError(t, err)
		for _, u := range in.Unique(core.ColumnUser) {
			total := p.Train.Counts(core.ColumnUser)[u] + p.Val.Counts(core.ColumnUser)[u] + p.Test.Counts(core.ColumnUser)[u]
			assert.Equal(t, n, total)
		}
	}
}

func TestRatiosValidate(t *testing.T) {
	tests := []struct {
		name string
		r    Ratios
		ok   bool
	}{
		{"default", DefaultRatios(), true},
		{"zero val", Ratios{Train: 0.8, Val: 0, Test: 0.2}, true},
		{"within tolerance", Ratios{Train: 0.7, Val: 0.1, Test: 0.2000001}, true},
		{"bad sum", Ratios{Train: 0.7, Val: 0.2, Test: 0.2}, false},
		{"zero train", Ratios{Train: 0, Val: 0.5, Test: 0.5}, false},
		{"zero test", Ratios{Train: 0.9, Val: 0.1, Test: 0}, false},
		{"negative val", Ratios{Train: 0.9, Val: -0.1, Test: 0.2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, core.IsInvalidRatio(err))
		})
	}
}
