package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/types"
)

func TestKwargsJSON(t *testing.T) {
	testCases := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{name: "empty", args: map[string]any{}, expected: "[]"},
		{name: "nil", args: nil, expected: "[]"},
		{name: "string value", args: map[string]any{"file": "exclude.txt"}, expected: `[["file","exclude.txt"]]`},
		{name: "numeric value", args: map[string]any{"length": 27000}, expected: `[["length",27000]]`},
		{name: "keys sorted", args: map[string]any{"min": "a", "max": "b"}, expected: `[["max","b"],["min","a"]]`},
		{name: "operators unescaped", args: map[string]any{"query": "length > 9999"}, expected: `[["query","length > 9999"]]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KwargsJSON(tc.args))
		})
	}
}

func TestOrderCounts(t *testing.T) {
	set := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeAll{},
			types.ExcludeStrains{File: "a.txt"},
			types.ExcludeStrains{File: "b.txt"},
		},
		Includes: []types.IncludeRule{
			types.IncludeStrains{File: "keep.txt"},
		},
	}

	raw := map[CountKey]int64{
		InstanceKey(set, 2): 7, // b.txt
		InstanceKey(set, 0): 13,
		InstanceKey(set, 3): 2, // keep.txt
	}

	counts := OrderCounts(set, raw)
	require.Len(t, counts, 3)

	assert.Equal(t, types.RuleExcludeAll, counts[0].Rule)
	assert.Equal(t, int64(13), counts[0].Count)

	assert.Equal(t, types.RuleExcludeStrains, counts[1].Rule)
	assert.Equal(t, map[string]any{"file": "b.txt"}, counts[1].Args)
	assert.Equal(t, int64(7), counts[1].Count)

	assert.Equal(t, types.RuleIncludeStrains, counts[2].Rule)
	assert.Equal(t, int64(2), counts[2].Count)
}

func TestInstanceKeyDistinguishesFiles(t *testing.T) {
	set := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeStrains{File: "a.txt"},
			types.ExcludeStrains{File: "b.txt"},
		},
	}
	assert.NotEqual(t, InstanceKey(set, 0), InstanceKey(set, 1))
	assert.Equal(t, CountKey{Rule: types.RuleExcludeStrains, Kwargs: `[["exclude_file","a.txt"]]`}, InstanceKey(set, 0))
}
