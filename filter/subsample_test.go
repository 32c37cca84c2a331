package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/pkg/priorities"
	"github.com/seqsift/seqsift/types"
)

func TestSequencesPerGroup(t *testing.T) {
	testCases := []struct {
		name     string
		target   int64
		counts   []int64
		expected int64
	}{
		{name: "even split", target: 4, counts: []int64{4, 2}, expected: 2},
		{name: "tight target", target: 2, counts: []int64{4, 2}, expected: 1},
		{name: "target exceeds total", target: 100, counts: []int64{4, 2}, expected: 100},
		{name: "single group", target: 5, counts: []int64{20}, expected: 5},
		{name: "uneven groups", target: 10, counts: []int64{1, 1, 20}, expected: 8},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			perGroup, err := sequencesPerGroup(tc.target, tc.counts)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, perGroup)
		})
	}
}

func TestSequencesPerGroupTooManyGroups(t *testing.T) {
	_, err := sequencesPerGroup(1, []int64{4, 2})
	require.Error(t, err)
	assert.EqualError(t, err, "Asked to provide at most 1 sequences, but there are 2 groups.")
	assert.Equal(t, 2, types.ExitCode(err))
}

func TestFractionalSequencesPerGroup(t *testing.T) {
	assert.InDelta(t, 1.9375, fractionalSequencesPerGroup(4, []int64{4, 2}), 0.0001)
	assert.InDelta(t, 0.9688, fractionalSequencesPerGroup(2, []int64{4, 2}), 0.0001)
	assert.InDelta(t, 0.4844, fractionalSequencesPerGroup(1, []int64{4, 2}), 0.0001)
}

func TestComputeQuotasFixed(t *testing.T) {
	var out strings.Builder
	quotas, err := ComputeQuotas(
		map[string]int64{"Asia": 5, "Europe": 1},
		&types.FilterConfig{SequencesPerGroup: 3},
		priorities.NewGenerator(1),
		&out,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Asia": 3, "Europe": 3}, quotas)
	assert.Empty(t, out.String())
}

func TestComputeQuotasMaxSequences(t *testing.T) {
	var out strings.Builder
	quotas, err := ComputeQuotas(
		map[string]int64{"Asia": 4, "Europe": 2},
		&types.FilterConfig{SubsampleMaxSequences: 4},
		priorities.NewGenerator(1),
		&out,
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Asia": 2, "Europe": 2}, quotas)
	assert.Equal(t, "Sampling at 2 per group.\n", out.String())
}

func TestComputeQuotasTooManyGroupsDisallowed(t *testing.T) {
	var out strings.Builder
	_, err := ComputeQuotas(
		map[string]int64{"Asia": 4, "Europe": 2},
		&types.FilterConfig{SubsampleMaxSequences: 1},
		priorities.NewGenerator(1),
		&out,
	)
	require.Error(t, err)
	assert.EqualError(t, err, "Asked to provide at most 1 sequences, but there are 2 groups.")
	assert.Equal(t, 2, types.ExitCode(err))
}

func TestComputeQuotasProbabilistic(t *testing.T) {
	sizes := map[string]int64{"Asia": 4, "Europe": 2}
	cfg := &types.FilterConfig{SubsampleMaxSequences: 1, ProbabilisticSampling: true}

	var out strings.Builder
	quotas, err := ComputeQuotas(sizes, cfg, priorities.NewGenerator(42), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Sampling probabilistically at 0.4844 sequences per group, "+
		"meaning it is possible to have more than the requested maximum of 1 sequences after filtering.")
	require.Len(t, quotas, 2)

	var total int64
	for _, n := range quotas {
		require.GreaterOrEqual(t, n, int64(0))
		total += n
	}
	assert.Greater(t, total, int64(0))

	// Same seed, same quotas.
	var rerun strings.Builder
	again, err := ComputeQuotas(sizes, cfg, priorities.NewGenerator(42), &rerun)
	require.NoError(t, err)
	assert.Equal(t, quotas, again)
}
