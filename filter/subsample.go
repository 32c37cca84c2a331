package filter

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/seqsift/seqsift/pkg/priorities"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
)

// maxQuotaAttempts bounds the redraws when every probabilistic group
// quota comes up zero.
const maxQuotaAttempts = 100

// ComputeQuotas turns per-group candidate counts into per-group keep
// quotas. With --sequences-per-group the quota is fixed; with
// --subsample-max-sequences it is the largest uniform quota whose total
// stays within the target, falling back to probabilistic Poisson draws
// when there are more groups than the target allows. Sampling messages
// are printed to w.
func ComputeQuotas(sizes map[string]int64, cfg *types.FilterConfig, gen *priorities.Generator, w io.Writer) (map[string]int64, error) {
	quotas := make(map[string]int64, len(sizes))

	if cfg.SequencesPerGroup > 0 {
		for key := range sizes {
			quotas[key] = int64(cfg.SequencesPerGroup)
		}
		return quotas, nil
	}

	target := int64(cfg.SubsampleMaxSequences)
	counts := make([]int64, 0, len(sizes))
	for _, n := range sizes {
		counts = append(counts, n)
	}

	perGroup, err := sequencesPerGroup(target, counts)
	if err == nil {
		fmt.Fprintf(w, "Sampling at %d per group.\n", perGroup)
		for key := range sizes {
			quotas[key] = perGroup
		}
		return quotas, nil
	}
	if !cfg.ProbabilisticSampling {
		return nil, err
	}

	logger.Warnf("%s", err)
	fractional := fractionalSequencesPerGroup(target, counts)
	fmt.Fprintf(w, "Sampling probabilistically at %0.4f sequences per group, meaning it is possible to have more than the requested maximum of %d sequences after filtering.\n", fractional, target)

	if fractional >= 1 {
		floor := int64(fractional)
		for key := range sizes {
			quotas[key] = floor
		}
		return quotas, nil
	}

	// Small means can draw zero for every group, which would drop all
	// candidates; redraw with the attempt mixed into the key so retries
	// stay deterministic.
	keys := make([]string, 0, len(sizes))
	for key := range sizes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for attempt := 0; attempt < maxQuotaAttempts; attempt++ {
		var total int64
		for _, key := range keys {
			n := gen.Poisson(fmt.Sprintf("%d:%s", attempt, key), fractional)
			quotas[key] = n
			total += n
		}
		if total > 0 {
			break
		}
	}
	return quotas, nil
}

func totalSequences(perGroup float64, counts []int64) float64 {
	var total float64
	for _, n := range counts {
		total += math.Min(perGroup, float64(n))
	}
	return total
}

// sequencesPerGroup bisects for the largest uniform quota that keeps the
// total within target. More groups than the target is unsatisfiable.
func sequencesPerGroup(target int64, counts []int64) (int64, error) {
	if int64(len(counts)) > target {
		return 0, types.Dataf("Asked to provide at most %d sequences, but there are %d groups.", target, len(counts))
	}

	lo, hi := int64(1), target
	for hi-lo > 2 {
		mid := (hi + lo) / 2
		if totalSequences(float64(mid), counts) <= float64(target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	if totalSequences(float64(hi), counts) <= float64(target) {
		return hi, nil
	}
	return lo, nil
}

// fractionalSequencesPerGroup bisects on a fractional quota until the
// bounds are within 10% of each other.
func fractionalSequencesPerGroup(target int64, counts []int64) float64 {
	lo, hi := 1e-5, float64(target)
	for hi/lo > 1.1 {
		mid := (lo + hi) / 2
		if totalSequences(mid, counts) <= float64(target) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
