package filter

import (
	"bytes"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/seqsift/seqsift/types"
)

// KwargsJSON renders rule arguments as a JSON array of [key, value]
// pairs with sorted keys. The run log and the cross-engine count keys
// both use this form, so it must be byte-stable. HTML escaping is off so
// query operators like > survive verbatim.
func KwargsJSON(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([][]any, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, []any{key, args[key]})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pairs); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// CountKey identifies one rule instance by name and rendered arguments,
// the same identity the relational engines group by.
type CountKey struct {
	Rule   string
	Kwargs string
}

type namedRule interface {
	Name() string
	Args() map[string]any
}

func instanceKey(rule namedRule) CountKey {
	return CountKey{Rule: rule.Name(), Kwargs: KwargsJSON(rule.Args())}
}

// InstanceKey returns the count key of the rule at pipeline position i
// (excludes first, then includes).
func InstanceKey(set *types.RuleSet, i int) CountKey {
	if i < len(set.Excludes) {
		return instanceKey(set.Excludes[i])
	}
	return instanceKey(set.Includes[i-len(set.Excludes)])
}

// OrderCounts arranges raw per-instance counts into rule application
// order, dropping instances that matched nothing. Subsampling drops are
// reported separately and never appear here.
func OrderCounts(set *types.RuleSet, raw map[CountKey]int64) []types.ReasonCount {
	counts := make([]types.ReasonCount, 0, len(raw))
	seen := make(map[CountKey]bool)
	add := func(rule namedRule) {
		key := instanceKey(rule)
		if seen[key] {
			return
		}
		seen[key] = true
		if n := raw[key]; n > 0 {
			counts = append(counts, types.ReasonCount{Rule: rule.Name(), Args: rule.Args(), Count: n})
		}
	}
	for _, rule := range set.Excludes {
		add(rule)
	}
	for _, rule := range set.Includes {
		add(rule)
	}
	return counts
}
