package stack

import "sort"

// DominantKey picks the call that best explains the cost of a trace, weighting
// the calls lasting at least percent of totalCost by (depth+1)×duration.
// It returns false when items is empty.
func (r *Reconstructor) DominantKey(items []MethodItem, totalCost int64, percent float64) (uint32, bool) {
	if len(items) == 0 {
		return 0, false
	}

	limit := int64(float64(totalCost) * percent)
	candidates := make([]MethodItem, 0, len(items))
	for _, item := range items {
		if item.Duration >= limit {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return items[0].FuncID, true
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return weight(candidates[i]) > weight(candidates[j])
	})
	if r.skipSentinel && len(candidates) > 1 && candidates[0].FuncID == r.sentinel {
		return candidates[1].FuncID, true
	}

	return candidates[0].FuncID, true
}

func weight(item MethodItem) int64 {
	return int64(item.Depth+1) * item.Duration
}
