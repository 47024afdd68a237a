package stack

// TrimStats describes what Trim removed.
type TrimStats struct {
	Passes    int `json:"passes"`
	Filtered  int `json:"filtered"`
	Truncated int `json:"truncated"`
}

// Trim shrinks items to at most target entries. Each pass removes, from the
// deepest end, the calls shorter than pass×baseUnit milliseconds. When
// maxPasses are not enough the list is truncated, which TrimStats reports.
// The input slice is left untouched.
func (r *Reconstructor) Trim(items []MethodItem, target int, baseUnit int64, maxPasses int) ([]MethodItem, TrimStats) {
	var stats TrimStats

	if target < 0 {
		stats.Truncated = len(items)
		return []MethodItem{}, stats
	}

	out := make([]MethodItem, len(items))
	copy(out, items)

	for filter := int64(1); len(out) > target && filter <= int64(maxPasses); filter++ {
		stats.Passes++
		for i := len(out) - 1; i >= 0; i-- {
			if out[i].Duration >= filter*baseUnit {
				continue
			}
			out = append(out[:i], out[i+1:]...)
			stats.Filtered++
			if len(out) <= target {
				return out, stats
			}
		}
	}

	if len(out) > target {
		stats.Truncated = len(out) - target
		r.logger.Warn().
			Int("size", len(out)).
			Int("target", target).
			Int("passes", stats.Passes).
			Msg("stack still too large, truncating")
		out = out[:target]
	}

	return out, stats
}
