package stack

import "fmt"

// MethodItem is one call of a reconstructed trace. Consecutive repeated calls
// at the same depth are merged into a single item.
type MethodItem struct {
	FuncID   uint32 `json:"id"`
	Depth    int    `json:"depth"`
	Duration int64  `json:"duration_ms"`
	Count    int    `json:"count"`
}

func newMethodItem(id uint32, duration int64, depth int) MethodItem {
	return MethodItem{
		FuncID:   id,
		Depth:    depth,
		Duration: duration,
		Count:    1,
	}
}

func (m *MethodItem) merge(duration int64) {
	m.Count++
	m.Duration += duration
}

// String renders the item as depth,id,count,duration.
func (m MethodItem) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", m.Depth, m.FuncID, m.Count, m.Duration)
}
