package stack

import (
	"fmt"
	"io"
	"strconv"
)

// Namer resolves function ids to readable names.
type Namer interface {
	Name(id uint32) string
}

// StackCost returns the longest duration among items.
func StackCost(items []MethodItem) int64 {
	var cost int64
	for _, item := range items {
		if item.Duration > cost {
			cost = item.Duration
		}
	}

	return cost
}

// Format writes one depth,id,count,duration line per item, followed by the
// function name when namer is not nil.
func Format(w io.Writer, items []MethodItem, namer Namer) error {
	for _, item := range items {
		line := item.String()
		if namer != nil {
			line += "," + namer.Name(item.FuncID)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

func name(namer Namer, id uint32) string {
	if namer == nil {
		return strconv.FormatUint(uint64(id), 10)
	}
	return namer.Name(id)
}
