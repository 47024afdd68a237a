package utils

import (
	"sync"
)

// CPUUsage returns the percentage of wall time spent on CPU.
func CPUUsage(cpuMs, wallMs int64) float64 {
	if wallMs <= 0 {
		return 0
	}
	return 100 * float64(cpuMs) / float64(wallMs)
}

func LenSyncMap(m *sync.Map) int {
	var i int
	m.Range(func(k, v interface{}) bool {
		i++
		return true
	})
	return i
}
