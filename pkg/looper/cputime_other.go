//go:build !linux

package looper

func threadTimeMs() int64 {
	return 0
}
