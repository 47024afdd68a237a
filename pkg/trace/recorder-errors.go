package trace

import (
	"github.com/pkg/errors"
)

var (
	ErrDumpTruncated  = errors.New("event dump is truncated")
	ErrCursorInvalid  = errors.New("cursor is invalid")
	ErrWindowInverted = errors.New("cursor window is inverted")
)
