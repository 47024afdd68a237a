package looper

import (
	"github.com/pkg/errors"
)

var (
	ErrOverlappingDispatch = errors.New("dispatch begun while another is running")
	ErrNotDispatching      = errors.New("no dispatch is running")
	ErrPhaseUnfinished     = errors.New("phase begun and never ended")
	ErrUnknownPhase        = errors.New("unknown phase")
)
