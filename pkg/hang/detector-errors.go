package hang

import (
	"github.com/pkg/errors"
)

var (
	ErrRecorderMissing = errors.New("recorder is not set")
	ErrMonitorMissing  = errors.New("monitor is not set")
	ErrReporterMissing = errors.New("reporter is not set")
)
