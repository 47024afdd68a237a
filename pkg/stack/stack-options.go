package stack

import (
	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/pkg/trace"
)

const (
	DefaultTargetSize     = 30
	DefaultFilterMaxPass  = 60
	DefaultKeyPercent     = 0.3
	DefaultFilterBaseUnit = 5
)

type ReconstructorOptions struct {
	sentinel     uint32
	skipSentinel bool

	logger log.Logger
}

type ReconstructorOpt func(*Reconstructor)

// WithSentinel sets the function id marking a main loop dispatch.
func WithSentinel(id uint32) ReconstructorOpt {
	return func(r *Reconstructor) {
		r.sentinel = id
	}
}

// WithSkipSentinel tells DominantKey to prefer any other candidate over
// the dispatch sentinel.
func WithSkipSentinel(skip bool) ReconstructorOpt {
	return func(r *Reconstructor) {
		r.skipSentinel = skip
	}
}

func WithLogger(logger log.Logger) ReconstructorOpt {
	return func(r *Reconstructor) {
		r.logger = logger
	}
}

func defaultOptions() *ReconstructorOptions {
	return &ReconstructorOptions{
		sentinel:     trace.FuncIDDispatch,
		skipSentinel: true,
		logger:       log.Nop(),
	}
}
