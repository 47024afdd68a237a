package simulate

import (
	"context"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/looptrace/pkg/cmd/options"
)

type Options struct {
	duration      time.Duration
	bufferSize    int
	hangThreshold time.Duration
	frameInterval time.Duration
	timeSlice     time.Duration
	work          time.Duration
	depth         int
	fanout        int
	hangEvery     int
	jankEvery     int
	seed          uint64

	dump    string
	mapping string
	status  bool
	devEnv  bool

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

// WithCommonOptions shares the root command options, so that persistent
// flags parsed by the root reach the subcommand.
func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}

func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Ctx = ctx
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
