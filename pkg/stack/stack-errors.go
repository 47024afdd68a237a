package stack

import (
	"github.com/pkg/errors"
)

var (
	ErrNegativeDuration = errors.New("negative call duration")
)
