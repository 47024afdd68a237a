package hang

import (
	"encoding/json"
	"io"
	"time"

	"github.com/maxgio92/looptrace/pkg/looper"
	"github.com/maxgio92/looptrace/pkg/stack"
)

// Report describes a dispatch that ran longer than the hang threshold.
type Report struct {
	Token           looper.Token       `json:"token"`
	Time            time.Time          `json:"time"`
	Scene           string             `json:"scene"`
	CostMs          int64              `json:"cost_ms"`
	StackKey        uint32             `json:"stack_key"`
	StackKeyName    string             `json:"stack_key_name,omitempty"`
	Stack           []stack.MethodItem `json:"stack"`
	Trim            stack.TrimStats    `json:"trim"`
	InputCostNs     int64              `json:"input_cost_ns"`
	AnimationCostNs int64              `json:"animation_cost_ns"`
	TraversalCostNs int64              `json:"traversal_cost_ns"`
}

type ReportOption func(*Report)

func NewReport(opts ...ReportOption) *Report {
	report := new(Report)
	for _, opt := range opts {
		opt(report)
	}

	return report
}

func WithReportToken(token looper.Token) ReportOption {
	return func(r *Report) {
		r.Token = token
	}
}

func WithReportTime(t time.Time) ReportOption {
	return func(r *Report) {
		r.Time = t
	}
}

func WithReportScene(scene string) ReportOption {
	return func(r *Report) {
		r.Scene = scene
	}
}

func WithReportStack(items []stack.MethodItem, stats stack.TrimStats) ReportOption {
	return func(r *Report) {
		r.Stack = items
		r.Trim = stats
	}
}

func WithReportCost(ms int64) ReportOption {
	return func(r *Report) {
		r.CostMs = ms
	}
}

func WithReportKey(key uint32, name string) ReportOption {
	return func(r *Report) {
		r.StackKey = key
		r.StackKeyName = name
	}
}

// WithReportPhaseCosts sets the input, animation and traversal costs.
func WithReportPhaseCosts(input, animation, traversal int64) ReportOption {
	return func(r *Report) {
		r.InputCostNs = input
		r.AnimationCostNs = animation
		r.TraversalCostNs = traversal
	}
}

func (r *Report) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(r)
}

// Reporter receives the hang reports, from the detector goroutines.
type Reporter interface {
	Report(report *Report)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(report *Report)

func (f ReporterFunc) Report(report *Report) {
	f(report)
}
