package analyze

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/looptrace/internal/settings"
	"github.com/maxgio92/looptrace/pkg/stack"
	"github.com/maxgio92/looptrace/pkg/symtable"
	"github.com/maxgio92/looptrace/pkg/trace"
)

const (
	CmdName = "analyze"

	outputText = "text"
	outputJSON = "json"
)

var ErrOutputFormat = errors.New("unsupported output format")

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Reconstruct the call stacks of an event dump",
		Long: fmt.Sprintf(`
%s reads a raw event dump, reconstructs the call stacks, trims them to the most relevant calls
and finds the function that dominates the cost of the traced window.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", settings.DumpFile, "Path to the raw event dump")
	cmd.Flags().StringVarP(&o.mapping, "mapping", "m", "", "Path to the method mapping file, to print function names")
	cmd.Flags().StringVarP(&o.output, "output", "o", outputText, "Output format (text, json)")
	cmd.Flags().BoolVar(&o.strict, "strict", true, "Skip the events recorded before the first dispatch")
	cmd.Flags().BoolVar(&o.flat, "flat", false, "Print one line per call instead of a call tree")
	cmd.Flags().IntVar(&o.target, "target", stack.DefaultTargetSize, "Maximum number of calls to keep")
	cmd.Flags().IntVar(&o.maxPasses, "max-passes", stack.DefaultFilterMaxPass, "Maximum number of filtering passes before truncating")
	cmd.Flags().Float64Var(&o.keyPercent, "key-percent", stack.DefaultKeyPercent, "Minimum share of the cost a call needs to be the stack key")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if o.output != outputText && o.output != outputJSON {
		return errors.Wrap(ErrOutputFormat, o.output)
	}

	f, err := os.Open(o.input)
	if err != nil {
		return errors.Wrap(err, "failed to open event dump")
	}
	defer f.Close()
	events, err := trace.ReadEvents(f)
	if err != nil {
		return errors.Wrap(err, "failed to read event dump")
	}

	methods := symtable.NewMethodTable()
	if o.mapping != "" {
		if err := methods.Load(o.mapping); err != nil {
			return errors.Wrap(err, "failed to load method mapping")
		}
	}

	analysis, err := o.analyze(events, methods)
	if err != nil {
		return err
	}

	if o.output == outputJSON {
		return analysis.WriteReport(cmd.OutOrStdout())
	}
	return analysis.Print(cmd.OutOrStdout(), methods, o.flat)
}

func (o *Options) analyze(events []trace.Event, namer stack.Namer) (*Analysis, error) {
	reconstructor := stack.NewReconstructor(stack.WithLogger(o.Logger))

	var windowEnd uint64
	if len(events) > 0 {
		windowEnd = events[len(events)-1].Time()
	}
	items, err := reconstructor.Reconstruct(events, o.strict, windowEnd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reconstruct the stack")
	}

	cost := stack.StackCost(items)
	trimmed, stats := reconstructor.Trim(items, o.target, stack.DefaultFilterBaseUnit, o.maxPasses)

	analysis := &Analysis{
		Events:     len(events),
		Dispatches: dispatches(events),
		CostMs:     cost,
		Stack:      trimmed,
		Trim:       stats,
	}
	if key, ok := reconstructor.DominantKey(trimmed, cost, o.keyPercent); ok {
		analysis.HasKey = true
		analysis.StackKey = key
		analysis.KeyName = namer.Name(key)
	}
	o.Logger.Debug().
		Int("events", analysis.Events).
		Int("items", len(items)).
		Int("kept", len(trimmed)).
		Msg("stack reconstructed")

	return analysis, nil
}

func dispatches(events []trace.Event) int {
	n := 0
	for _, e := range events {
		if e.IsEnter() && e.FuncID() == trace.FuncIDDispatch {
			n++
		}
	}

	return n
}
