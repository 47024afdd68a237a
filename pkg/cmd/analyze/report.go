package analyze

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/maxgio92/looptrace/pkg/stack"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Analysis is the outcome of the reconstruction of an event dump.
type Analysis struct {
	Events     int                `json:"events"`
	Dispatches int                `json:"dispatches"`
	CostMs     int64              `json:"cost_ms"`
	StackKey   uint32             `json:"stack_key"`
	KeyName    string             `json:"stack_key_name,omitempty"`
	HasKey     bool               `json:"has_key"`
	Stack      []stack.MethodItem `json:"stack"`
	Trim       stack.TrimStats    `json:"trim"`
}

func (a *Analysis) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(a)
}

// Print writes a styled, human readable version of the analysis.
// The stack is printed as a call tree, or one line per call when flat.
func (a *Analysis) Print(w io.Writer, namer stack.Namer, flat bool) error {
	fmt.Fprintln(w, titleStyle.Render("Main loop stack analysis"))
	fmt.Fprintf(w, "  Events:      %d\n", a.Events)
	fmt.Fprintf(w, "  Dispatches:  %d\n", a.Dispatches)
	fmt.Fprintf(w, "  Cost:        %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%dms", a.CostMs)))
	if a.HasKey {
		fmt.Fprintf(w, "  Stack key:   %s\n", keyStyle.Render(fmt.Sprintf("%s (%d)", a.KeyName, a.StackKey)))
	} else {
		fmt.Fprintf(w, "  Stack key:   %s\n", dimStyle.Render("none"))
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  trimmed in %d passes, %d filtered, %d truncated",
		a.Trim.Passes, a.Trim.Filtered, a.Trim.Truncated)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Stack"))

	if flat {
		return stack.Format(w, a.Stack, namer)
	}
	return stack.NewTreeFromCallOrder(a.Stack).Print(w, namer)
}
