package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"crypto-scalper/internal/models"
	"crypto-scalper/pkg/utils"
)

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output for cmd. Colors are only used on a terminal.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && !color.NoColor && isTerminal(cmd.OutOrStdout()),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// IsJSON reports whether --json was given.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a line.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

func (o *Output) Success(format string, args ...interface{}) { o.line(color.FgGreen, format, args...) }
func (o *Output) Error(format string, args ...interface{})   { o.line(color.FgRed, format, args...) }
func (o *Output) Warning(format string, args ...interface{}) { o.line(color.FgYellow, format, args...) }
func (o *Output) Info(format string, args ...interface{})    { o.line(color.FgCyan, format, args...) }
func (o *Output) Bold(format string, args ...interface{})    { o.line(color.Bold, format, args...) }
func (o *Output) Dim(format string, args ...interface{})     { o.line(color.Faint, format, args...) }

func (o *Output) line(attr color.Attribute, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.paint(attr, fmt.Sprintf(format, args...)))
}

// paint wraps text in attr when colors are enabled.
func (o *Output) paint(attr color.Attribute, text string) string {
	if !o.colorEnabled {
		return text
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(text)
}

func (o *Output) Green(text string) string  { return o.paint(color.FgGreen, text) }
func (o *Output) Red(text string) string    { return o.paint(color.FgRed, text) }
func (o *Output) Yellow(text string) string { return o.paint(color.FgYellow, text) }
func (o *Output) Cyan(text string) string   { return o.paint(color.FgCyan, text) }
func (o *Output) DimText(text string) string {
	return o.paint(color.Faint, text)
}

func (o *Output) signed(v float64, text string) string {
	switch {
	case v > 0:
		return o.Green(text)
	case v < 0:
		return o.Red(text)
	}
	return text
}

// FormatPnL formats a dollar P&L, green for gains and red for losses.
func (o *Output) FormatPnL(pnl float64) string {
	return o.signed(pnl, utils.FormatPnL(pnl))
}

// FormatRatio formats a fractional return with color.
func (o *Output) FormatRatio(fraction float64) string {
	return o.signed(fraction, utils.FormatRatio(fraction))
}

// FormatScore formats a signal score in [-1, 1].
func (o *Output) FormatScore(score float64) string {
	return o.signed(score, fmt.Sprintf("%+.3f", score))
}

// Action colors a signal snapshot action.
func (o *Output) Action(action string) string {
	switch action {
	case "buy":
		return o.Green("BUY")
	case "sell":
		return o.Red("SELL")
	case "blocked", "failed":
		return o.Yellow(strings.ToUpper(action))
	case "hold", "":
		return o.DimText("hold")
	}
	return strings.ToUpper(action)
}

// ExitReason colors a closed scalp's exit reason.
func (o *Output) ExitReason(r models.ExitReason) string {
	switch r {
	case models.ExitTakeProfit:
		return o.Green(string(r))
	case models.ExitStopLoss:
		return o.Red(string(r))
	}
	return o.Yellow(string(r))
}

// Table is a plain column-aligned table.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a table with the given headers.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{headers: headers, output: output}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render prints the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && visibleLen(cell) > widths[i] {
				widths[i] = visibleLen(cell)
			}
		}
	}

	t.printRow(t.headers, widths, true)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	t.output.Println(t.output.DimText(strings.Join(seps, "  ")))
	for _, row := range t.rows {
		t.printRow(row, widths, false)
	}
}

func (t *Table) printRow(cells []string, widths []int, header bool) {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if header {
			cell = t.output.paint(color.Bold, cell)
		}
		parts = append(parts, cell+strings.Repeat(" ", max(widths[i]-visibleLen(cell), 0)))
	}
	t.output.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func visibleLen(s string) int {
	return len([]rune(ansiPattern.ReplaceAllString(s, "")))
}
