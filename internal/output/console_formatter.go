package output

import (
	"bytes"
	"fmt"
)

// ConsoleFormatter provides a concise console style summary via the formatter interface.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string      { return "console" }
func (c ConsoleFormatter) Extension() string { return "txt" }

func (c ConsoleFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writeHeadline(&buf, AnalyzeResult(report.Result))
	return buf.Bytes(), nil
}

func writeHeadline(buf *bytes.Buffer, a Analysis) {
	fmt.Fprintln(buf, "RETIREMENT SIMULATION SUMMARY")
	fmt.Fprintln(buf, "================================")
	fmt.Fprintf(buf, "Result: %s over %d months\n", a.Kind, a.Months)
	if a.Iterations > 0 {
		fmt.Fprintf(buf, "Paths: %d resampled from %s\n", a.Iterations, a.Era)
		fmt.Fprintf(buf, "Probability of Success: %s\n", FormatPercentage(a.ProbabilityOfSuccess))
		fmt.Fprintf(buf, "Terminal Value P10/P50/P90: %s / %s / %s\n",
			FormatCurrency(a.TerminalP10), FormatCurrency(a.TerminalP50), FormatCurrency(a.TerminalP90))
		fmt.Fprintln(buf, "Figures below follow the median path.")
	}
	fmt.Fprintln(buf)
	fmt.Fprintf(buf, "Starting Balance:     %s\n", FormatCurrency(a.StartBalance))
	fmt.Fprintf(buf, "Ending Balance:       %s\n", FormatCurrency(a.EndBalance))
	fmt.Fprintf(buf, "Ending Balance (real): %s\n", FormatCurrency(a.RealEndBalance))
	fmt.Fprintf(buf, "Total Withdrawn:      %s\n", FormatCurrency(a.TotalWithdrawn))
	if a.TotalShortfall > 0 {
		fmt.Fprintf(buf, "Withdrawal Shortfall: %s\n", FormatCurrency(a.TotalShortfall))
	}
	if a.TotalUnmetExpense > 0 {
		fmt.Fprintf(buf, "Unmet Expenses:       %s\n", FormatCurrency(a.TotalUnmetExpense))
	}
	if a.DepletionMonth != nil {
		fmt.Fprintf(buf, "Portfolio Depleted:   %s\n", a.DepletionMonth)
	} else {
		fmt.Fprintln(buf, "Portfolio Depleted:   never")
	}
}
