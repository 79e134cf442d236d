package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/rpgo/retirement-simulator/internal/domain"
	"github.com/rpgo/retirement-simulator/pkg/dateutil"
)

// ConsoleVerboseFormatter adds the assumptions and a year-by-year table to
// the console summary.
type ConsoleVerboseFormatter struct{}

func (c ConsoleVerboseFormatter) Name() string      { return "console-verbose" }
func (c ConsoleVerboseFormatter) Extension() string { return "txt" }

func (c ConsoleVerboseFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	writeHeadline(&buf, AnalyzeResult(report.Result))
	fmt.Fprintln(&buf)

	if assumptions := GenerateAssumptions(report.Config); len(assumptions) > 0 {
		fmt.Fprintln(&buf, "KEY ASSUMPTIONS:")
		for _, a := range assumptions {
			fmt.Fprintf(&buf, "• %s\n", a)
		}
		fmt.Fprintln(&buf)
	}

	if mc := report.Result.MonteCarlo; mc != nil {
		writePercentileEndings(&buf, mc)
	}

	startingAge := -1
	if report.Config != nil {
		startingAge = report.Config.Core.StartingAgeYears
	}
	writeYearTable(&buf, SummarizeYears(rowsOf(report.Result)), startingAge)
	return buf.Bytes(), nil
}

func writePercentileEndings(buf *bytes.Buffer, mc *domain.MonteCarloResult) {
	fmt.Fprintln(buf, "ENDING BALANCE BY PERCENTILE")
	fmt.Fprintln(buf, strings.Repeat("=", 40))
	for _, p := range domain.Percentiles {
		curve := mc.Curve(p)
		if len(curve) == 0 {
			continue
		}
		fmt.Fprintf(buf, "P%-3d %20s\n", p, FormatCurrency(curve[len(curve)-1].EndBalances.Total()))
	}
	fmt.Fprintln(buf)
}

// writeYearTable prints one line per simulated year. A negative startingAge
// leaves the Age column blank.
func writeYearTable(buf *bytes.Buffer, years []YearSummary, startingAge int) {
	fmt.Fprintln(buf, "YEAR-BY-YEAR")
	fmt.Fprintln(buf, strings.Repeat("=", 123))
	fmt.Fprintf(buf, "%-5s %-8s %4s %18s %18s %18s %18s %18s %18s\n",
		"Year", "From", "Age", "Start", "Withdrawn", "Income", "Expenses", "Shortfall", "End")
	for _, y := range years {
		age := "-"
		if startingAge >= 0 {
			age = strconv.Itoa(dateutil.AgeAtMonth(startingAge, (y.Year-1)*12))
		}
		fmt.Fprintf(buf, "%-5d %-8s %4s %18s %18s %18s %18s %18s %18s\n",
			y.Year, y.StartMonth, age,
			FormatCurrency(y.StartBalance),
			FormatCurrency(y.Withdrawn),
			FormatCurrency(y.Income),
			FormatCurrency(y.Expenses),
			FormatCurrency(y.Shortfall),
			FormatCurrency(y.EndBalance),
		)
	}
}
