package output

import (
	"bytes"
	"encoding/csv"
)

// CSVSummarizer implements the simple summary CSV output (one metric per row).
type CSVSummarizer struct{}

func (c CSVSummarizer) Name() string      { return "csv" }
func (c CSVSummarizer) Extension() string { return "csv" }

func (c CSVSummarizer) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Metric", "Value"}); err != nil {
		return nil, err
	}

	a := AnalyzeResult(report.Result)
	s := report.Result.Summary()
	rows := [][]string{
		{"Kind", string(a.Kind)},
		{"RequestID", report.Result.RequestID()},
		{"Months", intToString(a.Months)},
		{"StartBalance", centsString(a.StartBalance)},
		{"NominalEndBalance", centsString(s.EndOfHorizon.NominalEndBalance)},
		{"RealEndBalance", centsString(s.EndOfHorizon.RealEndBalance)},
		{"TotalNominalWithdrawals", centsString(s.Withdrawals.TotalNominal)},
		{"TotalRealWithdrawals", centsString(s.Withdrawals.TotalReal)},
		{"MeanMonthlyWithdrawal", centsString(s.Withdrawals.MeanMonthlyNominal)},
		{"MedianMonthlyWithdrawal", centsString(s.Withdrawals.MedianMonthlyNominal)},
		{"StdDevMonthlyWithdrawal", centsString(s.Withdrawals.StdDevMonthlyNominal)},
		{"P25MonthlyWithdrawal", centsString(s.Withdrawals.P25MonthlyNominal)},
		{"P75MonthlyWithdrawal", centsString(s.Withdrawals.P75MonthlyNominal)},
		{"TotalShortfall", centsString(s.Withdrawals.TotalShortfall)},
		{"TotalUnmetExpense", centsString(s.TotalUnmetExpense)},
	}
	if a.DepletionMonth != nil {
		rows = append(rows, []string{"DepletionMonth", a.DepletionMonth.String()})
	}
	if mc := report.Result.MonteCarlo; mc != nil {
		rows = append(rows,
			[]string{"Iterations", intToString(mc.Iterations)},
			[]string{"Era", string(mc.Era)},
			[]string{"Seed", int64ToString(mc.Seed)},
			[]string{"ProbabilityOfSuccess", floatToString(mc.ProbabilityOfSuccess)},
			[]string{"TerminalP10", centsString(a.TerminalP10)},
			[]string{"TerminalP50", centsString(a.TerminalP50)},
			[]string{"TerminalP90", centsString(a.TerminalP90)},
		)
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
