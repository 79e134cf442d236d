package output

import (
	"bytes"
	"encoding/csv"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// CSVDetailedExporter writes the monthly ledger. Monte Carlo results emit
// one block per percentile curve, tagged in the Percentile column.
type CSVDetailedExporter struct{}

func (c CSVDetailedExporter) Name() string      { return "detailed-csv" }
func (c CSVDetailedExporter) Extension() string { return "csv" }

var detailedHeader = []string{
	"Percentile", "Month",
	"StartStocks", "StartBonds", "StartCash",
	"NominalChange", "PercentChange",
	"Income", "Expenses", "UnmetExpense",
	"WithdrawStocks", "WithdrawBonds", "WithdrawCash",
	"WithdrawNominal", "WithdrawReal", "Shortfall",
	"EndStocks", "EndBonds", "EndCash", "EndTotal",
}

func (c CSVDetailedExporter) Format(report *Report) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(detailedHeader); err != nil {
		return nil, err
	}

	if mc := report.Result.MonteCarlo; mc != nil {
		for _, p := range domain.Percentiles {
			if err := writeLedger(w, intToString(p), mc.Curve(p)); err != nil {
				return nil, err
			}
		}
	} else if report.Result.SinglePath != nil {
		if err := writeLedger(w, "", report.Result.SinglePath.Rows); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeLedger(w *csv.Writer, percentile string, rows []domain.MonthRow) error {
	for _, r := range rows {
		record := []string{
			percentile,
			r.Month.String(),
			centsString(r.StartBalances.Stocks),
			centsString(r.StartBalances.Bonds),
			centsString(r.StartBalances.Cash),
			centsString(r.Movement.NominalChange),
			floatToString(r.Movement.PercentChange),
			centsString(r.Cashflows.IncomeTotal),
			centsString(r.Cashflows.ExpenseTotal),
			centsString(r.Cashflows.UnmetExpense),
			centsString(r.Withdrawals.ByAsset.Stocks),
			centsString(r.Withdrawals.ByAsset.Bonds),
			centsString(r.Withdrawals.ByAsset.Cash),
			centsString(r.Withdrawals.NominalTotal),
			centsString(r.Withdrawals.RealTotal),
			centsString(r.Withdrawals.Shortfall),
			centsString(r.EndBalances.Stocks),
			centsString(r.EndBalances.Bonds),
			centsString(r.EndBalances.Cash),
			centsString(r.EndBalances.Total()),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
