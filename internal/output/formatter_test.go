package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgo/retirement-simulator/internal/config"
	"github.com/rpgo/retirement-simulator/internal/domain"
)

var fixtureStart = domain.MonthKey{Year: 2026, Month: 1}

// ledger builds n rows drawing 500 cents a month from 10,000 cents of stocks.
func ledger(n int) []domain.MonthRow {
	rows := make([]domain.MonthRow, n)
	for i := range rows {
		start := domain.Money(10_000 - 500*i)
		rows[i] = domain.MonthRow{
			Month:         fixtureStart.AddMonths(i),
			StartBalances: domain.AssetBalances{Stocks: start},
			Withdrawals: domain.Withdrawals{
				ByAsset:      domain.AssetBalances{Stocks: 500},
				NominalTotal: 500,
				RealTotal:    490,
			},
			EndBalances: domain.AssetBalances{Stocks: start - 500},
		}
	}
	return rows
}

func singlePathReport() *Report {
	rows := ledger(14)
	return &Report{
		Result: domain.SimulationResult{SinglePath: &domain.SinglePathResult{
			Kind:        domain.ResultManual,
			RequestID:   "req-1",
			GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Rows:        rows,
			Summary: domain.SummaryStats{
				EndOfHorizon: domain.EndOfHorizon{NominalEndBalance: 3_000, RealEndBalance: 2_900},
				Withdrawals:  domain.WithdrawalSummary{TotalNominal: 7_000, TotalReal: 6_860},
			},
		}},
		Config: config.NewInputParser().CreateExampleConfiguration(),
	}
}

func monteCarloReport() *Report {
	curves := map[int][]domain.MonthRow{}
	for _, p := range domain.Percentiles {
		curves[p] = ledger(3)
	}
	return &Report{Result: domain.SimulationResult{MonteCarlo: &domain.MonteCarloResult{
		Kind:                 domain.ResultMonteCarlo,
		RequestID:            "req-mc",
		Era:                  domain.EraPostWar,
		Seed:                 99,
		Iterations:           4,
		ProbabilityOfSuccess: 0.75,
		Percentiles:          curves,
		TerminalValues:       []domain.Money{0, 100, 200, 300},
	}}}
}

func TestGetFormatterByName(t *testing.T) {
	for _, name := range AvailableFormatterNames() {
		f := GetFormatterByName(name)
		require.NotNil(t, f, name)
		assert.Equal(t, name, f.Name())
	}
	assert.Equal(t, "console-verbose", GetFormatterByName(" Verbose ").Name())
	assert.Equal(t, "detailed-csv", GetFormatterByName("ledger").Name())
	assert.Equal(t, "json", GetFormatterByName("json-pretty").Name())
	assert.Nil(t, GetFormatterByName("pdf"))

	assert.Equal(t, []string{"console", "console-verbose", "csv", "detailed-csv", "html", "json"}, AvailableFormatterNames())
	assert.Contains(t, AvailableFormatAliases(), "table")
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc{ID: "kind", Ext: "txt", F: func(r *Report) ([]byte, error) {
		return []byte(r.Result.Kind()), nil
	}}
	out, err := f.Format(singlePathReport())
	require.NoError(t, err)
	assert.Equal(t, "manual", string(out))
	assert.Equal(t, "kind", f.Name())
	assert.Equal(t, "txt", f.Extension())
}

func TestConsoleFormatter(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(singlePathReport())
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, "RETIREMENT SIMULATION SUMMARY")
	assert.Contains(t, content, "Result: manual over 14 months")
	assert.Contains(t, content, "$100.00")
	assert.Contains(t, content, "Portfolio Depleted:   never")
	assert.NotContains(t, content, "Probability of Success")

	out, err = ConsoleFormatter{}.Format(monteCarloReport())
	require.NoError(t, err)
	content = string(out)
	assert.Contains(t, content, "Paths: 4 resampled from post-war")
	assert.Contains(t, content, "Probability of Success: 75.00%")
	assert.Contains(t, content, "$0.30 / $1.50 / $2.70")
}

func TestConsoleVerboseFormatter(t *testing.T) {
	out, err := ConsoleVerboseFormatter{}.Format(singlePathReport())
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, "KEY ASSUMPTIONS:")
	assert.Contains(t, content, "Inflation: 2.50% annually")
	assert.Contains(t, content, "YEAR-BY-YEAR")
	assert.Contains(t, content, "2027-01")
	assert.Equal(t, []string{"1", "2026-01", "65"}, yearLine(t, content, "2026-01")[:3])
	assert.Equal(t, []string{"2", "2027-01", "66"}, yearLine(t, content, "2027-01")[:3])

	out, err = ConsoleVerboseFormatter{}.Format(monteCarloReport())
	require.NoError(t, err)
	assert.Contains(t, string(out), "ENDING BALANCE BY PERCENTILE")
	assert.NotContains(t, string(out), "KEY ASSUMPTIONS:")
	assert.Equal(t, []string{"1", "2026-01", "-"}, yearLine(t, string(out), "2026-01")[:3])
}

// yearLine returns the fields of the year-table line for the year starting at from.
func yearLine(t *testing.T, content, from string) []string {
	t.Helper()
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 2 && fields[1] == from {
			return fields
		}
	}
	t.Fatalf("no year line starting %s", from)
	return nil
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSummarizer(t *testing.T) {
	out, err := CSVSummarizer{}.Format(singlePathReport())
	require.NoError(t, err)
	metrics := map[string]string{}
	for _, r := range readCSV(t, out)[1:] {
		metrics[r[0]] = r[1]
	}
	assert.Equal(t, "14", metrics["Months"])
	assert.Equal(t, "req-1", metrics["RequestID"])
	assert.Equal(t, "30.00", metrics["NominalEndBalance"])
	assert.Equal(t, "70.00", metrics["TotalNominalWithdrawals"])
	assert.NotContains(t, metrics, "ProbabilityOfSuccess")

	out, err = CSVSummarizer{}.Format(monteCarloReport())
	require.NoError(t, err)
	metrics = map[string]string{}
	for _, r := range readCSV(t, out)[1:] {
		metrics[r[0]] = r[1]
	}
	assert.Equal(t, "0.75", metrics["ProbabilityOfSuccess"])
	assert.Equal(t, "99", metrics["Seed"])
	assert.Equal(t, "1.50", metrics["TerminalP50"])
}

func TestCSVDetailedExporter(t *testing.T) {
	out, err := CSVDetailedExporter{}.Format(singlePathReport())
	require.NoError(t, err)
	records := readCSV(t, out)
	require.Len(t, records, 15)
	assert.Equal(t, detailedHeader, records[0])
	assert.Equal(t, "2026-01", records[1][1])
	assert.Equal(t, "100.00", records[1][2])
	assert.Equal(t, "95.00", records[1][len(detailedHeader)-1])

	out, err = CSVDetailedExporter{}.Format(monteCarloReport())
	require.NoError(t, err)
	records = readCSV(t, out)
	require.Len(t, records, 1+3*len(domain.Percentiles))
	assert.Equal(t, "5", records[1][0])
	assert.Equal(t, "95", records[len(records)-1][0])
}

func TestJSONFormatter(t *testing.T) {
	out, err := JSONFormatter{}.Format(singlePathReport())
	require.NoError(t, err)
	var single map[string]any
	require.NoError(t, json.Unmarshal(out, &single))
	assert.Equal(t, "manual", single["kind"])
	assert.Len(t, single["rows"], 14)

	out, err = JSONFormatter{}.Format(monteCarloReport())
	require.NoError(t, err)
	var mc map[string]any
	require.NoError(t, json.Unmarshal(out, &mc))
	assert.Equal(t, "monte-carlo", mc["kind"])
	assert.Contains(t, mc["percentiles"], "p50")
}

func TestHTMLFormatter(t *testing.T) {
	out, err := HTMLFormatter{}.Format(singlePathReport())
	require.NoError(t, err)
	content := string(out)
	assert.Contains(t, content, "<h1>Retirement Simulation</h1>")
	assert.Contains(t, content, "req-1")
	assert.Contains(t, content, "Year by year")

	out, err = HTMLFormatter{}.Format(monteCarloReport())
	require.NoError(t, err)
	assert.Contains(t, string(out), "Probability of success")
	assert.Contains(t, string(out), "P95")
}

func TestAnalyzeResult(t *testing.T) {
	rows := ledger(20)
	a := AnalyzeResult(domain.SimulationResult{SinglePath: &domain.SinglePathResult{Kind: domain.ResultDeterministic, Rows: rows}})
	assert.Equal(t, domain.ResultDeterministic, a.Kind)
	assert.EqualValues(t, 10_000, a.StartBalance)
	require.NotNil(t, a.DepletionMonth)
	assert.Equal(t, "2027-08", a.DepletionMonth.String())

	assert.Equal(t, Analysis{}, AnalyzeResult(domain.SimulationResult{}))
}

func TestSummarizeYears(t *testing.T) {
	years := SummarizeYears(ledger(14))
	require.Len(t, years, 2)
	assert.Equal(t, YearSummary{
		Year: 1, StartMonth: fixtureStart, StartBalance: 10_000, EndBalance: 4_000, Withdrawn: 6_000,
	}, years[0])
	assert.Equal(t, 2, years[1].Year)
	assert.EqualValues(t, 4_000, years[1].StartBalance)
	assert.EqualValues(t, 3_000, years[1].EndBalance)
	assert.EqualValues(t, 1_000, years[1].Withdrawn)
	assert.Nil(t, SummarizeYears(nil))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "$1234.56", FormatCurrency(123_456))
	assert.Equal(t, "-$5.00", FormatCurrency(-500))
	assert.Equal(t, "4.25%", FormatPercentage(0.0425))
}

func TestGenerateReport(t *testing.T) {
	dir := t.TempDir()
	files, err := GenerateReport(singlePathReport(), "csv", dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".csv"))
	_, err = os.Stat(files[0])
	require.NoError(t, err)

	files, err = GenerateReport(monteCarloReport(), "all", dir)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = GenerateReport(singlePathReport(), "pdf", dir)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Render(singlePathReport(), "pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSaveConfigurationRoundTrip(t *testing.T) {
	parser := config.NewInputParser()
	cfg := parser.CreateExampleConfiguration()

	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveConfiguration(cfg, path))
			loaded, err := parser.LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}
