package output

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// HTMLFormatter produces a standalone HTML report.
type HTMLFormatter struct{}

func (h HTMLFormatter) Name() string      { return "html" }
func (h HTMLFormatter) Extension() string { return "html" }

//go:embed templates/report.html.tmpl
var htmlTemplateSource string

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"curr": FormatCurrency,
	"pct":  FormatPercentage,
	"json": func(v interface{}) template.JS {
		b, _ := json.Marshal(v)
		return template.JS(b)
	},
}).Parse(htmlTemplateSource))

// chartSeries is the per-month end balance of one curve, for client-side charts.
type chartSeries struct {
	Label    string            `json:"label"`
	Months   []domain.MonthKey `json:"months"`
	Balances []domain.Money    `json:"balances"`
}

func (h HTMLFormatter) Format(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	rows := rowsOf(report.Result)

	var chart []chartSeries
	if mc := report.Result.MonteCarlo; mc != nil {
		for _, p := range domain.Percentiles {
			chart = append(chart, seriesOf("P"+intToString(p), mc.Curve(p)))
		}
	} else {
		chart = append(chart, seriesOf("balance", rows))
	}

	data := struct {
		Analysis    Analysis
		RequestID   string
		Assumptions []string
		Years       []YearSummary
		Chart       []chartSeries
	}{
		Analysis:    AnalyzeResult(report.Result),
		RequestID:   report.Result.RequestID(),
		Assumptions: GenerateAssumptions(report.Config),
		Years:       SummarizeYears(rows),
		Chart:       chart,
	}
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func seriesOf(label string, rows []domain.MonthRow) chartSeries {
	s := chartSeries{
		Label:    label,
		Months:   make([]domain.MonthKey, len(rows)),
		Balances: make([]domain.Money, len(rows)),
	}
	for i, r := range rows {
		s.Months[i] = r.Month
		s.Balances[i] = r.EndBalances.Total()
	}
	return s
}
