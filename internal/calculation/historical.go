package calculation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rpgo/retirement-simulator/internal/domain"
)

// EraRange is an inclusive span of calendar years.
type EraRange struct {
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`
}

// Contains reports whether year falls inside the range.
func (r EraRange) Contains(year int) bool {
	return year >= r.StartYear && year <= r.EndYear
}

var eraRanges = map[domain.HistoricalEra]EraRange{
	domain.EraFullHistory: {1926, 2024},
	domain.EraPostWar:     {1946, 2024},
	domain.EraModern:      {1980, 2024},
	domain.EraStagflation: {1966, 1982},
	domain.EraLowYield:    {2008, 2021},
	domain.EraGFCRecovery: {2009, 2019},
	domain.EraDotComCrash: {2000, 2002},
	domain.EraLostDecade:  {2000, 2009},
}

// RangeForEra returns the year span of an era. Unknown eras map to full history.
func RangeForEra(era domain.HistoricalEra) EraRange {
	if r, ok := eraRanges[era]; ok {
		return r
	}
	return eraRanges[domain.EraFullHistory]
}

// HistoricalDataManager loads and caches the monthly return catalogue.
type HistoricalDataManager struct {
	DataPath string

	mu     sync.Mutex
	months []domain.HistoricalMonth
	loaded bool
	logger Logger
}

// NewHistoricalDataManager creates a manager reading the CSV at dataPath.
func NewHistoricalDataManager(dataPath string) *HistoricalDataManager {
	return &HistoricalDataManager{DataPath: dataPath, logger: NopLogger{}}
}

// NewHistoricalDataManagerFromMonths wraps an in-memory catalogue.
func NewHistoricalDataManagerFromMonths(months []domain.HistoricalMonth) *HistoricalDataManager {
	return &HistoricalDataManager{months: months, loaded: true, logger: NopLogger{}}
}

// SetLogger sets the logger used for load diagnostics.
func (hdm *HistoricalDataManager) SetLogger(l Logger) { hdm.logger = orNop(l) }

// Load reads the catalogue once; later calls are no-ops.
func (hdm *HistoricalDataManager) Load() error {
	hdm.mu.Lock()
	defer hdm.mu.Unlock()
	if hdm.loaded {
		return nil
	}

	file, err := os.Open(hdm.DataPath)
	if err != nil {
		return fmt.Errorf("failed to open historical data %s: %w", hdm.DataPath, err)
	}
	defer file.Close()

	months, err := ParseHistoricalCSV(file, hdm.logger)
	if err != nil {
		return fmt.Errorf("failed to parse historical data %s: %w", hdm.DataPath, err)
	}
	hdm.months = months
	hdm.loaded = true
	hdm.logger.Infof("loaded %d historical months from %s", len(months), hdm.DataPath)
	return nil
}

// Months returns the full catalogue, loading it if needed.
func (hdm *HistoricalDataManager) Months() ([]domain.HistoricalMonth, error) {
	if err := hdm.Load(); err != nil {
		return nil, err
	}
	return hdm.months, nil
}

// FilterByEra returns the months whose year falls inside the era's range.
func (hdm *HistoricalDataManager) FilterByEra(era domain.HistoricalEra) ([]domain.HistoricalMonth, error) {
	months, err := hdm.Months()
	if err != nil {
		return nil, err
	}
	return FilterMonthsByEra(months, era), nil
}

// FilterMonthsByEra filters a catalogue to an era's year range.
func FilterMonthsByEra(months []domain.HistoricalMonth, era domain.HistoricalEra) []domain.HistoricalMonth {
	r := RangeForEra(era)
	var out []domain.HistoricalMonth
	for _, m := range months {
		if r.Contains(m.Year) {
			out = append(out, m)
		}
	}
	return out
}

// ParseHistoricalCSV reads Year,Month,Stocks,Bonds,Cash[,CAPE] rows. Returns are
// percentages in the file (3.11 means 3.11%) and fractions in the result.
// Rows that fail to parse are skipped.
func ParseHistoricalCSV(r io.Reader, logger Logger) ([]domain.HistoricalMonth, error) {
	logger = orNop(logger)
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"year", "month", "stocks", "bonds", "cash"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("invalid CSV format: missing %q column", required)
		}
	}
	capeCol, hasCAPE := cols["cape"]

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	percent := func(record []string, name string) (float64, error) {
		v, err := strconv.ParseFloat(field(record, cols[name]), 64)
		return v / 100, err
	}

	var months []domain.HistoricalMonth
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}

		year, errY := strconv.Atoi(field(record, cols["year"]))
		month, errM := strconv.Atoi(field(record, cols["month"]))
		stocks, errS := percent(record, "stocks")
		bonds, errB := percent(record, "bonds")
		cash, errC := percent(record, "cash")
		if err := errors.Join(errY, errM, errS, errB, errC); err != nil || month < 1 || month > 12 {
			logger.Warnf("skipping historical row %d: %v", line, record)
			continue
		}

		hm := domain.HistoricalMonth{
			Year:    year,
			Month:   month,
			Returns: domain.AssetReturns{Stocks: stocks, Bonds: bonds, Cash: cash},
		}
		if hasCAPE {
			if cape, err := strconv.ParseFloat(field(record, capeCol), 64); err == nil && cape > 0 {
				hm.CAPE = cape
			}
		}
		months = append(months, hm)
	}
	return months, nil
}
