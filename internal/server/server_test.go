package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/config"
	"github.com/rpgo/retirement-simulator/internal/domain"
)

// flatHistory returns the same small positive month for every year in [from, to].
func flatHistory(from, to int) []domain.HistoricalMonth {
	var months []domain.HistoricalMonth
	for year := from; year <= to; year++ {
		for month := 1; month <= 12; month++ {
			months = append(months, domain.HistoricalMonth{
				Year:    year,
				Month:   month,
				Returns: domain.AssetReturns{Stocks: 0.006, Bonds: 0.003, Cash: 0.001},
				CAPE:    20,
			})
		}
	}
	return months
}

func newTestServer(history []domain.HistoricalMonth) *Server {
	engine := calculation.NewSimulationEngine(calculation.NewHistoricalDataManagerFromMonths(history))
	return New(engine, nil)
}

func post(t *testing.T, s *Server, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewReader(b))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func exampleConfig() *domain.SimulationConfig {
	cfg := config.NewInputParser().CreateExampleConfiguration()
	cfg.Calendar.DurationMonths = 24
	return cfg
}

func TestSimulateManual(t *testing.T) {
	s := newTestServer(flatHistory(1926, 2024))
	rec := post(t, s, SimulateRequest{Config: exampleConfig()}, map[string]string{RequestIDHeader: "abc-123"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res domain.SinglePathResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.ResultManual, res.Kind)
	assert.Equal(t, "abc-123", res.RequestID)
	assert.Len(t, res.Rows, 24)
}

func TestSimulateMonteCarlo(t *testing.T) {
	s := newTestServer(flatHistory(1926, 2024))
	cfg := exampleConfig()
	cfg.Mode = domain.ModeMonteCarlo
	cfg.MonteCarlo.Iterations = 10

	rec := post(t, s, SimulateRequest{Config: cfg}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	var res domain.MonteCarloResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.ResultMonteCarlo, res.Kind)
	assert.Equal(t, 10, res.Iterations)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), res.RequestID)
	for _, p := range domain.Percentiles {
		assert.Len(t, res.Percentiles[p], 24, "p%d", p)
	}
}

func TestSimulateMissingMonteCarloBlock(t *testing.T) {
	s := newTestServer(flatHistory(1926, 2024))
	cfg := exampleConfig()
	cfg.Mode = domain.ModeMonteCarlo
	cfg.MonteCarlo = nil

	rec := post(t, s, SimulateRequest{Config: cfg}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, CodeMissingMC, apiErr.Code)
	assert.Equal(t, "Monte Carlo configuration is required for MC mode", apiErr.Message)
}

func TestSimulateValidationErrors(t *testing.T) {
	s := newTestServer(nil)

	invalid := exampleConfig()
	invalid.Calendar.DurationMonths = -1

	tests := []struct {
		name string
		body any
		path string
	}{
		{"invalid config", SimulateRequest{Config: invalid}, "config"},
		{"missing config", map[string]any{}, "config"},
		{"malformed body", "not an object", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, tt.body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			apiErr := decodeError(t, rec)
			assert.Equal(t, CodeValidation, apiErr.Code)
			assert.Equal(t, "Invalid simulation configuration", apiErr.Message)
			require.Len(t, apiErr.Details, 1)
			assert.Equal(t, tt.path, apiErr.Details[0].Path)
		})
	}
}

func TestSimulateNoHistoricalData(t *testing.T) {
	s := newTestServer(flatHistory(1990, 1991))
	cfg := exampleConfig()
	cfg.Mode = domain.ModeMonteCarlo
	cfg.MonteCarlo.Era = domain.EraStagflation

	rec := post(t, s, SimulateRequest{Config: cfg}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, CodeNoHistoricalData, decodeError(t, rec).Code)
}

func TestHealthAndEras(t *testing.T) {
	s := newTestServer(nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/eras", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Eras []struct {
			Era       string `json:"era"`
			StartYear int    `json:"start_year"`
			EndYear   int    `json:"end_year"`
		} `json:"eras"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Eras, len(domain.HistoricalEras))
	for _, e := range body.Eras {
		if e.Era == string(domain.EraStagflation) {
			assert.Equal(t, 1966, e.StartYear)
			assert.Equal(t, 1982, e.EndYear)
		}
	}
}

func TestExampleConfigValidates(t *testing.T) {
	s := newTestServer(nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/example-config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var req SimulateRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	require.NotNil(t, req.Config)
	assert.NoError(t, config.NewInputParser().ValidateConfiguration(req.Config))
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/simulate"},
		{http.MethodPut, "/api/v1/simulate"},
		{http.MethodPost, "/api/v1/health"},
		{http.MethodDelete, "/api/v1/eras"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, CodeMethodNotAllowed, decodeError(t, rec).Code)
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
