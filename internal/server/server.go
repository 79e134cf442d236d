package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rpgo/retirement-simulator/internal/calculation"
	"github.com/rpgo/retirement-simulator/internal/config"
	"github.com/rpgo/retirement-simulator/internal/domain"
)

// RequestIDHeader carries the caller's request identifier. Responses echo it.
const RequestIDHeader = "X-Request-ID"

const apiPrefix = "/api/v1"

// maxBodyBytes bounds the simulate request body.
const maxBodyBytes = 1 << 20

// Error codes returned in the error envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeMissingMC        = "MISSING_MC_CONFIG"
	CodeNoHistoricalData = "NO_HISTORICAL_DATA"
	CodeSimulation       = "SIMULATION_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ctxKey int

const requestIDKey ctxKey = iota

// SimulateRequest is the body of POST /api/v1/simulate.
type SimulateRequest struct {
	Config *domain.SimulationConfig `json:"config"`
}

// ErrorDetail points at one problem in a rejected request.
type ErrorDetail struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// APIError is the body of every non-2xx response, wrapped as {"error": ...}.
type APIError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// EraInfo describes one sampling era.
type EraInfo struct {
	Era domain.HistoricalEra `json:"era"`
	calculation.EraRange
}

// Server exposes the simulation engine over HTTP.
type Server struct {
	engine *calculation.SimulationEngine
	parser *config.InputParser
	logger logrus.FieldLogger
	router *mux.Router
}

// New builds a server around engine. A nil logger discards output.
func New(engine *calculation.SimulationEngine, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	s := &Server{
		engine: engine,
		parser: config.NewInputParser(),
		logger: logger,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestID, s.logRequests)

	// Full paths on the root router so a method mismatch answers 405.
	s.router.HandleFunc(apiPrefix+"/simulate", s.handleSimulate).Methods(http.MethodPost)
	s.router.HandleFunc(apiPrefix+"/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/eras", s.handleEras).Methods(http.MethodGet)
	s.router.HandleFunc(apiPrefix+"/example-config", s.handleExampleConfig).Methods(http.MethodGet)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var req SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: "Invalid simulation configuration",
			Details: []ErrorDetail{{Path: "body", Message: err.Error()}},
		})
		return
	}
	if req.Config == nil {
		s.writeError(w, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: "Invalid simulation configuration",
			Details: []ErrorDetail{{Path: "config", Message: "config is required"}},
		})
		return
	}

	if err := s.parser.ValidateConfiguration(req.Config); err != nil {
		if errors.Is(err, calculation.ErrMissingMonteCarlo) {
			s.writeError(w, http.StatusBadRequest, APIError{
				Code:    CodeMissingMC,
				Message: "Monte Carlo configuration is required for MC mode",
			})
			return
		}
		s.writeError(w, http.StatusBadRequest, APIError{
			Code:    CodeValidation,
			Message: "Invalid simulation configuration",
			Details: []ErrorDetail{{Path: "config", Message: err.Error()}},
		})
		return
	}

	res, err := s.engine.Run(r.Context(), req.Config, requestID)
	if err != nil {
		log := s.logger.WithField("request_id", requestID)
		switch {
		case errors.Is(err, calculation.ErrNoHistoricalData):
			log.WithError(err).Warn("simulation has no historical data")
			s.writeError(w, http.StatusUnprocessableEntity, APIError{Code: CodeNoHistoricalData, Message: err.Error()})
		default:
			log.WithError(err).Error("simulation failed")
			s.writeError(w, http.StatusInternalServerError, APIError{Code: CodeSimulation, Message: err.Error()})
		}
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, APIError{
		Code:    CodeMethodNotAllowed,
		Message: r.Method + " is not allowed on " + r.URL.Path,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEras(w http.ResponseWriter, r *http.Request) {
	eras := make([]EraInfo, 0, len(domain.HistoricalEras))
	for _, era := range domain.HistoricalEras {
		eras = append(eras, EraInfo{Era: era, EraRange: calculation.RangeForEra(era)})
	}
	s.writeJSON(w, http.StatusOK, map[string][]EraInfo{"eras": eras})
}

func (s *Server) handleExampleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, SimulateRequest{Config: s.parser.CreateExampleConfiguration()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, apiErr APIError) {
	s.writeJSON(w, status, map[string]APIError{"error": apiErr})
}

// requestID stamps every request with an identifier, honouring one the
// caller supplied.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("request handled")
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
