// Package httpapi exposes the engine over HTTP. Identity is taken from the
// X-User-ID header; authentication itself is handled upstream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skillpath-labs/skillpath/internal/certificate"
	"github.com/skillpath-labs/skillpath/internal/curriculum"
	"github.com/skillpath-labs/skillpath/internal/payment"
	"github.com/skillpath-labs/skillpath/internal/progress"
	"github.com/skillpath-labs/skillpath/internal/report"
	"github.com/skillpath-labs/skillpath/internal/store"
)

const userIDHeader = "X-User-ID"

// Server wires the engine's services to HTTP routes.
type Server struct {
	curriculum *curriculum.Service
	progress   *progress.Service
	certs      *certificate.Service
	verifier   *payment.Verifier
	reports    *report.Exporter
	store      store.Store
	hub        *Hub
	logger     *slog.Logger
	ready      func(context.Context) error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithReadyCheck sets the dependency probe behind /readyz.
func WithReadyCheck(fn func(context.Context) error) ServerOption {
	return func(s *Server) { s.ready = fn }
}

// WithServerLogger sets the structured logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithHub attaches a live-progress hub. The hub is typically created first
// and wired into the progress service as its notifier before the server is
// built.
func WithHub(h *Hub) ServerOption {
	return func(s *Server) { s.hub = h }
}

// NewServer creates the HTTP server wiring.
func NewServer(
	cs *curriculum.Service,
	ps *progress.Service,
	certs *certificate.Service,
	verifier *payment.Verifier,
	reports *report.Exporter,
	st store.Store,
	opts ...ServerOption,
) *Server {
	s := &Server{
		curriculum: cs,
		progress:   ps,
		certs:      certs,
		verifier:   verifier,
		reports:    reports,
		store:      st,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	return s
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("PUT /api/profile", s.handlePutProfile)
	mux.HandleFunc("POST /api/curriculum", s.handleCreateCurriculum)
	mux.HandleFunc("GET /api/curriculum/current", s.handleCurrentCurriculum)
	mux.HandleFunc("GET /api/curriculum/week/{week}", s.handleWeek)
	mux.HandleFunc("POST /api/curriculum/week/{week}/complete", s.handleCompleteWeek)
	mux.HandleFunc("GET /api/curriculum/{curriculumID}/lessons/{subtopicID}", s.handleLesson)
	mux.HandleFunc("GET /api/lessons/{lessonID}/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/quizzes/{quizID}/submit", s.handleSubmitQuiz)
	mux.HandleFunc("POST /api/resources/{resourceID}/complete", s.handleCompleteResource)
	mux.HandleFunc("POST /api/projects/{projectID}/complete", s.handleCompleteProject)
	mux.HandleFunc("PUT /api/mastery/{topicID}", s.handleUpdateMastery)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/portfolio/{curriculumID}", s.handlePortfolio)

	mux.HandleFunc("GET /api/certificates/{curriculumID}/eligibility", s.handleCertEligibility)
	mux.HandleFunc("POST /api/certificates/{curriculumID}/payment", s.handleCertPayment)
	mux.HandleFunc("GET /api/certificates/{curriculumID}/metadata", s.handleCertMetadata)
	mux.HandleFunc("POST /api/certificates/{curriculumID}/mint", s.handleCertMint)

	mux.HandleFunc("POST /api/payments/confirm", s.handlePaymentConfirm)
	mux.HandleFunc("GET /api/payments/eligibility", s.handlePaymentEligibility)
	mux.HandleFunc("GET /api/payments/price", s.handlePaymentPrice)

	mux.HandleFunc("GET /api/reports/progress/{curriculumID}", s.handleProgressReport)
	mux.HandleFunc("GET /api/progress/ws", s.handleProgressWS)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// userID extracts the caller identity, writing a 401 when absent.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return "", false
	}
	return id, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, curriculum.ErrWeekNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
