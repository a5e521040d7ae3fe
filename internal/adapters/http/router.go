// Package httpadapter exposes the case-assistant API: document upload and
// status, the ask endpoint, session inspection, and stored legal snapshots.
package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
	"github.com/kirillkom/legal-case-assistant/internal/core/ports"
	"github.com/kirillkom/legal-case-assistant/internal/core/usecase"
)

type Router struct {
	ingest    *usecase.IngestDocumentUseCase
	answerer  *usecase.AnswerEngine
	documents ports.DocumentRepository
	sessions  ports.SessionStore
	snapshots *usecase.SnapshotCacheUseCase

	metricsHandler http.Handler
	logger         *slog.Logger

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterOptions struct {
	MetricsHandler http.Handler
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	ingest *usecase.IngestDocumentUseCase,
	answerer *usecase.AnswerEngine,
	documents ports.DocumentRepository,
	sessions ports.SessionStore,
	snapshots *usecase.SnapshotCacheUseCase,
	logger *slog.Logger,
	options RouterOptions,
) *Router {
	return &Router{
		ingest:         ingest,
		answerer:       answerer,
		documents:      documents,
		sessions:       sessions,
		snapshots:      snapshots,
		metricsHandler: options.MetricsHandler,
		logger:         logger,
		rateLimitRPS:   options.RateLimitRPS,
		rateLimitBurst: options.RateLimitBurst,
		maxInFlight:    options.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}
	mux.HandleFunc("POST /v1/cases/{case_id}/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{document_id}", rt.getDocumentByID)
	mux.HandleFunc("POST /v1/cases/{case_id}/ask", rt.ask)
	mux.HandleFunc("GET /v1/cases/{case_id}/session", rt.getSession)
	mux.HandleFunc("GET /v1/legal/sources/{source_id}", rt.getLegalSource)

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		caseID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("document_id")

	doc, err := rt.documents.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	result, err := rt.answerer.Answer(r.Context(), caseID, req.Question)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")
	if err := domain.ValidateCaseID(caseID); err != nil {
		rt.writeError(w, r, err)
		return
	}

	state, err := rt.sessions.Load(r.Context(), caseID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) getLegalSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("source_id")

	snap, err := rt.snapshots.Get(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
