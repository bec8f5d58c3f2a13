// Package api exposes the path service over JSON/HTTP and a per-user
// WebSocket feed.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
	"github.com/p-n-ai/pai-pathfinder/internal/pathing"
	"github.com/p-n-ai/pai-pathfinder/internal/progress"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Server holds the HTTP handlers.
type Server struct {
	svc    *pathing.Service
	checks map[string]ReadinessCheck
}

// NewServer creates the HTTP layer over svc. checks are run by /readyz.
func NewServer(svc *pathing.Service, checks map[string]ReadinessCheck) *Server {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &Server{svc: svc, checks: checks}
}

// Handler returns the routed handler wrapped in request id, recovery and
// access logging.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.routes()
	h = recoverMiddleware(h)
	h = accessLogMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /v1/path", s.handlePath)
	mux.HandleFunc("POST /v1/users/{userID}/path", s.handleAdaptivePath)
	mux.HandleFunc("POST /v1/users/{userID}/progress", s.handleProgress)
	mux.HandleFunc("GET /v1/users/{userID}/weak-topics", s.handleWeakTopics)
	mux.HandleFunc("DELETE /v1/users/{userID}/weak-topics/{topicID}", s.handleClearWeakTopic)
	mux.HandleFunc("GET /v1/users/{userID}/live", s.handleLive)
	mux.HandleFunc("GET /v1/mastery", s.handleMastery)
	mux.HandleFunc("POST /v1/catalogue/reload", s.handleReload)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	if _, err := s.svc.Catalogue(); err != nil {
		failed["catalogue"] = err.Error()
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type pathRequest struct {
	KnownTopics []string `json:"known_topics"`
}

type pathResponse struct {
	CatalogueVersion string                     `json:"catalogue_version"`
	Nodes            []pathing.LearningPathNode `json:"nodes"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	nodes, err := s.svc.ResolvePath(r.Context(), req.KnownTopics)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pathResponse(nodes))
}

func (s *Server) handleAdaptivePath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	nodes, err := s.svc.ResolveAdaptivePath(r.Context(), r.PathValue("userID"), req.KnownTopics)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.pathResponse(nodes))
}

func (s *Server) pathResponse(nodes []pathing.LearningPathNode) pathResponse {
	resp := pathResponse{Nodes: nodes}
	if cat, err := s.svc.Catalogue(); err == nil {
		resp.CatalogueVersion = cat.Version()
	}
	return resp
}

type progressBody struct {
	TopicID    string `json:"topic_id"`
	SubtopicID string `json:"subtopic_id,omitempty"`
	Status     string `json:"status"`
	QuizScore  *int   `json:"quiz_score,omitempty"`
}

func (b progressBody) request(userID string) pathing.ProgressRequest {
	return pathing.ProgressRequest{
		UserID:     userID,
		TopicID:    b.TopicID,
		SubtopicID: b.SubtopicID,
		Status:     b.Status,
		QuizScore:  b.QuizScore,
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var body progressBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verdict, err := s.svc.SubmitProgress(r.Context(), body.request(r.PathValue("userID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleWeakTopics(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.WeakTopics(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]progress.WeakTopicEntry{"weak_topics": entries})
}

func (s *Server) handleClearWeakTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearWeakTopic(r.Context(), r.PathValue("userID"), r.PathValue("topicID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	topics, err := s.svc.SelectMasteryPath(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if topics == nil {
		topics = []pathing.MasteryTopic{}
	}
	writeJSON(w, http.StatusOK, map[string][]pathing.MasteryTopic{"topics": topics})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	cat, err := s.svc.ReloadCatalogue(r.Context())
	if err != nil {
		var verr *curriculum.ValidationError
		if errors.As(err, &verr) {
			slog.Warn("catalogue reload rejected", "problems", len(verr.Problems))
			writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": cat.Version(), "topics": cat.Len()})
}
