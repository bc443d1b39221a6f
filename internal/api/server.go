// Package api exposes wizard sessions over an HTTP JSON API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/session"
)

const defaultMaxUploadMB = 32

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Manager     *session.Manager
	MaxUploadMB int
	Checks      map[string]ReadinessCheck
	Logger      logger.Logger
}

type Server struct {
	manager        *session.Manager
	maxUploadBytes int64
	checks         map[string]ReadinessCheck
	logger         logger.Logger
}

func NewServer(opts Options) *Server {
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{
		manager:        opts.Manager,
		maxUploadBytes: int64(maxMB) << 20,
		checks:         opts.Checks,
		logger:         logger.ForComponent(log, "api"),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	router := httprouter.New()

	router.POST("/sessions", s.logRequests(s.createSession))
	router.GET("/sessions/:id", s.logRequests(s.withSession(s.viewSession, false)))
	router.DELETE("/sessions/:id", s.logRequests(s.deleteSession))

	// Navigation
	router.POST("/sessions/:id/next", s.logRequests(s.withSession(s.next, true)))
	router.POST("/sessions/:id/advance", s.logRequests(s.withSession(s.advance, true)))
	router.POST("/sessions/:id/back", s.logRequests(s.withSession(s.back, true)))

	// Selections and forms
	router.PUT("/sessions/:id/category", s.logRequests(s.withSession(s.setCategory, false)))
	router.PUT("/sessions/:id/development-type", s.logRequests(s.withSession(s.setDevelopmentType, false)))
	router.GET("/sessions/:id/property-types", s.logRequests(s.withSession(s.loadPropertyTypes, false)))
	router.PUT("/sessions/:id/property-type", s.logRequests(s.withSession(s.selectPropertyType, false)))
	router.POST("/sessions/:id/documents", s.logRequests(s.limitBody(s.withSession(s.uploadDocuments, false))))
	router.DELETE("/sessions/:id/documents/:docId", s.logRequests(s.withSession(s.removeDocument, false)))
	router.PUT("/sessions/:id/economics", s.logRequests(s.withSession(s.setEconomics, false)))
	router.PUT("/sessions/:id/details", s.logRequests(s.withSession(s.setDetails, false)))

	// Location and boundary
	router.POST("/sessions/:id/address", s.logRequests(s.withSession(s.resolveAddress, false)))
	router.PUT("/sessions/:id/trade-area", s.logRequests(s.withSession(s.setTradeArea, false)))
	router.POST("/sessions/:id/submarket/lookup", s.logRequests(s.withSession(s.lookupSubmarket, false)))
	router.POST("/sessions/:id/boundary/events", s.logRequests(s.withSession(s.drawingEvent, false)))
	router.POST("/sessions/:id/boundary/skip", s.logRequests(s.withSession(s.skipBoundary, false)))

	// Design sub-pipeline
	router.PUT("/sessions/:id/design", s.logRequests(s.withSession(s.updateDesign, true)))
	router.POST("/sessions/:id/neighbors/fetch", s.logRequests(s.withSession(s.fetchNeighbors, false)))
	router.POST("/sessions/:id/neighbors/:neighborId/toggle", s.logRequests(s.withSession(s.toggleNeighbor, false)))
	router.POST("/sessions/:id/optimization", s.logRequests(s.withSession(s.runOptimization, false)))
	router.POST("/sessions/:id/optimization/accept", s.logRequests(s.withSession(s.acceptOptimization, false)))
	router.POST("/sessions/:id/optimization/reject", s.logRequests(s.withSession(s.rejectOptimization, false)))
	router.PUT("/sessions/:id/financial/assumptions", s.logRequests(s.withSession(s.updateAssumptions, true)))

	router.DELETE("/sessions/:id/error", s.logRequests(s.withSession(s.dismissError, false)))
	router.POST("/sessions/:id/submit", s.logRequests(s.submit))

	// Health & metrics
	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not found"})
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		s.logger.Error("Handler panicked", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"panic":  v,
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "internal error"})
	}
	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every API call with its outcome.
func (s *Server) logRequests(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, ps)

		fields := map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"durationMs": time.Since(start).Milliseconds(),
		}
		if id := ps.ByName("id"); id != "" {
			fields["sessionId"] = id
		}
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("Request failed", fields)
			return
		}
		s.logger.Debug("Request handled", fields)
	}
}

// limitBody caps the request body at the configured upload size.
func (s *Server) limitBody(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		h(w, r, ps)
	}
}

// sessionHandle runs against a live session and returns the action result.
type sessionHandle func(r *http.Request, sess *session.Session, ps httprouter.Params) (interface{}, error)

// withSession resolves the session, runs h and responds with its result and
// the resulting view. With flush set, queued design-change events are
// published before responding.
func (s *Server) withSession(h sessionHandle, flush bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sess, err := s.manager.Get(ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := h(r, sess, ps)
		if flush {
			s.manager.Flush(context.WithoutCancel(r.Context()), sess)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Result: result, Session: sess.View()})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"sessions": s.manager.Len(),
		"time":     time.Now().Format(time.RFC3339),
	})
}
