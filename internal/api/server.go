package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/metrics"
	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
	"github.com/t77yq/energy-dashboard/internal/scheduler"
	"github.com/t77yq/energy-dashboard/internal/storage"
	"github.com/t77yq/energy-dashboard/internal/usage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Deps are the components served by the API. History, Digests, Metrics, Hub and
// Host may be nil, in which case their routes answer 503 or are not registered.
type Deps struct {
	Alerts        *monitor.AlertStore
	Notifications *monitor.NotificationStore
	Preferences   *monitor.PreferencesStore
	Usage         *usage.Selector
	History       storage.AlertHistoryStorage
	Digests       *scheduler.DigestScheduler
	Metrics       *metrics.Recorder
	Hub           *Hub
	Host          *monitor.HostSampler
}

// Server exposes the dashboard over HTTP
type Server struct {
	deps   Deps
	logger *zap.Logger
	router *mux.Router
	http   *http.Server
}

// NewServer creates a server and registers every route
func NewServer(deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger.Named("api"),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	if s.deps.Metrics != nil {
		r.Use(s.metricsMiddleware)
		r.Handle("/metrics", s.deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/alerts", s.listAlerts).Methods(http.MethodGet)
	a.HandleFunc("/alerts/summary", s.alertSummary).Methods(http.MethodGet)
	a.HandleFunc("/alerts/{id}", s.getAlert).Methods(http.MethodGet)
	a.HandleFunc("/alerts/{id}/acknowledge", s.acknowledgeAlert).Methods(http.MethodPost)
	a.HandleFunc("/alerts/{id}/resolve", s.resolveAlert).Methods(http.MethodPost)

	a.HandleFunc("/notifications", s.listNotifications).Methods(http.MethodGet)
	a.HandleFunc("/notifications/unread", s.unreadCount).Methods(http.MethodGet)
	a.HandleFunc("/notifications/read", s.markAllRead).Methods(http.MethodPost)
	a.HandleFunc("/notifications/{id}/read", s.markRead).Methods(http.MethodPost)

	a.HandleFunc("/preferences", s.getPreferences).Methods(http.MethodGet)
	a.HandleFunc("/preferences", s.putPreferences).Methods(http.MethodPut)

	a.HandleFunc("/usage", s.getUsage).Methods(http.MethodGet)

	a.HandleFunc("/history", s.listHistory).Methods(http.MethodGet)
	a.HandleFunc("/history/resolution", s.resolutionTime).Methods(http.MethodGet)

	a.HandleFunc("/digests/schedules", s.listSchedules).Methods(http.MethodGet)
	a.HandleFunc("/digests/run", s.runDigest).Methods(http.MethodPost)

	if s.deps.Hub != nil {
		r.HandleFunc("/ws", s.deps.Hub.ServeWS(s.deps.Alerts, s.deps.Notifications))
	}
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr in the background. Errors other than a clean
// shutdown are sent on the returned channel.
func (s *Server) Start(addr string, readTimeout, writeTimeout time.Duration) <-chan error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve http: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		// Websocket upgrades need the raw ResponseWriter for hijacking
		if route == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Metrics.ObserveRequest(r.Method, route, rec.status, time.Since(start))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response",
			zap.String("data_type", fmt.Sprintf("%T", data)),
			zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, err error) {
	if statusCode >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Int("status_code", statusCode), zap.Error(err))
	}
	s.respondJSON(w, errorResponse{Error: err.Error()}, statusCode)
}

// statusFor maps store errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, monitor.ErrAlertNotFound),
		errors.Is(err, monitor.ErrNotificationNotFound),
		errors.Is(err, scheduler.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, monitor.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type healthResponse struct {
	Status       string             `json:"status"`
	AlertVersion uint64             `json:"alert_version"`
	Host         *monitor.HostStats `json:"host,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		AlertVersion: s.deps.Alerts.Snapshot().Version,
	}
	if s.deps.Host != nil {
		host := s.deps.Host.Latest()
		resp.Host = &host
	}
	s.respondJSON(w, resp, http.StatusOK)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		s.respondJSON(w, s.deps.Alerts.List(), http.StatusOK)
		return
	}

	status, err := model.ParseStatus(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	s.respondJSON(w, s.deps.Alerts.ListByStatus(status), http.StatusOK)
}

func (s *Server) alertSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Alerts.Snapshot()
	s.respondJSON(w, struct {
		Version uint64 `json:"version"`
		monitor.Summary
	}{Version: snap.Version, Summary: monitor.Summarize(snap.Alerts)}, http.StatusOK)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.deps.Alerts.Get(mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, alert, http.StatusOK)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, s.deps.Alerts.Acknowledge)
}

func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	s.transitionAlert(w, r, s.deps.Alerts.Resolve)
}

func (s *Server) transitionAlert(w http.ResponseWriter, r *http.Request, apply func(string) error) {
	id := mux.Vars(r)["id"]
	if err := apply(id); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}

	alert, err := s.deps.Alerts.Get(id)
	if err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.respondJSON(w, alert, http.StatusOK)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, s.deps.Notifications.Snapshot(), http.StatusOK)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]int{"unread_count": s.deps.Notifications.UnreadCount()}, http.StatusOK)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Notifications.MarkRead(mux.Vars(r)["id"]); err != nil {
		s.respondError(w, statusFor(err), err)
		return
	}
	s.unreadCount(w, r)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	s.deps.Notifications.MarkAllRead()
	s.unreadCount(w, r)
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, s.deps.Preferences.Get(), http.StatusOK)
}

// preferencesRequest is a partial update; omitted keys keep their value
type preferencesRequest struct {
	Channels   map[string]bool `json:"channels"`
	Severities map[string]bool `json:"severities"`
}

func (s *Server) putPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Validate every key before touching the store so a bad request changes nothing
	channels := make(map[model.NotificationChannel]bool, len(req.Channels))
	for name, on := range req.Channels {
		ch, err := model.ParseChannel(name)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		channels[ch] = on
	}
	severities := make(map[model.AlertSeverity]bool, len(req.Severities))
	for name, on := range req.Severities {
		sev, err := model.ParseSeverity(name)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		severities[sev] = on
	}

	prefs := s.deps.Preferences.Update(func(p *model.NotificationPreferences) {
		for ch, on := range channels {
			p.Channels[ch] = on
		}
		for sev, on := range severities {
			p.Severities[sev] = on
		}
	})
	s.respondJSON(w, prefs, http.StatusOK)
}

// getUsage applies the optional timeframe and chart selections, then returns the view
func (s *Server) getUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if raw := q.Get("timeframe"); raw != "" {
		tf, err := usage.ParseTimeFrame(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.deps.Usage.SetTimeFrame(tf); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
	}
	if raw := q.Get("chart"); raw != "" {
		ct, err := usage.ParseChartType(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.deps.Usage.SetChartType(ct); err != nil {
			s.respondError(w, http.StatusBadRequest, err)
			return
		}
	}

	s.respondJSON(w, s.deps.Usage.View(), http.StatusOK)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("history storage is disabled"))
		return
	}
	q := r.URL.Query()

	var (
		transitions []*storage.Transition
		err         error
	)
	if alertID := q.Get("alert_id"); alertID != "" {
		transitions, err = s.deps.History.ListByAlert(r.Context(), alertID)
	} else {
		offset, limit, perr := pagination(q.Get("offset"), q.Get("limit"))
		if perr != nil {
			s.respondError(w, http.StatusBadRequest, perr)
			return
		}
		transitions, err = s.deps.History.List(r.Context(), offset, limit)
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if transitions == nil {
		transitions = []*storage.Transition{}
	}
	s.respondJSON(w, transitions, http.StatusOK)
}

func pagination(rawOffset, rawLimit string) (int, int, error) {
	offset, limit := 0, defaultHistoryLimit
	if rawOffset != "" {
		v, err := strconv.Atoi(rawOffset)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid offset: %q", rawOffset)
		}
		offset = v
	}
	if rawLimit != "" {
		v, err := strconv.Atoi(rawLimit)
		if err != nil || v < 1 {
			return 0, 0, fmt.Errorf("invalid limit: %q", rawLimit)
		}
		limit = min(v, maxHistoryLimit)
	}
	return offset, limit, nil
}

func (s *Server) resolutionTime(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("history storage is disabled"))
		return
	}

	avg, resolved, err := s.deps.History.AverageResolutionTime(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respondJSON(w, map[string]interface{}{
		"resolved":        resolved,
		"average_seconds": avg.Seconds(),
		"average":         avg.String(),
	}, http.StatusOK)
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	if s.deps.Digests == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("digests are disabled"))
		return
	}
	s.respondJSON(w, s.deps.Digests.ListSchedules(), http.StatusOK)
}

func (s *Server) runDigest(w http.ResponseWriter, r *http.Request) {
	if s.deps.Digests == nil {
		s.respondError(w, http.StatusServiceUnavailable, errors.New("digests are disabled"))
		return
	}

	digest, sent, err := s.deps.Digests.RunOnce(r.Context())
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err)
		return
	}
	if !sent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondJSON(w, digest, http.StatusOK)
}
