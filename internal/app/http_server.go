package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activity-tracker/internal/auth"
	"activity-tracker/internal/domain"
	"activity-tracker/internal/export"
	"activity-tracker/internal/observability"
	"activity-tracker/internal/timer"
)

// DegradedHeader is set on every response while the fallback store is active.
const DegradedHeader = "X-Store-Degraded"

// HTTPServer returns a configured http.Server exposing the tracker API.
// Call ListenAndServe on the returned server in a goroutine and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	a.log.Info("http server configured", slog.String("addr", addr), slog.Bool("auth", a.cfg.Auth.Secret != ""))
	return srv
}

// Handler builds the routed, authenticated and logged API handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if a.Degraded() {
			_, _ = w.Write([]byte("degraded"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/logs", methods(map[string]http.HandlerFunc{
		http.MethodGet:    a.listLogs,
		http.MethodPost:   a.addLog,
		http.MethodDelete: a.deleteLogs,
	}))
	mux.HandleFunc("/activities", methods(map[string]http.HandlerFunc{
		http.MethodGet:  a.listActivities,
		http.MethodPost: a.addActivity,
	}))
	mux.HandleFunc("/summary", methods(map[string]http.HandlerFunc{http.MethodGet: a.summary}))
	mux.HandleFunc("/export", methods(map[string]http.HandlerFunc{http.MethodGet: a.exportCSV}))
	mux.HandleFunc("/timer", methods(map[string]http.HandlerFunc{http.MethodGet: a.timerState}))
	mux.HandleFunc("/timer/start", methods(map[string]http.HandlerFunc{http.MethodPost: a.timerStart}))
	mux.HandleFunc("/timer/stop", methods(map[string]http.HandlerFunc{http.MethodPost: a.timerStop}))
	mux.HandleFunc("/store/recover", methods(map[string]http.HandlerFunc{http.MethodPost: a.recoverStore}))

	// Legacy paths kept for older clients.
	mux.HandleFunc("/api/get-logs", methods(map[string]http.HandlerFunc{http.MethodGet: a.listLogs}))
	mux.HandleFunc("/api/add-log", methods(map[string]http.HandlerFunc{http.MethodPost: a.addLog}))
	mux.HandleFunc("/api/clear-logs", methods(map[string]http.HandlerFunc{http.MethodDelete: a.deleteLogs}))
	mux.HandleFunc("/api/get-activities", methods(map[string]http.HandlerFunc{http.MethodGet: a.listActivities}))
	mux.HandleFunc("/api/add-activity", methods(map[string]http.HandlerFunc{http.MethodPost: a.addActivity}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	authCfg := auth.Config{Secret: a.cfg.Auth.Secret, Issuer: a.cfg.Auth.Issuer}
	h := auth.Middleware(authCfg, auth.SkipPaths("/healthz", "/metrics"), mux)
	return loggingMiddleware(a.log, a.Degraded, h)
}

// methods dispatches on r.Method and answers 405 with an Allow header for
// anything else.
func methods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := make([]string, 0, len(handlers))
	for m := range handlers {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	allow := strings.Join(allowed, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.Method]; ok {
			h(w, r)
			return
		}
		w.Header().Set("Allow", allow)
		writeErr(w, domain.ErrNotAllowed)
	}
}

type addLogRequest struct {
	Activity string `json:"activity"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

type deleteLogsRequest struct {
	IDs []string `json:"ids"`
}

type activityRequest struct {
	Activity string `json:"activity"`
}

func (a *App) listLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := a.logs.ListLogs(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *App) addLog(w http.ResponseWriter, r *http.Request) {
	var req addLogRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if strings.TrimSpace(req.Activity) == "" || strings.TrimSpace(req.Start) == "" || strings.TrimSpace(req.End) == "" {
		writeErr(w, fmt.Errorf("%w: activity, start and end are required", domain.ErrValidation))
		return
	}
	loc := a.logs.Location
	start, err := domain.ParseTimestamp("start", req.Start, loc)
	if err != nil {
		writeErr(w, err)
		return
	}
	end, err := domain.ParseTimestamp("end", req.End, loc)
	if err != nil {
		writeErr(w, err)
		return
	}

	saved, err := a.logs.AddLog(r.Context(), req.Activity, start, end)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Log saved", "id": saved.ID})
}

func (a *App) deleteLogs(w http.ResponseWriter, r *http.Request) {
	var req deleteLogsRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	n, err := a.logs.DeleteLogs(r.Context(), req.IDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	msg := fmt.Sprintf("Deleted %d logs", n)
	if len(req.IDs) == 0 {
		msg = "All logs cleared"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "deletedCount": n})
}

func (a *App) listActivities(w http.ResponseWriter, r *http.Request) {
	names, err := a.logs.ListActivities(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (a *App) addActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if err := a.logs.AddActivity(r.Context(), req.Activity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Activity %q added.", strings.TrimSpace(req.Activity))})
}

type summaryResponse struct {
	Date        string              `json:"date"`
	Metric      domain.Metric       `json:"metric"`
	Provisional bool                `json:"provisional"`
	Rows        []domain.SummaryRow `json:"rows"`
}

func (a *App) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := domain.ParseMetric(q.Get("metric"))
	if err != nil {
		writeErr(w, err)
		return
	}
	day, err := domain.ParseDay(q.Get("date"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if day == "" {
		day = time.Now().In(a.logs.Location).Format(domain.DateLayout)
	}

	resp := summaryResponse{Date: day, Metric: metric}
	var extra []domain.LogEntry
	if running, ok := a.timer.Provisional(); ok && running.OnDay(day, a.logs.Location) {
		extra = append(extra, running)
		resp.Provisional = true
	}
	rows, err := a.logs.Summary(r.Context(), day, metric, extra...)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp.Rows = rows
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) exportCSV(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	logs, err := a.logs.ListLogs(r.Context(), day)
	if err != nil {
		writeErr(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, logs, a.logs.Location); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(strings.TrimSpace(day))))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type timerResponse struct {
	timer.Snapshot
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

func snapshotResponse(s timer.Snapshot) timerResponse {
	return timerResponse{Snapshot: s, ElapsedSeconds: int64(s.Elapsed / time.Second)}
}

func (a *App) timerState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotResponse(a.timer.Snapshot()))
}

func (a *App) timerStart(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	snap, err := a.timer.Start(req.Activity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

func (a *App) timerStop(w http.ResponseWriter, r *http.Request) {
	entry, err := a.timer.Stop(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Log saved", "log": entry})
}

func (a *App) recoverStore(w http.ResponseWriter, r *http.Request) {
	if a.tiered == nil {
		writeError(w, http.StatusConflict, errNoFallback.Error())
		return
	}
	if err := a.Recover(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "primary store restored"})
}

// decodeBody reads an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: unable to read body", domain.ErrValidation)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: unable to parse body", domain.ErrValidation)
	}
	return nil
}

// statusFor maps error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrAlreadyRunning),
		errors.Is(err, domain.ErrNotRunning),
		errors.Is(err, domain.ErrStopInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotAllowed):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusMethodNotAllowed:
		msg = "Method not allowed"
	case http.StatusInternalServerError:
		if !errors.Is(err, domain.ErrStore) {
			msg = "internal error"
		}
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusRecorder captures the response status and stamps the degraded
// header right before headers are sent.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	wrote    bool
	degraded func() bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.wrote = true
		s.status = code
		if s.degraded() {
			s.Header().Set(DegradedHeader, "true")
		}
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

var routeLabels = map[string]bool{
	"/healthz": true, "/metrics": true, "/logs": true, "/activities": true, "/summary": true,
	"/export": true, "/timer": true, "/timer/start": true, "/timer/stop": true, "/store/recover": true,
	"/api/get-logs": true, "/api/add-log": true, "/api/clear-logs": true,
	"/api/get-activities": true, "/api/add-activity": true,
}

// loggingMiddleware provides basic request logging and latency metrics.
func loggingMiddleware(log *slog.Logger, degraded func() bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK, degraded: degraded}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		path := r.URL.Path
		if !routeLabels[path] {
			path = "other"
		}
		observability.ObserveHTTP(path, r.Method, dur)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", dur),
		)
	})
}
