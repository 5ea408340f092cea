package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/events"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/card"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/team"
)

const (
	rateWindowDefault  = time.Minute
	healthCheckTimeout = 2 * time.Second
	maxBodyBytes       = 1 << 20

	classRead  = "read"
	classWrite = "write"
)

// Options tunes the router. Zero limits disable rate limiting.
type Options struct {
	BuildVersion    string
	RateLimitRead   int
	RateLimitWrite  int
	RateLimitWindow time.Duration
	Registerer      prometheus.Registerer
	Gatherer        prometheus.Gatherer
	DBHealth        func(context.Context) error
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	teams        team.Service
	cards        card.Service
	hub          *events.Hub
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	metrics      *metrics
	gatherer     prometheus.Gatherer
	buildVersion string
	readLimit    int
	writeLimit   int
	rateWindow   time.Duration
	heartbeat    time.Duration
	dbHealth     func(context.Context) error
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, teamSvc team.Service, cardSvc card.Service, hub *events.Hub, limiter RateLimiter, opts Options) *Router {
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	window := opts.RateLimitWindow
	if window <= 0 {
		window = rateWindowDefault
	}
	r := &Router{
		mux:    http.NewServeMux(),
		logger: logger,
		teams:  teamSvc,
		cards:  cardSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:      limiter,
		metrics:      newMetrics(reg),
		gatherer:     gatherer,
		buildVersion: opts.BuildVersion,
		readLimit:    opts.RateLimitRead,
		writeLimit:   opts.RateLimitWrite,
		rateWindow:   window,
		heartbeat:    15 * time.Second,
		dbHealth:     opts.DBHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))

	const teams = "/api/v1/teams"
	r.read("GET "+teams+"/build-version", r.handleBuildVersion)
	r.write("POST "+teams+"/create", r.handleCreateTeam)
	r.read("GET "+teams, r.handleListTeams)
	r.read("GET "+teams+"/fetch", r.handleFetchTeam)
	r.write("PUT "+teams+"/{teamId}", r.handleUpdateTeam)
	r.write("DELETE "+teams+"/{teamId}", r.handleDeleteTeam)
	r.write("POST "+teams+"/join", r.handleJoinTeam)
	r.write("POST "+teams+"/{cardId}/invite", r.handleInvite)
	r.write("PUT "+teams+"/{cardId}/status", r.handleMemberStatus)
	r.write("DELETE "+teams+"/{cardId}/remove", r.handleRemoveMember)
	r.read("GET "+teams+"/{cardId}", r.handleMembersByCard)
	r.read("GET "+teams+"/{teamId}/members", r.handleMembersByTeam)
	r.read("GET "+teams+"/events/ws", r.handleEventsWS)
	r.read("GET "+teams+"/events/sse", r.handleEventsSSE)

	const cards = "/api/v1/cards"
	r.read("GET "+cards+"/build-version", r.handleBuildVersion)
	r.write("POST "+cards, r.handleCreateCard)
	r.read("GET "+cards+"/fetch", r.handleFetchCard)
	r.read("GET "+cards+"/fetchByUser", r.handleCardsByUser)
	r.read("GET "+cards+"/fetchByTeam", r.handleCardsByTeam)
	r.read("GET "+cards, r.handleListCards)
	r.write("PUT "+cards+"/{cardId}", r.handleUpdateCard)
	r.write("DELETE "+cards+"/{cardId}", r.handleDeleteCard)
}

func (r *Router) read(pattern string, h http.HandlerFunc) {
	r.handle(pattern, classRead, r.readLimit, h)
}

func (r *Router) write(pattern string, h http.HandlerFunc) {
	r.handle(pattern, classWrite, r.writeLimit, h)
}

// handle labels metrics with the path part of pattern so ids never become
// label values.
func (r *Router) handle(pattern, class string, limit int, h http.HandlerFunc) {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	r.mux.HandleFunc(pattern, r.audit(route, r.withRateLimit(route, class, limit, h)))
}

func (r *Router) handleBuildVersion(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"buildVersion": r.buildVersion})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.metrics.recordRequest(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

// decodeJSON reads a bounded JSON body; unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid JSON body")
		return false
	}
	return true
}

// pathID reads a uuid path parameter.
func pathID(w http.ResponseWriter, req *http.Request, name string) (string, bool) {
	return requireUUID(w, name, req.PathValue(name))
}

// queryID reads a required uuid query parameter.
func queryID(w http.ResponseWriter, req *http.Request, name string) (string, bool) {
	return requireUUID(w, name, req.URL.Query().Get(name))
}

func requireUUID(w http.ResponseWriter, name, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", name+" is required")
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid "+name)
		return "", false
	}
	return id.String(), true
}

// queryUser reads the external user id; its format belongs to the identity service.
func queryUser(w http.ResponseWriter, req *http.Request) (string, bool) {
	userID := strings.TrimSpace(req.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "userId is required")
		return "", false
	}
	return userID, true
}

// pageRequest parses page and size. Absent values fall back to page 0 and
// the default size.
func pageRequest(w http.ResponseWriter, req *http.Request) (repository.PageRequest, bool) {
	query := req.URL.Query()
	number, err := intParam(query.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid page: "+err.Error())
		return repository.PageRequest{}, false
	}
	size, err := intParam(query.Get("size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid size: "+err.Error())
		return repository.PageRequest{}, false
	}
	page, err := repository.NewPageRequest(number, size)
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, code, err.Error())
		return repository.PageRequest{}, false
	}
	return page, true
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: must be >= 0", domain.ErrInvalidArgument)
	}
	return v, nil
}
