package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 3 * time.Second

// TokenSource issues the bearer token attached to outbound calls.
type TokenSource func() (string, error)

// HTTPResolver calls GET {base}/api/v1/fetch?id=<id> on the accounts service.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	token      TokenSource
	log        *slog.Logger
}

// Option customises resolver instantiation.
type Option func(*HTTPResolver)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(r *HTTPResolver) {
		if h != nil {
			r.httpClient = h
		}
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *HTTPResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTokenSource attaches a bearer token to every call.
func WithTokenSource(ts TokenSource) Option {
	return func(r *HTTPResolver) {
		r.token = ts
	}
}

// WithLogger sets the logger used for unavailable outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(r *HTTPResolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewHTTPResolver constructs a resolver pointing at the accounts base URL.
func NewHTTPResolver(base string, opts ...Option) (*HTTPResolver, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, errors.New("empty identity base url")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid identity base url: %w", err)
	}
	r := &HTTPResolver{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolveUser maps 200 with a decodable body to Found, 400/404/410 to
// NotFound, and everything else to Unavailable.
func (r *HTTPResolver) ResolveUser(ctx context.Context, userID string) Resolution {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return notFound()
	}
	res := r.resolve(ctx, userID)
	if res.Outcome == Unavailable {
		r.log.Warn("identity lookup unavailable", "user_id", userID, "error", res.Err)
	}
	return res
}

func (r *HTTPResolver) resolve(ctx context.Context, userID string) Resolution {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := r.baseURL + "/api/v1/fetch?id=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return unavailable("create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.token != nil {
		token, err := r.token()
		if err != nil {
			return unavailable("issue service token: %v", err)
		}
		if strings.TrimSpace(token) != "" {
			req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
		}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return unavailable("perform request: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest, http.StatusGone:
		_, _ = io.Copy(io.Discard, resp.Body)
		return notFound()
	default:
		return unavailable("status %d: %s", resp.StatusCode, extractError(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable("read response: %v", err)
	}
	var wire *wireUser
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return unavailable("decode response: %v", err)
	}
	if wire == nil {
		return unavailable("decode response: empty body")
	}
	return found(wire.user(userID))
}

// wireUser accepts the accounts payload, whose id may be a number or a string.
type wireUser struct {
	ID           json.RawMessage `json:"id"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	MobileNumber string          `json:"mobileNumber"`
}

func (w wireUser) user(fallbackID string) User {
	id := strings.Trim(strings.TrimSpace(string(w.ID)), `"`)
	if id == "" || id == "null" {
		id = fallbackID
	}
	return User{
		ID:           id,
		FirstName:    w.FirstName,
		LastName:     w.LastName,
		Email:        w.Email,
		MobileNumber: w.MobileNumber,
	}
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error        string `json:"error"`
		ErrorMessage string `json:"errorMessage"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Error != "" {
		return strings.TrimSpace(payload.Error)
	}
	return strings.TrimSpace(payload.ErrorMessage)
}
