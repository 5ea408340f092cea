package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nikita-Hritsay/TeamUp/internal/domain"
	"github.com/Nikita-Hritsay/TeamUp/internal/events"
	"github.com/Nikita-Hritsay/TeamUp/internal/identity"
	"github.com/Nikita-Hritsay/TeamUp/internal/repository/memory"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/card"
	"github.com/Nikita-Hritsay/TeamUp/internal/service/team"
	"github.com/Nikita-Hritsay/TeamUp/pkg/logger"
)

type routerFixture struct {
	router *Router
	down   bool
}

func newRouterFixture(t *testing.T, opts Options) *routerFixture {
	t.Helper()
	f := &routerFixture{}
	users := identity.ResolverFunc(func(_ context.Context, userID string) identity.Resolution {
		if f.down {
			return identity.Resolution{Outcome: identity.Unavailable, Err: identity.ErrUnavailable}
		}
		if strings.HasPrefix(userID, "ghost") {
			return identity.Resolution{Outcome: identity.NotFound}
		}
		return identity.Resolution{Outcome: identity.Found, User: identity.User{ID: userID}}
	})
	store := memory.New()
	log := logger.Discard()
	hub := events.NewHub(16)
	t.Cleanup(hub.Stop)
	if opts.Registerer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer = reg
		opts.Gatherer = reg
	}
	f.router = NewRouter(log, team.New(store, users, hub, log), card.New(store, users, log), hub, NewMemoryRateLimiter(), opts)
	t.Cleanup(f.router.Close)
	return f
}

func (f *routerFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (f *routerFixture) createTeam(t *testing.T, name string) teamResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/teams/create", map[string]string{"name": name, "description": "d"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[teamResponse](t, rec)
}

func (f *routerFixture) createCard(t *testing.T, teamID, ownerID string) cardResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/cards", map[string]any{
		"title":   "Backend dev wanted",
		"teamId":  teamID,
		"ownerId": ownerID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create card: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[cardResponse](t, rec)
}

func TestTeamLifecycle(t *testing.T) {
	f := newRouterFixture(t, Options{})
	created := f.createTeam(t, "Gophers")
	if created.ID == "" || created.CreatedBy != "TEAMS_MS" {
		t.Fatalf("unexpected team %+v", created)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/teams/fetch?teamId="+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/teams/"+created.ID, map[string]string{"name": "Gophers 2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[teamResponse](t, rec); got.Name != "Gophers 2" {
		t.Fatalf("expected renamed team, got %+v", got)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/teams/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/teams/fetch?teamId="+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("fetch after delete: expected 404, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["code"] != "NOT_FOUND" || !strings.Contains(body["error"], created.ID) {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestListTeamsPaging(t *testing.T) {
	f := newRouterFixture(t, Options{})
	for i := 0; i < 12; i++ {
		f.createTeam(t, fmt.Sprintf("team-%02d", i))
	}
	rec := f.do(t, http.MethodGet, "/api/v1/teams?page=1&size=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	page := decodeBody[pageResponse[teamResponse]](t, rec)
	if page.TotalElements != 12 || page.TotalPages != 3 || page.PageNumber != 1 || page.PageSize != 5 || page.Last {
		t.Fatalf("unexpected page metadata %+v", page)
	}
	if len(page.Content) != 5 || page.Content[0].Name != "team-05" {
		t.Fatalf("unexpected page content %+v", page.Content)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/teams", nil)
	if got := decodeBody[pageResponse[teamResponse]](t, rec); got.PageSize != 10 || len(got.Content) != 10 {
		t.Fatalf("expected default page size 10, got %+v", got)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/teams?size=101", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized page: expected 400, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/teams?page=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative page: expected 400, got %d", rec.Code)
	}
}

func TestMembershipFlow(t *testing.T) {
	f := newRouterFixture(t, Options{})
	tm := f.createTeam(t, "Gophers")
	c := f.createCard(t, tm.ID, "owner-1")

	rec := f.do(t, http.MethodPost, "/api/v1/teams/"+c.ID+"/invite", `{"teamId":"`+tm.ID+`","userId":42}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	invited := decodeBody[memberResponse](t, rec)
	if invited.UserID != "42" || invited.Status != string(domain.StatusPending) || invited.CardID != c.ID {
		t.Fatalf("unexpected invite %+v", invited)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/teams/"+c.ID+"/invite", map[string]string{"teamId": tm.ID, "userId": "42"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second invite: expected 409, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/teams/"+c.ID+"/status?userId=42&status=JOINED", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	joined := decodeBody[memberResponse](t, rec)
	if joined.Status != string(domain.StatusJoined) || joined.JoinedAt == nil {
		t.Fatalf("expected joined member with timestamp, got %+v", joined)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/teams/"+c.ID+"/status?userId=42&status=MAYBE", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/teams/"+c.ID, nil)
	if got := decodeBody[pageResponse[memberResponse]](t, rec); got.TotalElements != 1 {
		t.Fatalf("members by card: expected 1, got %+v", got)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/teams/"+tm.ID+"/members", nil)
	if got := decodeBody[pageResponse[memberResponse]](t, rec); got.TotalElements != 1 {
		t.Fatalf("members by team: expected 1, got %+v", got)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/teams?userId=42", nil)
	if got := decodeBody[pageResponse[teamResponse]](t, rec); got.TotalElements != 1 || got.Content[0].ID != tm.ID {
		t.Fatalf("teams of user: unexpected %+v", got)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/teams/"+c.ID+"/remove?userId=42", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: expected 204, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/v1/teams/"+c.ID+"/remove?userId=42", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second remove: expected 404, got %d", rec.Code)
	}
}

func TestJoinTeamErrors(t *testing.T) {
	f := newRouterFixture(t, Options{})
	tm := f.createTeam(t, "Gophers")

	rec := f.do(t, http.MethodPost, "/api/v1/teams/join", map[string]string{"teamId": tm.ID, "userId": "ghost-1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", rec.Code)
	}

	f.down = true
	rec = f.do(t, http.MethodPost, "/api/v1/teams/join", map[string]string{"teamId": tm.ID, "userId": "7"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("identity down: expected 503, got %d", rec.Code)
	}
	f.down = false

	rec = f.do(t, http.MethodPost, "/api/v1/teams/join", map[string]string{"teamId": "not-a-uuid", "userId": "7"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad team id: expected 400, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/v1/teams/join", `{"teamId":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("broken json: expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/teams/join", map[string]string{"teamId": tm.ID, "userId": "7"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[memberResponse](t, rec); got.CardID != "" || got.Role != domain.RoleParticipant {
		t.Fatalf("unexpected join row %+v", got)
	}
}

func TestCardEndpoints(t *testing.T) {
	f := newRouterFixture(t, Options{})
	tm := f.createTeam(t, "Gophers")
	c := f.createCard(t, tm.ID, "owner-1")

	rec := f.do(t, http.MethodGet, "/api/v1/cards/fetch?cardId="+c.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch: expected 200, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards/fetchByUser?userId=owner-1", nil)
	if got := decodeBody[[]cardResponse](t, rec); len(got) != 1 || got[0].ID != c.ID {
		t.Fatalf("by user: unexpected %+v", got)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards/fetchByTeam?teamId="+tm.ID, nil)
	if got := decodeBody[pageResponse[cardResponse]](t, rec); got.TotalElements != 1 {
		t.Fatalf("by team: unexpected %+v", got)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards?title=BACKEND&ownerId=owner-1", nil)
	if got := decodeBody[pageResponse[cardResponse]](t, rec); got.TotalElements != 1 {
		t.Fatalf("filter: unexpected %+v", got)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards?title=frontend", nil)
	if got := decodeBody[pageResponse[cardResponse]](t, rec); got.TotalElements != 0 || got.Content == nil {
		t.Fatalf("filter miss: expected empty content, got %+v", got)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/cards/"+c.ID, map[string]string{"title": "Go dev wanted", "teamId": tm.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[cardResponse](t, rec); got.Title != "Go dev wanted" || got.OwnerID != "owner-1" {
		t.Fatalf("unexpected updated card %+v", got)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/cards", map[string]string{"title": "x", "teamId": tm.ID, "ownerId": "ghost-9"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown owner: expected 404, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/v1/cards", map[string]string{"teamId": tm.ID, "ownerId": "owner-1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title: expected 400, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/api/v1/cards/"+c.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards/fetch?cardId="+c.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("fetch deleted: expected 404, got %d", rec.Code)
	}
}

func TestListCardsRejectsMalformedTeamFilter(t *testing.T) {
	f := newRouterFixture(t, Options{})
	tm := f.createTeam(t, "Gophers")
	f.createCard(t, tm.ID, "owner-1")

	rec := f.do(t, http.MethodGet, "/api/v1/cards?teamId=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/v1/cards?teamId="+strings.ToUpper(tm.ID), nil)
	if got := decodeBody[pageResponse[cardResponse]](t, rec); got.TotalElements != 1 {
		t.Fatalf("team filter: unexpected %+v", got)
	}
}

func TestBuildVersionAndHealth(t *testing.T) {
	f := newRouterFixture(t, Options{
		BuildVersion: "1.2.3",
		DBHealth:     func(context.Context) error { return errors.New("db down") },
	})
	for _, path := range []string{"/api/v1/teams/build-version", "/api/v1/cards/build-version"} {
		rec := f.do(t, http.MethodGet, path, nil)
		if got := decodeBody[map[string]string](t, rec); got["buildVersion"] != "1.2.3" {
			t.Fatalf("%s: unexpected body %v", path, got)
		}
	}
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz: expected 503, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/healthz", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("healthz POST: expected 405, got %d", rec.Code)
	}
}

func TestRateLimitAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newRouterFixture(t, Options{RateLimitRead: 2, Registerer: reg, Gatherer: reg})
	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodGet, "/api/v1/teams", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("missing rate headers: %v", rec.Header())
		}
	}
	rec := f.do(t, http.MethodGet, "/api/v1/teams", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// writes use their own class and stay unlimited here
	f.createTeam(t, "still allowed")

	rec = f.do(t, http.MethodGet, "/metrics", nil)
	body := rec.Body.String()
	for _, want := range []string{
		`teamup_teams_http_requests_total{method="GET",route="/api/v1/teams",status="429"} 1`,
		`teamup_teams_rate_limit_hits_total{key="ip",route="/api/v1/teams"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFound("Team", "id", "x"), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := errorStatus(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestEventsSSEStreamsMemberEvents(t *testing.T) {
	f := newRouterFixture(t, Options{})
	f.router.heartbeat = time.Hour
	tm := f.createTeam(t, "Gophers")

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/teams/events/sse?teamId="+tm.ID, nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// registration is asynchronous in the hub; retry until an event lands
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := resp.Body.Read(buf)
		got <- string(buf[:n])
	}()
	deadline := time.After(4 * time.Second)
	for i := 0; ; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/teams/join", map[string]string{"teamId": tm.ID, "userId": fmt.Sprintf("u-%d", i)})
		if rec.Code != http.StatusCreated {
			t.Fatalf("join: expected 201, got %d", rec.Code)
		}
		select {
		case frame := <-got:
			if !strings.HasPrefix(frame, "event: "+string(events.MemberJoinRequested)+"\ndata: {") {
				t.Fatalf("unexpected frame %q", frame)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no event received")
		}
	}
}

func TestEventsRequireExistingTeam(t *testing.T) {
	f := newRouterFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/teams/events/sse?teamId=6f1c6f0e-2b7c-4c1e-9d37-0d2d2c1b9a11", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/v1/teams/events/ws", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing team: expected 400, got %d", rec.Code)
	}
}
