package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/newshub/internal/agent"
	"github.com/mohammad-safakhou/newshub/internal/refresh"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/mohammad-safakhou/newshub/internal/store"
	"github.com/mohammad-safakhou/newshub/models"
)

type fakeResolver struct {
	queries []string
	items   []models.NewsItem
}

func (f *fakeResolver) Resolve(_ context.Context, q string) []models.NewsItem {
	f.queries = append(f.queries, q)
	return f.items
}

func (f *fakeResolver) CacheAvailable() bool { return false }

type fakeAnalyst struct{ calls int }

func (f *fakeAnalyst) Answer(_ context.Context, q string) agent.Answer {
	f.calls++
	return agent.Answer{Text: agent.DegradedTag + "resposta para " + q, Provider: "gemini", Degraded: true}
}

type fakeRefresher struct{ triggers []string }

func (f *fakeRefresher) Run(_ context.Context, trigger string) refresh.Report {
	f.triggers = append(f.triggers, trigger)
	return refresh.Report{RunID: "run-1", Trigger: trigger, Fetched: 4, Inserted: 3, FinishedAt: time.Date(2024, 5, 1, 11, 0, 5, 0, time.UTC)}
}

type testEnv struct {
	e         *echo.Echo
	store     *store.Store
	resolver  *fakeResolver
	analyst   *fakeAnalyst
	refresher *fakeRefresher
}

func newTestEnv(t *testing.T, creds runtime.Credentials) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	env := &testEnv{
		store:     st,
		resolver:  &fakeResolver{items: []models.NewsItem{{ID: "1", Title: "Operação no DF"}}},
		analyst:   &fakeAnalyst{},
		refresher: &fakeRefresher{},
	}
	env.e = NewEcho(Deps{
		ServiceName: "newshub",
		Resolver:    env.resolver,
		Analyst:     env.analyst,
		Refresher:   env.refresher,
		Store:       st,
		Credentials: creds,
		Metrics:     runtime.NewMetrics(),
	})
	return env
}

func (env *testEnv) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func withKey(key string) http.Header {
	return http.Header{runtime.APIKeyHeader: []string{key}}
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{APIKey: "secret"})
	rec := env.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["cache"] != false {
		t.Fatalf("unexpected body %v", body)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("missing request id")
	}
	if rec := env.do(http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics not exposed: %d", rec.Code)
	}
}

func TestAuthGate(t *testing.T) {
	secret := []byte("jwt-secret")
	token, err := runtime.SignJWT("ops", secret, time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	expired, err := runtime.SignJWT("ops", secret, -time.Minute)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{name: "missing", header: nil, want: http.StatusUnauthorized},
		{name: "wrong key", header: withKey("nope"), want: http.StatusUnauthorized},
		{name: "valid key", header: withKey("secret"), want: http.StatusOK},
		{name: "valid jwt", header: http.Header{"Authorization": []string{"Bearer " + token}}, want: http.StatusOK},
		{name: "expired jwt", header: http.Header{"Authorization": []string{"Bearer " + expired}}, want: http.StatusUnauthorized},
		{name: "dev key rejected when configured", header: withKey(runtime.DevAPIKey), want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, runtime.Credentials{APIKey: "secret", JWTSecret: secret})
			rec := env.do(http.MethodGet, "/api/news?q=crime", tt.header)
			if rec.Code != tt.want {
				t.Fatalf("expected %d got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want == http.StatusUnauthorized {
				if len(env.resolver.queries) != 0 {
					t.Fatalf("resolver ran for a rejected request")
				}
				if !strings.Contains(rec.Body.String(), `"error":"invalid or missing credentials"`) {
					t.Fatalf("unexpected error body %s", rec.Body.String())
				}
			}
		})
	}
}

func TestDevKeyWhenNothingConfigured(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{})
	if rec := env.do(http.MethodGet, "/api/news", withKey(runtime.DevAPIKey)); rec.Code != http.StatusOK {
		t.Fatalf("expected dev key to be accepted, got %d", rec.Code)
	}
}

func TestNewsSearch(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{APIKey: "k"})
	rec := env.do(http.MethodGet, "/api/news?q=opera%C3%A7%C3%A3o", withKey("k"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var items []models.NewsItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || env.resolver.queries[0] != "operação" {
		t.Fatalf("unexpected result %v %v", items, env.resolver.queries)
	}
}

func TestRecentAndLogs(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{APIKey: "k"})
	ctx := context.Background()
	now := time.Now().UTC()
	for i, u := range []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"} {
		it := models.NewNewsItem("item", u, "GDELT", "", now.Add(time.Duration(i)*time.Minute), now)
		if _, err := env.store.InsertItem(ctx, it); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
	}
	if err := env.store.InsertLog(ctx, now, "INFO", "refresh finished"); err != nil {
		t.Fatalf("InsertLog: %v", err)
	}

	rec := env.do(http.MethodGet, "/api/news/recent?limit=2", withKey("k"))
	var items []models.NewsItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 2 {
		t.Fatalf("expected 2 recent items, got %d (%v)", len(items), err)
	}
	if !items[0].PublishedAt.After(items[1].PublishedAt) {
		t.Fatalf("recent items not newest first")
	}

	rec = env.do(http.MethodGet, "/api/news/recent?limit=abc", withKey("k"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/api/logs", withKey("k"))
	var logs []models.LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &logs); err != nil || len(logs) != 1 || logs[0].Message != "refresh finished" {
		t.Fatalf("unexpected logs %v (%v)", logs, err)
	}
}

func TestChat(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{APIKey: "k"})
	rec := env.do(http.MethodGet, "/api/chat?q=", withKey("k"))
	if rec.Code != http.StatusBadRequest || env.analyst.calls != 0 {
		t.Fatalf("expected 400 without calling the analyst, got %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/api/chat?q=roubos", withKey("k"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(body.Response, agent.DegradedTag) || !body.Degraded || body.Provider != "gemini" {
		t.Fatalf("unexpected chat body %+v", body)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t, runtime.Credentials{APIKey: "k"})
	if rec := env.do(http.MethodGet, "/api/refresh", withKey("k")); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for GET, got %d", rec.Code)
	}
	if len(env.refresher.triggers) != 0 {
		t.Fatalf("GET must not trigger a refresh")
	}
	rec := env.do(http.MethodPost, "/api/refresh", withKey("k"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body refreshResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "refresh completed" || body.Inserted != 3 || body.Fetched != 4 || body.RunID != "run-1" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(env.refresher.triggers) != 1 || env.refresher.triggers[0] != refresh.TriggerManual {
		t.Fatalf("unexpected triggers %v", env.refresher.triggers)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "", want: 50},
		{raw: "10", want: 10},
		{raw: "1000", want: 200},
		{raw: "0", wantErr: true},
		{raw: "-3", wantErr: true},
		{raw: "x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.raw, defaultRecentLimit, maxRecentLimit)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Fatalf("parseLimit(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestMigrateRequiresDSN(t *testing.T) {
	if err := Migrate("", "", "up", 0); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
