package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lifeplanner/core/internal/adapters/memory"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/auth"
	"github.com/lifeplanner/core/internal/infrastructure/config"
	"github.com/lifeplanner/core/internal/infrastructure/database"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/ports"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "LifePlanner", Version: "test"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	m := metrics.New()
	ws := services.NewWorkspace(memory.NewBackend(), logger.NewNop(), m)
	t.Cleanup(ws.Close)
	return New(cfg, ws, nil, logger.NewNop(), m).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestEntityRoutes(t *testing.T) {
	h := newTestServer(t, testConfig())

	rec := do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "Health"}, "")
	expectStatus(t, rec, http.StatusCreated)
	area := decode[entities.LifeArea](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/goals", map[string]string{"life_area_id": area.ID, "title": "Run a 10k"}, "")
	expectStatus(t, rec, http.StatusCreated)
	goal := decode[entities.Goal](t, rec)

	rec = do(t, h, http.MethodGet, "/api/v1/goals?parent_id="+area.ID, nil, "")
	expectStatus(t, rec, http.StatusOK)
	if goals := decode[[]entities.Goal](t, rec); len(goals) != 1 || goals[0].ID != goal.ID {
		t.Fatalf("unexpected goals %+v", goals)
	}

	rec = do(t, h, http.MethodPatch, "/api/v1/goals/"+goal.ID, map[string]string{"title": "Run a half marathon"}, "")
	expectStatus(t, rec, http.StatusOK)
	if updated := decode[entities.Goal](t, rec); updated.Title != "Run a half marathon" {
		t.Fatalf("unexpected title %q", updated.Title)
	}

	rec = do(t, h, http.MethodPatch, "/api/v1/goals/"+goal.ID, map[string]string{}, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPatch, "/api/v1/goals/missing", map[string]string{"title": "x"}, "")
	expectStatus(t, rec, http.StatusNotFound)

	rec = do(t, h, http.MethodPost, "/api/v1/goals/"+goal.ID+"/complete", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if done := decode[entities.Goal](t, rec); done.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	rec = do(t, h, http.MethodPost, "/api/v1/life-areas/"+area.ID+"/complete", nil, "")
	if rec.Code < 400 {
		t.Fatalf("life areas cannot be completed, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/goals/"+goal.ID+"/archive", nil, "")
	expectStatus(t, rec, http.StatusNoContent)
	rec = do(t, h, http.MethodGet, "/api/v1/goals", nil, "")
	if goals := decode[[]entities.Goal](t, rec); len(goals) != 0 {
		t.Fatalf("archived goal listed: %+v", goals)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/goals?include_archived=true", nil, "")
	if goals := decode[[]entities.Goal](t, rec); len(goals) != 1 {
		t.Fatalf("expected archived goal with include_archived, got %+v", goals)
	}
}

func TestValidationErrors(t *testing.T) {
	h := newTestServer(t, testConfig())

	rec := do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "   "}, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "Work", "color": "blue"}, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/api/v1/goals", map[string]string{"life_area_id": "nope", "title": "x"}, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodGet, "/api/v1/tasks?limit=0", nil, "")
	expectStatus(t, rec, http.StatusBadRequest)

	rec = do(t, h, http.MethodPost, "/api/v1/cascade/archive", map[string]string{"kind": "habit", "id": "x"}, "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestCascadeRoutes(t *testing.T) {
	h := newTestServer(t, testConfig())

	area := decode[entities.LifeArea](t, do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "Work"}, ""))
	goal := decode[entities.Goal](t, do(t, h, http.MethodPost, "/api/v1/goals", map[string]string{"life_area_id": area.ID, "title": "Ship"}, ""))
	project := decode[entities.Project](t, do(t, h, http.MethodPost, "/api/v1/projects", map[string]string{"goal_id": goal.ID, "title": "v2"}, ""))
	rec := do(t, h, http.MethodPost, "/api/v1/tasks", map[string]string{"project_id": project.ID, "title": "Release notes"}, "")
	expectStatus(t, rec, http.StatusCreated)

	rec = do(t, h, http.MethodPost, "/api/v1/cascade/archive", map[string]string{"kind": "life-areas", "id": area.ID}, "")
	expectStatus(t, rec, http.StatusOK)
	report := decode[ports.CascadeReport](t, rec)
	if report.State != "done" || len(report.Succeeded) != 4 || report.OperationID == "" {
		t.Fatalf("unexpected archive report %+v", report)
	}

	if tasks := decode[[]entities.Task](t, do(t, h, http.MethodGet, "/api/v1/tasks", nil, "")); len(tasks) != 0 {
		t.Fatalf("tasks should be archived, got %+v", tasks)
	}
	if tree := decode[[]services.TreeNode](t, do(t, h, http.MethodGet, "/api/v1/tree", nil, "")); len(tree) != 0 {
		t.Fatalf("archived subtree shown in tree: %+v", tree)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/cascade/restore", map[string]string{"kind": "life_area", "id": area.ID}, "")
	expectStatus(t, rec, http.StatusOK)
	restored := decode[ports.CascadeReport](t, rec)
	if restored.OperationID != report.OperationID || len(restored.Succeeded) != 4 {
		t.Fatalf("unexpected restore report %+v", restored)
	}

	tree := decode[[]services.TreeNode](t, do(t, h, http.MethodGet, "/api/v1/tree", nil, ""))
	if len(tree) != 1 || tree[0].Label != "Work" || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
}

func TestReorderLifeAreas(t *testing.T) {
	h := newTestServer(t, testConfig())
	a := decode[entities.LifeArea](t, do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "A"}, ""))
	b := decode[entities.LifeArea](t, do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "B"}, ""))

	rec := do(t, h, http.MethodPut, "/api/v1/life-areas/order", map[string][]string{"ids": {b.ID, a.ID}}, "")
	expectStatus(t, rec, http.StatusNoContent)

	areas := decode[[]entities.LifeArea](t, do(t, h, http.MethodGet, "/api/v1/life-areas", nil, ""))
	if len(areas) != 2 || areas[0].ID != b.ID {
		t.Fatalf("unexpected order %+v", areas)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/life-areas/order", map[string][]string{"ids": {}}, "")
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Secret: "0123456789abcdef0123", Issuer: "lifeplanner"}
	h := newTestServer(t, cfg)

	expectStatus(t, do(t, h, http.MethodGet, "/health", nil, ""), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodGet, "/api/v1/life-areas", nil, ""), http.StatusUnauthorized)
	expectStatus(t, do(t, h, http.MethodGet, "/api/v1/life-areas", nil, "not-a-token"), http.StatusUnauthorized)

	token, err := auth.NewIssuer(cfg.Auth).Issue("test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expectStatus(t, do(t, h, http.MethodGet, "/api/v1/life-areas", nil, token), http.StatusOK)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, testConfig())

	expectStatus(t, do(t, h, http.MethodGet, "/ready", nil, ""), http.StatusOK)
	do(t, h, http.MethodPost, "/api/v1/life-areas", map[string]string{"name": "Health"}, "")

	rec := do(t, h, http.MethodGet, "/metrics", nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{"lifeplanner_store_requests_total", "http_requests_total"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output is missing %s", want)
		}
	}
}

type downDatabase struct{}

func (downDatabase) HealthCheck(context.Context) error { return errors.New("connection refused") }

func TestReadinessReportsPoolStats(t *testing.T) {
	db, err := database.New(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ws := services.NewWorkspace(memory.NewBackend(), logger.NewNop(), nil)
	t.Cleanup(ws.Close)
	h := New(testConfig(), ws, db, logger.NewNop(), nil).Handler()

	rec := do(t, h, http.MethodGet, "/ready", nil, "")
	expectStatus(t, rec, http.StatusOK)
	body := decode[struct {
		Status   string                 `json:"status"`
		Database map[string]interface{} `json:"database"`
	}](t, rec)
	if body.Status != "ready" || body.Database["driver"] != "sqlite" {
		t.Fatalf("unexpected readiness body %s", rec.Body.String())
	}
	if _, ok := body.Database["open_connections"]; !ok {
		t.Fatalf("expected pool statistics, got %v", body.Database)
	}

	down := New(testConfig(), ws, downDatabase{}, logger.NewNop(), nil).Handler()
	rec = do(t, down, http.MethodGet, "/ready", nil, "")
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("readiness leaked the database error: %s", rec.Body.String())
	}
}
