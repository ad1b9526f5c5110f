package metrics_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lifeplanner/core/internal/adapters/memory"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/ports"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveStoreAction("goals", "create", nil)
	m.ObserveCoalesced("goals")
	m.ObserveCascade("archive", "done")
	m.ObserveCascadeStep("archive", errors.New("boom"))
}

func TestWorkspaceReportsStoreAndCascadeMetrics(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	ws := services.NewWorkspace(memory.NewBackend(), logger.NewNop(), m)
	defer ws.Close()

	area, err := ws.LifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Health"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ws.Goals.Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Sleep"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ws.LifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: " "}); err == nil {
		t.Fatalf("expected a blank name to fail")
	}

	if got := testutil.ToFloat64(m.StoreRequests.WithLabelValues("life_areas", "create", "ok")); got != 1 {
		t.Fatalf("expected 1 successful create, got %v", got)
	}
	if got := testutil.ToFloat64(m.StoreRequests.WithLabelValues("life_areas", "create", "error")); got != 1 {
		t.Fatalf("expected 1 failed create, got %v", got)
	}

	if _, err := ws.ArchiveCascade(ctx, area.Ref()); err != nil {
		t.Fatalf("archive cascade: %v", err)
	}
	if got := testutil.ToFloat64(m.CascadeOperations.WithLabelValues("archive", "done")); got != 1 {
		t.Fatalf("expected 1 finished cascade, got %v", got)
	}
	if got := testutil.ToFloat64(m.CascadeSteps.WithLabelValues("archive", "ok")); got != 2 {
		t.Fatalf("expected 2 archive steps, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "lifeplanner_cascade_operations_total") {
		t.Fatalf("expected cascade counter in exposition")
	}
}
