package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lifeplanner/core/internal/adapters/memory"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/auth"
	"github.com/lifeplanner/core/internal/infrastructure/config"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/server"
	"github.com/lifeplanner/core/internal/ports"
)

const secret = "0123456789abcdef0123"

func startServer(t *testing.T) (*httptest.Server, config.AuthConfig) {
	t.Helper()
	authCfg := config.AuthConfig{Secret: secret, Issuer: "lifeplanner"}
	cfg := &config.Config{
		App:      config.AppConfig{Version: "test"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Auth:     authCfg,
	}
	ws := services.NewWorkspace(memory.NewBackend(), logger.NewNop(), nil)
	t.Cleanup(ws.Close)

	srv := httptest.NewServer(server.New(cfg, ws, nil, logger.NewNop(), nil).Handler())
	t.Cleanup(srv.Close)
	return srv, authCfg
}

func newClient(t *testing.T) *Client {
	t.Helper()
	srv, authCfg := startServer(t)
	token, err := auth.NewIssuer(authCfg).Issue("test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	client, err := New(config.RemoteConfig{BaseURL: srv.URL + "/", Token: token})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientImplementsBackend(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	area, err := client.LifeAreas().Create(ctx, ports.CreateLifeAreaRequest{Name: "Health"})
	if err != nil {
		t.Fatalf("create life area: %v", err)
	}
	goal, err := client.Goals().Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Sleep 8h"})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	goals, err := client.Goals().FetchAll(ctx, ports.Filter{ParentID: &area.ID})
	if err != nil {
		t.Fatalf("fetch goals: %v", err)
	}
	if len(goals) != 1 || goals[0].ID != goal.ID {
		t.Fatalf("unexpected goals %+v", goals)
	}

	done, err := client.Goals().Complete(ctx, goal.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	if err := client.Goals().Archive(ctx, goal.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	goals, _ = client.Goals().FetchAll(ctx, ports.Filter{})
	if len(goals) != 0 {
		t.Fatalf("archived goal listed: %+v", goals)
	}
	if err := client.Goals().Restore(ctx, goal.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if _, ok := client.LifeAreas().(ports.Completer[entities.LifeArea]); ok {
		t.Fatalf("life areas must not expose completion")
	}
}

func TestClientSendsDueWindow(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	area, _ := client.LifeAreas().Create(ctx, ports.CreateLifeAreaRequest{Name: "Admin"})
	goal, _ := client.Goals().Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Taxes"})
	project, err := client.Projects().Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "Return"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	now := time.Now().Truncate(time.Millisecond)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	late, _ := client.Tasks().Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "File receipts", DueDate: &past})
	if _, err := client.Tasks().Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Submit", DueDate: &future}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	overdue, err := client.Tasks().FetchAll(ctx, ports.Filter{DueBefore: &now})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Fatalf("expected only %q overdue, got %+v", late.Title, overdue)
	}
	upcoming, _ := client.Tasks().FetchAll(ctx, ports.Filter{DueAfter: &now})
	if len(upcoming) != 1 || upcoming[0].Title != "Submit" {
		t.Fatalf("expected only Submit upcoming, got %+v", upcoming)
	}
}

func TestClientSurfacesServerMessages(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	_, err := client.Goals().Update(ctx, "missing", ports.UpdateGoalRequest{Title: ptr("x")})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Message == "" {
		t.Fatalf("expected a StatusError with a message, got %#v", err)
	}

	_, err = client.Goals().Create(ctx, ports.CreateGoalRequest{LifeAreaID: "nope", Title: "x"})
	if !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("expected a 400 mapped to ErrValidation, got %v", err)
	}
}

func TestClientRejectedWithoutToken(t *testing.T) {
	srv, _ := startServer(t)
	client, err := New(config.RemoteConfig{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.LifeAreas().FetchAll(context.Background(), ports.Filter{})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestWorkspaceOverRemoteBackend(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	ws := services.NewWorkspace(client, logger.NewNop(), nil)
	defer ws.Close()

	area, err := ws.LifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	goal, err := ws.Goals.Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Ship"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ws.Projects.Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "v2"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := ws.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ws.Index.GoalTitle(goal.ID); got != "Ship" {
		t.Fatalf("expected goal title through the index, got %q", got)
	}

	report, err := client.ArchiveCascade(ctx, area.Ref())
	if err != nil {
		t.Fatalf("archive cascade: %v", err)
	}
	if report.State != "done" || len(report.Succeeded) != 3 {
		t.Fatalf("unexpected report %+v", report)
	}

	report, err = client.RestoreCascade(ctx, area.Ref())
	if err != nil {
		t.Fatalf("restore cascade: %v", err)
	}
	if report.State != "done" || len(report.Succeeded) != 3 {
		t.Fatalf("unexpected restore report %+v", report)
	}

	if err := ws.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tree := ws.Tree(false); len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
}

func ptr[T any](v T) *T { return &v }
