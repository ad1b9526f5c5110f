package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifeplanner/core/internal/adapters/memory"
	"github.com/lifeplanner/core/internal/cascade"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/ports"
	"github.com/lifeplanner/core/internal/store"
)

func seedBackend(t *testing.T) (*memory.Backend, entities.LifeArea, entities.Goal, entities.Project, entities.Task) {
	t.Helper()
	ctx := context.Background()
	b := memory.NewBackend()
	area, err := b.LifeAreas().Create(ctx, ports.CreateLifeAreaRequest{Name: "Career"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	goal, err := b.Goals().Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Ship v2"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	project, err := b.Projects().Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "Beta"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	task, err := b.Tasks().Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Invite testers"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b, area, goal, project, task
}

func TestWorkspace_RefreshLoadsAllStores(t *testing.T) {
	b, area, goal, _, task := seedBackend(t)
	w := NewWorkspace(b, nil, metrics.New())
	defer w.Close()

	if err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	for name, lc := range map[string]store.Lifecycle{
		"life_areas": w.LifeAreas.Lifecycle(),
		"goals":      w.Goals.Lifecycle(),
		"projects":   w.Projects.Lifecycle(),
		"tasks":      w.Tasks.Lifecycle(),
	} {
		if lc.Status != store.StatusLoaded {
			t.Fatalf("%s: expected loaded, got %+v", name, lc)
		}
	}
	if got := w.Index.ChildGoals(area.ID); len(got) != 1 || got[0].ID != goal.ID {
		t.Fatalf("index not built from refreshed stores: %v", got)
	}
	if got := w.Index.TaskTitle(task.ID); got != "Invite testers" {
		t.Fatalf("unexpected task title %q", got)
	}
}

func TestWorkspace_CascadeRoundTrip(t *testing.T) {
	b, area, goal, project, task := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()

	report, err := w.ArchiveCascade(ctx, area.Ref())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if report.State != string(cascade.StateDone) || len(report.Succeeded) != 4 {
		t.Fatalf("unexpected report %+v", report)
	}

	// The backend itself reflects the cascade.
	live, err := b.Tasks().FetchAll(ctx, ports.Filter{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live tasks, got %d", len(live))
	}

	report, err = w.RestoreCascade(ctx, area.Ref())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := []entities.Ref{area.Ref(), goal.Ref(), project.Ref(), task.Ref()}
	if len(report.Succeeded) != len(want) {
		t.Fatalf("expected %v restored, got %v", want, report.Succeeded)
	}
	for i := range want {
		if report.Succeeded[i] != want[i] {
			t.Fatalf("expected %v restored, got %v", want, report.Succeeded)
		}
	}
}

func TestWorkspace_DirectArchiveSurvivesCascadeRestore(t *testing.T) {
	b, area, goal, project, task := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()

	if _, err := w.ArchiveCascade(ctx, area.Ref()); err != nil {
		t.Fatalf("archive: %v", err)
	}
	// The task is restored and archived again on its own, as the
	// single-entity HTTP routes do.
	if err := w.Tasks.Restore(ctx, task.ID); err != nil {
		t.Fatalf("restore task: %v", err)
	}
	if err := w.Tasks.Archive(ctx, task.ID); err != nil {
		t.Fatalf("archive task: %v", err)
	}

	report, err := w.RestoreCascade(ctx, area.Ref())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := []entities.Ref{area.Ref(), goal.Ref(), project.Ref()}
	if len(report.Succeeded) != len(want) {
		t.Fatalf("expected %v restored, got %v", want, report.Succeeded)
	}
	for i := range want {
		if report.Succeeded[i] != want[i] {
			t.Fatalf("expected %v restored, got %v", want, report.Succeeded)
		}
	}
	if archived, _ := w.Tasks.ArchiveState(task.ID); !archived {
		t.Fatalf("directly archived task was restored")
	}
}

func TestWorkspace_TreeHidesArchived(t *testing.T) {
	b, area, goal, project, _ := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()

	if _, err := w.ArchiveCascade(ctx, project.Ref()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	tree := w.Tree(false)
	if len(tree) != 1 || tree[0].Ref != area.Ref() {
		t.Fatalf("unexpected roots %+v", tree)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Ref != goal.Ref() {
		t.Fatalf("unexpected goals %+v", tree[0].Children)
	}
	if len(tree[0].Children[0].Children) != 0 {
		t.Fatalf("archived project should be hidden")
	}

	full := w.Tree(true)
	if got := full[0].Children[0].Children; len(got) != 1 || !got[0].Archived || len(got[0].Children) != 1 {
		t.Fatalf("expected archived project with its task, got %+v", got)
	}
}

func TestWorkspace_TreeShowsOrphansUnderUnknown(t *testing.T) {
	b, area, goal, project, _ := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()

	// Life areas are never fetched, so the goal's parent does not resolve.
	if _, err := w.Goals.FetchAll(ctx, ports.Filter{}); err != nil {
		t.Fatalf("fetch goals: %v", err)
	}
	if _, err := w.Projects.FetchAll(ctx, ports.Filter{}); err != nil {
		t.Fatalf("fetch projects: %v", err)
	}

	tree := w.Tree(false)
	if len(tree) != 1 {
		t.Fatalf("expected one placeholder root, got %+v", tree)
	}
	root := tree[0]
	if !root.Missing || root.Label != entities.UnknownName || root.Ref != area.Ref() {
		t.Fatalf("unexpected placeholder %+v", root)
	}
	if len(root.Children) != 1 || root.Children[0].Ref != goal.Ref() {
		t.Fatalf("expected the goal under the placeholder, got %+v", root.Children)
	}
	if got := root.Children[0].Children; len(got) != 1 || got[0].Ref != project.Ref() {
		t.Fatalf("expected the project under its goal, got %+v", got)
	}
}

func TestWorkspace_CompleteRejectsLifeAreas(t *testing.T) {
	b, area, goal, _, _ := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()
	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := w.Complete(ctx, area.Ref()); !errors.Is(err, entities.ErrCompletionUnsupported) {
		t.Fatalf("expected ErrCompletionUnsupported, got %v", err)
	}
	if _, err := w.Complete(ctx, goal.Ref()); err != nil {
		t.Fatalf("complete goal: %v", err)
	}
	if g, ok := w.Goals.Get(goal.ID); !ok || !g.IsCompleted() {
		t.Fatalf("expected goal completed in store")
	}
}

func TestWorkspace_ReorderLifeAreas(t *testing.T) {
	b, first, _, _, _ := seedBackend(t)
	ctx := context.Background()
	second, err := b.LifeAreas().Create(ctx, ports.CreateLifeAreaRequest{Name: "Health"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	w := NewWorkspace(b, nil, nil)
	defer w.Close()

	if err := w.ReorderLifeAreas(ctx, []string{second.ID, first.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	items := w.LifeAreas.Items()
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("expected %s first, got %+v", second.ID, items)
	}

	if err := w.ReorderLifeAreas(ctx, []string{"missing"}); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkspace_CascadeArchiveKeepsCompletion(t *testing.T) {
	b, area, _, _, task := seedBackend(t)
	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	ctx := context.Background()

	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	done, err := w.Tasks.Complete(ctx, task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}

	if _, err := w.ArchiveCascade(ctx, area.Ref()); err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, ok := w.Tasks.Get(task.ID)
	if !ok || !got.IsArchived() {
		t.Fatalf("expected the task archived in the store, got %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(*done.CompletedAt) {
		t.Fatalf("archive changed completed_at: %v, want %v", got.CompletedAt, done.CompletedAt)
	}

	stored, err := b.Tasks().FetchAll(ctx, ports.Filter{IncludeArchived: true})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(stored) != 1 || stored[0].CompletedAt == nil || !stored[0].CompletedAt.Equal(*done.CompletedAt) {
		t.Fatalf("backend lost completed_at: %+v", stored)
	}
}

func TestWorkspace_DueListsOpenDatedEntities(t *testing.T) {
	b, area, goal, project, task := seedBackend(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	lastWeek := now.AddDate(0, 0, -7)
	if _, err := b.Goals().Update(ctx, goal.ID, ports.UpdateGoalRequest{TargetDate: &lastWeek}); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	yesterday := now.AddDate(0, 0, -1)
	if _, err := b.Tasks().Update(ctx, task.ID, ports.UpdateTaskRequest{DueDate: &yesterday}); err != nil {
		t.Fatalf("update task: %v", err)
	}
	tonight := now.Add(6 * time.Hour)
	urgent, err := b.Tasks().Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Send build", Priority: entities.PriorityUrgent, DueDate: &tonight})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doneEarlier := now.AddDate(0, 0, -2)
	done, _ := b.Tasks().Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Write notes", DueDate: &doneEarlier})
	if _, err := b.Tasks().Complete(ctx, done.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	w := NewWorkspace(b, nil, nil)
	defer w.Close()
	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	overdue, err := w.Due(ctx, nil, &now, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(overdue) != 2 || overdue[0].Ref != goal.Ref() || overdue[1].Ref != task.Ref() {
		t.Fatalf("expected goal then task overdue, got %+v", overdue)
	}
	if overdue[0].Parent != area.Name || overdue[1].Parent != project.Title {
		t.Fatalf("unexpected parent labels %q, %q", overdue[0].Parent, overdue[1].Parent)
	}
	for _, it := range overdue {
		if !it.Overdue {
			t.Fatalf("expected %s marked overdue", it.Ref)
		}
	}

	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	today, err := w.Due(ctx, &start, &end, now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(today) != 1 || today[0].Ref != urgent.Ref() || today[0].Overdue || today[0].Priority != entities.PriorityUrgent {
		t.Fatalf("expected only %q due today, got %+v", urgent.Title, today)
	}

	// The listing leaves the loaded collections complete.
	if w.Tasks.Len() != 3 {
		t.Fatalf("expected 3 tasks still loaded, got %d", w.Tasks.Len())
	}
}
