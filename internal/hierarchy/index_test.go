package hierarchy

import (
	"context"
	"testing"

	"github.com/lifeplanner/core/internal/adapters/memory"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
	"github.com/lifeplanner/core/internal/store"
)

type fixture struct {
	lifeAreas *store.Store[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]
	goals     *store.Store[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]
	projects  *store.Store[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]
	tasks     *store.Store[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]
	index     *Index
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := memory.NewBackend()
	f := &fixture{
		lifeAreas: store.New[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]("life_areas", b.LifeAreas()),
		goals:     store.New[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]("goals", b.Goals()),
		projects:  store.New[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]("projects", b.Projects()),
		tasks:     store.New[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]("tasks", b.Tasks()),
	}
	f.index = New(f.lifeAreas, f.goals, f.projects, f.tasks)
	t.Cleanup(f.index.Close)
	return f
}

func must[T any](v T, err error) func(t *testing.T) T {
	return func(t *testing.T) T {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

func TestIndex_ChildrenAndDescendants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	area := must(f.lifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Health"}))(t)
	goal := must(f.goals.Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Marathon"}))(t)
	project := must(f.projects.Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "Training plan"}))(t)
	task := must(f.tasks.Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Long run"}))(t)
	sub := must(f.tasks.Create(ctx, ports.CreateTaskRequest{ParentTaskID: &task.ID, Title: "Buy gels"}))(t)

	if got := f.index.ChildGoals(area.ID); len(got) != 1 || got[0].ID != goal.ID {
		t.Fatalf("unexpected child goals %v", got)
	}
	if got := f.index.ChildProjects(goal.ID); len(got) != 1 || got[0].ID != project.ID {
		t.Fatalf("unexpected child projects %v", got)
	}
	if got := f.index.ChildTasks(project.ID); len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("subtasks must not be listed as project tasks, got %v", got)
	}
	if got := f.index.ChildSubtasks(task.ID); len(got) != 1 || got[0].ID != sub.ID {
		t.Fatalf("unexpected subtasks %v", got)
	}

	want := []entities.Ref{goal.Ref(), project.Ref(), task.Ref(), sub.Ref()}
	got := f.index.Descendants(area.Ref())
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected top-down order %v, got %v", want, got)
		}
	}
}

func TestIndex_RebuildsAfterStoreChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	area := must(f.lifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Work"}))(t)
	if got := f.index.ChildGoals(area.ID); len(got) != 0 {
		t.Fatalf("expected no goals yet")
	}
	goal := must(f.goals.Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Promotion"}))(t)
	if got := f.index.ChildGoals(area.ID); len(got) != 1 || got[0].ID != goal.ID {
		t.Fatalf("index did not pick up the new goal: %v", got)
	}

	if err := f.goals.Archive(ctx, goal.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	n, ok := f.index.Lookup(goal.Ref())
	if !ok || !n.Archived {
		t.Fatalf("expected archived node, got %+v", n)
	}
}

func TestIndex_UnknownNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	area := must(f.lifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Family"}))(t)

	if got := f.index.LifeAreaName(area.ID); got != "Family" {
		t.Fatalf("expected Family, got %q", got)
	}
	for name, got := range map[string]string{
		"life area": f.index.LifeAreaName("missing"),
		"goal":      f.index.GoalTitle("missing"),
		"project":   f.index.ProjectTitle("missing"),
		"task":      f.index.TaskTitle("missing"),
	} {
		if got != entities.UnknownName {
			t.Fatalf("%s: expected %q, got %q", name, entities.UnknownName, got)
		}
	}
}

func TestIndex_ParentAndPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	area := must(f.lifeAreas.Create(ctx, ports.CreateLifeAreaRequest{Name: "Home"}))(t)
	goal := must(f.goals.Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Renovate"}))(t)
	project := must(f.projects.Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "Kitchen"}))(t)
	task := must(f.tasks.Create(ctx, ports.CreateTaskRequest{ProjectID: &project.ID, Title: "Quotes"}))(t)

	if p, ok := f.index.Parent(task.Ref()); !ok || p != project.Ref() {
		t.Fatalf("unexpected parent %v", p)
	}
	if _, ok := f.index.Parent(area.Ref()); ok {
		t.Fatalf("life areas have no parent")
	}

	path, ok := f.index.PathTo(area.Ref(), task.Ref())
	if !ok || len(path) != 2 || path[0] != goal.Ref() || path[1] != project.Ref() {
		t.Fatalf("unexpected path %v (%v)", path, ok)
	}
	if _, ok := f.index.PathTo(task.Ref(), area.Ref()); ok {
		t.Fatalf("a task is not above its life area")
	}
}

func TestIndex_OrphansAndUnknownLabels(t *testing.T) {
	ctx := context.Background()
	b := memory.NewBackend()
	area := must(b.LifeAreas().Create(ctx, ports.CreateLifeAreaRequest{Name: "Home"}))(t)
	goal := must(b.Goals().Create(ctx, ports.CreateGoalRequest{LifeAreaID: area.ID, Title: "Renovate"}))(t)
	project := must(b.Projects().Create(ctx, ports.CreateProjectRequest{GoalID: goal.ID, Title: "Kitchen"}))(t)

	// Only goals and projects are loaded, so the goal's life area dangles.
	lifeAreas := store.New[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]("life_areas", b.LifeAreas())
	goals := store.New[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]("goals", b.Goals())
	projects := store.New[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]("projects", b.Projects())
	tasks := store.New[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]("tasks", b.Tasks())
	index := New(lifeAreas, goals, projects, tasks)
	defer index.Close()

	must(goals.FetchAll(ctx, ports.Filter{}))(t)
	must(projects.FetchAll(ctx, ports.Filter{}))(t)

	orphans := index.Orphans()
	if len(orphans) != 1 || orphans[0] != goal.Ref() {
		t.Fatalf("expected only the goal as orphan, got %v", orphans)
	}
	if got := index.Label(area.Ref()); got != entities.UnknownName {
		t.Fatalf("expected %q for an unloaded life area, got %q", entities.UnknownName, got)
	}
	if got := index.Label(project.Ref()); got != "Kitchen" {
		t.Fatalf("expected Kitchen, got %q", got)
	}

	must(lifeAreas.FetchAll(ctx, ports.Filter{}))(t)
	if got := index.Orphans(); len(got) != 0 {
		t.Fatalf("expected no orphans once the life area loads, got %v", got)
	}
}
