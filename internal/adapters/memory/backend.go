package memory

import (
	"context"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

// Backend holds the four in-memory repositories. Parent references are
// checked on write like foreign keys would be.
type Backend struct {
	lifeAreas *LifeAreaRepository
	goals     *GoalRepository
	projects  *ProjectRepository
	tasks     *TaskRepository
}

type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock sets the clock used for created/updated/archived timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

func NewBackend(opts ...Option) *Backend {
	c := &clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	b := &Backend{}
	b.lifeAreas = &LifeAreaRepository{clock: c, rows: newTable[entities.LifeArea]()}
	b.goals = &GoalRepository{clock: c, rows: newTable[entities.Goal](), lifeAreas: b.lifeAreas.rows}
	b.projects = &ProjectRepository{clock: c, rows: newTable[entities.Project](), goals: b.goals.rows}
	b.tasks = &TaskRepository{clock: c, rows: newTable[entities.Task](), projects: b.projects.rows}
	return b
}

func (b *Backend) LifeAreas() ports.LifeAreaRepository { return b.lifeAreas }
func (b *Backend) Goals() ports.GoalRepository         { return b.goals }
func (b *Backend) Projects() ports.ProjectRepository   { return b.projects }
func (b *Backend) Tasks() ports.TaskRepository         { return b.tasks }

// LifeAreaRepository stores life areas in memory.
type LifeAreaRepository struct {
	*clock
	rows *table[entities.LifeArea]
}

func (r *LifeAreaRepository) FetchAll(_ context.Context, filter ports.Filter) ([]entities.LifeArea, error) {
	return r.rows.list(
		func(l entities.LifeArea) bool {
			return matches(filter.Search, l.Name, deref(l.Description))
		},
		func(a, b entities.LifeArea) bool {
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			return a.CreatedAt.After(b.CreatedAt)
		},
		filter.IncludeArchived, filter.Limit,
	), nil
}

func (r *LifeAreaRepository) Create(_ context.Context, input ports.CreateLifeAreaRequest) (entities.LifeArea, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.LifeArea{}, err
	}
	now := r.now()
	area := entities.LifeArea{
		ID:          newID(),
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		SortOrder:   r.nextSortOrder(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.rows.put(area)
	return area, nil
}

func (r *LifeAreaRepository) nextSortOrder() int {
	highest := -1
	for _, l := range r.rows.list(nil, func(a, b entities.LifeArea) bool { return false }, true, 0) {
		if l.SortOrder > highest {
			highest = l.SortOrder
		}
	}
	return highest + 1
}

func (r *LifeAreaRepository) Update(_ context.Context, id string, patch ports.UpdateLifeAreaRequest) (entities.LifeArea, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.LifeArea{}, err
	}
	return r.rows.modify(id, func(l entities.LifeArea) (entities.LifeArea, error) {
		if patch.Name != nil {
			l.Name = *patch.Name
		}
		if patch.Description != nil {
			l.Description = patch.Description
		}
		if patch.Color != nil {
			l.Color = patch.Color
		}
		if patch.Icon != nil {
			l.Icon = patch.Icon
		}
		if patch.SortOrder != nil {
			l.SortOrder = *patch.SortOrder
		}
		l.UpdatedAt = r.now()
		return l, nil
	})
}

func (r *LifeAreaRepository) Archive(_ context.Context, id string) error {
	return r.rows.archive(id, r.now())
}

func (r *LifeAreaRepository) Restore(_ context.Context, id string) error {
	return r.rows.restore(id)
}

// Reorder assigns sort orders following ids. Every id must exist.
func (r *LifeAreaRepository) Reorder(_ context.Context, ids []string) error {
	for _, id := range ids {
		if !r.rows.exists(id) {
			return entities.ErrNotFound
		}
	}
	for i, id := range ids {
		order := i
		if _, err := r.rows.modify(id, func(l entities.LifeArea) (entities.LifeArea, error) {
			l.SortOrder = order
			return l, nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// GoalRepository stores goals in memory.
type GoalRepository struct {
	*clock
	rows      *table[entities.Goal]
	lifeAreas *table[entities.LifeArea]
}

func (r *GoalRepository) FetchAll(_ context.Context, filter ports.Filter) ([]entities.Goal, error) {
	return r.rows.list(
		func(g entities.Goal) bool {
			if filter.ParentID != nil && g.LifeAreaID != *filter.ParentID {
				return false
			}
			if !inDueWindow(filter, g.TargetDate, g.IsCompleted(), g.IsOverdue) {
				return false
			}
			return matches(filter.Search, g.Title, deref(g.Description))
		},
		func(a, b entities.Goal) bool { return a.CreatedAt.After(b.CreatedAt) },
		filter.IncludeArchived, filter.Limit,
	), nil
}

func (r *GoalRepository) Create(_ context.Context, input ports.CreateGoalRequest) (entities.Goal, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Goal{}, err
	}
	if !r.lifeAreas.exists(input.LifeAreaID) {
		return entities.Goal{}, entities.ErrDanglingParent
	}
	now := r.now()
	goal := entities.Goal{
		ID:          newID(),
		LifeAreaID:  input.LifeAreaID,
		Title:       input.Title,
		Description: input.Description,
		TargetDate:  input.TargetDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.rows.put(goal)
	return goal, nil
}

func (r *GoalRepository) Update(_ context.Context, id string, patch ports.UpdateGoalRequest) (entities.Goal, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Goal{}, err
	}
	if patch.LifeAreaID != nil && !r.lifeAreas.exists(*patch.LifeAreaID) {
		return entities.Goal{}, entities.ErrDanglingParent
	}
	return r.rows.modify(id, func(g entities.Goal) (entities.Goal, error) {
		if patch.LifeAreaID != nil {
			g.LifeAreaID = *patch.LifeAreaID
		}
		if patch.Title != nil {
			g.Title = *patch.Title
		}
		if patch.Description != nil {
			g.Description = patch.Description
		}
		if patch.TargetDate != nil {
			g.TargetDate = patch.TargetDate
		}
		g.UpdatedAt = r.now()
		return g, nil
	})
}

func (r *GoalRepository) Archive(_ context.Context, id string) error {
	return r.rows.archive(id, r.now())
}

func (r *GoalRepository) Restore(_ context.Context, id string) error {
	return r.rows.restore(id)
}

func (r *GoalRepository) Complete(_ context.Context, id string) (entities.Goal, error) {
	return r.rows.modify(id, func(g entities.Goal) (entities.Goal, error) {
		if g.CompletedAt == nil {
			now := r.now()
			g.CompletedAt = &now
			g.UpdatedAt = now
		}
		return g, nil
	})
}

func (r *GoalRepository) Uncomplete(_ context.Context, id string) (entities.Goal, error) {
	return r.rows.modify(id, func(g entities.Goal) (entities.Goal, error) {
		g.CompletedAt = nil
		g.UpdatedAt = r.now()
		return g, nil
	})
}

// ProjectRepository stores projects in memory.
type ProjectRepository struct {
	*clock
	rows  *table[entities.Project]
	goals *table[entities.Goal]
}

func (r *ProjectRepository) FetchAll(_ context.Context, filter ports.Filter) ([]entities.Project, error) {
	return r.rows.list(
		func(p entities.Project) bool {
			if filter.ParentID != nil && p.GoalID != *filter.ParentID {
				return false
			}
			return matches(filter.Search, p.Title, deref(p.Description))
		},
		func(a, b entities.Project) bool { return a.CreatedAt.After(b.CreatedAt) },
		filter.IncludeArchived, filter.Limit,
	), nil
}

func (r *ProjectRepository) Create(_ context.Context, input ports.CreateProjectRequest) (entities.Project, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Project{}, err
	}
	if !r.goals.exists(input.GoalID) {
		return entities.Project{}, entities.ErrDanglingParent
	}
	now := r.now()
	project := entities.Project{
		ID:          newID(),
		GoalID:      input.GoalID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Status == entities.ProjectStatusCompleted {
		project.CompletedAt = &now
	}
	r.rows.put(project)
	return project, nil
}

func (r *ProjectRepository) Update(_ context.Context, id string, patch ports.UpdateProjectRequest) (entities.Project, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Project{}, err
	}
	if patch.GoalID != nil && !r.goals.exists(*patch.GoalID) {
		return entities.Project{}, entities.ErrDanglingParent
	}
	return r.rows.modify(id, func(p entities.Project) (entities.Project, error) {
		if patch.GoalID != nil {
			p.GoalID = *patch.GoalID
		}
		if patch.Title != nil {
			p.Title = *patch.Title
		}
		if patch.Description != nil {
			p.Description = patch.Description
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		p.UpdatedAt = r.now()
		return p, nil
	})
}

func (r *ProjectRepository) Archive(_ context.Context, id string) error {
	return r.rows.archive(id, r.now())
}

func (r *ProjectRepository) Restore(_ context.Context, id string) error {
	return r.rows.restore(id)
}

func (r *ProjectRepository) Complete(_ context.Context, id string) (entities.Project, error) {
	return r.rows.modify(id, func(p entities.Project) (entities.Project, error) {
		now := r.now()
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
		p.Status = entities.ProjectStatusCompleted
		p.UpdatedAt = now
		return p, nil
	})
}

func (r *ProjectRepository) Uncomplete(_ context.Context, id string) (entities.Project, error) {
	return r.rows.modify(id, func(p entities.Project) (entities.Project, error) {
		p.CompletedAt = nil
		p.Status = entities.ProjectStatusActive
		p.UpdatedAt = r.now()
		return p, nil
	})
}

// TaskRepository stores tasks and subtasks in memory.
type TaskRepository struct {
	*clock
	rows     *table[entities.Task]
	projects *table[entities.Project]
}

func (r *TaskRepository) FetchAll(_ context.Context, filter ports.Filter) ([]entities.Task, error) {
	return r.rows.list(
		func(t entities.Task) bool {
			if filter.ParentID != nil && deref(t.ProjectID) != *filter.ParentID {
				return false
			}
			if !inDueWindow(filter, t.DueDate, t.IsCompleted(), t.IsOverdue) {
				return false
			}
			return matches(filter.Search, t.Title, deref(t.Description))
		},
		lessTask,
		filter.IncludeArchived, filter.Limit,
	), nil
}

// inDueWindow applies Filter.DueAfter and DueBefore. An entity is before
// the upper bound exactly when it would be overdue at that instant.
func inDueWindow(filter ports.Filter, due *time.Time, completed bool, overdueAt func(time.Time) bool) bool {
	if !filter.HasDueWindow() {
		return true
	}
	if due == nil || completed {
		return false
	}
	if filter.DueBefore != nil && !overdueAt(*filter.DueBefore) {
		return false
	}
	return filter.DueAfter == nil || !due.Before(*filter.DueAfter)
}

// lessTask orders by priority (urgent first), then due date with undated
// tasks last, then newest first.
func lessTask(a, b entities.Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *TaskRepository) Create(_ context.Context, input ports.CreateTaskRequest) (entities.Task, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Task{}, err
	}
	if input.ProjectID != nil && !r.projects.exists(*input.ProjectID) {
		return entities.Task{}, entities.ErrDanglingParent
	}
	if input.ParentTaskID != nil {
		parent, err := r.rows.get(*input.ParentTaskID)
		if err != nil {
			return entities.Task{}, entities.ErrDanglingParent
		}
		// Subtasks inherit the project of their parent.
		if input.ProjectID == nil {
			input.ProjectID = parent.ProjectID
		}
	}
	now := r.now()
	task := entities.Task{
		ID:           newID(),
		ProjectID:    input.ProjectID,
		ParentTaskID: input.ParentTaskID,
		Title:        input.Title,
		Description:  input.Description,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.rows.put(task)
	return task, nil
}

func (r *TaskRepository) Update(_ context.Context, id string, patch ports.UpdateTaskRequest) (entities.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Task{}, err
	}
	if patch.ProjectID != nil && !r.projects.exists(*patch.ProjectID) {
		return entities.Task{}, entities.ErrDanglingParent
	}
	if patch.ParentTaskID != nil && (*patch.ParentTaskID == id || !r.rows.exists(*patch.ParentTaskID)) {
		return entities.Task{}, entities.ErrDanglingParent
	}
	return r.rows.modify(id, func(t entities.Task) (entities.Task, error) {
		if patch.ProjectID != nil {
			t.ProjectID = patch.ProjectID
		}
		if patch.ParentTaskID != nil {
			t.ParentTaskID = patch.ParentTaskID
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = patch.Description
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.DueDate != nil {
			t.DueDate = patch.DueDate
		}
		t.UpdatedAt = r.now()
		return t, nil
	})
}

func (r *TaskRepository) Archive(_ context.Context, id string) error {
	return r.rows.archive(id, r.now())
}

func (r *TaskRepository) Restore(_ context.Context, id string) error {
	return r.rows.restore(id)
}

func (r *TaskRepository) Complete(_ context.Context, id string) (entities.Task, error) {
	return r.rows.modify(id, func(t entities.Task) (entities.Task, error) {
		if t.CompletedAt == nil {
			now := r.now()
			t.CompletedAt = &now
			t.UpdatedAt = now
		}
		return t, nil
	})
}

func (r *TaskRepository) Uncomplete(_ context.Context, id string) (entities.Task, error) {
	return r.rows.modify(id, func(t entities.Task) (entities.Task, error) {
		t.CompletedAt = nil
		t.UpdatedAt = r.now()
		return t, nil
	})
}
