package ports

import (
	"context"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
)

// Repository is the command surface the client-side stores consume for one
// entity type. Implementations may be local (SQL) or remote (HTTP); every
// call can fail and the returned error message is shown to the user as is.
type Repository[T any, C any, U any] interface {
	FetchAll(ctx context.Context, filter Filter) ([]T, error)
	Create(ctx context.Context, input C) (T, error)
	Update(ctx context.Context, id string, patch U) (T, error)
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// Completer is implemented by repositories of entities that can be completed.
type Completer[T any] interface {
	Complete(ctx context.Context, id string) (T, error)
	Uncomplete(ctx context.Context, id string) (T, error)
}

// LifeAreaRepository defines the interface for life area operations
type LifeAreaRepository interface {
	Repository[entities.LifeArea, CreateLifeAreaRequest, UpdateLifeAreaRequest]
	Reorder(ctx context.Context, ids []string) error
}

// GoalRepository defines the interface for goal operations
type GoalRepository interface {
	Repository[entities.Goal, CreateGoalRequest, UpdateGoalRequest]
	Completer[entities.Goal]
}

// ProjectRepository defines the interface for project operations
type ProjectRepository interface {
	Repository[entities.Project, CreateProjectRequest, UpdateProjectRequest]
	Completer[entities.Project]
}

// TaskRepository defines the interface for task operations
type TaskRepository interface {
	Repository[entities.Task, CreateTaskRequest, UpdateTaskRequest]
	Completer[entities.Task]
}

// Backend bundles the four repositories a workspace is built from.
type Backend interface {
	LifeAreas() LifeAreaRepository
	Goals() GoalRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
}

// Filter narrows FetchAll. The zero value lists every unarchived entity.
type Filter struct {
	// ParentID restricts results to children of one parent: life area for
	// goals, goal for projects, project for tasks.
	ParentID        *string `query:"parent_id"`
	IncludeArchived bool    `query:"include_archived"`
	Search          string  `query:"search"`
	Limit           int     `query:"limit"`

	// DueAfter and DueBefore keep open tasks due, and open goals targeted,
	// within [DueAfter, DueBefore). Setting either drops undated and
	// completed entities; other kinds ignore them.
	DueAfter  *time.Time `query:"due_after"`
	DueBefore *time.Time `query:"due_before"`
}

// HasDueWindow reports whether DueAfter or DueBefore is set.
func (f Filter) HasDueWindow() bool {
	return f.DueAfter != nil || f.DueBefore != nil
}
