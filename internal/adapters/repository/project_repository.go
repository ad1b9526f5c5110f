package repository

import (
	"context"
	"fmt"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

const projectColumns = `id, goal_id, title, description, status, completed_at, archived_at, created_at, updated_at`

// ProjectRepository implements ports.ProjectRepository
type ProjectRepository struct {
	base
}

func (r *ProjectRepository) FetchAll(ctx context.Context, filter ports.Filter) ([]entities.Project, error) {
	q := newListQuery(filter, "goal_id", "title", "description")
	query, args := q.build(r.db, projectColumns, "projects", "created_at DESC", filter.Limit)

	projects := []entities.Project{}
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Create(ctx context.Context, input ports.CreateProjectRequest) (entities.Project, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Project{}, err
	}
	if err := r.requireParent(ctx, "goals", input.GoalID); err != nil {
		return entities.Project{}, err
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

	query := `
		INSERT INTO projects (id, goal_id, title, description, status, completed_at, created_at, updated_at)
		VALUES (:id, :goal_id, :title, :description, :status, :completed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return entities.Project{}, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id string, patch ports.UpdateProjectRequest) (entities.Project, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Project{}, err
	}

	sets := &assignments{}
	if patch.GoalID != nil {
		if err := r.requireParent(ctx, "goals", *patch.GoalID); err != nil {
			return entities.Project{}, err
		}
		sets.add("goal_id", *patch.GoalID)
	}
	if patch.Title != nil {
		sets.add("title", *patch.Title)
	}
	if patch.Description != nil {
		sets.add("description", *patch.Description)
	}
	if patch.Status != nil {
		sets.add("status", string(*patch.Status))
	}
	if err := r.patch(ctx, "projects", id, sets); err != nil {
		return entities.Project{}, err
	}
	return r.byID(ctx, id)
}

func (r *ProjectRepository) Archive(ctx context.Context, id string) error {
	return r.archive(ctx, "projects", id)
}

func (r *ProjectRepository) Restore(ctx context.Context, id string) error {
	return r.restore(ctx, "projects", id)
}

// Complete stamps completed_at and moves the project to completed.
func (r *ProjectRepository) Complete(ctx context.Context, id string) (entities.Project, error) {
	now := r.now()
	query := r.db.Rebind(`
		UPDATE projects SET completed_at = COALESCE(completed_at, ?), status = ?, updated_at = ?
		WHERE id = ?`)
	if err := r.exec(ctx, "complete project", query, now, string(entities.ProjectStatusCompleted), now, id); err != nil {
		return entities.Project{}, err
	}
	return r.byID(ctx, id)
}

// Uncomplete clears completed_at and reactivates the project.
func (r *ProjectRepository) Uncomplete(ctx context.Context, id string) (entities.Project, error) {
	query := r.db.Rebind(`UPDATE projects SET completed_at = NULL, status = ?, updated_at = ? WHERE id = ?`)
	if err := r.exec(ctx, "uncomplete project", query, string(entities.ProjectStatusActive), r.now(), id); err != nil {
		return entities.Project{}, err
	}
	return r.byID(ctx, id)
}

func (r *ProjectRepository) byID(ctx context.Context, id string) (entities.Project, error) {
	var project entities.Project
	if err := r.get(ctx, &project, "projects", projectColumns, id); err != nil {
		return entities.Project{}, err
	}
	return project, nil
}
