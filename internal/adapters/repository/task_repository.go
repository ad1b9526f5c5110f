package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

const taskColumns = `id, project_id, parent_task_id, title, description, priority, due_date,
	completed_at, archived_at, created_at, updated_at`

// Urgent first, then by due date with undated tasks last, newest first.
const taskOrder = `
	CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END,
	CASE WHEN due_date IS NULL THEN 1 ELSE 0 END,
	due_date ASC,
	created_at DESC`

// TaskRepository implements ports.TaskRepository
type TaskRepository struct {
	base
}

func (r *TaskRepository) FetchAll(ctx context.Context, filter ports.Filter) ([]entities.Task, error) {
	q := newListQuery(filter, "project_id", "title", "description")
	q.dueWindow(filter, "due_date")
	query, args := q.build(r.db, taskColumns, "tasks", taskOrder, filter.Limit)

	tasks := []entities.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, input ports.CreateTaskRequest) (entities.Task, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Task{}, err
	}
	if input.ProjectID != nil {
		if err := r.requireParent(ctx, "projects", *input.ProjectID); err != nil {
			return entities.Task{}, err
		}
	}
	if input.ParentTaskID != nil {
		var parent entities.Task
		if err := r.get(ctx, &parent, "tasks", taskColumns, *input.ParentTaskID); err != nil {
			if errors.Is(err, entities.ErrNotFound) {
				return entities.Task{}, fmt.Errorf("%w: tasks %s", entities.ErrDanglingParent, *input.ParentTaskID)
			}
			return entities.Task{}, err
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

	query := `
		INSERT INTO tasks (id, project_id, parent_task_id, title, description, priority, due_date, created_at, updated_at)
		VALUES (:id, :project_id, :parent_task_id, :title, :description, :priority, :due_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return entities.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch ports.UpdateTaskRequest) (entities.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Task{}, err
	}

	sets := &assignments{}
	if patch.ProjectID != nil {
		if err := r.requireParent(ctx, "projects", *patch.ProjectID); err != nil {
			return entities.Task{}, err
		}
		sets.add("project_id", *patch.ProjectID)
	}
	if patch.ParentTaskID != nil {
		if *patch.ParentTaskID == id {
			return entities.Task{}, fmt.Errorf("%w: a task cannot be its own parent", entities.ErrValidation)
		}
		if err := r.requireParent(ctx, "tasks", *patch.ParentTaskID); err != nil {
			return entities.Task{}, err
		}
		sets.add("parent_task_id", *patch.ParentTaskID)
	}
	if patch.Title != nil {
		sets.add("title", *patch.Title)
	}
	if patch.Description != nil {
		sets.add("description", *patch.Description)
	}
	if patch.Priority != nil {
		sets.add("priority", string(*patch.Priority))
	}
	if patch.DueDate != nil {
		sets.add("due_date", *patch.DueDate)
	}
	if err := r.patch(ctx, "tasks", id, sets); err != nil {
		return entities.Task{}, err
	}
	return r.byID(ctx, id)
}

func (r *TaskRepository) Archive(ctx context.Context, id string) error {
	return r.archive(ctx, "tasks", id)
}

func (r *TaskRepository) Restore(ctx context.Context, id string) error {
	return r.restore(ctx, "tasks", id)
}

func (r *TaskRepository) Complete(ctx context.Context, id string) (entities.Task, error) {
	now := r.now()
	query := r.db.Rebind(`UPDATE tasks SET completed_at = COALESCE(completed_at, ?), updated_at = ? WHERE id = ?`)
	if err := r.exec(ctx, "complete task", query, now, now, id); err != nil {
		return entities.Task{}, err
	}
	return r.byID(ctx, id)
}

func (r *TaskRepository) Uncomplete(ctx context.Context, id string) (entities.Task, error) {
	query := r.db.Rebind(`UPDATE tasks SET completed_at = NULL, updated_at = ? WHERE id = ?`)
	if err := r.exec(ctx, "uncomplete task", query, r.now(), id); err != nil {
		return entities.Task{}, err
	}
	return r.byID(ctx, id)
}

func (r *TaskRepository) byID(ctx context.Context, id string) (entities.Task, error) {
	var task entities.Task
	if err := r.get(ctx, &task, "tasks", taskColumns, id); err != nil {
		return entities.Task{}, err
	}
	return task, nil
}
