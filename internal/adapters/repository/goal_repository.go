package repository

import (
	"context"
	"fmt"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

const goalColumns = `id, life_area_id, title, description, target_date, completed_at, archived_at, created_at, updated_at`

// GoalRepository implements ports.GoalRepository
type GoalRepository struct {
	base
}

func (r *GoalRepository) FetchAll(ctx context.Context, filter ports.Filter) ([]entities.Goal, error) {
	q := newListQuery(filter, "life_area_id", "title", "description")
	q.dueWindow(filter, "target_date")
	query, args := q.build(r.db, goalColumns, "goals", "created_at DESC", filter.Limit)

	goals := []entities.Goal{}
	if err := r.db.SelectContext(ctx, &goals, query, args...); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (r *GoalRepository) Create(ctx context.Context, input ports.CreateGoalRequest) (entities.Goal, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.Goal{}, err
	}
	if err := r.requireParent(ctx, "life_areas", input.LifeAreaID); err != nil {
		return entities.Goal{}, err
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

	query := `
		INSERT INTO goals (id, life_area_id, title, description, target_date, created_at, updated_at)
		VALUES (:id, :life_area_id, :title, :description, :target_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return entities.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

func (r *GoalRepository) Update(ctx context.Context, id string, patch ports.UpdateGoalRequest) (entities.Goal, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.Goal{}, err
	}

	sets := &assignments{}
	if patch.LifeAreaID != nil {
		if err := r.requireParent(ctx, "life_areas", *patch.LifeAreaID); err != nil {
			return entities.Goal{}, err
		}
		sets.add("life_area_id", *patch.LifeAreaID)
	}
	if patch.Title != nil {
		sets.add("title", *patch.Title)
	}
	if patch.Description != nil {
		sets.add("description", *patch.Description)
	}
	if patch.TargetDate != nil {
		sets.add("target_date", *patch.TargetDate)
	}
	if err := r.patch(ctx, "goals", id, sets); err != nil {
		return entities.Goal{}, err
	}
	return r.byID(ctx, id)
}

func (r *GoalRepository) Archive(ctx context.Context, id string) error {
	return r.archive(ctx, "goals", id)
}

func (r *GoalRepository) Restore(ctx context.Context, id string) error {
	return r.restore(ctx, "goals", id)
}

func (r *GoalRepository) Complete(ctx context.Context, id string) (entities.Goal, error) {
	now := r.now()
	query := r.db.Rebind(`UPDATE goals SET completed_at = COALESCE(completed_at, ?), updated_at = ? WHERE id = ?`)
	if err := r.exec(ctx, "complete goal", query, now, now, id); err != nil {
		return entities.Goal{}, err
	}
	return r.byID(ctx, id)
}

func (r *GoalRepository) Uncomplete(ctx context.Context, id string) (entities.Goal, error) {
	query := r.db.Rebind(`UPDATE goals SET completed_at = NULL, updated_at = ? WHERE id = ?`)
	if err := r.exec(ctx, "uncomplete goal", query, r.now(), id); err != nil {
		return entities.Goal{}, err
	}
	return r.byID(ctx, id)
}

func (r *GoalRepository) byID(ctx context.Context, id string) (entities.Goal, error) {
	var goal entities.Goal
	if err := r.get(ctx, &goal, "goals", goalColumns, id); err != nil {
		return entities.Goal{}, err
	}
	return goal, nil
}
