package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/database"
	"github.com/lifeplanner/core/internal/ports"
)

const lifeAreaColumns = `id, name, description, color, icon, sort_order, created_at, updated_at, archived_at`

// LifeAreaRepository implements ports.LifeAreaRepository
type LifeAreaRepository struct {
	base
	tx *database.DB
}

func (r *LifeAreaRepository) FetchAll(ctx context.Context, filter ports.Filter) ([]entities.LifeArea, error) {
	q := newListQuery(filter, "", "name", "description")
	query, args := q.build(r.db, lifeAreaColumns, "life_areas", "sort_order ASC, created_at DESC", filter.Limit)

	areas := []entities.LifeArea{}
	if err := r.db.SelectContext(ctx, &areas, query, args...); err != nil {
		return nil, fmt.Errorf("list life areas: %w", err)
	}
	return areas, nil
}

func (r *LifeAreaRepository) Create(ctx context.Context, input ports.CreateLifeAreaRequest) (entities.LifeArea, error) {
	input, err := input.Normalize()
	if err != nil {
		return entities.LifeArea{}, err
	}

	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM life_areas`); err != nil {
		return entities.LifeArea{}, fmt.Errorf("next sort order: %w", err)
	}

	now := r.now()
	area := entities.LifeArea{
		ID:          newID(),
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
		Icon:        input.Icon,
		SortOrder:   next,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO life_areas (id, name, description, color, icon, sort_order, created_at, updated_at)
		VALUES (:id, :name, :description, :color, :icon, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, area); err != nil {
		return entities.LifeArea{}, fmt.Errorf("create life area: %w", err)
	}
	return area, nil
}

func (r *LifeAreaRepository) Update(ctx context.Context, id string, patch ports.UpdateLifeAreaRequest) (entities.LifeArea, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return entities.LifeArea{}, err
	}

	sets := &assignments{}
	if patch.Name != nil {
		sets.add("name", *patch.Name)
	}
	if patch.Description != nil {
		sets.add("description", *patch.Description)
	}
	if patch.Color != nil {
		sets.add("color", *patch.Color)
	}
	if patch.Icon != nil {
		sets.add("icon", *patch.Icon)
	}
	if patch.SortOrder != nil {
		sets.add("sort_order", *patch.SortOrder)
	}
	if err := r.patch(ctx, "life_areas", id, sets); err != nil {
		return entities.LifeArea{}, err
	}

	var area entities.LifeArea
	if err := r.get(ctx, &area, "life_areas", lifeAreaColumns, id); err != nil {
		return entities.LifeArea{}, err
	}
	return area, nil
}

func (r *LifeAreaRepository) Archive(ctx context.Context, id string) error {
	return r.archive(ctx, "life_areas", id)
}

func (r *LifeAreaRepository) Restore(ctx context.Context, id string) error {
	return r.restore(ctx, "life_areas", id)
}

// Reorder rewrites sort_order to follow ids in one transaction.
func (r *LifeAreaRepository) Reorder(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids are required", entities.ErrValidation)
	}
	now := r.now()
	return r.tx.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`UPDATE life_areas SET sort_order = ?, updated_at = ? WHERE id = ?`)
		for i, id := range ids {
			result, err := tx.ExecContext(ctx, query, i, now, id)
			if err != nil {
				return fmt.Errorf("reorder life areas: %w", err)
			}
			if rows, _ := result.RowsAffected(); rows == 0 {
				return fmt.Errorf("life area %s: %w", id, entities.ErrNotFound)
			}
		}
		return nil
	})
}
