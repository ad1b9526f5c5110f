// Package repository implements the entity repositories on SQL. Queries are
// written with '?' placeholders and rebound for the connected driver, so the
// same code serves PostgreSQL and SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/database"
	"github.com/lifeplanner/core/internal/ports"
)

// Backend bundles the four SQL repositories over one connection.
type Backend struct {
	lifeAreas *LifeAreaRepository
	goals     *GoalRepository
	projects  *ProjectRepository
	tasks     *TaskRepository
}

// NewBackend creates the repositories on db.
func NewBackend(db *database.DB) *Backend {
	b := base{db: db.DB, now: func() time.Time { return time.Now().UTC() }}
	return &Backend{
		lifeAreas: &LifeAreaRepository{base: b, tx: db},
		goals:     &GoalRepository{base: b},
		projects:  &ProjectRepository{base: b},
		tasks:     &TaskRepository{base: b},
	}
}

func (b *Backend) LifeAreas() ports.LifeAreaRepository { return b.lifeAreas }
func (b *Backend) Goals() ports.GoalRepository         { return b.goals }
func (b *Backend) Projects() ports.ProjectRepository   { return b.projects }
func (b *Backend) Tasks() ports.TaskRepository         { return b.tasks }

type base struct {
	db  *sqlx.DB
	now func() time.Time
}

func (b base) get(ctx context.Context, dest interface{}, table, columns, id string) error {
	query := b.db.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, columns, table))
	if err := b.db.GetContext(ctx, dest, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrNotFound
		}
		return fmt.Errorf("get %s: %w", table, err)
	}
	return nil
}

func (b base) exists(ctx context.Context, table, id string) (bool, error) {
	var count int
	query := b.db.Rebind(fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE id = ?`, table))
	if err := b.db.GetContext(ctx, &count, query, id); err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return count > 0, nil
}

// requireParent maps a missing parent row to entities.ErrDanglingParent.
func (b base) requireParent(ctx context.Context, table, id string) error {
	ok, err := b.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", entities.ErrDanglingParent, table, id)
	}
	return nil
}

// archive stamps archived_at once; archiving an archived row is a no-op.
func (b base) archive(ctx context.Context, table, id string) error {
	now := b.now()
	query := b.db.Rebind(fmt.Sprintf(
		`UPDATE %s SET archived_at = ?, updated_at = ? WHERE id = ? AND archived_at IS NULL`, table))
	result, err := b.db.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return fmt.Errorf("archive %s: %w", table, err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}
	ok, err := b.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return entities.ErrNotFound
	}
	return nil
}

func (b base) restore(ctx context.Context, table, id string) error {
	query := b.db.Rebind(fmt.Sprintf(`UPDATE %s SET archived_at = NULL, updated_at = ? WHERE id = ?`, table))
	return b.exec(ctx, "restore "+table, query, b.now(), id)
}

// exec runs a single-row statement and maps zero affected rows to
// entities.ErrNotFound.
func (b base) exec(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return entities.ErrNotFound
	}
	return nil
}

// patch applies the collected assignments to one row.
func (b base) patch(ctx context.Context, table, id string, sets *assignments) error {
	sets.add("updated_at", b.now())
	query := b.db.Rebind(fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets.parts, ", ")))
	return b.exec(ctx, "update "+table, query, append(sets.args, id)...)
}

type assignments struct {
	parts []string
	args  []interface{}
}

func (a *assignments) add(column string, value interface{}) {
	a.parts = append(a.parts, column+" = ?")
	a.args = append(a.args, value)
}

// listQuery collects WHERE conditions for FetchAll.
type listQuery struct {
	conditions []string
	args       []interface{}
}

func newListQuery(filter ports.Filter, parentColumn string, searchColumns ...string) *listQuery {
	q := &listQuery{}
	if !filter.IncludeArchived {
		q.where("archived_at IS NULL")
	}
	if filter.ParentID != nil && parentColumn != "" {
		q.where(parentColumn+" = ?", *filter.ParentID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" && len(searchColumns) > 0 {
		pattern := "%" + strings.ToLower(search) + "%"
		var ors []string
		for _, col := range searchColumns {
			ors = append(ors, fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE ?", col))
			q.args = append(q.args, pattern)
		}
		q.conditions = append(q.conditions, "("+strings.Join(ors, " OR ")+")")
	}
	return q
}

// dueWindow narrows to open rows with column in [DueAfter, DueBefore).
func (q *listQuery) dueWindow(filter ports.Filter, column string) {
	if !filter.HasDueWindow() {
		return
	}
	q.where("completed_at IS NULL")
	q.where(column + " IS NOT NULL")
	if filter.DueAfter != nil {
		q.where(column+" >= ?", filter.DueAfter.UTC())
	}
	if filter.DueBefore != nil {
		q.where(column+" < ?", filter.DueBefore.UTC())
	}
}

func (q *listQuery) where(condition string, args ...interface{}) {
	q.conditions = append(q.conditions, condition)
	q.args = append(q.args, args...)
}

func (q *listQuery) build(db *sqlx.DB, columns, table, orderBy string, limit int) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	if len(q.conditions) > 0 {
		query += " WHERE " + strings.Join(q.conditions, " AND ")
	}
	query += " ORDER BY " + orderBy
	args := q.args
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return db.Rebind(query), args
}

func newID() string {
	return uuid.NewString()
}
