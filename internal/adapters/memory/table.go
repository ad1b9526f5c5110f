// Package memory implements the repositories on process memory. It backs
// offline workspaces and tests and follows the same ordering and archive
// semantics as the SQL repositories.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifeplanner/core/internal/domain/entities"
)

type row[T any] interface {
	GetID() string
	GetArchivedAt() *time.Time
	WithArchivedAt(at *time.Time) T
}

type table[T row[T]] struct {
	mu   sync.RWMutex
	rows map[string]T
}

func newTable[T row[T]]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, entities.ErrNotFound
	}
	return v, nil
}

func (t *table[T]) exists(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) put(v T) {
	t.mu.Lock()
	t.rows[v.GetID()] = v
	t.mu.Unlock()
}

// modify applies fn to the stored row under the write lock.
func (t *table[T]) modify(id string, fn func(T) (T, error)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, entities.ErrNotFound
	}
	updated, err := fn(v)
	if err != nil {
		var zero T
		return zero, err
	}
	t.rows[id] = updated
	return updated, nil
}

func (t *table[T]) archive(id string, now time.Time) error {
	_, err := t.modify(id, func(v T) (T, error) {
		if v.GetArchivedAt() != nil {
			return v, nil
		}
		return v.WithArchivedAt(&now), nil
	})
	return err
}

func (t *table[T]) restore(id string) error {
	_, err := t.modify(id, func(v T) (T, error) {
		return v.WithArchivedAt(nil), nil
	})
	return err
}

func (t *table[T]) list(keep func(T) bool, less func(a, b T) bool, includeArchived bool, limit int) []T {
	t.mu.RLock()
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if !includeArchived && v.GetArchivedAt() != nil {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v)
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func newID() string {
	return uuid.NewString()
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
