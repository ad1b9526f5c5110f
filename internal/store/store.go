package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/ports"
)

const fetchKey = "fetch_all"

// Record is the behaviour a store needs from the entities it holds.
type Record[T any] interface {
	GetID() string
	GetArchivedAt() *time.Time
	WithArchivedAt(at *time.Time) T
}

type settings struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Store.
type Option func(*settings)

func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClock overrides the clock used to stamp archivedAt after a successful
// archive call.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Store is the client-side cache for one entity collection. It issues the
// repository calls, applies their results to the collection, and tracks the
// fetch lifecycle and a single selection.
//
// The collection only ever reflects confirmed repository results: creates are
// prepended after the call returns, updates replace the matching entry at the
// same position, and archive/restore adjust archivedAt locally once the call
// has succeeded. A failed call leaves the collection untouched.
type Store[T Record[T], C any, U any] struct {
	name      string
	repo      ports.Repository[T, C, U]
	completer ports.Completer[T]
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu        sync.RWMutex
	items     []T
	lifecycle Lifecycle
	selection Selection

	flight singleflight.Group

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

// New creates an idle store named name over repo. When repo also implements
// ports.Completer[T], Complete and Uncomplete are available.
func New[T Record[T], C any, U any](name string, repo ports.Repository[T, C, U], opts ...Option) *Store[T, C, U] {
	cfg := settings{
		logger: logger.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store[T, C, U]{
		name:      name,
		repo:      repo,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		now:       cfg.now,
		lifecycle: Lifecycle{Status: StatusIdle},
		listeners: make(map[int]Listener),
	}
	if c, ok := repo.(ports.Completer[T]); ok {
		s.completer = c
	}
	return s
}

func (s *Store[T, C, U]) Name() string {
	return s.name
}

// Items returns a copy of the collection in display order.
func (s *Store[T, C, U]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *Store[T, C, U]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the entity with the given id if it is in the collection.
func (s *Store[T, C, U]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// ArchiveState reports whether id is archived, and whether the store knows
// the entity at all.
func (s *Store[T, C, U]) ArchiveState(id string) (archived bool, known bool) {
	item, ok := s.Get(id)
	if !ok {
		return false, false
	}
	return item.GetArchivedAt() != nil, true
}

func (s *Store[T, C, U]) Lifecycle() Lifecycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifecycle
}

// Selected returns the selected id, or "" when nothing is selected.
func (s *Store[T, C, U]) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.ID()
}

func (s *Store[T, C, U]) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.IsSelected(id)
}

// SelectedItem resolves the selection against the collection. It reports
// false when nothing is selected or the selected entity is not loaded.
func (s *Store[T, C, U]) SelectedItem() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id := s.selection.ID(); id != "" {
		if i := s.indexLocked(id); i >= 0 {
			return s.items[i], true
		}
	}
	var zero T
	return zero, false
}

// Select toggles the selection: selecting the selected id clears it, and
// the empty id always clears it.
func (s *Store[T, C, U]) Select(id string) string {
	s.mu.Lock()
	var selected string
	if id == "" {
		s.selection.Clear()
	} else {
		selected = s.selection.Toggle(id)
	}
	s.mu.Unlock()

	s.publish(ActionSelected, selected)
	return selected
}

func (s *Store[T, C, U]) ClearSelection() {
	s.Select("")
}

// Subscribe registers l for every change and returns a function removing it.
func (s *Store[T, C, U]) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// FetchAll replaces the collection with the repository's listing. Calls made
// while a fetch is in flight attach to it and receive the same result; the
// filter and context of an attached call are ignored. The shared fetch runs
// under the first caller's context, so cancelling that caller fails every
// attached caller too. On failure the previous collection is kept and the
// lifecycle moves to error.
func (s *Store[T, C, U]) FetchAll(ctx context.Context, filter ports.Filter) ([]T, error) {
	led := false
	v, err, _ := s.flight.Do(fetchKey, func() (interface{}, error) {
		led = true
		return s.fetch(ctx, filter)
	})
	if !led {
		s.metrics.ObserveCoalesced(s.name)
	}
	if err != nil {
		return nil, err
	}
	return append([]T(nil), v.([]T)...), nil
}

func (s *Store[T, C, U]) fetch(ctx context.Context, filter ports.Filter) ([]T, error) {
	s.mu.Lock()
	s.lifecycle.begin()
	s.mu.Unlock()
	s.publish(ActionFetchStarted, "")

	items, err := s.repo.FetchAll(ctx, filter)
	s.observe("fetch_all", "", err)
	if err != nil {
		s.mu.Lock()
		s.lifecycle.fail(err.Error())
		s.mu.Unlock()
		s.publish(ActionFetchFailed, "")
		return nil, s.wrap("fetch_all", "", err)
	}

	snapshot := append([]T(nil), items...)
	s.mu.Lock()
	s.items = snapshot
	s.lifecycle.succeed()
	s.mu.Unlock()
	s.publish(ActionFetched, "")
	return snapshot, nil
}

// Create inserts the repository's returned entity at the front of the
// collection. Nothing is inserted before the call succeeds.
func (s *Store[T, C, U]) Create(ctx context.Context, input C) (T, error) {
	created, err := s.repo.Create(ctx, input)
	s.observe("create", "", err)
	if err != nil {
		var zero T
		return zero, s.fail("create", "", err)
	}

	s.mu.Lock()
	if i := s.indexLocked(created.GetID()); i >= 0 {
		s.items[i] = created
	} else {
		s.items = append([]T{created}, s.items...)
	}
	s.mu.Unlock()

	s.publish(ActionCreated, created.GetID())
	return created, nil
}

// Update replaces the matching entry in place with the repository's result.
// An entity outside the loaded collection is returned but not inserted.
func (s *Store[T, C, U]) Update(ctx context.Context, id string, patch U) (T, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	s.observe("update", id, err)
	if err != nil {
		var zero T
		return zero, s.fail("update", id, err)
	}

	s.replace(updated)
	s.publish(ActionUpdated, id)
	return updated, nil
}

// Archive archives id and stamps archivedAt on the local entry. An entry
// that is already archived keeps its original timestamp.
func (s *Store[T, C, U]) Archive(ctx context.Context, id string) error {
	err := s.repo.Archive(ctx, id)
	s.observe("archive", id, err)
	if err != nil {
		return s.fail("archive", id, err)
	}

	now := s.now()
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 && s.items[i].GetArchivedAt() == nil {
		s.items[i] = s.items[i].WithArchivedAt(&now)
	}
	s.mu.Unlock()

	s.publish(ActionArchived, id)
	return nil
}

// Restore restores id and clears archivedAt on the local entry.
func (s *Store[T, C, U]) Restore(ctx context.Context, id string) error {
	err := s.repo.Restore(ctx, id)
	s.observe("restore", id, err)
	if err != nil {
		return s.fail("restore", id, err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.items[i] = s.items[i].WithArchivedAt(nil)
	}
	s.mu.Unlock()

	s.publish(ActionRestored, id)
	return nil
}

// CanComplete reports whether the underlying repository supports completion.
func (s *Store[T, C, U]) CanComplete() bool {
	return s.completer != nil
}

func (s *Store[T, C, U]) Complete(ctx context.Context, id string) (T, error) {
	return s.completion(ctx, "complete", ActionCompleted, id)
}

func (s *Store[T, C, U]) Uncomplete(ctx context.Context, id string) (T, error) {
	return s.completion(ctx, "uncomplete", ActionUncompleted, id)
}

func (s *Store[T, C, U]) completion(ctx context.Context, action string, change Action, id string) (T, error) {
	var zero T
	if s.completer == nil {
		return zero, s.fail(action, id, entities.ErrCompletionUnsupported)
	}

	var (
		result T
		err    error
	)
	if change == ActionCompleted {
		result, err = s.completer.Complete(ctx, id)
	} else {
		result, err = s.completer.Uncomplete(ctx, id)
	}
	s.observe(action, id, err)
	if err != nil {
		return zero, s.fail(action, id, err)
	}

	s.replace(result)
	s.publish(change, id)
	return result, nil
}

func (s *Store[T, C, U]) replace(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(item.GetID()); i >= 0 {
		s.items[i] = item
	}
}

func (s *Store[T, C, U]) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].GetID() == id {
			return i
		}
	}
	return -1
}

// fail records a mutation error without changing the fetch status.
func (s *Store[T, C, U]) fail(action, id string, err error) error {
	s.mu.Lock()
	s.lifecycle.recordMutationError(err.Error())
	s.mu.Unlock()
	s.publish(ActionFailed, id)
	return s.wrap(action, id, err)
}

func (s *Store[T, C, U]) wrap(action, id string, err error) error {
	var actionErr *ActionError
	if errors.As(err, &actionErr) && actionErr.Store == s.name {
		return err
	}
	return &ActionError{Store: s.name, Action: action, ID: id, Err: err}
}

func (s *Store[T, C, U]) observe(action, id string, err error) {
	s.logger.LogStoreAction(s.name, action, id, err)
	s.metrics.ObserveStoreAction(s.name, action, err)
}

func (s *Store[T, C, U]) publish(action Action, id string) {
	s.listenersMu.Lock()
	if len(s.listeners) == 0 {
		s.listenersMu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	change := Change{Store: s.name, Action: action, ID: id}
	for _, l := range listeners {
		l(change)
	}
}
