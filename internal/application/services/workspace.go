package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lifeplanner/core/internal/cascade"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/hierarchy"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/infrastructure/metrics"
	"github.com/lifeplanner/core/internal/ports"
	"github.com/lifeplanner/core/internal/store"
)

type (
	LifeAreaStore = store.Store[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]
	GoalStore     = store.Store[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]
	ProjectStore  = store.Store[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]
	TaskStore     = store.Store[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]
)

// Workspace wires the four entity stores, the hierarchy index and the
// cascade archiver over one backend.
type Workspace struct {
	LifeAreas *LifeAreaStore
	Goals     *GoalStore
	Projects  *ProjectStore
	Tasks     *TaskStore
	Index     *hierarchy.Index
	Archiver  *cascade.Archiver

	backend ports.Backend
	logger  *logger.Logger
}

// NewWorkspace creates idle stores over backend. Call Refresh to load them.
func NewWorkspace(backend ports.Backend, log *logger.Logger, m *metrics.Metrics) *Workspace {
	if log == nil {
		log = logger.NewNop()
	}
	storeOpts := []store.Option{store.WithLogger(log.WithComponent("store")), store.WithMetrics(m)}

	w := &Workspace{
		LifeAreas: store.New[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]("life_areas", backend.LifeAreas(), storeOpts...),
		Goals:     store.New[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]("goals", backend.Goals(), storeOpts...),
		Projects:  store.New[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]("projects", backend.Projects(), storeOpts...),
		Tasks:     store.New[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]("tasks", backend.Tasks(), storeOpts...),
		backend:   backend,
		logger:    log,
	}
	w.Index = hierarchy.New(w.LifeAreas, w.Goals, w.Projects, w.Tasks)
	w.Archiver = cascade.NewArchiver(
		map[entities.Kind]cascade.Target{
			entities.KindLifeArea: w.LifeAreas,
			entities.KindGoal:     w.Goals,
			entities.KindProject:  w.Projects,
			entities.KindTask:     w.Tasks,
		},
		w.Index,
		cascade.WithLogger(log.WithComponent("cascade")),
		cascade.WithMetrics(m),
	)
	w.Archiver.Watch(entities.KindLifeArea, w.LifeAreas)
	w.Archiver.Watch(entities.KindGoal, w.Goals)
	w.Archiver.Watch(entities.KindProject, w.Projects)
	w.Archiver.Watch(entities.KindTask, w.Tasks)
	return w
}

// Backend returns the repositories the workspace was built over.
func (w *Workspace) Backend() ports.Backend {
	return w.backend
}

// Close detaches the index and the archiver from the stores.
func (w *Workspace) Close() {
	w.Archiver.Close()
	w.Index.Close()
}

// Refresh loads all four stores, archived entities included, so the index
// sees complete subtrees. Each store records its own failure; the first
// error is returned.
func (w *Workspace) Refresh(ctx context.Context) error {
	filter := ports.Filter{IncludeArchived: true}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := w.LifeAreas.FetchAll(ctx, filter); return err })
	g.Go(func() error { _, err := w.Goals.FetchAll(ctx, filter); return err })
	g.Go(func() error { _, err := w.Projects.FetchAll(ctx, filter); return err })
	g.Go(func() error { _, err := w.Tasks.FetchAll(ctx, filter); return err })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to refresh workspace: %w", err)
	}
	return nil
}

// ArchiveCascade archives ref and its subtree.
func (w *Workspace) ArchiveCascade(ctx context.Context, ref entities.Ref) (*ports.CascadeReport, error) {
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	res, err := w.Archiver.Archive(ctx, ref)
	if err != nil {
		return nil, err
	}
	return res.Report(), nil
}

// RestoreCascade restores ref and the part of its subtree archived with it.
func (w *Workspace) RestoreCascade(ctx context.Context, ref entities.Ref) (*ports.CascadeReport, error) {
	if err := w.Refresh(ctx); err != nil {
		return nil, err
	}
	res, err := w.Archiver.Restore(ctx, ref)
	if err != nil {
		return nil, err
	}
	return res.Report(), nil
}

// ReorderLifeAreas persists a new life area order and reloads the store.
func (w *Workspace) ReorderLifeAreas(ctx context.Context, ids []string) error {
	if err := w.backend.LifeAreas().Reorder(ctx, ids); err != nil {
		return fmt.Errorf("failed to reorder life areas: %w", err)
	}
	if _, err := w.LifeAreas.FetchAll(ctx, ports.Filter{IncludeArchived: true}); err != nil {
		return err
	}
	w.logger.Infow("Life areas reordered", "count", len(ids))
	return nil
}

// Complete completes a goal, project or task.
func (w *Workspace) Complete(ctx context.Context, ref entities.Ref) (interface{}, error) {
	switch ref.Kind {
	case entities.KindGoal:
		return w.Goals.Complete(ctx, ref.ID)
	case entities.KindProject:
		return w.Projects.Complete(ctx, ref.ID)
	case entities.KindTask:
		return w.Tasks.Complete(ctx, ref.ID)
	case entities.KindLifeArea:
		return nil, entities.ErrCompletionUnsupported
	default:
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidKind, ref.Kind)
	}
}

// Uncomplete reverts Complete.
func (w *Workspace) Uncomplete(ctx context.Context, ref entities.Ref) (interface{}, error) {
	switch ref.Kind {
	case entities.KindGoal:
		return w.Goals.Uncomplete(ctx, ref.ID)
	case entities.KindProject:
		return w.Projects.Uncomplete(ctx, ref.ID)
	case entities.KindTask:
		return w.Tasks.Uncomplete(ctx, ref.ID)
	case entities.KindLifeArea:
		return nil, entities.ErrCompletionUnsupported
	default:
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidKind, ref.Kind)
	}
}

// TreeNode is one entity in the rendered hierarchy.
type TreeNode struct {
	Ref      entities.Ref `json:"ref" yaml:"ref"`
	Label    string       `json:"label" yaml:"label"`
	Archived bool         `json:"archived,omitempty" yaml:"archived,omitempty"`
	Missing  bool         `json:"missing,omitempty" yaml:"missing,omitempty"`
	Children []TreeNode   `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree returns the loaded hierarchy rooted at the life areas in store order.
// Archived entities and their subtrees are left out unless includeArchived.
// Entities whose parent is not loaded follow the life areas, grouped under a
// Missing node per parent labelled entities.UnknownName.
func (w *Workspace) Tree(includeArchived bool) []TreeNode {
	var roots []TreeNode
	for _, area := range w.LifeAreas.Items() {
		if node, ok := w.node(area.Ref(), includeArchived); ok {
			roots = append(roots, node)
		}
	}

	missing := map[entities.Ref]int{}
	for _, ref := range w.Index.Orphans() {
		child, ok := w.node(ref, includeArchived)
		if !ok {
			continue
		}
		parent, _ := w.Index.Parent(ref)
		i, seen := missing[parent]
		if !seen {
			i = len(roots)
			missing[parent] = i
			roots = append(roots, TreeNode{Ref: parent, Label: w.Index.Label(parent), Missing: true})
		}
		roots[i].Children = append(roots[i].Children, child)
	}
	return roots
}

func (w *Workspace) node(ref entities.Ref, includeArchived bool) (TreeNode, bool) {
	n, ok := w.Index.Lookup(ref)
	if !ok || (n.Archived && !includeArchived) {
		return TreeNode{}, false
	}
	out := TreeNode{Ref: ref, Label: n.Label, Archived: n.Archived}
	for _, child := range w.Index.Children(ref) {
		if c, ok := w.node(child, includeArchived); ok {
			out.Children = append(out.Children, c)
		}
	}
	return out, true
}

// DueItem is an open goal or task with a date inside the requested window.
type DueItem struct {
	Ref      entities.Ref      `json:"ref" yaml:"ref"`
	Label    string            `json:"label" yaml:"label"`
	Parent   string            `json:"parent,omitempty" yaml:"parent,omitempty"`
	Priority entities.Priority `json:"priority,omitempty" yaml:"priority,omitempty"`
	Due      time.Time         `json:"due" yaml:"due"`
	Overdue  bool              `json:"overdue,omitempty" yaml:"overdue,omitempty"`
}

// Due lists unarchived open goals (by target date) and tasks (by due date)
// within [from, to), earliest first and then by priority. It reads the
// backend directly so the store collections stay complete. Parent labels
// come from the index; call Refresh first.
func (w *Workspace) Due(ctx context.Context, from, to *time.Time, now time.Time) ([]DueItem, error) {
	filter := ports.Filter{DueAfter: from, DueBefore: to}
	var (
		goals []entities.Goal
		tasks []entities.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { goals, err = w.backend.Goals().FetchAll(gctx, filter); return err })
	g.Go(func() (err error) { tasks, err = w.backend.Tasks().FetchAll(gctx, filter); return err })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list due entities: %w", err)
	}

	items := make([]DueItem, 0, len(goals)+len(tasks))
	for _, goal := range goals {
		items = append(items, DueItem{
			Ref:     goal.Ref(),
			Label:   goal.Title,
			Parent:  w.Index.LifeAreaName(goal.LifeAreaID),
			Due:     *goal.TargetDate,
			Overdue: goal.IsOverdue(now),
		})
	}
	for _, task := range tasks {
		item := DueItem{
			Ref:      task.Ref(),
			Label:    task.Title,
			Priority: task.Priority,
			Due:      *task.DueDate,
			Overdue:  task.IsOverdue(now),
		}
		if parent := task.ParentRef(); !parent.IsZero() {
			item.Parent = w.Index.Label(parent)
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Due.Equal(items[j].Due) {
			return items[i].Due.Before(items[j].Due)
		}
		return items[i].Priority.Rank() < items[j].Priority.Rank()
	})
	return items, nil
}

var _ ports.CascadeService = (*Workspace)(nil)
