// Package hierarchy resolves parent/child relations across the four entity
// stores. The index is derived state: it is rebuilt lazily from the stores'
// collections after any of them reports a change.
package hierarchy

import (
	"sync"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/store"
)

// Source is the read side of a store that the index consumes.
type Source[T any] interface {
	Items() []T
	Subscribe(l store.Listener) func()
}

// Node is what the index knows about a single entity.
type Node struct {
	Ref      entities.Ref
	Parent   entities.Ref
	Label    string
	Archived bool
}

type snapshot struct {
	nodes map[entities.Ref]Node

	lifeAreas map[string]entities.LifeArea
	goals     map[string]entities.Goal
	projects  map[string]entities.Project
	tasks     map[string]entities.Task

	goalsByArea    map[string][]string
	projectsByGoal map[string][]string
	tasksByProject map[string][]string
	subtasksByTask map[string][]string

	// orphans have a parent reference that does not resolve.
	orphans []entities.Ref
}

// Index answers hierarchy queries over the current store contents.
type Index struct {
	lifeAreas Source[entities.LifeArea]
	goals     Source[entities.Goal]
	projects  Source[entities.Project]
	tasks     Source[entities.Task]

	mu    sync.Mutex
	dirty bool
	snap  *snapshot

	unsubscribe []func()
}

// New subscribes to the four sources and returns an index that rebuilds
// itself on the first query after any change.
func New(
	lifeAreas Source[entities.LifeArea],
	goals Source[entities.Goal],
	projects Source[entities.Project],
	tasks Source[entities.Task],
) *Index {
	ix := &Index{
		lifeAreas: lifeAreas,
		goals:     goals,
		projects:  projects,
		tasks:     tasks,
		dirty:     true,
	}
	invalidate := func(store.Change) { ix.Invalidate() }
	ix.unsubscribe = []func(){
		lifeAreas.Subscribe(invalidate),
		goals.Subscribe(invalidate),
		projects.Subscribe(invalidate),
		tasks.Subscribe(invalidate),
	}
	return ix
}

// Close detaches the index from its sources.
func (ix *Index) Close() {
	for _, fn := range ix.unsubscribe {
		fn()
	}
	ix.unsubscribe = nil
}

// Invalidate forces a rebuild on the next query.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.dirty = true
	ix.mu.Unlock()
}

func (ix *Index) current() *snapshot {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dirty || ix.snap == nil {
		ix.snap = build(ix.lifeAreas.Items(), ix.goals.Items(), ix.projects.Items(), ix.tasks.Items())
		ix.dirty = false
	}
	return ix.snap
}

func build(lifeAreas []entities.LifeArea, goals []entities.Goal, projects []entities.Project, tasks []entities.Task) *snapshot {
	s := &snapshot{
		nodes:          make(map[entities.Ref]Node, len(lifeAreas)+len(goals)+len(projects)+len(tasks)),
		lifeAreas:      make(map[string]entities.LifeArea, len(lifeAreas)),
		goals:          make(map[string]entities.Goal, len(goals)),
		projects:       make(map[string]entities.Project, len(projects)),
		tasks:          make(map[string]entities.Task, len(tasks)),
		goalsByArea:    make(map[string][]string),
		projectsByGoal: make(map[string][]string),
		tasksByProject: make(map[string][]string),
		subtasksByTask: make(map[string][]string),
	}

	for _, l := range lifeAreas {
		s.lifeAreas[l.ID] = l
		s.nodes[l.Ref()] = Node{Ref: l.Ref(), Label: l.Name, Archived: l.IsArchived()}
	}
	for _, g := range goals {
		s.goals[g.ID] = g
		s.goalsByArea[g.LifeAreaID] = append(s.goalsByArea[g.LifeAreaID], g.ID)
		s.nodes[g.Ref()] = Node{Ref: g.Ref(), Parent: g.ParentRef(), Label: g.Title, Archived: g.IsArchived()}
	}
	for _, p := range projects {
		s.projects[p.ID] = p
		s.projectsByGoal[p.GoalID] = append(s.projectsByGoal[p.GoalID], p.ID)
		s.nodes[p.Ref()] = Node{Ref: p.Ref(), Parent: p.ParentRef(), Label: p.Title, Archived: p.IsArchived()}
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	for _, t := range tasks {
		parent := t.ParentRef()
		// A subtask whose parent task is not loaded hangs off its project.
		if t.IsSubtask() {
			if _, ok := s.tasks[*t.ParentTaskID]; ok {
				s.subtasksByTask[*t.ParentTaskID] = append(s.subtasksByTask[*t.ParentTaskID], t.ID)
			} else if t.ProjectID != nil {
				parent = entities.Ref{Kind: entities.KindProject, ID: *t.ProjectID}
				s.tasksByProject[*t.ProjectID] = append(s.tasksByProject[*t.ProjectID], t.ID)
			}
		} else if t.ProjectID != nil {
			s.tasksByProject[*t.ProjectID] = append(s.tasksByProject[*t.ProjectID], t.ID)
		}
		s.nodes[t.Ref()] = Node{Ref: t.Ref(), Parent: parent, Label: t.Title, Archived: t.IsArchived()}
	}

	for _, g := range goals {
		s.checkParent(g.Ref())
	}
	for _, p := range projects {
		s.checkParent(p.Ref())
	}
	for _, t := range tasks {
		s.checkParent(t.Ref())
	}
	return s
}

func (s *snapshot) checkParent(ref entities.Ref) {
	n := s.nodes[ref]
	if n.Parent.IsZero() {
		return
	}
	if _, ok := s.nodes[n.Parent]; !ok {
		s.orphans = append(s.orphans, ref)
	}
}

// ChildGoals returns the goals of a life area in store order.
func (ix *Index) ChildGoals(lifeAreaID string) []entities.Goal {
	s := ix.current()
	out := make([]entities.Goal, 0, len(s.goalsByArea[lifeAreaID]))
	for _, id := range s.goalsByArea[lifeAreaID] {
		out = append(out, s.goals[id])
	}
	return out
}

// ChildProjects returns the projects of a goal in store order.
func (ix *Index) ChildProjects(goalID string) []entities.Project {
	s := ix.current()
	out := make([]entities.Project, 0, len(s.projectsByGoal[goalID]))
	for _, id := range s.projectsByGoal[goalID] {
		out = append(out, s.projects[id])
	}
	return out
}

// ChildTasks returns the top-level tasks of a project. Subtasks are reached
// through ChildSubtasks.
func (ix *Index) ChildTasks(projectID string) []entities.Task {
	s := ix.current()
	return s.taskList(s.tasksByProject[projectID])
}

// ChildSubtasks returns the direct subtasks of a task.
func (ix *Index) ChildSubtasks(taskID string) []entities.Task {
	s := ix.current()
	return s.taskList(s.subtasksByTask[taskID])
}

func (s *snapshot) taskList(ids []string) []entities.Task {
	out := make([]entities.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tasks[id])
	}
	return out
}

// Children returns the direct children of ref.
func (ix *Index) Children(ref entities.Ref) []entities.Ref {
	return ix.current().children(ref)
}

func (s *snapshot) children(ref entities.Ref) []entities.Ref {
	var (
		ids  []string
		kind entities.Kind
	)
	switch ref.Kind {
	case entities.KindLifeArea:
		ids, kind = s.goalsByArea[ref.ID], entities.KindGoal
	case entities.KindGoal:
		ids, kind = s.projectsByGoal[ref.ID], entities.KindProject
	case entities.KindProject:
		ids, kind = s.tasksByProject[ref.ID], entities.KindTask
	case entities.KindTask:
		ids, kind = s.subtasksByTask[ref.ID], entities.KindTask
	}
	out := make([]entities.Ref, len(ids))
	for i, id := range ids {
		out[i] = entities.Ref{Kind: kind, ID: id}
	}
	return out
}

// Descendants returns every entity below ref, breadth first, so each entity
// appears after its parent. ref itself is not included.
func (ix *Index) Descendants(ref entities.Ref) []entities.Ref {
	s := ix.current()
	visited := map[entities.Ref]bool{ref: true}
	var out []entities.Ref
	queue := []entities.Ref{ref}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range s.children(next) {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// Orphans returns the goals, projects and tasks whose parent is not loaded,
// in store order.
func (ix *Index) Orphans() []entities.Ref {
	return append([]entities.Ref(nil), ix.current().orphans...)
}

// Lookup returns the node for ref if its store has it loaded.
func (ix *Index) Lookup(ref entities.Ref) (Node, bool) {
	n, ok := ix.current().nodes[ref]
	return n, ok
}

// Parent returns the parent of ref. Life areas and unknown refs have none.
func (ix *Index) Parent(ref entities.Ref) (entities.Ref, bool) {
	n, ok := ix.current().nodes[ref]
	if !ok || n.Parent.IsZero() {
		return entities.Ref{}, false
	}
	return n.Parent, true
}

// PathTo returns the chain of ancestors from ancestor (exclusive) down to ref
// (exclusive). It reports false when ancestor is not above ref.
func (ix *Index) PathTo(ancestor, ref entities.Ref) ([]entities.Ref, bool) {
	s := ix.current()
	var chain []entities.Ref
	seen := map[entities.Ref]bool{ref: true}
	cur := ref
	for {
		n, ok := s.nodes[cur]
		if !ok || n.Parent.IsZero() {
			return nil, false
		}
		if n.Parent == ancestor {
			break
		}
		if seen[n.Parent] {
			return nil, false
		}
		seen[n.Parent] = true
		chain = append(chain, n.Parent)
		cur = n.Parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, true
}

// Name helpers resolve parent references for read paths. A reference that
// does not resolve yields entities.UnknownName.

func (ix *Index) LifeAreaName(id string) string {
	if l, ok := ix.current().lifeAreas[id]; ok {
		return l.Name
	}
	return entities.UnknownName
}

func (ix *Index) GoalTitle(id string) string {
	if g, ok := ix.current().goals[id]; ok {
		return g.Title
	}
	return entities.UnknownName
}

func (ix *Index) ProjectTitle(id string) string {
	if p, ok := ix.current().projects[id]; ok {
		return p.Title
	}
	return entities.UnknownName
}

func (ix *Index) TaskTitle(id string) string {
	if t, ok := ix.current().tasks[id]; ok {
		return t.Title
	}
	return entities.UnknownName
}

// Label returns the display label of ref, or entities.UnknownName.
func (ix *Index) Label(ref entities.Ref) string {
	switch ref.Kind {
	case entities.KindLifeArea:
		return ix.LifeAreaName(ref.ID)
	case entities.KindGoal:
		return ix.GoalTitle(ref.ID)
	case entities.KindProject:
		return ix.ProjectTitle(ref.ID)
	case entities.KindTask:
		return ix.TaskTitle(ref.ID)
	default:
		return entities.UnknownName
	}
}
