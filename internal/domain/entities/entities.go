package entities

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidKind           = errors.New("invalid entity kind")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrCompletionUnsupported = errors.New("entity does not support completion")
	ErrNoFieldsToUpdate      = errors.New("at least one field must be provided for update")
	ErrValidation            = errors.New("validation failed")
	ErrDanglingParent        = errors.New("parent reference does not resolve")
)

// UnknownName is shown in read paths when a parent reference does not resolve.
const UnknownName = "Unknown"

// Kind names one level of the Life Area → Goal → Project → Task hierarchy.
type Kind string

const (
	KindLifeArea Kind = "life_area"
	KindGoal     Kind = "goal"
	KindProject  Kind = "project"
	KindTask     Kind = "task"
)

// ParseKind accepts both the canonical form and the plural route form ("life-areas").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "life_area", "life-area", "life-areas", "lifearea":
		return KindLifeArea, nil
	case "goal", "goals":
		return KindGoal, nil
	case "project", "projects":
		return KindProject, nil
	case "task", "tasks", "subtask":
		return KindTask, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) IsValid() bool {
	switch k {
	case KindLifeArea, KindGoal, KindProject, KindTask:
		return true
	default:
		return false
	}
}

// Depth is the level of the kind in the hierarchy, root first.
func (k Kind) Depth() int {
	switch k {
	case KindLifeArea:
		return 0
	case KindGoal:
		return 1
	case KindProject:
		return 2
	case KindTask:
		return 3
	default:
		return -1
	}
}

// Ref identifies one entity across the four stores.
type Ref struct {
	Kind Kind   `json:"kind" validate:"required"`
	ID   string `json:"id" validate:"required"`
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// LifeArea is the root of the hierarchy.
type LifeArea struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Color       *string    `json:"color,omitempty" db:"color"`
	Icon        *string    `json:"icon,omitempty" db:"icon"`
	SortOrder   int        `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Goal belongs to a LifeArea.
type Goal struct {
	ID          string     `json:"id" db:"id"`
	LifeAreaID  string     `json:"life_area_id" db:"life_area_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	TargetDate  *time.Time `json:"target_date,omitempty" db:"target_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Project belongs to a Goal.
type Project struct {
	ID          string        `json:"id" db:"id"`
	GoalID      string        `json:"goal_id" db:"goal_id"`
	Title       string        `json:"title" db:"title"`
	Description *string       `json:"description,omitempty" db:"description"`
	Status      ProjectStatus `json:"status" db:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	ArchivedAt  *time.Time    `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Task belongs to a Project, or to a parent Task when it is a subtask.
type Task struct {
	ID           string     `json:"id" db:"id"`
	ProjectID    *string    `json:"project_id,omitempty" db:"project_id"`
	ParentTaskID *string    `json:"parent_task_id,omitempty" db:"parent_task_id"`
	Title        string     `json:"title" db:"title"`
	Description  *string    `json:"description,omitempty" db:"description"`
	Priority     Priority   `json:"priority" db:"priority"`
	DueDate      *time.Time `json:"due_date,omitempty" db:"due_date"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Record accessors used by the generic store.

func (l LifeArea) GetID() string             { return l.ID }
func (l LifeArea) GetArchivedAt() *time.Time { return l.ArchivedAt }
func (l LifeArea) WithArchivedAt(at *time.Time) LifeArea {
	l.ArchivedAt = at
	return l
}

func (g Goal) GetID() string             { return g.ID }
func (g Goal) GetArchivedAt() *time.Time { return g.ArchivedAt }
func (g Goal) WithArchivedAt(at *time.Time) Goal {
	g.ArchivedAt = at
	return g
}

func (p Project) GetID() string             { return p.ID }
func (p Project) GetArchivedAt() *time.Time { return p.ArchivedAt }
func (p Project) WithArchivedAt(at *time.Time) Project {
	p.ArchivedAt = at
	return p
}

func (t Task) GetID() string             { return t.ID }
func (t Task) GetArchivedAt() *time.Time { return t.ArchivedAt }
func (t Task) WithArchivedAt(at *time.Time) Task {
	t.ArchivedAt = at
	return t
}

// Business logic methods

func (l LifeArea) IsArchived() bool { return l.ArchivedAt != nil }
func (l LifeArea) Ref() Ref         { return Ref{Kind: KindLifeArea, ID: l.ID} }

func (g Goal) IsArchived() bool  { return g.ArchivedAt != nil }
func (g Goal) IsCompleted() bool { return g.CompletedAt != nil }
func (g Goal) Ref() Ref          { return Ref{Kind: KindGoal, ID: g.ID} }
func (g Goal) ParentRef() Ref    { return Ref{Kind: KindLifeArea, ID: g.LifeAreaID} }

func (g Goal) IsOverdue(now time.Time) bool {
	if g.TargetDate == nil || g.IsCompleted() {
		return false
	}
	return now.After(*g.TargetDate)
}

func (p Project) IsArchived() bool  { return p.ArchivedAt != nil }
func (p Project) IsCompleted() bool { return p.CompletedAt != nil }
func (p Project) IsActive() bool    { return p.Status == ProjectStatusActive }
func (p Project) Ref() Ref          { return Ref{Kind: KindProject, ID: p.ID} }
func (p Project) ParentRef() Ref    { return Ref{Kind: KindGoal, ID: p.GoalID} }

func (t Task) IsArchived() bool  { return t.ArchivedAt != nil }
func (t Task) IsCompleted() bool { return t.CompletedAt != nil }
func (t Task) IsSubtask() bool   { return t.ParentTaskID != nil && *t.ParentTaskID != "" }
func (t Task) Ref() Ref          { return Ref{Kind: KindTask, ID: t.ID} }

// ParentRef is the parent task for subtasks, otherwise the project. A task with
// neither returns the zero Ref.
func (t Task) ParentRef() Ref {
	if t.IsSubtask() {
		return Ref{Kind: KindTask, ID: *t.ParentTaskID}
	}
	if t.ProjectID != nil && *t.ProjectID != "" {
		return Ref{Kind: KindProject, ID: *t.ProjectID}
	}
	return Ref{}
}

func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return now.After(*t.DueDate)
}

// Utility methods
func (ps ProjectStatus) IsValid() bool {
	switch ps {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Rank orders priorities from most to least pressing.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}
