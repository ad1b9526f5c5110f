package ports

import (
	"context"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
)

// CascadeService archives and restores whole subtrees of the hierarchy.
type CascadeService interface {
	ArchiveCascade(ctx context.Context, ref entities.Ref) (*CascadeReport, error)
	RestoreCascade(ctx context.Context, ref entities.Ref) (*CascadeReport, error)
}

// CascadeReport is the transport form of a cascade result.
type CascadeReport struct {
	OperationID string         `json:"operation_id"`
	Origin      entities.Ref   `json:"origin"`
	State       string         `json:"state"`
	Succeeded   []entities.Ref `json:"succeeded"`
	Failed      *entities.Ref  `json:"failed,omitempty"`
	Error       string         `json:"error,omitempty"`
	Pending     []entities.Ref `json:"pending,omitempty"`
	Skipped     []entities.Ref `json:"skipped,omitempty"`
}

// Request/Response Types

// Life area related types
type CreateLifeAreaRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
}

type UpdateLifeAreaRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
	Icon        *string `json:"icon" validate:"omitempty,max=50"`
	SortOrder   *int    `json:"sort_order" validate:"omitempty,min=0"`
}

func (r UpdateLifeAreaRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.Color == nil && r.Icon == nil && r.SortOrder == nil
}

type ReorderLifeAreasRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Goal related types
type CreateGoalRequest struct {
	LifeAreaID  string     `json:"life_area_id" validate:"required"`
	Title       string     `json:"title" validate:"required,notblank,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	TargetDate  *time.Time `json:"target_date"`
}

type UpdateGoalRequest struct {
	LifeAreaID  *string    `json:"life_area_id" validate:"omitempty,notblank"`
	Title       *string    `json:"title" validate:"omitempty,notblank,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=500"`
	TargetDate  *time.Time `json:"target_date"`
}

func (r UpdateGoalRequest) IsEmpty() bool {
	return r.LifeAreaID == nil && r.Title == nil && r.Description == nil && r.TargetDate == nil
}

// Project related types
type CreateProjectRequest struct {
	GoalID      string                 `json:"goal_id" validate:"required"`
	Title       string                 `json:"title" validate:"required,notblank,max=100"`
	Description *string                `json:"description" validate:"omitempty,max=500"`
	Status      entities.ProjectStatus `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

type UpdateProjectRequest struct {
	GoalID      *string                 `json:"goal_id" validate:"omitempty,notblank"`
	Title       *string                 `json:"title" validate:"omitempty,notblank,max=100"`
	Description *string                 `json:"description" validate:"omitempty,max=500"`
	Status      *entities.ProjectStatus `json:"status" validate:"omitempty,oneof=planning active on_hold completed cancelled"`
}

func (r UpdateProjectRequest) IsEmpty() bool {
	return r.GoalID == nil && r.Title == nil && r.Description == nil && r.Status == nil
}

// Task related types
type CreateTaskRequest struct {
	ProjectID    *string           `json:"project_id" validate:"omitempty,notblank"`
	ParentTaskID *string           `json:"parent_task_id" validate:"omitempty,notblank"`
	Title        string            `json:"title" validate:"required,notblank,max=100"`
	Description  *string           `json:"description" validate:"omitempty,max=2000"`
	Priority     entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate      *time.Time        `json:"due_date"`
}

type UpdateTaskRequest struct {
	ProjectID    *string            `json:"project_id" validate:"omitempty,notblank"`
	ParentTaskID *string            `json:"parent_task_id" validate:"omitempty,notblank"`
	Title        *string            `json:"title" validate:"omitempty,notblank,max=100"`
	Description  *string            `json:"description" validate:"omitempty,max=2000"`
	Priority     *entities.Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate      *time.Time         `json:"due_date"`
}

func (r UpdateTaskRequest) IsEmpty() bool {
	return r.ProjectID == nil && r.ParentTaskID == nil && r.Title == nil &&
		r.Description == nil && r.Priority == nil && r.DueDate == nil
}
