package ports

import (
	"fmt"
	"strings"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
)

// Normalize methods trim text fields, apply defaults and reject input that no
// repository may store. Repositories call them before touching storage so the
// local and remote paths agree on what is valid.

func (r CreateLifeAreaRequest) Normalize() (CreateLifeAreaRequest, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return r, fmt.Errorf("%w: name is required", entities.ErrValidation)
	}
	r.Description = trimPtr(r.Description)
	return r, nil
}

func (r UpdateLifeAreaRequest) Normalize() (UpdateLifeAreaRequest, error) {
	if r.IsEmpty() {
		return r, entities.ErrNoFieldsToUpdate
	}
	r.Name = trimPtr(r.Name)
	if r.Name != nil && *r.Name == "" {
		return r, fmt.Errorf("%w: name cannot be blank", entities.ErrValidation)
	}
	r.Description = trimPtr(r.Description)
	return r, nil
}

func (r CreateGoalRequest) Normalize() (CreateGoalRequest, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return r, fmt.Errorf("%w: title is required", entities.ErrValidation)
	}
	if strings.TrimSpace(r.LifeAreaID) == "" {
		return r, fmt.Errorf("%w: life_area_id is required", entities.ErrValidation)
	}
	r.Description = trimPtr(r.Description)
	r.TargetDate = utcPtr(r.TargetDate)
	return r, nil
}

func (r UpdateGoalRequest) Normalize() (UpdateGoalRequest, error) {
	if r.IsEmpty() {
		return r, entities.ErrNoFieldsToUpdate
	}
	r.Title = trimPtr(r.Title)
	if r.Title != nil && *r.Title == "" {
		return r, fmt.Errorf("%w: title cannot be blank", entities.ErrValidation)
	}
	r.Description = trimPtr(r.Description)
	r.TargetDate = utcPtr(r.TargetDate)
	return r, nil
}

func (r CreateProjectRequest) Normalize() (CreateProjectRequest, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return r, fmt.Errorf("%w: title is required", entities.ErrValidation)
	}
	if strings.TrimSpace(r.GoalID) == "" {
		return r, fmt.Errorf("%w: goal_id is required", entities.ErrValidation)
	}
	if r.Status == "" {
		r.Status = entities.ProjectStatusActive
	}
	if !r.Status.IsValid() {
		return r, fmt.Errorf("%w: %q", entities.ErrInvalidStatus, r.Status)
	}
	r.Description = trimPtr(r.Description)
	return r, nil
}

func (r UpdateProjectRequest) Normalize() (UpdateProjectRequest, error) {
	if r.IsEmpty() {
		return r, entities.ErrNoFieldsToUpdate
	}
	r.Title = trimPtr(r.Title)
	if r.Title != nil && *r.Title == "" {
		return r, fmt.Errorf("%w: title cannot be blank", entities.ErrValidation)
	}
	if r.Status != nil && !r.Status.IsValid() {
		return r, fmt.Errorf("%w: %q", entities.ErrInvalidStatus, *r.Status)
	}
	r.Description = trimPtr(r.Description)
	return r, nil
}

func (r CreateTaskRequest) Normalize() (CreateTaskRequest, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return r, fmt.Errorf("%w: title is required", entities.ErrValidation)
	}
	if r.Priority == "" {
		r.Priority = entities.PriorityMedium
	}
	if !r.Priority.IsValid() {
		return r, fmt.Errorf("%w: %q", entities.ErrInvalidPriority, r.Priority)
	}
	r.ProjectID = emptyToNil(r.ProjectID)
	r.ParentTaskID = emptyToNil(r.ParentTaskID)
	r.Description = trimPtr(r.Description)
	r.DueDate = utcPtr(r.DueDate)
	return r, nil
}

func (r UpdateTaskRequest) Normalize() (UpdateTaskRequest, error) {
	if r.IsEmpty() {
		return r, entities.ErrNoFieldsToUpdate
	}
	r.Title = trimPtr(r.Title)
	if r.Title != nil && *r.Title == "" {
		return r, fmt.Errorf("%w: title cannot be blank", entities.ErrValidation)
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return r, fmt.Errorf("%w: %q", entities.ErrInvalidPriority, *r.Priority)
	}
	r.Description = trimPtr(r.Description)
	r.DueDate = utcPtr(r.DueDate)
	return r, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Dates are stored in UTC so SQLite's text comparison orders them.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
