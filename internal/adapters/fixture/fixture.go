// Package fixture seeds a hierarchy described in YAML through the workspace
// stores, so the seed goes through the same repository calls as any client.
package fixture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

// Document is the top level of a seed file.
type Document struct {
	LifeAreas []LifeArea `yaml:"life_areas"`
}

type LifeArea struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
	Color       *string `yaml:"color"`
	Icon        *string `yaml:"icon"`
	Archived    bool    `yaml:"archived"`
	Goals       []Goal  `yaml:"goals"`
}

type Goal struct {
	Title       string     `yaml:"title"`
	Description *string    `yaml:"description"`
	TargetDate  *time.Time `yaml:"target_date"`
	Completed   bool       `yaml:"completed"`
	Archived    bool       `yaml:"archived"`
	Projects    []Project  `yaml:"projects"`
}

type Project struct {
	Title       string                 `yaml:"title"`
	Description *string                `yaml:"description"`
	Status      entities.ProjectStatus `yaml:"status"`
	Archived    bool                   `yaml:"archived"`
	Tasks       []Task                 `yaml:"tasks"`
}

type Task struct {
	Title       string            `yaml:"title"`
	Description *string           `yaml:"description"`
	Priority    entities.Priority `yaml:"priority"`
	DueDate     *time.Time        `yaml:"due_date"`
	Completed   bool              `yaml:"completed"`
	Archived    bool              `yaml:"archived"`
	Subtasks    []Task            `yaml:"subtasks"`
}

// Summary counts what Seed created.
type Summary struct {
	LifeAreas int `json:"life_areas" yaml:"life_areas"`
	Goals     int `json:"goals" yaml:"goals"`
	Projects  int `json:"projects" yaml:"projects"`
	Tasks     int `json:"tasks" yaml:"tasks"`
	Archived  int `json:"archived" yaml:"archived"`
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, fmt.Errorf("fixture: document is empty")
	}
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("fixture: decode: %w", err)
	}
	return doc, nil
}

// Load reads a seed document from r.
func Load(r io.Reader) (Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("fixture: read: %w", err)
	}
	return Parse(content)
}

// LoadFile reads a seed document from path.
func LoadFile(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	doc, err := Parse(content)
	if err != nil {
		return Document{}, fmt.Errorf("fixture: %s: %w", path, err)
	}
	return doc, nil
}

// Seed creates every entity of doc, parents first. Entities marked archived
// are archived after their whole subtree exists. Seeding stops at the first
// failure; what was created before it stays.
func Seed(ctx context.Context, ws *services.Workspace, doc Document) (Summary, error) {
	s := seeder{ws: ws}
	for _, area := range doc.LifeAreas {
		if err := s.lifeArea(ctx, area); err != nil {
			return s.summary, err
		}
	}
	return s.summary, nil
}

type seeder struct {
	ws      *services.Workspace
	summary Summary
}

func (s *seeder) lifeArea(ctx context.Context, in LifeArea) error {
	area, err := s.ws.LifeAreas.Create(ctx, ports.CreateLifeAreaRequest{
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
	})
	if err != nil {
		return fmt.Errorf("life area %q: %w", in.Name, err)
	}
	s.summary.LifeAreas++

	for _, goal := range in.Goals {
		if err := s.goal(ctx, area.ID, goal); err != nil {
			return err
		}
	}
	if in.Archived {
		return s.archive(ctx, s.ws.LifeAreas.Archive, area.ID)
	}
	return nil
}

func (s *seeder) goal(ctx context.Context, lifeAreaID string, in Goal) error {
	goal, err := s.ws.Goals.Create(ctx, ports.CreateGoalRequest{
		LifeAreaID:  lifeAreaID,
		Title:       in.Title,
		Description: in.Description,
		TargetDate:  in.TargetDate,
	})
	if err != nil {
		return fmt.Errorf("goal %q: %w", in.Title, err)
	}
	s.summary.Goals++

	for _, project := range in.Projects {
		if err := s.project(ctx, goal.ID, project); err != nil {
			return err
		}
	}
	if in.Completed {
		if _, err := s.ws.Goals.Complete(ctx, goal.ID); err != nil {
			return fmt.Errorf("goal %q: %w", in.Title, err)
		}
	}
	if in.Archived {
		return s.archive(ctx, s.ws.Goals.Archive, goal.ID)
	}
	return nil
}

func (s *seeder) project(ctx context.Context, goalID string, in Project) error {
	project, err := s.ws.Projects.Create(ctx, ports.CreateProjectRequest{
		GoalID:      goalID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	})
	if err != nil {
		return fmt.Errorf("project %q: %w", in.Title, err)
	}
	s.summary.Projects++

	for _, task := range in.Tasks {
		if err := s.task(ctx, &project.ID, nil, task); err != nil {
			return err
		}
	}
	if in.Archived {
		return s.archive(ctx, s.ws.Projects.Archive, project.ID)
	}
	return nil
}

func (s *seeder) task(ctx context.Context, projectID, parentID *string, in Task) error {
	task, err := s.ws.Tasks.Create(ctx, ports.CreateTaskRequest{
		ProjectID:    projectID,
		ParentTaskID: parentID,
		Title:        in.Title,
		Description:  in.Description,
		Priority:     in.Priority,
		DueDate:      in.DueDate,
	})
	if err != nil {
		return fmt.Errorf("task %q: %w", in.Title, err)
	}
	s.summary.Tasks++

	for _, sub := range in.Subtasks {
		if err := s.task(ctx, projectID, &task.ID, sub); err != nil {
			return err
		}
	}
	if in.Completed {
		if _, err := s.ws.Tasks.Complete(ctx, task.ID); err != nil {
			return fmt.Errorf("task %q: %w", in.Title, err)
		}
	}
	if in.Archived {
		return s.archive(ctx, s.ws.Tasks.Archive, task.ID)
	}
	return nil
}

func (s *seeder) archive(ctx context.Context, archive func(context.Context, string) error, id string) error {
	if err := archive(ctx, id); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	s.summary.Archived++
	return nil
}
