// Package remote implements ports.Backend over the HTTP command API, so
// stores and workspaces run unchanged against a running server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/config"
	"github.com/lifeplanner/core/internal/ports"
)

const apiPrefix = "/api/v1"

// StatusError is a non-2xx answer from the server. Error returns the
// server's message as is.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Unwrap maps the status back onto the domain sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return entities.ErrNotFound
	case http.StatusBadRequest:
		return entities.ErrValidation
	case http.StatusUnprocessableEntity:
		return entities.ErrCompletionUnsupported
	default:
		return nil
	}
}

// Client talks to one server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	lifeAreas *LifeAreaClient
	goals     *completable[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]
	projects  *completable[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]
	tasks     *completable[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]
}

// New creates a client for cfg.BaseURL.
func New(cfg config.RemoteConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
	c.lifeAreas = &LifeAreaClient{resource: resource[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]{client: c, path: "/life-areas"}}
	c.goals = &completable[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]{resource: resource[entities.Goal, ports.CreateGoalRequest, ports.UpdateGoalRequest]{client: c, path: "/goals"}}
	c.projects = &completable[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]{resource: resource[entities.Project, ports.CreateProjectRequest, ports.UpdateProjectRequest]{client: c, path: "/projects"}}
	c.tasks = &completable[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]{resource: resource[entities.Task, ports.CreateTaskRequest, ports.UpdateTaskRequest]{client: c, path: "/tasks"}}
	return c, nil
}

func (c *Client) LifeAreas() ports.LifeAreaRepository { return c.lifeAreas }
func (c *Client) Goals() ports.GoalRepository         { return c.goals }
func (c *Client) Projects() ports.ProjectRepository   { return c.projects }
func (c *Client) Tasks() ports.TaskRepository         { return c.tasks }

// ArchiveCascade runs a cascade archive on the server, where provenance is
// kept between calls. A partial failure is reported in the returned report.
func (c *Client) ArchiveCascade(ctx context.Context, ref entities.Ref) (*ports.CascadeReport, error) {
	var report ports.CascadeReport
	if err := c.do(ctx, http.MethodPost, "/cascade/archive", nil, ref, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RestoreCascade runs a cascade restore on the server.
func (c *Client) RestoreCascade(ctx context.Context, ref entities.Ref) (*ports.CascadeReport, error) {
	var report ports.CascadeReport
	if err := c.do(ctx, http.MethodPost, "/cascade/restore", nil, ref, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// resource is the repository surface shared by every entity kind.
type resource[T any, C any, U any] struct {
	client *Client
	path   string
}

func (r *resource[T, C, U]) FetchAll(ctx context.Context, filter ports.Filter) ([]T, error) {
	var items []T
	if err := r.client.do(ctx, http.MethodGet, r.path, filterQuery(filter), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *resource[T, C, U]) Create(ctx context.Context, input C) (T, error) {
	var item T
	err := r.client.do(ctx, http.MethodPost, r.path, nil, input, &item)
	return item, err
}

func (r *resource[T, C, U]) Update(ctx context.Context, id string, patch U) (T, error) {
	var item T
	err := r.client.do(ctx, http.MethodPatch, r.path+"/"+url.PathEscape(id), nil, patch, &item)
	return item, err
}

func (r *resource[T, C, U]) Archive(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodPost, r.path+"/"+url.PathEscape(id)+"/archive", nil, nil, nil)
}

func (r *resource[T, C, U]) Restore(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodPost, r.path+"/"+url.PathEscape(id)+"/restore", nil, nil, nil)
}

// completable adds Complete and Uncomplete for goals, projects and tasks.
type completable[T any, C any, U any] struct {
	resource[T, C, U]
}

func (r *completable[T, C, U]) Complete(ctx context.Context, id string) (T, error) {
	var item T
	err := r.client.do(ctx, http.MethodPost, r.path+"/"+url.PathEscape(id)+"/complete", nil, nil, &item)
	return item, err
}

func (r *completable[T, C, U]) Uncomplete(ctx context.Context, id string) (T, error) {
	var item T
	err := r.client.do(ctx, http.MethodPost, r.path+"/"+url.PathEscape(id)+"/uncomplete", nil, nil, &item)
	return item, err
}

// LifeAreaClient adds Reorder to the shared surface.
type LifeAreaClient struct {
	resource[entities.LifeArea, ports.CreateLifeAreaRequest, ports.UpdateLifeAreaRequest]
}

func (r *LifeAreaClient) Reorder(ctx context.Context, ids []string) error {
	return r.client.do(ctx, http.MethodPut, r.path+"/order", nil, ports.ReorderLifeAreasRequest{IDs: ids}, nil)
}

func filterQuery(filter ports.Filter) url.Values {
	q := url.Values{}
	if filter.ParentID != nil {
		q.Set("parent_id", *filter.ParentID)
	}
	if filter.IncludeArchived {
		q.Set("include_archived", "true")
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.DueAfter != nil {
		q.Set("due_after", filter.DueAfter.Format(time.RFC3339Nano))
	}
	if filter.DueBefore != nil {
		q.Set("due_before", filter.DueBefore.Format(time.RFC3339Nano))
	}
	return q
}

var (
	_ ports.Backend        = (*Client)(nil)
	_ ports.CascadeService = (*Client)(nil)
)
