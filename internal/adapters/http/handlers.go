package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/ports"
)

// Handler serves the command API from one long-lived workspace, so cascade
// provenance survives between requests.
type Handler struct {
	ws     *services.Workspace
	logger *logger.Logger
}

// NewHandler creates a new handler
func NewHandler(ws *services.Workspace, logger *logger.Logger) *Handler {
	return &Handler{
		ws:     ws,
		logger: logger,
	}
}

// Register mounts the entity, cascade and tree routes on g.
func (h *Handler) Register(g *echo.Group) {
	backend := h.ws.Backend()

	areas := g.Group("/life-areas")
	areas.PUT("/order", h.ReorderLifeAreas)
	mount(areas, newResource(entities.KindLifeArea, h.ws.LifeAreas, backend.LifeAreas().FetchAll, h.logger))
	mount(g.Group("/goals"), newResource(entities.KindGoal, h.ws.Goals, backend.Goals().FetchAll, h.logger))
	mount(g.Group("/projects"), newResource(entities.KindProject, h.ws.Projects, backend.Projects().FetchAll, h.logger))
	mount(g.Group("/tasks"), newResource(entities.KindTask, h.ws.Tasks, backend.Tasks().FetchAll, h.logger))

	g.POST("/cascade/archive", h.ArchiveCascade)
	g.POST("/cascade/restore", h.RestoreCascade)
	g.GET("/tree", h.Tree)
}

// ReorderLifeAreas godoc
// @Summary Reorder life areas
// @Description Assign sort_order to life areas by their position in ids
// @Tags life-areas
// @Accept json
// @Param request body ports.ReorderLifeAreasRequest true "Ordered ids"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /life-areas/order [put]
func (h *Handler) ReorderLifeAreas(c echo.Context) error {
	var req ports.ReorderLifeAreasRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.ws.ReorderLifeAreas(c.Request().Context(), req.IDs); err != nil {
		h.logger.Errorw("Reorder life areas failed", "error", err, "count", len(req.IDs))
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ArchiveCascade godoc
// @Summary Archive a subtree
// @Description Archive an entity and everything beneath it. A cascade that stops part way answers 207 with the partial report.
// @Tags cascade
// @Accept json
// @Produce json
// @Param request body entities.Ref true "Origin entity"
// @Success 200 {object} ports.CascadeReport
// @Success 207 {object} ports.CascadeReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /cascade/archive [post]
func (h *Handler) ArchiveCascade(c echo.Context) error {
	return h.cascade(c, h.ws.ArchiveCascade)
}

// RestoreCascade godoc
// @Summary Restore a subtree
// @Description Restore an entity and the descendants its latest cascade archived
// @Tags cascade
// @Accept json
// @Produce json
// @Param request body entities.Ref true "Origin entity"
// @Success 200 {object} ports.CascadeReport
// @Success 207 {object} ports.CascadeReport
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /cascade/restore [post]
func (h *Handler) RestoreCascade(c echo.Context) error {
	return h.cascade(c, h.ws.RestoreCascade)
}

func (h *Handler) cascade(c echo.Context, run func(context.Context, entities.Ref) (*ports.CascadeReport, error)) error {
	var ref entities.Ref
	if err := c.Bind(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&ref); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	kind, err := entities.ParseKind(string(ref.Kind))
	if err != nil {
		return err
	}
	ref.Kind = kind

	report, err := run(c.Request().Context(), ref)
	if err != nil {
		h.logger.Errorw("Cascade failed to start", "error", err, "origin", ref.String())
		return err
	}
	if report.State == "partial_failure" {
		return c.JSON(http.StatusMultiStatus, report)
	}
	return c.JSON(http.StatusOK, report)
}

// Tree godoc
// @Summary Hierarchy tree
// @Description Life areas with their goals, projects, tasks and subtasks
// @Tags tree
// @Produce json
// @Param include_archived query bool false "Include archived entities"
// @Success 200 {array} services.TreeNode
// @Security BearerAuth
// @Router /tree [get]
func (h *Handler) Tree(c echo.Context) error {
	includeArchived, err := parseBool(c.QueryParam("include_archived"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid include_archived parameter")
	}
	if err := h.ws.Refresh(c.Request().Context()); err != nil {
		h.logger.Errorw("Tree refresh failed", "error", err)
		return err
	}
	nodes := h.ws.Tree(includeArchived)
	if nodes == nil {
		nodes = []services.TreeNode{}
	}
	return c.JSON(http.StatusOK, nodes)
}

// Utility functions and helper types

func parseFilter(c echo.Context) (ports.Filter, error) {
	filter := ports.Filter{Search: c.QueryParam("search")}

	if parentID := c.QueryParam("parent_id"); parentID != "" {
		filter.ParentID = &parentID
	}

	includeArchived, err := parseBool(c.QueryParam("include_archived"))
	if err != nil {
		return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid include_archived parameter")
	}
	filter.IncludeArchived = includeArchived

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter")
		}
		filter.Limit = limit
	}

	for name, dst := range map[string]**time.Time{"due_after": &filter.DueAfter, "due_before": &filter.DueBefore} {
		if v := c.QueryParam(name); v != "" {
			at, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" parameter")
			}
			*dst = &at
		}
	}
	return filter, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

type ErrorResponse struct {
	Message string `json:"message"`
}
