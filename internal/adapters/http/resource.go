package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/infrastructure/logger"
	"github.com/lifeplanner/core/internal/ports"
	"github.com/lifeplanner/core/internal/store"
)

// resource serves the command routes of one entity kind. Mutations go
// through the workspace store so the server-side hierarchy stays current;
// filtered lists read the repository directly and leave the store alone.
type resource[T store.Record[T], C any, U any] struct {
	kind   entities.Kind
	store  *store.Store[T, C, U]
	list   func(ctx context.Context, filter ports.Filter) ([]T, error)
	logger *logger.Logger
}

func newResource[T store.Record[T], C any, U any](
	kind entities.Kind,
	s *store.Store[T, C, U],
	list func(ctx context.Context, filter ports.Filter) ([]T, error),
	log *logger.Logger,
) *resource[T, C, U] {
	return &resource[T, C, U]{kind: kind, store: s, list: list, logger: log.WithFields("kind", string(kind))}
}

func mount[T store.Record[T], C any, U any](g *echo.Group, r *resource[T, C, U]) {
	g.GET("", r.List)
	g.POST("", r.Create)
	g.PATCH("/:id", r.Update)
	g.POST("/:id/archive", r.Archive)
	g.POST("/:id/restore", r.Restore)
	if r.store.CanComplete() {
		g.POST("/:id/complete", r.Complete)
		g.POST("/:id/uncomplete", r.Uncomplete)
	}
}

// List returns the entities matching the parent_id, include_archived,
// search, limit, due_after and due_before query parameters.
func (r *resource[T, C, U]) List(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	items, err := r.list(c.Request().Context(), filter)
	if err != nil {
		r.logger.Errorw("List failed", "error", err)
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (r *resource[T, C, U]) Create(c echo.Context) error {
	var req C
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := r.store.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (r *resource[T, C, U]) Update(c echo.Context) error {
	var req U
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	item, err := r.store.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Archive archives a single entity. Cascades go through /cascade/archive.
func (r *resource[T, C, U]) Archive(c echo.Context) error {
	if err := r.store.Archive(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *resource[T, C, U]) Restore(c echo.Context) error {
	if err := r.store.Restore(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *resource[T, C, U]) Complete(c echo.Context) error {
	item, err := r.store.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (r *resource[T, C, U]) Uncomplete(c echo.Context) error {
	item, err := r.store.Uncomplete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}
