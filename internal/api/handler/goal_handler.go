package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// GoalHandler handles HTTP requests for the caller's private goals.
type GoalHandler struct {
	service ports.GoalSyncService
}

func NewGoalHandler(service ports.GoalSyncService) *GoalHandler {
	return &GoalHandler{service: service}
}

// Create handles POST /v1/goals.
//
// @Summary      Create a goal
// @Description  Writes the private goal and, when public is true, its feed mirror.
// @Tags         goals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createGoalRequest  true  "Goal details"
// @Success      201   {object}  goalResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse  "a create is already in flight"
// @Failure      502   {object}  errorResponse  "goal stored, mirror write failed"
// @Router       /v1/goals [post]
func (h *GoalHandler) Create(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req createGoalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	in, err := toNewGoalInput(req)
	if err != nil {
		return err
	}

	goal, err := h.service.Create(c.Request().Context(), toAuthor(id, req.AuthorName), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toGoalResponse(goal))
}

// List handles GET /v1/goals.
//
// @Summary      List my goals
// @Tags         goals
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  false  "all, one, daily or weekly"
// @Success      200   {object}  listGoalsResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/goals [get]
func (h *GoalHandler) List(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	filter, err := domain.ParseGoalFilter(c.QueryParam("type"))
	if err != nil {
		return err
	}

	goals, err := h.service.ListMine(c.Request().Context(), id.UID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listGoalsResponse{Data: toGoalResponses(goals)})
}

// Get handles GET /v1/goals/:id.
//
// @Summary      Get one of my goals
// @Tags         goals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Goal id"
// @Success      200  {object}  goalResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/goals/{id} [get]
func (h *GoalHandler) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	goal, err := h.service.Get(c.Request().Context(), id.UID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toGoalResponse(goal))
}

// Update handles PATCH /v1/goals/:id.
//
// @Summary      Update a goal
// @Description  Sparse update. The mirror follows the goal's public flag after the write.
// @Tags         goals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Goal id"
// @Param        body  body      updateGoalRequest  true  "Fields to change"
// @Success      200   {object}  goalResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      502   {object}  errorResponse  "goal stored, mirror write failed"
// @Router       /v1/goals/{id} [patch]
func (h *GoalHandler) Update(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateGoalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	patch, err := toGoalPatch(req)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	goalID := c.Param("id")
	if err := h.service.Update(ctx, id.UID, goalID, patch, nil); err != nil {
		return err
	}

	goal, err := h.service.Get(ctx, id.UID, goalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toGoalResponse(goal))
}

// Delete handles DELETE /v1/goals/:id.
//
// @Summary      Delete a goal
// @Tags         goals
// @Security     BearerAuth
// @Param        id   path  string  true  "Goal id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      502  {object}  errorResponse  "goal deleted, mirror delete failed"
// @Router       /v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	goalID := c.Param("id")
	goal, err := h.service.Get(ctx, id.UID, goalID)
	if err != nil {
		return err
	}

	if err := h.service.Delete(ctx, id.UID, goalID, goal.Public); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
