package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/core/ports"
)

type ReconcileHandler struct {
	service ports.ReconcileService
}

func NewReconcileHandler(service ports.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{service: service}
}

// Run handles POST /v1/reconcile.
//
// @Summary      Repair my public goals
// @Description  Recreates missing or stale mirrors and removes orphaned ones.
// @Tags         goals
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  reconcileResponse
// @Failure      500  {object}  errorResponse
// @Router       /v1/reconcile [post]
func (h *ReconcileHandler) Run(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	plan, err := h.service.Reconcile(c.Request().Context(), id.UID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReconcileResponse(plan))
}
