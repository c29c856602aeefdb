package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// ProfileHandler exposes the caller's profile and username changes.
type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get handles GET /v1/profile. The profile is created on first access.
//
// @Summary      My profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	profile, err := h.profiles.EnsureProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Rename handles PUT /v1/profile/username.
//
// @Summary      Change my username
// @Description  Rewrites the author name on every public goal in one batch.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      renameRequest  true  "New username"
// @Success      200   {object}  renameResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/profile/username [put]
func (h *ProfileHandler) Rename(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req renameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	name := strings.TrimSpace(req.Username)
	if name == "" {
		return domain.ErrInvalidUsername
	}

	renamed, err := h.profiles.Rename(c.Request().Context(), id.UID, name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, renameResponse{Username: name, Renamed: renamed})
}
