package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/user-accounts/internal/core/domain"
	"github.com/99minutos/user-accounts/internal/core/ports"
)

const defaultPageLimit = 100

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type updateUserRequest struct {
	Email    *string `json:"email,omitempty"     validate:"omitempty,email"`
	Username *string `json:"username,omitempty"  validate:"omitempty,min=3,max=50"`
	Password *string `json:"password,omitempty"  validate:"omitempty,min=8,maxbytes=72"`
	IsActive *bool   `json:"is_active,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func (r updateUserRequest) toDomain() domain.UserUpdate {
	u := domain.UserUpdate{
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
		IsActive: r.IsActive,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		u.Role = &role
	}
	return u
}

// List returns a page of users. Admin only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Number of users to skip"  default(0)
// @Param        limit  query     int  false  "Page size (1-100)"        default(100)
// @Success      200    {array}   domain.PublicUser
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}

	var skip int64
	limit := int64(defaultPageLimit)
	if err := echo.QueryParamsBinder(c).
		Int64("skip", &skip).
		Int64("limit", &limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "skip and limit must be integers")
	}

	users, err := h.userService.ListUsers(c.Request().Context(), user, skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Update modifies a user. Callers may update themselves; admins may update
// anyone. Only admins may change role or is_active.
//
// @Summary      Update user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.PublicUser
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.userService.UpdateUser(c.Request().Context(), user, c.Param("id"), req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a user. Admin only.
//
// @Summary      Delete user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	user, err := actor(c)
	if err != nil {
		return err
	}

	if err := h.userService.DeleteUser(c.Request().Context(), user, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
