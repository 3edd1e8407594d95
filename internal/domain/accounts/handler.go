package accounts

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/rbac"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer *auth.Issuer
}

func NewHandler(svc *Service, issuer *auth.Issuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterPublicRoutes mounts the unauthenticated registration/login
// endpoints.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/register/patient", h.RegisterPatient)
	g.POST("/auth/register/staff", h.RegisterStaff)
	g.POST("/auth/login", h.Login)
}

// RegisterRoutes mounts the authenticated user and admin endpoints.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/users/me", h.Me)
	api.PATCH("/users/me", h.UpdateMe)

	admin := api.Group("/admin", auth.RequireCapability("manage users", rbac.CanManageRoles))
	admin.GET("/users", h.ListUsers)
	admin.GET("/users/stats", h.UserStats)
	admin.GET("/users/:id", h.GetUser)
	admin.POST("/users/:id/verify", h.VerifyUser)
	admin.POST("/users/:id/deactivate", h.DeactivateUser)
	admin.POST("/users/:id/reactivate", h.ReactivateUser)
	admin.POST("/users/:id/update-role", h.UpdateRole)
}

type authResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message,omitempty"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in PatientRegistration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.issuer.Mint(u.ID, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{
		User: u, Token: token, ExpiresAt: expiresAt,
		Message: "Patient account created successfully.",
	})
}

func (h *Handler) RegisterStaff(c echo.Context) error {
	var in StaffRegistration
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.RegisterStaff(c.Request().Context(), in)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.issuer.Mint(u.ID, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{
		User: u, Token: token, ExpiresAt: expiresAt,
		Message: "Staff account created successfully. Please wait for administrator verification.",
	})
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.Login(c.Request().Context(), in.Username, in.Password)
	if err != nil {
		return err
	}
	token, expiresAt, err := h.issuer.Mint(u.ID, u.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: u, Token: token, ExpiresAt: expiresAt})
}

func (h *Handler) Me(c echo.Context) error {
	actor := auth.MustActor(c)
	u, err := h.svc.Get(c.Request().Context(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateMe(c echo.Context) error {
	var in ProfileUpdate
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), auth.MustActor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), auth.MustActor(c), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, pg.Limit, pg.Offset))
}

func (h *Handler) UserStats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context(), auth.MustActor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) VerifyUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Verify(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeactivateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Deactivate(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ReactivateUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.Reactivate(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.ChangeRole(c.Request().Context(), auth.MustActor(c), id, in.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
