package labresults

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/lab/test-types", h.ListTestTypes)
	api.POST("/lab/test-types", h.CreateTestType)
	api.POST("/lab/test-types/:id/retire", h.RetireTestType)

	api.POST("/lab/orders", h.CreateOrder)
	api.GET("/lab/orders", h.ListOrders)
	api.GET("/lab/orders/:id", h.GetOrder)
	api.POST("/lab/orders/:id/status", h.AdvanceOrder)

	api.POST("/lab/orders/:id/results", h.UploadResult)
	api.GET("/lab/orders/:id/results", h.ListResults)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) ListTestTypes(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	out, err := h.svc.ListTestTypes(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateTestType(c echo.Context) error {
	var in TestTypeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tt, err := h.svc.CreateTestType(c.Request().Context(), auth.MustActor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tt)
}

func (h *Handler) RetireTestType(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RetireTestType(c.Request().Context(), auth.MustActor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	var in OrderInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.CreateOrder(c.Request().Context(), auth.MustActor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := OrderStatus(c.QueryParam("status"))
	out, total, err := h.svc.ListOrders(c.Request().Context(), auth.MustActor(c), status, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	o, err := h.svc.GetOrder(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) AdvanceOrder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		Status OrderStatus `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.AdvanceOrder(c.Request().Context(), auth.MustActor(c), id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UploadResult(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in ResultInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UploadResult(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListResults(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListResults(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
