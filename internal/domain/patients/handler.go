package patients

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
	api.POST("/patients/me", h.CreateMyProfile)
	api.GET("/patients/me", h.MyProfile)
	api.GET("/patients", h.List)
	api.GET("/patients/:id", h.Get)
	api.PATCH("/patients/:id", h.Update)

	api.POST("/patients/:id/notes", h.AddNote)
	api.GET("/patients/:id/notes", h.ListNotes)

	api.POST("/patients/:id/allergies", h.AddAllergy)
	api.GET("/patients/:id/allergies", h.ListAllergies)
	api.DELETE("/allergies/:id", h.RemoveAllergy)

	api.POST("/patients/:id/medications", h.AddMedication)
	api.GET("/patients/:id/medications", h.ListMedications)
	api.POST("/medications/:id/deactivate", h.DeactivateMedication)
	api.POST("/medications/:id/reactivate", h.ReactivateMedication)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateMyProfile(c echo.Context) error {
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreateProfile(c.Request().Context(), auth.MustActor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) MyProfile(c echo.Context) error {
	p, err := h.svc.MyProfile(c.Request().Context(), auth.MustActor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	out, total, err := h.svc.List(c.Request().Context(), auth.MustActor(c), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) AddNote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in NoteInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n, err := h.svc.AddNote(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNotes(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	notes, err := h.svc.ListNotes(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *Handler) AddAllergy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AllergyInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.AddAllergy(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListAllergies(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListAllergies(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) RemoveAllergy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RemoveAllergy(c.Request().Context(), auth.MustActor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddMedication(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in MedicationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.AddMedication(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.ListMedications(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) DeactivateMedication(c echo.Context) error {
	return h.setMedicationActive(c, false)
}

func (h *Handler) ReactivateMedication(c echo.Context) error {
	return h.setMedicationActive(c, true)
}

func (h *Handler) setMedicationActive(c echo.Context, active bool) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.SetMedicationActive(c.Request().Context(), auth.MustActor(c), id, active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
