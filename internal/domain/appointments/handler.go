package appointments

import (
	"net/http"
	"time"

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
	api.POST("/appointments", h.Create)
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)

	api.POST("/appointments/:id/propose", h.Propose)
	api.POST("/appointments/:id/confirm", h.Confirm)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/complete", h.Complete)
	api.POST("/appointments/:id/no-show", h.NoShow)
	api.POST("/appointments/:id/reschedule", h.Reschedule)

	api.GET("/appointments/:id/messages", h.ListMessages)
	api.POST("/appointments/:id/messages", h.PostMessage)
	api.POST("/appointments/:id/messages/read", h.MarkMessagesRead)

	api.POST("/appointments/:id/feedback", h.PostFeedback)
	api.GET("/appointments/:id/feedback", h.GetFeedback)

	api.POST("/appointments/:id/reminders", h.ScheduleReminder)
	api.GET("/reminders/due", h.ListDueReminders)
	api.POST("/reminders/:id/sent", h.MarkReminderSent)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Request(c.Request().Context(), auth.MustActor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := Status(c.QueryParam("status"))
	out, total, err := h.svc.List(c.Request().Context(), auth.MustActor(c), status, pg.Limit, pg.Offset)
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
	a, err := h.svc.Get(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Propose(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		ProposedTime time.Time `json:"proposed_time"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.ProposeTime(c.Request().Context(), auth.MustActor(c), id, in.ProposedTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		ConfirmedTime *time.Time `json:"confirmed_time"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Confirm(c.Request().Context(), auth.MustActor(c), id, in.ConfirmedTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Cancel(c.Request().Context(), auth.MustActor(c), id, in.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Complete(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) NoShow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.NoShow(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		NewTime time.Time `json:"new_time"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), auth.MustActor(c), id, in.NewTime)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListMessages(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) PostMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.AddMessage(c.Request().Context(), auth.MustActor(c), id, in.Body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) MarkMessagesRead(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkMessagesRead(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"marked_read": n})
}

func (h *Handler) PostFeedback(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in FeedbackInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	f, err := h.svc.AddFeedback(c.Request().Context(), auth.MustActor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) GetFeedback(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.GetFeedback(c.Request().Context(), auth.MustActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ScheduleReminder(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in struct {
		ScheduledFor time.Time `json:"scheduled_for"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.ScheduleReminder(c.Request().Context(), auth.MustActor(c), id, in.ScheduledFor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListDueReminders(c echo.Context) error {
	pg := pagination.FromContext(c)
	out, err := h.svc.ListDueReminders(c.Request().Context(), auth.MustActor(c), pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) MarkReminderSent(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.MarkReminderSent(c.Request().Context(), auth.MustActor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
