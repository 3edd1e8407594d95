package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/authz"
	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/rbac"
)

// Service drives the negotiation state machine. Every transition runs in one
// transaction with the appointment row locked, and appends a thread message
// inside that same transaction, so status, times and audit trail move
// together or not at all.
type Service struct {
	repo Repository
	tx   db.TxRunner
	now  func() time.Time
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx, now: time.Now}
}

func isAdmin(role rbac.Role) bool {
	return role == rbac.RoleAdmin || role == rbac.RoleMasterAdmin
}

func (s *Service) isParticipant(actor auth.Actor, a *Appointment) bool {
	return actor.ID == a.ProviderID || actor.ID == a.PatientUserID
}

// Request creates a new appointment in the requested state. Only patients
// open negotiations; providers respond by proposing or confirming.
func (s *Service) Request(ctx context.Context, actor auth.Actor, in CreateInput) (*Appointment, error) {
	if actor.Role != rbac.RolePatient {
		return nil, apperror.Authorization("only patients may request appointments")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var a *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patientID, err := s.repo.ResolvePatientByUser(ctx, actor.ID)
		if err != nil {
			return err
		}

		a = &Appointment{
			PatientID:            patientID,
			ProviderID:           in.ProviderID,
			Title:                in.Title,
			AppointmentType:      in.AppointmentType,
			Description:          in.Description,
			Reason:               in.Reason,
			Status:               StatusRequested,
			PatientSuggestedTime: in.PatientSuggestedTime,
			EstimatedDuration:    in.EstimatedDuration,
			CreatedBy:            actor.ID,
			PatientUserID:        actor.ID,
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		return s.repo.AppendMessage(ctx, &Message{
			AppointmentID: a.ID,
			SenderID:      actor.ID,
			Body:          "Appointment requested for " + in.PatientSuggestedTime.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// transition is the shared shape of every state change: lock the row, check
// who the actor is, check the source state, mutate, persist, log.
func (s *Service) transition(ctx context.Context, actor auth.Actor, id uuid.UUID, action string,
	authorize func(*Appointment) error, apply func(*Appointment) string) (*Appointment, error) {

	var a *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(a); err != nil {
			return err
		}
		if err := checkTransition(action, a.Status); err != nil {
			return err
		}

		body := apply(a)
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		return s.repo.AppendMessage(ctx, &Message{AppointmentID: a.ID, SenderID: actor.ID, Body: body})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) providerOnly(actor auth.Actor, verb string) func(*Appointment) error {
	return func(a *Appointment) error {
		if actor.ID != a.ProviderID {
			return apperror.Authorization("only the provider may %s", verb)
		}
		return nil
	}
}

func (s *Service) participantOnly(actor auth.Actor, verb string) func(*Appointment) error {
	return func(a *Appointment) error {
		if !s.isParticipant(actor, a) {
			return apperror.Authorization("only a participant may %s", verb)
		}
		return nil
	}
}

// ProposeTime is the provider's counter-offer to a requested appointment.
func (s *Service) ProposeTime(ctx context.Context, actor auth.Actor, id uuid.UUID, t time.Time) (*Appointment, error) {
	if t.IsZero() {
		return nil, apperror.Validation("proposed time is required")
	}
	return s.transition(ctx, actor, id, "propose",
		s.providerOnly(actor, "propose a time"),
		func(a *Appointment) string {
			a.Status = StatusProposed
			a.ProviderProposedTime = &t
			return "Provider proposed " + t.Format(time.RFC3339)
		})
}

// Confirm settles the appointment time. With no explicit time the provider's
// proposal wins, then the patient's suggestion; confirmed_time is never left
// empty on success.
func (s *Service) Confirm(ctx context.Context, actor auth.Actor, id uuid.UUID, explicit *time.Time) (*Appointment, error) {
	return s.transition(ctx, actor, id, "confirm",
		s.participantOnly(actor, "confirm the appointment"),
		func(a *Appointment) string {
			confirmed := a.PatientSuggestedTime
			if a.ProviderProposedTime != nil {
				confirmed = *a.ProviderProposedTime
			}
			if explicit != nil {
				confirmed = *explicit
			}
			a.Status = StatusConfirmed
			a.ConfirmedTime = &confirmed
			return "Appointment confirmed for " + confirmed.Format(time.RFC3339)
		})
}

// Cancel closes the negotiation. Admin roles may cancel on behalf of either
// side.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, actor, id, "cancel",
		func(a *Appointment) error {
			if !s.isParticipant(actor, a) && !isAdmin(actor.Role) {
				return apperror.Authorization("only a participant or an administrator may cancel")
			}
			return nil
		},
		func(a *Appointment) string {
			a.Status = StatusCancelled
			if reason != "" {
				a.CancellationReason = &reason
			}
			body := "Appointment cancelled"
			if reason != "" {
				body += ": " + reason
			}
			return body
		})
}

// Complete closes a confirmed appointment as held.
func (s *Service) Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, "complete",
		s.providerOnly(actor, "complete the appointment"),
		func(a *Appointment) string {
			now := s.now()
			a.Status = StatusCompleted
			if a.ActualStartTime == nil {
				a.ActualStartTime = a.ConfirmedTime
			}
			a.ActualEndTime = &now
			return "Appointment completed"
		})
}

// NoShow records that the patient did not attend.
func (s *Service) NoShow(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, actor, id, "no_show",
		s.providerOnly(actor, "record a no-show"),
		func(a *Appointment) string {
			a.Status = StatusNoShow
			return "Patient did not attend"
		})
}

// Reschedule retires a confirmed appointment and opens a fresh request for
// the new time. The old row keeps its history; the new row points back at it
// through rescheduled_from, so the chain only ever grows forward.
func (s *Service) Reschedule(ctx context.Context, actor auth.Actor, id uuid.UUID, newTime time.Time) (*Appointment, error) {
	if newTime.IsZero() {
		return nil, apperror.Validation("new time is required")
	}

	var fresh *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		old, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !s.isParticipant(actor, old) {
			return apperror.Authorization("only a participant may reschedule")
		}
		if err := checkTransition("reschedule", old.Status); err != nil {
			return err
		}

		old.Status = StatusRescheduled
		if err := s.repo.Update(ctx, old); err != nil {
			return err
		}

		fresh = &Appointment{
			PatientID:            old.PatientID,
			ProviderID:           old.ProviderID,
			Title:                old.Title,
			AppointmentType:      old.AppointmentType,
			Description:          old.Description,
			Reason:               old.Reason,
			Status:               StatusRequested,
			PatientSuggestedTime: newTime,
			EstimatedDuration:    old.EstimatedDuration,
			RescheduledFrom:      &old.ID,
			CreatedBy:            actor.ID,
			PatientUserID:        old.PatientUserID,
		}
		if err := s.repo.Create(ctx, fresh); err != nil {
			return err
		}
		return s.repo.AppendMessage(ctx, &Message{
			AppointmentID: old.ID,
			SenderID:      actor.ID,
			Body:          "Appointment rescheduled to " + newTime.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// Get returns one appointment, visible to its participants and to the
// admin read-all set.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, a) && !authz.CanReadAll(actor.Role, authz.Appointments) {
		return nil, apperror.Authorization("role %s may only access appointments they participate in", actor.Role)
	}
	return a, nil
}

// List returns the actor's appointments: patients see their own, staff see
// the ones they provide, admin roles see everything.
func (s *Service) List(ctx context.Context, actor auth.Actor, status Status, limit, offset int) ([]*Appointment, int, error) {
	f := ListFilter{Status: status, Limit: limit, Offset: offset}
	switch {
	case authz.CanReadAll(actor.Role, authz.Appointments):
		// unrestricted
	case actor.Role == rbac.RolePatient:
		f.PatientUserID = actor.ID
	default:
		f.ProviderID = actor.ID
	}
	return s.repo.List(ctx, f)
}

// -- Messages --

func (s *Service) AddMessage(ctx context.Context, actor auth.Actor, id uuid.UUID, body string) (*Message, error) {
	if body == "" {
		return nil, apperror.Validation("message body is required")
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, a) {
		return nil, apperror.Authorization("only a participant may post to this thread")
	}

	m := &Message{AppointmentID: a.ID, SenderID: actor.ID, Body: body}
	if err := s.repo.AppendMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]*Message, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, a) && !authz.CanReadAll(actor.Role, authz.Appointments) {
		return nil, apperror.Authorization("only a participant may read this thread")
	}
	return s.repo.ListMessages(ctx, a.ID)
}

// MarkMessagesRead marks everything the other side sent as read and returns
// how many messages that touched.
func (s *Service) MarkMessagesRead(ctx context.Context, actor auth.Actor, id uuid.UUID) (int, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !s.isParticipant(actor, a) {
		return 0, apperror.Authorization("only a participant may mark this thread read")
	}
	return s.repo.MarkMessagesRead(ctx, a.ID, actor.ID)
}

// -- Feedback --

// AddFeedback records the patient's one rating for a completed appointment.
func (s *Service) AddFeedback(ctx context.Context, actor auth.Actor, id uuid.UUID, in FeedbackInput) (*Feedback, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != a.PatientUserID {
		return nil, apperror.Authorization("only the appointment's patient may leave feedback")
	}
	if a.Status != StatusCompleted {
		return nil, apperror.State("feedback requires a completed appointment, not %s", a.Status)
	}

	f := &Feedback{AppointmentID: a.ID, PatientUserID: actor.ID, Rating: in.Rating, Comment: in.Comment}
	if err := s.repo.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) GetFeedback(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Feedback, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, a) && !authz.CanReadAll(actor.Role, authz.Appointments) {
		return nil, apperror.Authorization("only a participant may read this feedback")
	}
	return s.repo.GetFeedback(ctx, a.ID)
}

// -- Reminders --

// ScheduleReminder queues a reminder row for the external dispatcher. The
// recipient defaults to the patient.
func (s *Service) ScheduleReminder(ctx context.Context, actor auth.Actor, id uuid.UUID, at time.Time) (*Reminder, error) {
	if at.IsZero() {
		return nil, apperror.Validation("scheduled_for is required")
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.isParticipant(actor, a) && !isAdmin(actor.Role) {
		return nil, apperror.Authorization("only a participant or an administrator may schedule reminders")
	}

	r := &Reminder{AppointmentID: a.ID, RecipientID: a.PatientUserID, ScheduledFor: at}
	if err := s.repo.CreateReminder(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListDueReminders feeds the external dispatcher. Admin roles only; this
// service never sends notifications itself.
func (s *Service) ListDueReminders(ctx context.Context, actor auth.Actor, limit int) ([]*Reminder, error) {
	if !isAdmin(actor.Role) {
		return nil, apperror.Authorization("role %s may not poll reminders", actor.Role)
	}
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListDueReminders(ctx, s.now(), limit)
}

func (s *Service) MarkReminderSent(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if !isAdmin(actor.Role) {
		return apperror.Authorization("role %s may not acknowledge reminders", actor.Role)
	}
	return s.repo.MarkReminderSent(ctx, id)
}
