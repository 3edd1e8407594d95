package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
)

// Status is the appointment negotiation state.
type Status string

const (
	StatusRequested   Status = "requested"
	StatusProposed    Status = "proposed"
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

// Type categorizes the visit.
type Type string

const (
	TypeCheckup      Type = "checkup"
	TypeFollowup     Type = "followup"
	TypeEmergency    Type = "emergency"
	TypeConsultation Type = "consultation"
	TypeProcedure    Type = "procedure"
	TypeVaccination  Type = "vaccination"
	TypeLabTest      Type = "lab_test"
	TypeImaging      Type = "imaging"
)

var validTypes = map[Type]bool{
	TypeCheckup: true, TypeFollowup: true, TypeEmergency: true, TypeConsultation: true,
	TypeProcedure: true, TypeVaccination: true, TypeLabTest: true, TypeImaging: true,
}

// transitionSources lists the states each transition may start from. A
// transition attempted from any other state is a state error, never a silent
// no-op.
var transitionSources = map[string][]Status{
	"propose":    {StatusRequested},
	"confirm":    {StatusRequested, StatusProposed},
	"cancel":     {StatusRequested, StatusProposed, StatusConfirmed},
	"complete":   {StatusConfirmed},
	"no_show":    {StatusConfirmed},
	"reschedule": {StatusConfirmed},
}

func checkTransition(action string, from Status) error {
	for _, s := range transitionSources[action] {
		if from == s {
			return nil
		}
	}
	return apperror.State("cannot %s an appointment in state %s", action, from)
}

// Appointment is one negotiation between a patient and a provider. A
// reschedule closes the row (status rescheduled) and spawns a fresh
// requested row pointing back through RescheduledFrom, so the chain is
// forward-only and can never cycle.
type Appointment struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID           uuid.UUID  `db:"provider_id" json:"provider_id"`
	Title                string     `db:"title" json:"title"`
	AppointmentType      Type       `db:"appointment_type" json:"appointment_type"`
	Description          string     `db:"description" json:"description,omitempty"`
	Reason               string     `db:"reason" json:"reason,omitempty"`
	Status               Status     `db:"status" json:"status"`
	PatientSuggestedTime time.Time  `db:"patient_suggested_time" json:"patient_suggested_time"`
	ProviderProposedTime *time.Time `db:"provider_proposed_time" json:"provider_proposed_time,omitempty"`
	ConfirmedTime        *time.Time `db:"confirmed_time" json:"confirmed_time,omitempty"`
	EstimatedDuration    int        `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	ActualStartTime      *time.Time `db:"actual_start_time" json:"actual_start_time,omitempty"`
	ActualEndTime        *time.Time `db:"actual_end_time" json:"actual_end_time,omitempty"`
	CancellationReason   *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	RescheduledFrom      *uuid.UUID `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	CreatedBy            uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`

	// Joined from the patient row so participant checks need no second query.
	PatientUserID uuid.UUID `db:"patient_user_id" json:"patient_user_id"`
}

// Message is one entry in the appointment's append-only thread.
type Message struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	SenderID      uuid.UUID  `db:"sender_id" json:"sender_id"`
	Body          string     `db:"body" json:"body"`
	IsRead        bool       `db:"is_read" json:"is_read"`
	ReadAt        *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Feedback is the patient's one rating per completed appointment.
type Feedback struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	PatientUserID uuid.UUID `db:"patient_user_id" json:"patient_user_id"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       string    `db:"comment" json:"comment,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Reminder is a due-time record polled by an external dispatcher. This
// service never sends anything itself.
type Reminder struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	AppointmentID uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	RecipientID   uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	ScheduledFor  time.Time  `db:"scheduled_for" json:"scheduled_for"`
	Sent          bool       `db:"sent" json:"sent"`
	SentAt        *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// CreateInput is the patient's initial request.
type CreateInput struct {
	ProviderID           uuid.UUID `json:"provider_id"`
	Title                string    `json:"title"`
	AppointmentType      Type      `json:"appointment_type"`
	Description          string    `json:"description"`
	Reason               string    `json:"reason"`
	PatientSuggestedTime time.Time `json:"patient_suggested_time"`
	EstimatedDuration    int       `json:"estimated_duration_minutes"`
}

func (in CreateInput) validate() error {
	if in.ProviderID == uuid.Nil {
		return apperror.Validation("provider_id is required")
	}
	if in.PatientSuggestedTime.IsZero() {
		return apperror.Validation("patient_suggested_time is required")
	}
	if in.AppointmentType != "" && !validTypes[in.AppointmentType] {
		return apperror.Validation("unknown appointment type: %s", in.AppointmentType)
	}
	if in.EstimatedDuration < 0 {
		return apperror.Validation("estimated duration cannot be negative")
	}
	return nil
}

type FeedbackInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in FeedbackInput) validate() error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperror.Validation("rating must be between 1 and 5")
	}
	return nil
}
