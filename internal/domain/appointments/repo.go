package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows the appointment list. Zero values mean no filter.
type ListFilter struct {
	PatientUserID uuid.UUID
	ProviderID    uuid.UUID
	Status        Status
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate loads the row with a row-level lock so concurrent
	// transitions on the same appointment serialize. Only meaningful inside
	// a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, f ListFilter) ([]*Appointment, int, error)

	// ResolvePatientByUser maps a patient-role user to their profile row.
	ResolvePatientByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)

	AppendMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]*Message, error)
	// MarkMessagesRead marks every unread message on the thread that was not
	// sent by reader.
	MarkMessagesRead(ctx context.Context, appointmentID, reader uuid.UUID) (int, error)

	CreateFeedback(ctx context.Context, f *Feedback) error
	GetFeedback(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error)

	CreateReminder(ctx context.Context, r *Reminder) error
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*Reminder, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}
