package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `a.id, a.patient_id, a.provider_id, a.title, a.appointment_type,
	a.description, a.reason, a.status, a.patient_suggested_time, a.provider_proposed_time,
	a.confirmed_time, a.estimated_duration_minutes, a.actual_start_time, a.actual_end_time,
	a.cancellation_reason, a.rescheduled_from, a.created_by, a.created_at, a.updated_at,
	p.user_id`

const apptFrom = ` FROM appointments a JOIN patients p ON p.id = a.patient_id`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.ProviderID, &a.Title, &a.AppointmentType,
		&a.Description, &a.Reason, &a.Status, &a.PatientSuggestedTime, &a.ProviderProposedTime,
		&a.ConfirmedTime, &a.EstimatedDuration, &a.ActualStartTime, &a.ActualEndTime,
		&a.CancellationReason, &a.RescheduledFrom, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("appointment not found")
	}
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, title, appointment_type,
			description, reason, status, patient_suggested_time, estimated_duration_minutes,
			rescheduled_from, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.PatientID, a.ProviderID, a.Title, a.AppointmentType,
		a.Description, a.Reason, a.Status, a.PatientSuggestedTime, a.EstimatedDuration,
		a.RescheduledFrom, a.CreatedBy)
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	// Lock the appointment row only; the joined patient row stays free.
	return scanAppt(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+apptFrom+` WHERE a.id = $1 FOR UPDATE OF a`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status=$2, provider_proposed_time=$3, confirmed_time=$4,
			actual_start_time=$5, actual_end_time=$6, cancellation_reason=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.ProviderProposedTime, a.ConfirmedTime,
		a.ActualStartTime, a.ActualEndTime, a.CancellationReason)
	return err
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Appointment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.PatientUserID != uuid.Nil {
		where += " AND p.user_id = " + arg(f.PatientUserID)
	}
	if f.ProviderID != uuid.Nil {
		where += " AND a.provider_id = " + arg(f.ProviderID)
	}
	if f.Status != "" {
		where += " AND a.status = " + arg(f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+apptFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + apptCols + apptFrom + where +
		` ORDER BY a.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ResolvePatientByUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id FROM patients WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperror.NotFound("no patient profile for this user")
	}
	return id, err
}

func (r *repoPG) AppendMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_messages (id, appointment_id, sender_id, body)
		VALUES ($1,$2,$3,$4)`,
		m.ID, m.AppointmentID, m.SenderID, m.Body)
	return err
}

func (r *repoPG) ListMessages(ctx context.Context, appointmentID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, sender_id, body, is_read, read_at, created_at
		FROM appointment_messages WHERE appointment_id = $1 ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.AppointmentID, &m.SenderID, &m.Body,
			&m.IsRead, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkMessagesRead(ctx context.Context, appointmentID, reader uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment_messages SET is_read = TRUE, read_at = NOW()
		WHERE appointment_id = $1 AND sender_id <> $2 AND NOT is_read`,
		appointmentID, reader)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) CreateFeedback(ctx context.Context, f *Feedback) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_feedback (id, appointment_id, patient_user_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)`,
		f.ID, f.AppointmentID, f.PatientUserID, f.Rating, f.Comment)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperror.Conflict("feedback already submitted for this appointment")
	}
	return err
}

func (r *repoPG) GetFeedback(ctx context.Context, appointmentID uuid.UUID) (*Feedback, error) {
	var f Feedback
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, appointment_id, patient_user_id, rating, comment, created_at
		FROM appointment_feedback WHERE appointment_id = $1`, appointmentID).
		Scan(&f.ID, &f.AppointmentID, &f.PatientUserID, &f.Rating, &f.Comment, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("no feedback for this appointment")
	}
	return &f, err
}

func (r *repoPG) CreateReminder(ctx context.Context, rem *Reminder) error {
	rem.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_reminders (id, appointment_id, recipient_id, scheduled_for)
		VALUES ($1,$2,$3,$4)`,
		rem.ID, rem.AppointmentID, rem.RecipientID, rem.ScheduledFor)
	return err
}

func (r *repoPG) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*Reminder, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, recipient_id, scheduled_for, sent, sent_at, created_at
		FROM appointment_reminders
		WHERE NOT sent AND scheduled_for <= $1
		ORDER BY scheduled_for LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.AppointmentID, &rem.RecipientID, &rem.ScheduledFor,
			&rem.Sent, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rem)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment_reminders SET sent = TRUE, sent_at = NOW() WHERE id = $1 AND NOT sent`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("reminder not found or already sent")
	}
	return nil
}
