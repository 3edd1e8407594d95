package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrec/medrec/internal/platform/apperror"
	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/rbac"
)

// passRunner runs the function without a real transaction.
type passRunner struct{}

func (passRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRepo struct {
	appts          map[uuid.UUID]*Appointment
	messages       []*Message
	feedback       map[uuid.UUID]*Feedback // by appointment id
	reminders      map[uuid.UUID]*Reminder
	patientsByUser map[uuid.UUID]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		appts:          make(map[uuid.UUID]*Appointment),
		feedback:       make(map[uuid.UUID]*Feedback),
		reminders:      make(map[uuid.UUID]*Reminder),
		patientsByUser: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return m.Get(ctx, id)
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return apperror.NotFound("appointment not found")
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if f.PatientUserID != uuid.Nil && a.PatientUserID != f.PatientUserID {
			continue
		}
		if f.ProviderID != uuid.Nil && a.ProviderID != f.ProviderID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (m *mockRepo) ResolvePatientByUser(_ context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id, ok := m.patientsByUser[userID]
	if !ok {
		return uuid.Nil, apperror.NotFound("no patient profile for this user")
	}
	return id, nil
}

func (m *mockRepo) AppendMessage(_ context.Context, msg *Message) error {
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *mockRepo) ListMessages(_ context.Context, appointmentID uuid.UUID) ([]*Message, error) {
	var out []*Message
	for _, msg := range m.messages {
		if msg.AppointmentID == appointmentID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockRepo) MarkMessagesRead(_ context.Context, appointmentID, reader uuid.UUID) (int, error) {
	n := 0
	now := time.Now()
	for _, msg := range m.messages {
		if msg.AppointmentID == appointmentID && msg.SenderID != reader && !msg.IsRead {
			msg.IsRead = true
			msg.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) CreateFeedback(_ context.Context, f *Feedback) error {
	if _, ok := m.feedback[f.AppointmentID]; ok {
		return apperror.Conflict("feedback already submitted for this appointment")
	}
	f.ID = uuid.New()
	cp := *f
	m.feedback[f.AppointmentID] = &cp
	return nil
}

func (m *mockRepo) GetFeedback(_ context.Context, appointmentID uuid.UUID) (*Feedback, error) {
	f, ok := m.feedback[appointmentID]
	if !ok {
		return nil, apperror.NotFound("no feedback for this appointment")
	}
	cp := *f
	return &cp, nil
}

func (m *mockRepo) CreateReminder(_ context.Context, r *Reminder) error {
	r.ID = uuid.New()
	cp := *r
	m.reminders[r.ID] = &cp
	return nil
}

func (m *mockRepo) ListDueReminders(_ context.Context, now time.Time, limit int) ([]*Reminder, error) {
	var out []*Reminder
	for _, r := range m.reminders {
		if !r.Sent && !r.ScheduledFor.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	r, ok := m.reminders[id]
	if !ok || r.Sent {
		return apperror.NotFound("reminder not found or already sent")
	}
	r.Sent = true
	now := time.Now()
	r.SentAt = &now
	return nil
}

// -- Helpers --

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

type fixture struct {
	svc      *Service
	repo     *mockRepo
	patient  auth.Actor
	provider auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	patient := auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}
	repo.patientsByUser[patient.ID] = uuid.New()
	return &fixture{
		svc:      NewService(repo, passRunner{}),
		repo:     repo,
		patient:  patient,
		provider: auth.Actor{ID: uuid.New(), Role: rbac.RoleDoctor},
	}
}

func (f *fixture) request(t *testing.T, at string) *Appointment {
	t.Helper()
	a, err := f.svc.Request(context.Background(), f.patient, CreateInput{
		ProviderID:           f.provider.ID,
		Title:                "checkup",
		AppointmentType:      TypeCheckup,
		PatientSuggestedTime: mustTime(t, at),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) messageCount(id uuid.UUID) int {
	out, _ := f.repo.ListMessages(context.Background(), id)
	return len(out)
}

// -- Lifecycle --

func TestRequest(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	assert.Equal(t, StatusRequested, a.Status)
	assert.Equal(t, f.repo.patientsByUser[f.patient.ID], a.PatientID)
	assert.Equal(t, f.provider.ID, a.ProviderID)
	assert.Nil(t, a.ConfirmedTime)
	assert.Equal(t, 1, f.messageCount(a.ID), "request logs a thread message")

	// Staff cannot open negotiations.
	_, err := f.svc.Request(context.Background(), f.provider, CreateInput{
		ProviderID: f.provider.ID, PatientSuggestedTime: mustTime(t, "2025-01-10T09:00:00Z"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	// A patient without a profile cannot either.
	stranger := auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}
	_, err = f.svc.Request(context.Background(), stranger, CreateInput{
		ProviderID: f.provider.ID, PatientSuggestedTime: mustTime(t, "2025-01-10T09:00:00Z"),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestProposeConfirmScenario(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	proposed := mustTime(t, "2025-01-10T10:00:00Z")
	a, err := f.svc.ProposeTime(context.Background(), f.provider, a.ID, proposed)
	require.NoError(t, err)
	assert.Equal(t, StatusProposed, a.Status)
	require.NotNil(t, a.ProviderProposedTime)
	assert.True(t, a.ProviderProposedTime.Equal(proposed))

	// Patient confirms without an explicit time: the provider's proposal wins.
	a, err = f.svc.Confirm(context.Background(), f.patient, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)
	require.NotNil(t, a.ConfirmedTime)
	assert.True(t, a.ConfirmedTime.Equal(proposed))

	assert.Equal(t, 3, f.messageCount(a.ID), "each transition appends a message")
}

func TestConfirmFallsBackToSuggestedTime(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	// No proposal was made; confirming falls back to the patient's suggestion.
	a, err := f.svc.Confirm(context.Background(), f.provider, a.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, a.ConfirmedTime)
	assert.True(t, a.ConfirmedTime.Equal(mustTime(t, "2025-01-10T09:00:00Z")))
}

func TestConfirmExplicitTimeWins(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	_, err := f.svc.ProposeTime(context.Background(), f.provider, a.ID, mustTime(t, "2025-01-10T10:00:00Z"))
	require.NoError(t, err)

	explicit := mustTime(t, "2025-01-11T14:00:00Z")
	a, err = f.svc.Confirm(context.Background(), f.patient, a.ID, &explicit)
	require.NoError(t, err)
	assert.True(t, a.ConfirmedTime.Equal(explicit))
}

func TestProposeIsProviderOnly(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	for _, actor := range []auth.Actor{
		f.patient,
		{ID: uuid.New(), Role: rbac.RoleDoctor}, // some other doctor
		{ID: uuid.New(), Role: rbac.RoleAdmin},
	} {
		_, err := f.svc.ProposeTime(context.Background(), actor, a.ID, mustTime(t, "2025-01-10T10:00:00Z"))
		assert.True(t, apperror.IsKind(err, apperror.KindAuthorization), "role %s", actor.Role)
	}
}

func TestStrictPreconditions(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	// Complete and no-show need a confirmed appointment.
	_, err := f.svc.Complete(context.Background(), f.provider, a.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	_, err = f.svc.NoShow(context.Background(), f.provider, a.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	_, err = f.svc.Reschedule(context.Background(), f.provider, a.ID, mustTime(t, "2025-02-01T09:00:00Z"))
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	// Once cancelled, nothing else moves.
	_, err = f.svc.Cancel(context.Background(), f.patient, a.ID, "changed my mind")
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), f.provider, a.ID, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	_, err = f.svc.ProposeTime(context.Background(), f.provider, a.ID, mustTime(t, "2025-01-10T10:00:00Z"))
	assert.True(t, apperror.IsKind(err, apperror.KindState))
}

func TestCancelStoresReason(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	admin := auth.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}
	a, err := f.svc.Cancel(context.Background(), admin, a.ID, "provider unavailable")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, a.Status)
	require.NotNil(t, a.CancellationReason)
	assert.Equal(t, "provider unavailable", *a.CancellationReason)

	// A non-participant non-admin cannot cancel.
	b := f.request(t, "2025-01-12T09:00:00Z")
	nurse := auth.Actor{ID: uuid.New(), Role: rbac.RoleNurse}
	_, err = f.svc.Cancel(context.Background(), nurse, b.ID, "")
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")
	_, err := f.svc.Confirm(context.Background(), f.provider, a.ID, nil)
	require.NoError(t, err)

	// Only the provider completes.
	_, err = f.svc.Complete(context.Background(), f.patient, a.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	a, err = f.svc.Complete(context.Background(), f.provider, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.NotNil(t, a.ActualEndTime)
}

func TestRescheduleScenario(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")
	_, err := f.svc.Confirm(context.Background(), f.provider, a.ID, nil)
	require.NoError(t, err)

	newTime := mustTime(t, "2025-02-01T09:00:00Z")
	fresh, err := f.svc.Reschedule(context.Background(), f.provider, a.ID, newTime)
	require.NoError(t, err)

	old, err := f.repo.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, old.Status)

	assert.Equal(t, StatusRequested, fresh.Status)
	require.NotNil(t, fresh.RescheduledFrom)
	assert.Equal(t, a.ID, *fresh.RescheduledFrom)
	assert.True(t, fresh.PatientSuggestedTime.Equal(newTime))
	assert.Equal(t, a.PatientID, fresh.PatientID)
	assert.Equal(t, a.ProviderID, fresh.ProviderID)

	// The chain is forward-only: the retired row never moves again, so a
	// cycle back into it is unreachable.
	_, err = f.svc.Reschedule(context.Background(), f.provider, a.ID, newTime)
	assert.True(t, apperror.IsKind(err, apperror.KindState))
}

// -- Visibility --

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	mine := f.request(t, "2025-01-10T09:00:00Z")

	// Another patient with their own appointment.
	other := auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}
	f.repo.patientsByUser[other.ID] = uuid.New()
	theirs, err := f.svc.Request(context.Background(), other, CreateInput{
		ProviderID:           uuid.New(),
		PatientSuggestedTime: mustTime(t, "2025-01-11T09:00:00Z"),
	})
	require.NoError(t, err)

	// Patients only ever see rows they participate in.
	out, total, err := f.svc.List(context.Background(), f.patient, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, out, 1)
	assert.Equal(t, mine.ID, out[0].ID)

	// Providers see their own schedule.
	out, _, err = f.svc.List(context.Background(), f.provider, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, mine.ID, out[0].ID)

	// Admin sees everything.
	admin := auth.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}
	_, total, err = f.svc.List(context.Background(), admin, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Detail access follows the same rule.
	_, err = f.svc.Get(context.Background(), f.patient, theirs.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	_, err = f.svc.Get(context.Background(), admin, theirs.ID)
	assert.NoError(t, err)
}

// -- Messages --

func TestMessages(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	_, err := f.svc.AddMessage(context.Background(), f.provider, a.ID, "does 10am work instead?")
	require.NoError(t, err)

	_, err = f.svc.AddMessage(context.Background(), f.provider, a.ID, "")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	stranger := auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}
	_, err = f.svc.AddMessage(context.Background(), stranger, a.ID, "hello")
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	msgs, err := f.svc.ListMessages(context.Background(), f.patient, a.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2) // the request log entry plus the provider's message

	// The patient marks the provider's message read; their own stays untouched.
	n, err := f.svc.MarkMessagesRead(context.Background(), f.patient, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Idempotent on a second pass.
	n, err = f.svc.MarkMessagesRead(context.Background(), f.patient, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// -- Feedback --

func TestFeedback(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")

	// Not completed yet.
	_, err := f.svc.AddFeedback(context.Background(), f.patient, a.ID, FeedbackInput{Rating: 5})
	assert.True(t, apperror.IsKind(err, apperror.KindState))

	_, err = f.svc.Confirm(context.Background(), f.provider, a.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Complete(context.Background(), f.provider, a.ID)
	require.NoError(t, err)

	// Only the owning patient may rate.
	_, err = f.svc.AddFeedback(context.Background(), f.provider, a.ID, FeedbackInput{Rating: 5})
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	fb, err := f.svc.AddFeedback(context.Background(), f.patient, a.ID, FeedbackInput{Rating: 4, Comment: "helpful"})
	require.NoError(t, err)
	assert.Equal(t, 4, fb.Rating)

	// One rating per appointment.
	_, err = f.svc.AddFeedback(context.Background(), f.patient, a.ID, FeedbackInput{Rating: 2})
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	got, err := f.svc.GetFeedback(context.Background(), f.provider, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fb.ID, got.ID)
}

// -- Reminders --

func TestReminders(t *testing.T) {
	f := newFixture(t)
	a := f.request(t, "2025-01-10T09:00:00Z")
	admin := auth.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}

	r, err := f.svc.ScheduleReminder(context.Background(), f.provider, a.ID, mustTime(t, "2025-01-09T09:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, a.PatientUserID, r.RecipientID)

	stranger := auth.Actor{ID: uuid.New(), Role: rbac.RoleNurse}
	_, err = f.svc.ScheduleReminder(context.Background(), stranger, a.ID, mustTime(t, "2025-01-09T09:00:00Z"))
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	// Only admin roles poll the due queue.
	_, err = f.svc.ListDueReminders(context.Background(), f.provider, 10)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	due, err := f.svc.ListDueReminders(context.Background(), admin, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, f.svc.MarkReminderSent(context.Background(), admin, due[0].ID))

	due, err = f.svc.ListDueReminders(context.Background(), admin, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Acknowledging twice fails.
	err = f.svc.MarkReminderSent(context.Background(), admin, r.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
