package reports

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

type mockRepo struct {
	reports       map[uuid.UUID]*Report
	patientOwners map[uuid.UUID]uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		reports:       make(map[uuid.UUID]*Report),
		patientOwners: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.PatientUserID = m.patientOwners[r.PatientID]
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperror.NotFound("report not found")
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *Report) error {
	if _, ok := m.reports[r.ID]; !ok {
		return apperror.NotFound("report not found")
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.reports[id]; !ok {
		return apperror.NotFound("report not found")
	}
	delete(m.reports, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Report, int, error) {
	var out []*Report
	for _, r := range m.reports {
		if f.PatientUserID != uuid.Nil && r.PatientUserID != f.PatientUserID {
			continue
		}
		if f.CreatedBy != uuid.Nil && r.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRepo) Stats(_ context.Context) (*DashboardStats, error) {
	return &DashboardStats{
		TotalReports:         len(m.reports),
		UsersByRole:          map[string]int{},
		AppointmentsByStatus: map[string]int{},
	}, nil
}

type repFixture struct {
	svc       *Service
	repo      *mockRepo
	doctor    auth.Actor
	patient   auth.Actor
	patientID uuid.UUID
}

func newRepFixture(t *testing.T) *repFixture {
	t.Helper()
	repo := newMockRepo()
	f := &repFixture{
		svc:       NewService(repo),
		repo:      repo,
		doctor:    auth.Actor{ID: uuid.New(), Role: rbac.RoleDoctor},
		patient:   auth.Actor{ID: uuid.New(), Role: rbac.RolePatient},
		patientID: uuid.New(),
	}
	repo.patientOwners[f.patientID] = f.patient.ID
	return f
}

func (f *repFixture) report(t *testing.T) *Report {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.doctor, ReportInput{
		PatientID: f.patientID, Title: "Discharge summary", Content: "recovered well",
	})
	require.NoError(t, err)
	return r
}

func TestCreateReport(t *testing.T) {
	f := newRepFixture(t)

	r := f.report(t)
	assert.Equal(t, f.doctor.ID, r.CreatedBy)

	// Radiologists and lab scientists write reports; patients and
	// pharmacists do not.
	for _, role := range []rbac.Role{rbac.RoleRadiologist, rbac.RoleLabScientist, rbac.RoleNurse} {
		_, err := f.svc.Create(context.Background(), auth.Actor{ID: uuid.New(), Role: role}, ReportInput{
			PatientID: f.patientID, Title: "x", Content: "y",
		})
		assert.NoError(t, err, "role %s", role)
	}
	for _, role := range []rbac.Role{rbac.RolePatient, rbac.RolePharmacist} {
		_, err := f.svc.Create(context.Background(), auth.Actor{ID: uuid.New(), Role: role}, ReportInput{
			PatientID: f.patientID, Title: "x", Content: "y",
		})
		assert.True(t, apperror.IsKind(err, apperror.KindAuthorization), "role %s", role)
	}

	_, err := f.svc.Create(context.Background(), f.doctor, ReportInput{PatientID: f.patientID})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestReportOwnershipRecheck(t *testing.T) {
	f := newRepFixture(t)
	r := f.report(t)

	// The linked patient reads it.
	got, err := f.svc.Get(context.Background(), f.patient, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	// A different patient is rejected at the object level even though the
	// detail endpoint bypasses list filtering.
	_, err = f.svc.Get(context.Background(), auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}, r.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	// Nurses are not in the reports read-all set.
	_, err = f.svc.Get(context.Background(), auth.Actor{ID: uuid.New(), Role: rbac.RoleNurse}, r.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	_, err = f.svc.Get(context.Background(), auth.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}, r.ID)
	assert.NoError(t, err)
}

func TestReportListScoping(t *testing.T) {
	f := newRepFixture(t)
	f.report(t)

	out, total, err := f.svc.List(context.Background(), f.patient, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, out, 1)

	_, total, err = f.svc.List(context.Background(), auth.Actor{ID: uuid.New(), Role: rbac.RolePatient}, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestReportEditRights(t *testing.T) {
	f := newRepFixture(t)
	r := f.report(t)

	// Another doctor cannot edit someone else's report.
	otherDoc := auth.Actor{ID: uuid.New(), Role: rbac.RoleDoctor}
	_, err := f.svc.Update(context.Background(), otherDoc, r.ID, ReportInput{Title: "t", Content: "c"})
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	got, err := f.svc.Update(context.Background(), f.doctor, r.ID, ReportInput{Title: "Amended", Content: "updated"})
	require.NoError(t, err)
	assert.Equal(t, "Amended", got.Title)

	err = f.svc.Delete(context.Background(), otherDoc, r.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	admin := auth.Actor{ID: uuid.New(), Role: rbac.RoleAdmin}
	require.NoError(t, f.svc.Delete(context.Background(), admin, r.ID))
}

func TestDashboardStatsGate(t *testing.T) {
	f := newRepFixture(t)
	f.report(t)

	_, err := f.svc.Stats(context.Background(), f.doctor)
	assert.True(t, apperror.IsKind(err, apperror.KindAuthorization))

	stats, err := f.svc.Stats(context.Background(), auth.Actor{ID: uuid.New(), Role: rbac.RoleMasterAdmin})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalReports)
}
