package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
)

// Report is a narrative clinical document linked to one patient.
type Report struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	CreatedBy  uuid.UUID `db:"created_by" json:"created_by"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	ReportType string    `db:"report_type" json:"report_type,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// Joined from the patient row for the ownership re-check.
	PatientUserID uuid.UUID `db:"patient_user_id" json:"patient_user_id"`
}

// DashboardStats is the admin overview assembled from the other modules'
// tables.
type DashboardStats struct {
	TotalUsers           int            `json:"total_users"`
	UsersByRole          map[string]int `json:"users_by_role"`
	PendingVerification  int            `json:"pending_verification"`
	TotalAppointments    int            `json:"total_appointments"`
	AppointmentsByStatus map[string]int `json:"appointments_by_status"`
	TotalReports         int            `json:"total_reports"`
	ActivePrescriptions  int            `json:"active_prescriptions"`
}

type ReportInput struct {
	PatientID  uuid.UUID `json:"patient_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ReportType string    `json:"report_type"`
}

func (in ReportInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperror.Validation("patient_id is required")
	}
	if in.Title == "" {
		return apperror.Validation("title is required")
	}
	if in.Content == "" {
		return apperror.Validation("content is required")
	}
	return nil
}
