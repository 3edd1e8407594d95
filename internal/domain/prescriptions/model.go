package prescriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
)

// Prescription statuses. Dispensing drives active -> partial -> dispensed by
// comparing cumulative dispensed quantity against the prescribed quantity.
type Status string

const (
	StatusActive    Status = "active"
	StatusPartial   Status = "partial"
	StatusDispensed Status = "dispensed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
)

// Dosage frequencies.
const (
	FreqOnceDaily   = "once_daily"
	FreqTwiceDaily  = "twice_daily"
	FreqThriceDaily = "three_times_daily"
	FreqFourDaily   = "four_times_daily"
	FreqAsNeeded    = "as_needed"
	FreqWeekly      = "weekly"
)

var validFrequencies = map[string]bool{
	FreqOnceDaily: true, FreqTwiceDaily: true, FreqThriceDaily: true,
	FreqFourDaily: true, FreqAsNeeded: true, FreqWeekly: true,
}

// Administration routes.
const (
	RouteOral       = "oral"
	RouteIV         = "intravenous"
	RouteIM         = "intramuscular"
	RouteTopical    = "topical"
	RouteInhalation = "inhalation"
	RouteSubcut     = "subcutaneous"
)

var validRoutes = map[string]bool{
	RouteOral: true, RouteIV: true, RouteIM: true,
	RouteTopical: true, RouteInhalation: true, RouteSubcut: true,
}

// Medication is a formulary catalog entry.
type Medication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	GenericName  string    `db:"generic_name" json:"generic_name,omitempty"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer,omitempty"`
	Strength     string    `db:"strength" json:"strength,omitempty"`
	Form         string    `db:"form" json:"form,omitempty"`
	IsControlled bool      `db:"is_controlled" json:"is_controlled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Prescription is one order for one medication for one patient.
type Prescription struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	MedicationID uuid.UUID  `db:"medication_id" json:"medication_id"`
	PrescribedBy uuid.UUID  `db:"prescribed_by" json:"prescribed_by"`
	Dosage       string     `db:"dosage" json:"dosage"`
	Frequency    string     `db:"frequency" json:"frequency"`
	Route        string     `db:"route" json:"route"`
	DurationDays int        `db:"duration_days" json:"duration_days"`
	Quantity     int        `db:"quantity" json:"quantity"`
	Refills      int        `db:"refills" json:"refills"`
	Instructions string     `db:"instructions" json:"instructions,omitempty"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	Status       Status     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// Joined for scoping and display.
	PatientUserID  uuid.UUID `db:"patient_user_id" json:"patient_user_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
}

// Dispensation records one hand-over of quantity units by a pharmacist.
type Dispensation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	PharmacistID   uuid.UUID `db:"pharmacist_id" json:"pharmacist_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type MedicationInput struct {
	Name         string `json:"name"`
	GenericName  string `json:"generic_name"`
	Manufacturer string `json:"manufacturer"`
	Strength     string `json:"strength"`
	Form         string `json:"form"`
	IsControlled bool   `json:"is_controlled"`
}

func (in MedicationInput) validate() error {
	if in.Name == "" {
		return apperror.Validation("medication name is required")
	}
	return nil
}

type PrescriptionInput struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	MedicationID uuid.UUID  `json:"medication_id"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency"`
	Route        string     `json:"route"`
	DurationDays int        `json:"duration_days"`
	Quantity     int        `json:"quantity"`
	Refills      int        `json:"refills"`
	Instructions string     `json:"instructions"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
}

func (in PrescriptionInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperror.Validation("patient_id is required")
	}
	if in.MedicationID == uuid.Nil {
		return apperror.Validation("medication_id is required")
	}
	if in.Dosage == "" {
		return apperror.Validation("dosage is required")
	}
	if !validFrequencies[in.Frequency] {
		return apperror.Validation("unknown frequency: %s", in.Frequency)
	}
	if !validRoutes[in.Route] {
		return apperror.Validation("unknown route: %s", in.Route)
	}
	if in.Quantity <= 0 {
		return apperror.Validation("quantity must be positive")
	}
	if in.Refills < 0 {
		return apperror.Validation("refills cannot be negative")
	}
	return nil
}

type DispenseInput struct {
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

func (in DispenseInput) validate() error {
	if in.Quantity <= 0 {
		return apperror.Validation("dispensed quantity must be positive")
	}
	return nil
}
