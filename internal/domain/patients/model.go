package patients

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
)

// Gender codes stored on the patient profile.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

func validGender(g string) bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Patient is the demographic profile, one row per patient-role user.
type Patient struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	UserID                uuid.UUID  `db:"user_id" json:"user_id"`
	Gender                string     `db:"gender" json:"gender"`
	DateOfBirth           *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Phone                 *string    `db:"phone" json:"phone,omitempty"`
	Address               *string    `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`

	// Joined from users for display.
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// ClinicalNote is a SOAP-structured note written by medical staff.
type ClinicalNote struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID   uuid.UUID `db:"author_id" json:"author_id"`
	Subjective string    `db:"subjective" json:"subjective"`
	Objective  string    `db:"objective" json:"objective"`
	Assessment string    `db:"assessment" json:"assessment"`
	Plan       string    `db:"plan" json:"plan"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Allergy severity scale.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

func validSeverity(s string) bool {
	return s == SeverityMild || s == SeverityModerate || s == SeveritySevere
}

type Allergy struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Allergen   string    `db:"allergen" json:"allergen"`
	Reaction   string    `db:"reaction" json:"reaction"`
	Severity   string    `db:"severity" json:"severity"`
	RecordedBy uuid.UUID `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PatientMedication tracks what the patient currently or historically takes.
// It is a chart entry, not a dispensable prescription.
type PatientMedication struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	Name       string    `db:"name" json:"name"`
	Dosage     string    `db:"dosage" json:"dosage"`
	Frequency  string    `db:"frequency" json:"frequency"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	RecordedBy uuid.UUID `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type ProfileInput struct {
	Gender                string     `json:"gender"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Phone                 *string    `json:"phone"`
	Address               *string    `json:"address"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone"`
}

func (in ProfileInput) validate() error {
	if !validGender(in.Gender) {
		return apperror.Validation("gender must be one of M, F, O")
	}
	return nil
}

type NoteInput struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

type AllergyInput struct {
	Allergen string `json:"allergen"`
	Reaction string `json:"reaction"`
	Severity string `json:"severity"`
}

type MedicationInput struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}
