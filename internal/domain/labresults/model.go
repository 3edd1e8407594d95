package labresults

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/apperror"
)

// Lab test categories.
const (
	CategoryBlood        = "blood"
	CategoryUrine        = "urine"
	CategoryImaging      = "imaging"
	CategoryPathology    = "pathology"
	CategoryMicrobiology = "microbiology"
	CategoryGenetic      = "genetic"
)

var validCategories = map[string]bool{
	CategoryBlood: true, CategoryUrine: true, CategoryImaging: true,
	CategoryPathology: true, CategoryMicrobiology: true, CategoryGenetic: true,
}

// Order statuses form a linear pipeline with cancellation possible before
// completion.
type OrderStatus string

const (
	OrderOrdered    OrderStatus = "ordered"
	OrderCollected  OrderStatus = "collected"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// nextOrderStatus maps each status to its allowed successors.
var nextOrderStatus = map[OrderStatus][]OrderStatus{
	OrderOrdered:    {OrderCollected, OrderCancelled},
	OrderCollected:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderCompleted, OrderCancelled},
}

func checkOrderTransition(from, to OrderStatus) error {
	for _, s := range nextOrderStatus[from] {
		if to == s {
			return nil
		}
	}
	return apperror.State("lab order cannot move from %s to %s", from, to)
}

// Priorities.
const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

var validPriorities = map[string]bool{
	PriorityRoutine: true, PriorityUrgent: true, PriorityStat: true,
}

// LabTestType is a catalog entry describing one orderable test.
type LabTestType struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Category      string    `db:"category" json:"category"`
	Unit          string    `db:"unit" json:"unit,omitempty"`
	ReferenceLow  *float64  `db:"reference_low" json:"reference_low,omitempty"`
	ReferenceHigh *float64  `db:"reference_high" json:"reference_high,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// LabOrder is one requested test for one patient.
type LabOrder struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	TestTypeID     uuid.UUID   `db:"test_type_id" json:"test_type_id"`
	OrderedBy      uuid.UUID   `db:"ordered_by" json:"ordered_by"`
	Status         OrderStatus `db:"status" json:"status"`
	Priority       string      `db:"priority" json:"priority"`
	ClinicalNotes  string      `db:"clinical_notes" json:"clinical_notes,omitempty"`
	CollectedAt    *time.Time  `db:"collected_at" json:"collected_at,omitempty"`
	CollectedBy    *uuid.UUID  `db:"collected_by" json:"collected_by,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`

	// Joined for scoping and display.
	PatientUserID uuid.UUID `db:"patient_user_id" json:"patient_user_id"`
	TestName      string    `db:"test_name" json:"test_name"`
}

// LabResult is one measured parameter on a completed or in-flight order.
type LabResult struct {
	ID            uuid.UUID `db:"id" json:"id"`
	OrderID       uuid.UUID `db:"order_id" json:"order_id"`
	Parameter     string    `db:"parameter" json:"parameter"`
	Value         string    `db:"value" json:"value"`
	Unit          string    `db:"unit" json:"unit,omitempty"`
	ReferenceLow  *float64  `db:"reference_low" json:"reference_low,omitempty"`
	ReferenceHigh *float64  `db:"reference_high" json:"reference_high,omitempty"`
	IsAbnormal    bool      `db:"is_abnormal" json:"is_abnormal"`
	UploadedBy    uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// deriveAbnormal flags a numeric value falling outside the reference range.
// Non-numeric values are never auto-flagged.
func deriveAbnormal(value string, low, high *float64) bool {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}
	if low != nil && v < *low {
		return true
	}
	if high != nil && v > *high {
		return true
	}
	return false
}

type TestTypeInput struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Unit          string   `json:"unit"`
	ReferenceLow  *float64 `json:"reference_low"`
	ReferenceHigh *float64 `json:"reference_high"`
}

func (in TestTypeInput) validate() error {
	if in.Name == "" {
		return apperror.Validation("test name is required")
	}
	if !validCategories[in.Category] {
		return apperror.Validation("unknown test category: %s", in.Category)
	}
	return nil
}

type OrderInput struct {
	PatientID     uuid.UUID `json:"patient_id"`
	TestTypeID    uuid.UUID `json:"test_type_id"`
	Priority      string    `json:"priority"`
	ClinicalNotes string    `json:"clinical_notes"`
}

func (in OrderInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperror.Validation("patient_id is required")
	}
	if in.TestTypeID == uuid.Nil {
		return apperror.Validation("test_type_id is required")
	}
	if in.Priority != "" && !validPriorities[in.Priority] {
		return apperror.Validation("unknown priority: %s", in.Priority)
	}
	return nil
}

type ResultInput struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
	Unit      string `json:"unit"`
}

func (in ResultInput) validate() error {
	if in.Parameter == "" {
		return apperror.Validation("parameter is required")
	}
	if in.Value == "" {
		return apperror.Validation("value is required")
	}
	return nil
}
