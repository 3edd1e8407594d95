package labresults

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func (r *repoPG) CreateTestType(ctx context.Context, tt *LabTestType) error {
	tt.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_test_types (id, name, category, unit, reference_low, reference_high, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		tt.ID, tt.Name, tt.Category, tt.Unit, tt.ReferenceLow, tt.ReferenceHigh, tt.IsActive)
	return err
}

func (r *repoPG) GetTestType(ctx context.Context, id uuid.UUID) (*LabTestType, error) {
	var tt LabTestType
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, category, unit, reference_low, reference_high, is_active, created_at
		FROM lab_test_types WHERE id = $1`, id).
		Scan(&tt.ID, &tt.Name, &tt.Category, &tt.Unit, &tt.ReferenceLow, &tt.ReferenceHigh,
			&tt.IsActive, &tt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("lab test type not found")
	}
	return &tt, err
}

func (r *repoPG) ListTestTypes(ctx context.Context, activeOnly bool) ([]*LabTestType, error) {
	query := `SELECT id, name, category, unit, reference_low, reference_high, is_active, created_at
		FROM lab_test_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LabTestType
	for rows.Next() {
		var tt LabTestType
		if err := rows.Scan(&tt.ID, &tt.Name, &tt.Category, &tt.Unit, &tt.ReferenceLow,
			&tt.ReferenceHigh, &tt.IsActive, &tt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &tt)
	}
	return out, rows.Err()
}

func (r *repoPG) SetTestTypeActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE lab_test_types SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("lab test type not found")
	}
	return nil
}

const orderCols = `o.id, o.patient_id, o.test_type_id, o.ordered_by, o.status, o.priority,
	o.clinical_notes, o.collected_at, o.collected_by, o.created_at, o.updated_at,
	p.user_id, tt.name`

const orderFrom = ` FROM lab_orders o
	JOIN patients p ON p.id = o.patient_id
	JOIN lab_test_types tt ON tt.id = o.test_type_id`

func scanOrder(row pgx.Row) (*LabOrder, error) {
	var o LabOrder
	err := row.Scan(&o.ID, &o.PatientID, &o.TestTypeID, &o.OrderedBy, &o.Status, &o.Priority,
		&o.ClinicalNotes, &o.CollectedAt, &o.CollectedBy, &o.CreatedAt, &o.UpdatedAt,
		&o.PatientUserID, &o.TestName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("lab order not found")
	}
	return &o, err
}

func (r *repoPG) CreateOrder(ctx context.Context, o *LabOrder) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_orders (id, patient_id, test_type_id, ordered_by, status, priority, clinical_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.PatientID, o.TestTypeID, o.OrderedBy, o.Status, o.Priority, o.ClinicalNotes)
	return err
}

func (r *repoPG) GetOrder(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+orderFrom+` WHERE o.id = $1`, id))
}

func (r *repoPG) UpdateOrder(ctx context.Context, o *LabOrder) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_orders SET status=$2, collected_at=$3, collected_by=$4, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Status, o.CollectedAt, o.CollectedBy)
	return err
}

func (r *repoPG) ListOrders(ctx context.Context, f OrderFilter) ([]*LabOrder, int, error) {
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
	if f.OrderedBy != uuid.Nil {
		where += " AND o.ordered_by = " + arg(f.OrderedBy)
	}
	if f.Status != "" {
		where += " AND o.status = " + arg(f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+orderFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderCols + orderFrom + where +
		` ORDER BY o.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*LabOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *repoPG) CreateResult(ctx context.Context, res *LabResult) error {
	res.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_results (id, order_id, parameter, value, unit, reference_low,
			reference_high, is_abnormal, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		res.ID, res.OrderID, res.Parameter, res.Value, res.Unit, res.ReferenceLow,
		res.ReferenceHigh, res.IsAbnormal, res.UploadedBy)
	return err
}

func (r *repoPG) ListResults(ctx context.Context, orderID uuid.UUID) ([]*LabResult, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, order_id, parameter, value, unit, reference_low, reference_high,
			is_abnormal, uploaded_by, created_at
		FROM lab_results WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LabResult
	for rows.Next() {
		var res LabResult
		if err := rows.Scan(&res.ID, &res.OrderID, &res.Parameter, &res.Value, &res.Unit,
			&res.ReferenceLow, &res.ReferenceHigh, &res.IsAbnormal, &res.UploadedBy,
			&res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
