package prescriptions

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

func (r *repoPG) CreateMedication(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (id, name, generic_name, manufacturer, strength, form, is_controlled)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.Name, m.GenericName, m.Manufacturer, m.Strength, m.Form, m.IsControlled)
	return err
}

func (r *repoPG) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	var m Medication
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, name, generic_name, manufacturer, strength, form, is_controlled, created_at
		FROM medications WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.GenericName, &m.Manufacturer, &m.Strength, &m.Form,
			&m.IsControlled, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("medication not found")
	}
	return &m, err
}

func (r *repoPG) ListMedications(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	where := ""
	args := []interface{}{}
	if search != "" {
		where = ` WHERE name ILIKE $1 OR generic_name ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, generic_name, manufacturer, strength, form, is_controlled, created_at
		FROM medications%s ORDER BY name LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Medication
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.ID, &m.Name, &m.GenericName, &m.Manufacturer, &m.Strength,
			&m.Form, &m.IsControlled, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &m)
	}
	return out, total, rows.Err()
}

const rxCols = `rx.id, rx.patient_id, rx.medication_id, rx.prescribed_by, rx.dosage,
	rx.frequency, rx.route, rx.duration_days, rx.quantity, rx.refills, rx.instructions,
	rx.start_date, rx.end_date, rx.status, rx.created_at, rx.updated_at,
	p.user_id, m.name`

const rxFrom = ` FROM prescriptions rx
	JOIN patients p ON p.id = rx.patient_id
	JOIN medications m ON m.id = rx.medication_id`

func scanRx(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.MedicationID, &p.PrescribedBy, &p.Dosage,
		&p.Frequency, &p.Route, &p.DurationDays, &p.Quantity, &p.Refills, &p.Instructions,
		&p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		&p.PatientUserID, &p.MedicationName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("prescription not found")
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, medication_id, prescribed_by, dosage,
			frequency, route, duration_days, quantity, refills, instructions,
			start_date, end_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.PatientID, p.MedicationID, p.PrescribedBy, p.Dosage,
		p.Frequency, p.Route, p.DurationDays, p.Quantity, p.Refills, p.Instructions,
		p.StartDate, p.EndDate, p.Status)
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+rxFrom+` WHERE rx.id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanRx(r.conn(ctx).QueryRow(ctx,
		`SELECT `+rxCols+rxFrom+` WHERE rx.id = $1 FOR UPDATE OF rx`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescriptions SET status=$2, start_date=$3, end_date=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.StartDate, p.EndDate)
	return err
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Prescription, int, error) {
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
	if f.PrescribedBy != uuid.Nil {
		where += " AND rx.prescribed_by = " + arg(f.PrescribedBy)
	}
	if f.Status != "" {
		where += " AND rx.status = " + arg(f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+rxFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + rxCols + rxFrom + where +
		` ORDER BY rx.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanRx(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) CreateDispensation(ctx context.Context, d *Dispensation) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dispensations (id, prescription_id, pharmacist_id, quantity, notes)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.PrescriptionID, d.PharmacistID, d.Quantity, d.Notes)
	return err
}

func (r *repoPG) ListDispensations(ctx context.Context, prescriptionID uuid.UUID) ([]*Dispensation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, prescription_id, pharmacist_id, quantity, notes, created_at
		FROM dispensations WHERE prescription_id = $1 ORDER BY created_at`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Dispensation
	for rows.Next() {
		var d Dispensation
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.PharmacistID, &d.Quantity,
			&d.Notes, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *repoPG) DispensedTotal(ctx context.Context, prescriptionID uuid.UUID) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM dispensations WHERE prescription_id = $1`,
		prescriptionID).Scan(&total)
	return total, err
}
