package patients

import (
	"context"
	"errors"

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

const patientCols = `p.id, p.user_id, p.gender, p.date_of_birth, p.phone, p.address,
	p.emergency_contact_name, p.emergency_contact_phone, p.created_at, p.updated_at,
	u.first_name, u.last_name`

const patientFrom = ` FROM patients p JOIN users u ON u.id = p.user_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.Gender, &p.DateOfBirth, &p.Phone, &p.Address,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.CreatedAt, &p.UpdatedAt,
		&p.FirstName, &p.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("patient not found")
	}
	return &p, err
}

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, user_id, gender, date_of_birth, phone, address,
			emergency_contact_name, emergency_contact_phone)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.UserID, p.Gender, p.DateOfBirth, p.Phone, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperror.Conflict("a profile already exists for this user")
	}
	return err
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.id = $1`, id))
}

func (r *repoPG) GetPatientByUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.user_id = $1`, userID))
}

func (r *repoPG) UpdatePatient(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET gender=$2, date_of_birth=$3, phone=$4, address=$5,
			emergency_contact_name=$6, emergency_contact_phone=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Gender, p.DateOfBirth, p.Phone, p.Address,
		p.EmergencyContactName, p.EmergencyContactPhone)
	return err
}

func (r *repoPG) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+patientFrom+` ORDER BY u.last_name, u.first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) CreateNote(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_notes (id, patient_id, author_id, subjective, objective, assessment, plan)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.PatientID, n.AuthorID, n.Subjective, n.Objective, n.Assessment, n.Plan)
	return err
}

func (r *repoPG) ListNotes(ctx context.Context, patientID uuid.UUID) ([]*ClinicalNote, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, author_id, subjective, objective, assessment, plan, created_at, updated_at
		FROM clinical_notes WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ClinicalNote
	for rows.Next() {
		var n ClinicalNote
		if err := rows.Scan(&n.ID, &n.PatientID, &n.AuthorID, &n.Subjective, &n.Objective,
			&n.Assessment, &n.Plan, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *repoPG) CreateAllergy(ctx context.Context, a *Allergy) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO allergies (id, patient_id, allergen, reaction, severity, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.PatientID, a.Allergen, a.Reaction, a.Severity, a.RecordedBy)
	return err
}

func (r *repoPG) ListAllergies(ctx context.Context, patientID uuid.UUID) ([]*Allergy, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, allergen, reaction, severity, recorded_by, created_at
		FROM allergies WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Allergy
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Allergen, &a.Reaction, &a.Severity,
			&a.RecordedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *repoPG) DeleteAllergy(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM allergies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("allergy not found")
	}
	return nil
}

func (r *repoPG) CreateMedication(ctx context.Context, m *PatientMedication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_medications (id, patient_id, name, dosage, frequency, is_active, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.PatientID, m.Name, m.Dosage, m.Frequency, m.IsActive, m.RecordedBy)
	return err
}

func (r *repoPG) ListMedications(ctx context.Context, patientID uuid.UUID) ([]*PatientMedication, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, dosage, frequency, is_active, recorded_by, created_at, updated_at
		FROM patient_medications WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*PatientMedication
	for rows.Next() {
		var m PatientMedication
		if err := rows.Scan(&m.ID, &m.PatientID, &m.Name, &m.Dosage, &m.Frequency,
			&m.IsActive, &m.RecordedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) SetMedicationActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_medications SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("medication not found")
	}
	return nil
}
