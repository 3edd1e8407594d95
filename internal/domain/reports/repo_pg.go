package reports

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

const reportCols = `r.id, r.patient_id, r.created_by, r.title, r.content, r.report_type,
	r.created_at, r.updated_at, p.user_id`

const reportFrom = ` FROM reports r JOIN patients p ON p.id = r.patient_id`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.CreatedBy, &rep.Title, &rep.Content,
		&rep.ReportType, &rep.CreatedAt, &rep.UpdatedAt, &rep.PatientUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("report not found")
	}
	return &rep, err
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, patient_id, created_by, title, content, report_type)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rep.ID, rep.PatientID, rep.CreatedBy, rep.Title, rep.Content, rep.ReportType)
	return err
}

func (r *repoPG) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+reportFrom+` WHERE r.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rep *Report) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE reports SET title=$2, content=$3, report_type=$4, updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.Title, rep.Content, rep.ReportType)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("report not found")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Report, int, error) {
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
	if f.CreatedBy != uuid.Nil {
		where += " AND r.created_by = " + arg(f.CreatedBy)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+reportFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + reportCols + reportFrom + where +
		` ORDER BY r.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context) (*DashboardStats, error) {
	s := &DashboardStats{
		UsersByRole:          make(map[string]int),
		AppointmentsByStatus: make(map[string]int),
	}

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE NOT is_verified AND role <> 'patient'),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM reports),
			(SELECT COUNT(*) FROM prescriptions WHERE status IN ('active', 'partial'))`).
		Scan(&s.TotalUsers, &s.PendingVerification, &s.TotalAppointments,
			&s.TotalReports, &s.ActivePrescriptions)
	if err != nil {
		return nil, err
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		s.UsersByRole[role] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		s.AppointmentsByStatus[status] = count
	}
	return s, rows.Err()
}
