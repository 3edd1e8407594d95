package accounts

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

const userCols = `id, username, email, password_hash, first_name, last_name, role,
	work_id, license_number, specialization, phone, address, date_of_birth,
	is_verified, is_active, verified_by, verified_at, deactivated_by, deactivated_at,
	role_updated_by, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.WorkID, &u.LicenseNumber, &u.Specialization, &u.Phone, &u.Address, &u.DateOfBirth,
		&u.IsVerified, &u.IsActive, &u.VerifiedBy, &u.VerifiedAt, &u.DeactivatedBy, &u.DeactivatedAt,
		&u.RoleUpdatedBy, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("user not found")
	}
	return &u, err
}

// uniqueViolation translates a pg unique-constraint error. The constraint
// is the source of truth for work_id/username uniqueness; there is no
// pre-insert existence check to race against.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return apperror.Validation("a user with this username already exists")
	case "users_email_key":
		return apperror.Validation("a user with this email already exists")
	case "users_work_id_key":
		return apperror.Validation("a user with this work ID already exists")
	}
	return apperror.Conflict("duplicate value: %s", pgErr.ConstraintName)
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, role,
			work_id, license_number, specialization, phone, address, date_of_birth,
			is_verified, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role,
		u.WorkID, u.LicenseNumber, u.Specialization, u.Phone, u.Address, u.DateOfBirth,
		u.IsVerified, u.IsActive)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, first_name=$3, last_name=$4, role=$5,
			license_number=$6, specialization=$7, phone=$8, address=$9, date_of_birth=$10,
			is_verified=$11, is_active=$12, verified_by=$13, verified_at=$14,
			deactivated_by=$15, deactivated_at=$16, role_updated_by=$17, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role,
		u.LicenseNumber, u.Specialization, u.Phone, u.Address, u.DateOfBirth,
		u.IsVerified, u.IsActive, u.VerifiedBy, u.VerifiedAt,
		u.DeactivatedBy, u.DeactivatedAt, u.RoleUpdatedBy)
	if err != nil {
		return uniqueViolation(err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{ByRole: make(map[string]int)}

	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE NOT is_verified AND role <> 'patient'),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active)
		FROM users`).
		Scan(&s.TotalUsers, &s.VerifiedUsers, &s.PendingVerification, &s.ActiveUsers, &s.DeactivatedUsers)
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
		s.ByRole[role] = count
	}
	return s, rows.Err()
}
