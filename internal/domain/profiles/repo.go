package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound    = errors.New("profiles: not found")
	ErrEmptyReason = errors.New("profiles: rejection reason is required")
	ErrRejected    = errors.New("profiles: rejected accounts cannot be approved")
)

const profileColumns = `user_id, full_name, phone, branch, role, status,
	approved_by, approved_at, rejected_reason, created_at, updated_at`

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.UserID, &p.FullName, &p.Phone, &p.Branch, &p.Role, &p.Status,
		&p.ApprovedBy, &p.ApprovedAt, &p.RejectedReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a fresh profile. Status is always pending at this point:
// approval is a separate explicit action by a manager.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, fullName, phone, branch string, role Role) (*Profile, error) {
	return createIn(ctx, r.pool, userID, fullName, phone, branch, role)
}

// CreateTx is Create inside a caller-owned transaction (sign-up pairs the
// identity row and the profile row atomically).
func (r *Repo) CreateTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, fullName, phone, branch string, role Role) (*Profile, error) {
	return createIn(ctx, tx, userID, fullName, phone, branch, role)
}

func createIn(ctx context.Context, q querier, userID uuid.UUID, fullName, phone, branch string, role Role) (*Profile, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO profiles (user_id, full_name, phone, branch, role, status)
		VALUES ($1,$2,$3,$4,$5,'pending')
		RETURNING `+profileColumns, userID, fullName, phone, branch, role)
	return scanProfile(row)
}

func (r *Repo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	return scanProfile(row)
}

func (r *Repo) ListByStatus(ctx context.Context, status Status) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles
		WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *Repo) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+` FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Profile, error) {
	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Phone, &p.Branch, &p.Role, &p.Status,
			&p.ApprovedBy, &p.ApprovedAt, &p.RejectedReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Approve moves a profile to approved and records who did it and when.
// rejected_reason is left untouched. A rejected row is never reactivated:
// re-approval after rejection requires a fresh registration. Re-approving an
// already-approved row just rewrites the same fields.
func (r *Repo) Approve(ctx context.Context, userID uuid.UUID, approverName string, at time.Time) (*Profile, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles SET
			status      = 'approved',
			approved_by = $2,
			approved_at = $3,
			updated_at  = now()
		WHERE user_id = $1 AND status <> 'rejected'
		RETURNING `+profileColumns, userID, approverName, at)
	p, err := scanProfile(row)
	if errors.Is(err, ErrNotFound) {
		// distinguish a missing row from a rejected one
		existing, getErr := r.GetByUserID(ctx, userID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status == StatusRejected {
			return nil, ErrRejected
		}
		return nil, err
	}
	return p, err
}

// Reject moves a profile to rejected. The reason is mandatory: callers must
// refuse an empty reason before any write happens.
func (r *Repo) Reject(ctx context.Context, userID uuid.UUID, reason string) (*Profile, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE profiles SET
			status          = 'rejected',
			rejected_reason = $2,
			updated_at      = now()
		WHERE user_id = $1
		RETURNING `+profileColumns, userID, reason)
	return scanProfile(row)
}

// Delete removes a profile row. Normal application flow never does this;
// it exists for the provisioning tool reconciling orphaned rows.
func (r *Repo) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
