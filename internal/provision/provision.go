// Package provision backs the offline account-administration tool. It talks
// to the same tables as the running service but is never linked into it.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/ran-group/shiftdesk/internal/domain/identity"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
)

type Service struct {
	pool     *pgxpool.Pool
	users    *identity.Repo
	profiles *profiles.Repo
	log      *slog.Logger
}

func NewService(pool *pgxpool.Pool, log *slog.Logger) *Service {
	return &Service{
		pool:     pool,
		users:    identity.NewRepo(pool),
		profiles: profiles.NewRepo(pool),
		log:      log,
	}
}

// RosterRow is one line of the onboarding spreadsheet:
// Email | Password | Full name | Phone | Branch | Role.
type RosterRow struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Branch   string
	Role     profiles.Role
}

func ReadRoster(path string) ([]RosterRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}

	var out []RosterRow
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		get := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}
		row := RosterRow{
			Email:    get(0),
			Password: get(1),
			FullName: get(2),
			Phone:    get(3),
			Branch:   get(4),
			Role:     profiles.Role(get(5)),
		}
		if row.Email == "" {
			continue
		}
		if !row.Role.Valid() {
			row.Role = profiles.RoleStaff
		}
		out = append(out, row)
	}
	return out, nil
}

// CreateAccounts runs the create chain per row: identity first, then the
// profile. When the profile insert fails the just-created identity is
// deleted so no orphan is left behind; that rollback is best-effort and only
// logged. With approve set the profiles are approved immediately under the
// given approver name.
func (s *Service) CreateAccounts(ctx context.Context, roster []RosterRow, approve bool, approver string) error {
	var failed int
	for _, row := range roster {
		if err := s.createOne(ctx, row, approve, approver); err != nil {
			failed++
			s.log.Error("create account failed", "email", row.Email, "err", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(roster))
	}
	return nil
}

func (s *Service) createOne(ctx context.Context, row RosterRow, approve bool, approver string) error {
	if len(row.Password) < 8 {
		return errors.New("password shorter than 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(row.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u, err := s.users.Create(ctx, row.Email, string(hash))
	if err != nil {
		if errors.Is(err, identity.ErrAlreadyExists) {
			s.log.Info("identity already exists, skipping", "email", row.Email)
			return nil
		}
		return err
	}

	p, err := s.profiles.Create(ctx, u.ID, row.FullName, row.Phone, row.Branch, row.Role)
	if err != nil {
		if delErr := s.users.Delete(ctx, u.ID); delErr != nil {
			s.log.Error("rollback of identity failed", "email", row.Email, "err", delErr)
		}
		return fmt.Errorf("profile insert: %w", err)
	}

	if approve {
		if _, err := s.profiles.Approve(ctx, p.UserID, approver, time.Now().UTC()); err != nil {
			return fmt.Errorf("approve: %w", err)
		}
	}
	s.log.Info("account created", "email", row.Email, "branch", row.Branch, "role", row.Role)
	return nil
}

// Reconcile finds identities that have no profile row (a half-finished
// create chain). With fix set they are deleted, otherwise only reported.
func (s *Service) Reconcile(ctx context.Context, fix bool) (int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.email FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE p.user_id IS NULL`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type orphan struct {
		id    uuid.UUID
		email string
	}
	var orphans []orphan
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.id, &o.email); err != nil {
			return 0, err
		}
		orphans = append(orphans, o)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, o := range orphans {
		if fix {
			if err := s.users.Delete(ctx, o.id); err != nil {
				s.log.Error("delete orphan failed", "email", o.email, "err", err)
				continue
			}
			s.log.Info("orphan identity deleted", "email", o.email)
		} else {
			s.log.Warn("orphan identity", "email", o.email, "id", o.id)
		}
	}
	return len(orphans), nil
}

// Export writes the full profile list to an xlsx file for the office.
func (s *Service) Export(ctx context.Context, path string) error {
	list, err := s.profiles.List(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	header := []any{"User ID", "Full name", "Phone", "Branch", "Role", "Status", "Approved by", "Approved at", "Rejected reason", "Created at"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, p := range list {
		approvedAt := ""
		if p.ApprovedAt != nil {
			approvedAt = p.ApprovedAt.Format("2006-01-02 15:04")
		}
		row := []any{
			p.UserID.String(), p.FullName, p.Phone, p.Branch,
			string(p.Role), string(p.Status), p.ApprovedBy, approvedAt,
			p.RejectedReason, p.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
