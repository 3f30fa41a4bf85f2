package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/ran-group/shiftdesk/internal/domain/identity"
	"github.com/ran-group/shiftdesk/internal/domain/profiles"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
)

// Notifier is pinged after a successful sign-up so managers hear about the
// new pending account (the admin group chat in practice).
type Notifier interface {
	NotifyNewAccount(ctx context.Context, p *profiles.Profile, email string)
}

type Service struct {
	pool     *pgxpool.Pool
	users    *identity.Repo
	profiles *profiles.Repo
	tokens   *TokenManager
	notify   Notifier
	log      *slog.Logger
}

func NewService(pool *pgxpool.Pool, users *identity.Repo, profs *profiles.Repo,
	tokens *TokenManager, notify Notifier, log *slog.Logger) *Service {
	return &Service{pool: pool, users: users, profiles: profs, tokens: tokens, notify: notify, log: log}
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Branch   string
	Role     profiles.Role
}

// SignUp creates the identity and its pending profile in one transaction.
// A rejected employee re-registers with a fresh email; the old profile row
// stays rejected and is never silently reactivated.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*profiles.Profile, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.FullName == "" {
		return nil, fmt.Errorf("auth: email and full name are required")
	}
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if !in.Role.Valid() {
		in.Role = profiles.RoleStaff
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := s.users.CreateTx(ctx, tx, in.Email, string(hash))
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.CreateTx(ctx, tx, u.ID, in.FullName, in.Phone, in.Branch, in.Role)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Info("account registered", "user_id", u.ID, "branch", p.Branch, "role", p.Role)
	if s.notify != nil {
		s.notify.NotifyNewAccount(ctx, p, u.Email)
	}
	return p, nil
}

// SignIn verifies credentials and returns a bearer token. Approval status is
// deliberately not checked here: pending users may sign in to see their
// status page, the gate keeps them out of everything else.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *profiles.Profile, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	p, err := s.profiles.GetByUserID(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Generate(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, p, nil
}
