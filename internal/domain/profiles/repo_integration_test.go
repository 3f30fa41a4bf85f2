package profiles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestApproveLeavesRejectedAccountsAlone(t *testing.T) {
	ctx := context.Background()
	repo, pool, cleanup := setupTestRepo(t, ctx)
	t.Cleanup(cleanup)

	userID := seedUser(t, ctx, pool, "linh@ran.example")
	if _, err := repo.Create(ctx, userID, "Linh Tran", "0901", "NV01", RoleStaff); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if _, err := repo.Reject(ctx, userID, "duplicate registration"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	_, err := repo.Approve(ctx, userID, "Admin A", time.Now())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("approve of rejected account: got %v, want ErrRejected", err)
	}

	got, err := repo.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusRejected {
		t.Fatalf("status = %q, want rejected", got.Status)
	}
	if got.RejectedReason != "duplicate registration" {
		t.Fatalf("rejected_reason = %q, want untouched", got.RejectedReason)
	}
	if got.ApprovedBy != "" || got.ApprovedAt != nil {
		t.Fatalf("approval fields written on rejected account: by=%q at=%v", got.ApprovedBy, got.ApprovedAt)
	}
}

func TestApproveTwiceKeepsApproved(t *testing.T) {
	ctx := context.Background()
	repo, pool, cleanup := setupTestRepo(t, ctx)
	t.Cleanup(cleanup)

	userID := seedUser(t, ctx, pool, "minh@ran.example")
	if _, err := repo.Create(ctx, userID, "Minh Pham", "0902", "TD02", RoleManager); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	first, err := repo.Approve(ctx, userID, "Admin A", time.Now())
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if first.Status != StatusApproved {
		t.Fatalf("status after approve = %q", first.Status)
	}

	second, err := repo.Approve(ctx, userID, "Admin B", time.Now())
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if second.Status != StatusApproved {
		t.Fatalf("status after re-approve = %q", second.Status)
	}
	if second.ApprovedBy != "Admin B" {
		t.Fatalf("approved_by = %q, want Admin B", second.ApprovedBy)
	}
}

func seedUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ($1, $2, 'x')`, id, email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func setupTestRepo(t *testing.T, ctx context.Context) (*Repo, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		_ = dropSchema(ctx, dsn, schema)
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		_ = dropSchema(ctx, dsn, schema)
		t.Fatalf("connect: %v", err)
	}

	if err := applyMigrations(ctx, pool, filepath.Join("..", "..", "..", "migrations")); err != nil {
		pool.Close()
		_ = dropSchema(ctx, dsn, schema)
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = dropSchema(ctx, dsn, schema)
	}
	return NewRepo(pool), pool, cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		up := migrationUp(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, up); err != nil {
			return err
		}
	}
	return nil
}

func migrationUp(content string) string {
	if i := strings.Index(content, "-- +goose Down"); i >= 0 {
		content = content[:i]
	}
	return strings.ReplaceAll(content, "-- +goose Up", "")
}
