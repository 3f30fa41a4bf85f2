package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("delivery: message not found")

type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Photo is an attachment delivered after the text body, in order.
type Photo struct {
	Caption string
	Data    []byte
}

// Message is one queued chat delivery. The idempotency key comes from the
// submitting client: re-submitting the same report enqueues nothing new.
type Message struct {
	ID             uuid.UUID
	IdempotencyKey uuid.UUID
	Branch         string
	ChatID         int64
	Body           string
	Status         MessageStatus
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox { return &Outbox{pool: pool} }

// Enqueue stores a message and its photos. A duplicate idempotency key is a
// no-op that returns the already-queued message ID.
func (o *Outbox) Enqueue(ctx context.Context, key uuid.UUID, branch string, chatID int64, body string, photos []Photo) (uuid.UUID, error) {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.New()
	tag, err := tx.Exec(ctx, `
		INSERT INTO report_outbox (id, idempotency_key, branch, chat_id, body)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, id, key, branch, chatID, body)
	if err != nil {
		return uuid.Nil, err
	}
	if tag.RowsAffected() == 0 {
		var existing uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT id FROM report_outbox WHERE idempotency_key = $1`, key).Scan(&existing)
		if err != nil {
			return uuid.Nil, err
		}
		return existing, tx.Commit(ctx)
	}

	for i, ph := range photos {
		_, err := tx.Exec(ctx, `
			INSERT INTO report_outbox_photos (outbox_id, seq, caption, data)
			VALUES ($1,$2,$3,$4)
		`, id, i, ph.Caption, ph.Data)
		if err != nil {
			return uuid.Nil, err
		}
	}
	return id, tx.Commit(ctx)
}

func (o *Outbox) ListPending(ctx context.Context, limit int) ([]Message, error) {
	rows, err := o.pool.Query(ctx, `
		SELECT id, idempotency_key, branch, chat_id, body, status, attempts, last_error, created_at, updated_at
		FROM report_outbox
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.IdempotencyKey, &m.Branch, &m.ChatID, &m.Body,
			&m.Status, &m.Attempts, &m.LastError, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (o *Outbox) Photos(ctx context.Context, outboxID uuid.UUID) ([]Photo, error) {
	rows, err := o.pool.Query(ctx, `
		SELECT caption, data FROM report_outbox_photos
		WHERE outbox_id = $1 ORDER BY seq`, outboxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var ph Photo
		if err := rows.Scan(&ph.Caption, &ph.Data); err != nil {
			return nil, err
		}
		out = append(out, ph)
	}
	return out, rows.Err()
}

func (o *Outbox) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE report_outbox SET status='sent', last_error='', updated_at=now()
		WHERE id = $1`, id)
	return err
}

// MarkAttemptFailed records a failed attempt. Once attempts reach maxAttempts
// the message flips to failed and the worker stops picking it up; the user
// can re-submit with a fresh key.
func (o *Outbox) MarkAttemptFailed(ctx context.Context, id uuid.UUID, sendErr string, maxAttempts int) error {
	_, err := o.pool.Exec(ctx, `
		UPDATE report_outbox SET
			attempts   = attempts + 1,
			last_error = $2,
			status     = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			updated_at = now()
		WHERE id = $1`, id, sendErr, maxAttempts)
	return err
}

func (o *Outbox) Get(ctx context.Context, id uuid.UUID) (*Message, error) {
	row := o.pool.QueryRow(ctx, `
		SELECT id, idempotency_key, branch, chat_id, body, status, attempts, last_error, created_at, updated_at
		FROM report_outbox WHERE id = $1`, id)
	var m Message
	if err := row.Scan(&m.ID, &m.IdempotencyKey, &m.Branch, &m.ChatID, &m.Body,
		&m.Status, &m.Attempts, &m.LastError, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
