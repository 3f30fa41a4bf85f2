package delivery

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	pending []Message
	photos  map[uuid.UUID][]Photo

	sent   []uuid.UUID
	failed []struct {
		id  uuid.UUID
		err string
		max int
	}
}

func (q *fakeQueue) ListPending(context.Context, int) ([]Message, error) { return q.pending, nil }

func (q *fakeQueue) Photos(_ context.Context, id uuid.UUID) ([]Photo, error) {
	return q.photos[id], nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id uuid.UUID) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkAttemptFailed(_ context.Context, id uuid.UUID, sendErr string, maxAttempts int) error {
	q.failed = append(q.failed, struct {
		id  uuid.UUID
		err string
		max int
	}{id, sendErr, maxAttempts})
	return nil
}

type fakeSender struct {
	textErr  error
	photoErr error
	texts    []string
	photos   int
}

func (s *fakeSender) SendText(_ context.Context, _ int64, html string) error {
	if s.textErr != nil {
		return s.textErr
	}
	s.texts = append(s.texts, html)
	return nil
}

func (s *fakeSender) SendPhoto(context.Context, int64, string, []byte) error {
	if s.photoErr != nil {
		return s.photoErr
	}
	s.photos++
	return nil
}

func testWorker(q Queue, s Sender) *Worker {
	return NewWorker(q, s, WorkerConfig{MaxAttempts: 3}, slog.New(slog.DiscardHandler))
}

func TestWorkerDeliversTextThenPhotos(t *testing.T) {
	id := uuid.New()
	q := &fakeQueue{
		pending: []Message{{ID: id, ChatID: 42, Body: "<b>report</b>"}},
		photos:  map[uuid.UUID][]Photo{id: {{Data: []byte("a")}, {Data: []byte("b")}}},
	}
	s := &fakeSender{}

	require.NoError(t, testWorker(q, s).Drain(context.Background()))

	assert.Equal(t, []string{"<b>report</b>"}, s.texts)
	assert.Equal(t, 2, s.photos)
	assert.Equal(t, []uuid.UUID{id}, q.sent)
	assert.Empty(t, q.failed)
}

func TestWorkerMarksAttemptFailedOnTextError(t *testing.T) {
	id := uuid.New()
	q := &fakeQueue{pending: []Message{{ID: id, ChatID: 42, Body: "x"}}}
	s := &fakeSender{textErr: errors.New("telegram: 502")}

	require.NoError(t, testWorker(q, s).Drain(context.Background()))

	assert.Empty(t, q.sent)
	require.Len(t, q.failed, 1)
	assert.Equal(t, id, q.failed[0].id)
	assert.Equal(t, "telegram: 502", q.failed[0].err)
	assert.Equal(t, 3, q.failed[0].max)
	// nothing partial goes out after a text failure
	assert.Equal(t, 0, s.photos)
}

func TestWorkerPhotoFailureFailsWholeMessage(t *testing.T) {
	id := uuid.New()
	q := &fakeQueue{
		pending: []Message{{ID: id, ChatID: 42, Body: "x"}},
		photos:  map[uuid.UUID][]Photo{id: {{Data: []byte("a")}}},
	}
	s := &fakeSender{photoErr: errors.New("too large")}

	require.NoError(t, testWorker(q, s).Drain(context.Background()))

	assert.Empty(t, q.sent)
	require.Len(t, q.failed, 1)
}

func TestWorkerDrainsWholeBatch(t *testing.T) {
	q := &fakeQueue{pending: []Message{
		{ID: uuid.New(), ChatID: 1, Body: "a"},
		{ID: uuid.New(), ChatID: 2, Body: "b"},
	}}
	s := &fakeSender{}

	require.NoError(t, testWorker(q, s).Drain(context.Background()))
	assert.Len(t, q.sent, 2)
}
