package producer

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/One-johnson/sheepshep-sub001/internal/messaging/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutboxRepo struct {
	pending []kafka.OutboxEvent
	listErr error
	sent    []string
	failed  map[string]string
}

func (f *fakeOutboxRepo) WithTx(*sql.Tx) kafka.OutboxRepository { return f }
func (f *fakeOutboxRepo) Create(context.Context, kafka.OutboxEvent) error {
	return nil
}
func (f *fakeOutboxRepo) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return f.pending, f.listErr
}
func (f *fakeOutboxRepo) MarkSent(ctx context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}
func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = reason
	return nil
}

type fakeWriter struct {
	messages []kafkago.Message
	failOn   string
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		if string(m.Key) == w.failOn {
			return errors.New("broker unavailable")
		}
		w.messages = append(w.messages, m)
	}
	return nil
}

func TestProcessPendingEvents_PublishesAndMarks(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []kafka.OutboxEvent{
		{ID: "o-1", AggregateID: "rec-1", EventType: "attendance.pending", Topic: "notify", Payload: []byte(`{}`), RequestID: "rid"},
		{ID: "o-2", AggregateID: "rec-2", EventType: "attendance.create", Topic: "audit", Payload: []byte(`{}`)},
	}}
	writer := &fakeWriter{failOn: "rec-2"}

	sent, err := processPendingEvents(context.Background(), repo, writer, zap.NewNop(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"o-1"}, repo.sent)
	assert.Equal(t, "broker unavailable", repo.failed["o-2"])
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "notify", writer.messages[0].Topic)

	headers := map[string]string{}
	for _, h := range writer.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "attendance.pending", headers["event_type"])
	assert.Equal(t, "rid", headers["request_id"])
}

func TestProcessPendingEvents_ListError(t *testing.T) {
	repo := &fakeOutboxRepo{listErr: errors.New("db down")}

	sent, err := processPendingEvents(context.Background(), repo, &fakeWriter{}, zap.NewNop(), 10)
	assert.EqualError(t, err, "db down")
	assert.Zero(t, sent)
}

func TestProcessOutboxEvents_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		ProcessOutboxEvents(ctx, &fakeOutboxRepo{}, &fakeWriter{}, zap.NewNop(), WorkerConfig{})
		close(done)
	}()
	<-done
}
