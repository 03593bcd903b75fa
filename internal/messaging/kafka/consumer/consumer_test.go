package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/One-johnson/sheepshep-sub001/internal/bootstrap"
	"github.com/One-johnson/sheepshep-sub001/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader serves queued messages and cancels the consumer once drained.
type fakeReader struct {
	msgs      []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []bootstrap.AuditLog
}

func (s *recordingSink) Log(ctx context.Context, entry bootstrap.AuditLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func TestConsumeAttendanceAudit(t *testing.T) {
	payload, err := json.Marshal(events.AttendanceAuditEvent{
		EventType:  events.AuditAttendanceApprove,
		ActorID:    "actor-1",
		Action:     events.AuditAttendanceApprove,
		EntityID:   "rec-1",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs: []kafkago.Message{
			{Offset: 1, Value: []byte("not-json")},
			{Offset: 2, Value: payload},
		},
		cancel: cancel,
	}
	sink := &recordingSink{}

	ConsumeAttendanceAudit(ctx, reader, sink, zap.NewNop())

	assert.Equal(t, []int64{1, 2}, reader.committed)
	require.Len(t, sink.entries, 1)
	assert.Equal(t, events.AuditAttendanceApprove, sink.entries[0].Action)
	assert.Equal(t, "rec-1", sink.entries[0].Meta["entity_id"])
}
