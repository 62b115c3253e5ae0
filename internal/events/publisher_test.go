package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/hearth/internal/ledger"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	mu     sync.Mutex
	sent   []published
	fail   error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ ledger.Notifier = (*Publisher)(nil)

func testChange() ledger.Change {
	return ledger.Change{
		HouseholdID: "h1",
		Collection:  "bills",
		DocumentID:  "b1",
		Action:      ledger.ActionUpdated,
		At:          time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestChangeMessage(t *testing.T) {
	msg := NewChangeMessage(testChange())
	assert.Equal(t, "household.h1.bills.updated", msg.RoutingKey())

	body, err := msg.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"householdId":"h1","collection":"bills","documentId":"b1","action":"updated","timestamp":"2024-02-20T12:00:00Z"}`, string(body))

	back, err := ChangeMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg, back)
}

func TestNotifyPublishesOnClose(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "hearth.changes", nil)

	p.Notify(context.Background(), testChange())
	require.NoError(t, p.Close())

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "hearth.changes", ch.sent[0].exchange)
	assert.Equal(t, "household.h1.bills.updated", ch.sent[0].key)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.sent[0].msg.DeliveryMode)
	assert.True(t, ch.closed)

	// Notify after Close is dropped.
	p.Notify(context.Background(), testChange())
	assert.Len(t, ch.sent, 1)
}

func TestPublishError(t *testing.T) {
	ch := &fakeChannel{fail: errors.New("connection reset")}
	p := NewPublisher(ch, "hearth.changes", nil)
	defer p.Close()

	err := p.Publish(context.Background(), NewChangeMessage(testChange()))
	assert.ErrorContains(t, err, "connection reset")
}
