package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/events"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
	"github.com/vtokenlabs/liquid-staking-service/internal/types"
)

type fakeQueueClient struct {
	mu       sync.Mutex
	name     string
	sent     []string
	deleted  []string
	requeued []client.QueueMessage
	sendErr  error
}

func (f *fakeQueueClient) SendMessage(ctx context.Context, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, body)
	return nil
}

func (f *fakeQueueClient) ReceiveMessages() (<-chan client.QueueMessage, error) {
	return make(chan client.QueueMessage), nil
}

func (f *fakeQueueClient) DeleteMessage(receipt string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, receipt)
	return nil
}

func (f *fakeQueueClient) ReQueueMessage(ctx context.Context, m client.QueueMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.RetryAttempts = m.IncrementRetryAttempts()
	f.requeued = append(f.requeued, m)
	return nil
}

func (f *fakeQueueClient) Stop() error          { return nil }
func (f *fakeQueueClient) GetQueueName() string { return f.name }
func (f *fakeQueueClient) Ping() error          { return nil }

type parked struct {
	body, receipt, queueName string
}

func TestProcessMessageAcknowledgesOnSuccess(t *testing.T) {
	c := &fakeQueueClient{name: "xcm_response_queue"}
	var got string
	handler := func(ctx context.Context, body string) *types.Error {
		got = body
		return nil
	}
	unprocessable := func(ctx context.Context, body, receipt, queueName string) *types.Error {
		t.Fatal("message must not be parked")
		return nil
	}

	processMessage(c, client.QueueMessage{Body: `{"query_id":1}`, Receipt: "7"}, handler, unprocessable, 3, time.Second)

	assert.Equal(t, `{"query_id":1}`, got)
	assert.Equal(t, []string{"7"}, c.deleted)
	assert.Empty(t, c.requeued)
}

func TestProcessMessageRequeuesThenParks(t *testing.T) {
	c := &fakeQueueClient{name: "time_unit_queue"}
	failing := func(ctx context.Context, body string) *types.Error {
		return types.NewErrorWithMsg(http.StatusInternalServerError, types.InternalServiceError, "boom")
	}
	var saved []parked
	unprocessable := func(ctx context.Context, body, receipt, queueName string) *types.Error {
		saved = append(saved, parked{body, receipt, queueName})
		return nil
	}

	msg := client.QueueMessage{Body: "payload", Receipt: "1"}
	for i := 0; i <= 2; i++ {
		processMessage(c, msg, failing, unprocessable, 2, time.Second)
		require.Len(t, c.requeued, i+1)
		msg = c.requeued[i]
	}
	assert.Equal(t, int32(3), msg.GetRetryAttempts())
	assert.Empty(t, saved)

	processMessage(c, msg, failing, unprocessable, 2, time.Second)
	require.Len(t, saved, 1)
	assert.Equal(t, parked{"payload", "1", "time_unit_queue"}, saved[0])
	assert.Equal(t, []string{"1"}, c.deleted)
	assert.Len(t, c.requeued, 3)
}

func TestProcessMessageRequeuesWhenHandlerPanics(t *testing.T) {
	c := &fakeQueueClient{name: "xcm_response_queue"}
	panicking := func(ctx context.Context, body string) *types.Error {
		panic("nil amount")
	}
	unprocessable := func(ctx context.Context, body, receipt, queueName string) *types.Error {
		t.Fatal("message must not be parked yet")
		return nil
	}

	assert.NotPanics(t, func() {
		processMessage(c, client.QueueMessage{Body: `{"query_id":4}`, Receipt: "4"}, panicking, unprocessable, 2, time.Second)
	})
	require.Len(t, c.requeued, 1)
	assert.Equal(t, int32(1), c.requeued[0].GetRetryAttempts())
	assert.Empty(t, c.deleted)
}

func TestProcessMessageKeepsMessageWhenParkingFails(t *testing.T) {
	c := &fakeQueueClient{name: "time_unit_queue"}
	handler := func(ctx context.Context, body string) *types.Error { return nil }
	unprocessable := func(ctx context.Context, body, receipt, queueName string) *types.Error {
		return types.NewInternalServiceError(errors.New("db down"))
	}

	processMessage(c, client.QueueMessage{Body: "x", Receipt: "9", RetryAttempts: 5}, handler, unprocessable, 2, time.Second)

	assert.Empty(t, c.deleted)
	assert.Empty(t, c.requeued)
}

func TestEventPublisherSendsEnvelopesInOrder(t *testing.T) {
	c := &fakeQueueClient{name: "vault_event_queue"}
	p := NewEventPublisher(c)
	evs := []types.Event{
		types.NewMintedEvent(3, "KSM", "alice", sdkmath.NewInt(10), sdkmath.ZeroInt(), sdkmath.NewInt(10)),
		types.NewTimeUnitUpdatedEvent(4, "KSM", types.NewTimeUnit(types.Era, 4), types.NewTimeUnit(types.Era, 5)),
	}

	require.NoError(t, p.Publish(context.Background(), evs))

	require.Len(t, c.sent, 2)
	var first events.Envelope
	require.NoError(t, json.Unmarshal([]byte(c.sent[0]), &first))
	assert.Equal(t, types.MintedEventType, first.EventType)
	var second events.Envelope
	require.NoError(t, json.Unmarshal([]byte(c.sent[1]), &second))
	assert.Equal(t, evs[1].GetEventType(), second.EventType)
}

func TestEventPublisherReportsSendFailure(t *testing.T) {
	c := &fakeQueueClient{name: "vault_event_queue", sendErr: errors.New("closed")}
	err := NewEventPublisher(c).Publish(context.Background(), []types.Event{
		types.NewMintedEvent(1, "KSM", "bob", sdkmath.NewInt(1), sdkmath.ZeroInt(), sdkmath.NewInt(1)),
	})
	assert.ErrorContains(t, err, "closed")
}
