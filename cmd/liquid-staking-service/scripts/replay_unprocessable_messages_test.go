package scripts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/db/memdb"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
)

type recordingClient struct {
	name    string
	sent    []string
	sendErr error
}

func (c *recordingClient) SendMessage(ctx context.Context, body string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, body)
	return nil
}

func (c *recordingClient) ReceiveMessages() (<-chan client.QueueMessage, error) { return nil, nil }
func (c *recordingClient) DeleteMessage(receipt string) error                  { return nil }
func (c *recordingClient) ReQueueMessage(ctx context.Context, m client.QueueMessage) error {
	return nil
}
func (c *recordingClient) Stop() error          { return nil }
func (c *recordingClient) GetQueueName() string { return c.name }
func (c *recordingClient) Ping() error          { return nil }

func testQueues() (*queue.Queues, *recordingClient, *recordingClient) {
	responses := &recordingClient{name: config.XcmResponseQueueName}
	timeUnits := &recordingClient{name: config.TimeUnitQueueName}
	return &queue.Queues{
		XcmResponseQueueClient: responses,
		TimeUnitQueueClient:    timeUnits,
	}, responses, timeUnits
}

func TestReplayRoutesMessagesToTheirQueue(t *testing.T) {
	ctx := context.Background()
	store := memdb.New(config.DbConfig{MaxPaginationLimit: 10})
	require.NoError(t, store.SaveUnprocessableMessage(ctx, `{"query_id":3}`, "1", config.XcmResponseQueueName))
	require.NoError(t, store.SaveUnprocessableMessage(ctx, `{"asset":"KSM"}`, "2", config.TimeUnitQueueName))
	queues, responses, timeUnits := testQueues()

	require.NoError(t, ReplayUnprocessableMessages(ctx, queues, store))

	assert.Equal(t, []string{`{"query_id":3}`}, responses.sent)
	assert.Equal(t, []string{`{"asset":"KSM"}`}, timeUnits.sent)
	left, err := store.FindUnprocessableMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReplayKeepsMessageWhenPublishFails(t *testing.T) {
	ctx := context.Background()
	store := memdb.New(config.DbConfig{MaxPaginationLimit: 10})
	require.NoError(t, store.SaveUnprocessableMessage(ctx, "body", "1", config.XcmResponseQueueName))
	queues, responses, _ := testQueues()
	responses.sendErr = errors.New("closed")

	assert.Error(t, ReplayUnprocessableMessages(ctx, queues, store))
	left, err := store.FindUnprocessableMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestReplayRejectsUnknownQueue(t *testing.T) {
	ctx := context.Background()
	store := memdb.New(config.DbConfig{MaxPaginationLimit: 10})
	require.NoError(t, store.SaveUnprocessableMessage(ctx, "body", "1", "stats_queue"))
	queues, _, _ := testQueues()

	assert.ErrorContains(t, ReplayUnprocessableMessages(ctx, queues, store), "unknown inbound queue")
}

func TestReplayWithNothingParked(t *testing.T) {
	queues, _, _ := testQueues()
	store := memdb.New(config.DbConfig{MaxPaginationLimit: 10})
	assert.Error(t, ReplayUnprocessableMessages(context.Background(), queues, store))
}
