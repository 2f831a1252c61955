//go:build integration

package client_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtokenlabs/liquid-staking-service/internal/config"
	"github.com/vtokenlabs/liquid-staking-service/internal/queue/client"
)

const rabbitmqVersion = "3.13-management-alpine"

var queueCfg *config.QueueConfig

func TestMain(m *testing.M) {
	cfg, cleanup, err := setupRabbitMqContainer()
	if err != nil {
		log.Fatalf("failed to setup rabbitmq container: %v", err)
	}
	queueCfg = cfg

	code := m.Run()
	cleanup()

	os.Exit(code)
}

func setupRabbitMqContainer() (*config.QueueConfig, func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, nil, err
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Name:       "rabbitmq-integration-tests-" + gofakeit.LetterN(3),
		Repository: "rabbitmq",
		Tag:        rabbitmqVersion,
		Env:        []string{"RABBITMQ_DEFAULT_USER=user", "RABBITMQ_DEFAULT_PASS=password"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("failed to purge resource: %v", err)
		}
	}

	url := fmt.Sprintf("localhost:%s", resource.GetPort("5672/tcp"))
	err = pool.Retry(func() error {
		conn, err := amqp091.Dial(fmt.Sprintf("amqp://user:password@%s", url))
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return &config.QueueConfig{
		QueueUser:              "user",
		QueuePassword:          "password",
		Url:                    url,
		QueueProcessingTimeout: 5,
		MaxRetryAttempts:       2,
		SendAttempts:           1,
	}, cleanup, nil
}

func receive(t *testing.T, ch <-chan client.QueueMessage) client.QueueMessage {
	select {
	case m := <-ch:
		return m
	case <-time.After(10 * time.Second):
		t.Fatal("no message received")
		return client.QueueMessage{}
	}
}

func TestSendReceiveAndAcknowledge(t *testing.T) {
	c, err := client.NewRabbitMqClient(queueCfg, "it_"+gofakeit.LetterN(8))
	require.NoError(t, err)
	t.Cleanup(func() { c.Stop() })
	require.NoError(t, c.Ping())

	require.NoError(t, c.SendMessage(context.Background(), `{"query_id":1,"success":true}`))
	messages, err := c.ReceiveMessages()
	require.NoError(t, err)

	m := receive(t, messages)
	assert.Equal(t, `{"query_id":1,"success":true}`, m.Body)
	assert.Equal(t, int32(0), m.GetRetryAttempts())
	require.NoError(t, c.DeleteMessage(m.Receipt))
}

func TestReQueueCountsAttempts(t *testing.T) {
	c, err := client.NewRabbitMqClient(queueCfg, "it_"+gofakeit.LetterN(8))
	require.NoError(t, err)
	t.Cleanup(func() { c.Stop() })

	require.NoError(t, c.SendMessage(context.Background(), "payload"))
	messages, err := c.ReceiveMessages()
	require.NoError(t, err)

	m := receive(t, messages)
	require.NoError(t, c.ReQueueMessage(context.Background(), m))
	m = receive(t, messages)
	assert.Equal(t, int32(1), m.GetRetryAttempts())
	require.NoError(t, c.ReQueueMessage(context.Background(), m))
	m = receive(t, messages)
	assert.Equal(t, int32(2), m.GetRetryAttempts())
	assert.Equal(t, "payload", m.Body)
	require.NoError(t, c.DeleteMessage(m.Receipt))
}

func TestStopClosesConnection(t *testing.T) {
	c, err := client.NewRabbitMqClient(queueCfg, "it_"+gofakeit.LetterN(8))
	require.NoError(t, err)
	require.NoError(t, c.Stop())
	assert.Error(t, c.Ping())
}
