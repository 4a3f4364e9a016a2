//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("police-etl-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "lookup controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic %s", topic)
}

// startPostgres runs a throwaway database and returns its connection URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "etl",
				"POSTGRES_PASSWORD": "etl",
				"POSTGRES_DB":       "police",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start postgres container")

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://etl:etl@%s/police?sslmode=disable", endpoint)
}

// readMessages reads n messages from partition 0 of topic.
func readMessages(ctx context.Context, t *testing.T, broker, topic string, n int) []kafkago.Message {
	t.Helper()
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MaxWait:   500 * time.Millisecond,
	})
	defer reader.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msgs := make([]kafkago.Message, 0, n)
	for len(msgs) < n {
		msg, err := reader.ReadMessage(readCtx)
		require.NoError(t, err, "read message %d of %d", len(msgs)+1, n)
		msgs = append(msgs, msg)
	}
	return msgs
}
