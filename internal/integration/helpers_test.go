//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/source"
	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker for the duration of the test
// and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0", kafka.WithClusterID("coastal-loads-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeModelDir writes one model table per year in which every coastal
// catchment carries value for every variable of both nutrients.
func writeModelDir(t *testing.T, years []int, value string) string {
	t.Helper()
	dir := t.TempDir()
	vars := append(domain.RequiredVariables(domain.Nitrogen), domain.RequiredVariables(domain.Phosphorus)...)
	for _, year := range years {
		var b strings.Builder
		b.WriteString("regine," + strings.Join(vars, ",") + "\n")
		for _, code := range domain.CoastalCatchments() {
			cells := make([]string, len(vars))
			for i := range cells {
				cells[i] = value
			}
			b.WriteString(code + "," + strings.Join(cells, ",") + "\n")
		}
		path := filepath.Join(dir, source.ModelFileName(year))
		require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	}
	return dir
}
