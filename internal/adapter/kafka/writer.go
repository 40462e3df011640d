package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/coastal-loads-etl/internal/config"
	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Writer publishes finished report tables to a Kafka topic, one message per
// table keyed by the table's file stem. It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured table topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// WriteTable serializes and publishes one table.
func (w *Writer) WriteTable(ctx context.Context, t domain.Table) error {
	msg, err := serializeToMessage(t)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", t.Section.Heading(), err)
	}
	w.logger.Debug("table published", "heading", t.Section.Heading(), "rows", len(t.Rows))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// TableMessage is the JSON payload of a published table.
type TableMessage struct {
	RunID       string       `json:"run_id"`
	Region      string       `json:"region"`
	Nutrient    string       `json:"nutrient"`
	Heading     string       `json:"heading"`
	CutoffYear  int          `json:"cutoff_year,omitempty"`
	Reconciled  bool         `json:"reconciled"`
	GeneratedAt time.Time    `json:"generated_at"`
	Columns     []string     `json:"columns"`
	Rows        []MessageRow `json:"rows"`
}

// MessageRow is one year of a published table. A nil value is a missing
// legacy cell.
type MessageRow struct {
	Year   int      `json:"year"`
	Values []*int64 `json:"values"`
}

// NewTableMessage converts a table to its wire form.
func NewTableMessage(t domain.Table) TableMessage {
	msg := TableMessage{
		RunID:       t.RunID,
		Region:      t.Section.Region,
		Nutrient:    string(t.Section.Nutrient),
		Heading:     t.Section.Heading(),
		CutoffYear:  t.Section.CutoffYear,
		Reconciled:  t.Reconciled,
		GeneratedAt: t.GeneratedAt,
		Rows:        make([]MessageRow, len(t.Rows)),
	}
	for _, c := range domain.Categories {
		msg.Columns = append(msg.Columns, c.Column())
	}
	for i, row := range t.Rows {
		values := make([]*int64, len(row.Cells))
		for j, cell := range row.Cells {
			if cell.Valid {
				v := cell.Value
				values[j] = &v
			}
		}
		msg.Rows[i] = MessageRow{Year: row.Year, Values: values}
	}
	return msg
}

// serializeToMessage marshals a table into a Kafka message.
func serializeToMessage(t domain.Table) (kafkago.Message, error) {
	data, err := json.Marshal(NewTableMessage(t))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize table: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.Section.Stem()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(t.RunID)},
			{Key: "nutrient", Value: []byte(t.Section.Nutrient)},
			{Key: "generated_at", Value: []byte(t.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
