package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/florascope-service/internal/config"
	"github.com/couchcryptid/florascope-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	publishAttempts = 3
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes run predictions to a Kafka topic.
// It implements pipeline.PredictionSink.
type Writer struct {
	writer         messageWriter
	initialBackoff time.Duration
	logger         *slog.Logger
}

// NewWriter creates a Kafka producer for the configured predictions topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaPredictionsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, initialBackoff: initialBackoff, logger: logger}
}

// PublishPredictions serializes every prediction of a run and publishes them
// in a single WriteMessages call, retrying transient broker failures.
func (w *Writer) PublishPredictions(ctx context.Context, runID string, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	publishedAt := time.Now().UTC()
	msgs := make([]kafkago.Message, len(preds))
	for i := range preds {
		msg, err := serializeToMessage(runID, i, preds[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(w.initialBackoff),
				backoff.WithMaxInterval(maxBackoff),
				backoff.WithMaxElapsedTime(0),
			),
			publishAttempts-1,
		),
		ctx,
	)
	op := func() error {
		return w.writer.WriteMessages(ctx, msgs...)
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Warn("publish predictions failed, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("publish predictions: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// predictionMessage is the value written for each prediction.
type predictionMessage struct {
	RunID string `json:"run_id"`
	Index int    `json:"index"`
	domain.PredictionRecord
}

// serializeToMessage marshals one prediction into a Kafka message keyed by
// run id and row index.
func serializeToMessage(runID string, index int, p domain.Prediction, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(predictionMessage{RunID: runID, Index: index, PredictionRecord: p.Record()})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(runID + "/" + strconv.Itoa(index)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "month", Value: []byte(strconv.Itoa(p.Month))},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
