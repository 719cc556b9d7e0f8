package events

import (
	"context"

	"github.com/rs/zerolog"
)

var _ Sink = (*LogSink)(nil)

// LogSink only logs messages. It is used when no broker is configured.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Name() string {
	return "log"
}

func (l *LogSink) Send(_ context.Context, msg Message) error {
	l.logger.Info().
		Str("topic", msg.Topic).
		Str("correlation_id", msg.CorrelationID).
		RawJSON("payload", msg.Value).
		Msg("message published (dry run)")
	return nil
}

func (l *LogSink) Close() error {
	return nil
}

// NewSink returns a Kafka sink when brokers are configured and a LogSink otherwise.
func NewSink(brokers []string, logger zerolog.Logger) Sink {
	if len(brokers) > 0 {
		return NewKafkaSink(brokers)
	}
	return NewLogSink(logger)
}
