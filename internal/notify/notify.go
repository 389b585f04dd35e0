// Package notify delivers alert records to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/models"
)

var (
	// ErrDelivery is returned when a sink could not deliver a record.
	ErrDelivery = errors.New("notification delivery failed")
	// ErrNoSinks is returned by FromConfig when nothing is enabled.
	ErrNoSinks = fmt.Errorf("%w: no notification sinks enabled", config.ErrConfiguration)
)

// Sink delivers an alert record.
type Sink interface {
	Name() string
	Send(ctx context.Context, rec models.AlertRecord) error
}

// LogSink writes records to the structured log.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink that logs each record.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Send implements Sink.
func (s *LogSink) Send(_ context.Context, rec models.AlertRecord) error {
	s.log.Info("alert",
		"id", rec.ID,
		"channel", rec.Channel,
		"severity", rec.Severity,
		"source", rec.SourceName,
		"title", rec.Title,
		"url", rec.URL,
		"message", rec.Message,
	)

	return nil
}

// Multi fans a record out to several sinks. Delivery succeeds when at least
// one sink accepted the record, so a later replay cannot notify the sinks
// that already succeeded a second time.
type Multi struct {
	log   *logger.Logger
	sinks []Sink
}

// NewMulti combines sinks.
func NewMulti(log *logger.Logger, sinks ...Sink) *Multi {
	return &Multi{log: log, sinks: sinks}
}

// Name implements Sink.
func (m *Multi) Name() string { return "multi" }

// Sinks returns the wrapped sinks.
func (m *Multi) Sinks() []Sink {
	return m.sinks
}

// Send implements Sink.
func (m *Multi) Send(ctx context.Context, rec models.AlertRecord) error {
	var errs []error

	delivered := 0

	for _, s := range m.sinks {
		if err := s.Send(ctx, rec); err != nil {
			m.log.Warn("Sink failed", "sink", s.Name(), "id", rec.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

			continue
		}

		delivered++
	}

	if delivered > 0 || len(m.sinks) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
}

// FromConfig builds the sinks enabled in cfg.
func FromConfig(cfg config.SinksConfig, log *logger.Logger) (Sink, error) {
	var sinks []Sink

	if cfg.Log {
		sinks = append(sinks, NewLogSink(log))
	}

	if cfg.Webhook != nil {
		sinks = append(sinks, NewWebhookSink(*cfg.Webhook, log))
	}

	if cfg.SMTP != nil {
		sinks = append(sinks, NewSMTPSink(*cfg.SMTP))
	}

	switch len(sinks) {
	case 0:
		return nil, ErrNoSinks
	case 1:
		return sinks[0], nil
	}

	return NewMulti(log, sinks...), nil
}
