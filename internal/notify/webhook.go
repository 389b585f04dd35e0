package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/models"
	"cybernews/pkg/fingerprint"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Signature"

// WebhookSink posts records as JSON. Consecutive failures open a circuit
// breaker so a dead endpoint fails fast until it has had time to recover.
type WebhookSink struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
	cfg     config.WebhookConfig
}

type webhookPayload struct {
	models.AlertRecord

	Text string `json:"text"`
}

// NewWebhookSink creates a webhook sink.
func NewWebhookSink(cfg config.WebhookConfig, log *logger.Logger) *WebhookSink {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	failures := uint32(5)
	if cfg.BreakerFailures > 0 {
		failures = uint32(cfg.BreakerFailures)
	}

	openFor := time.Duration(cfg.BreakerOpenSec) * time.Second
	if openFor <= 0 {
		openFor = time.Minute
	}

	s := &WebhookSink{
		client: &http.Client{Timeout: timeout},
		log:    log,
		cfg:    cfg,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return s
}

// Name implements Sink.
func (s *WebhookSink) Name() string { return "webhook" }

// State returns the breaker state.
func (s *WebhookSink) State() gobreaker.State {
	return s.breaker.State()
}

// Send implements Sink.
func (s *WebhookSink) Send(ctx context.Context, rec models.AlertRecord) error {
	body, err := json.Marshal(webhookPayload{AlertRecord: rec, Text: rec.Message})
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrDelivery, err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("%w: webhook: %w", ErrDelivery, err)
	}

	return nil
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	if s.cfg.SigningSecret != "" {
		req.Header.Set(SignatureHeader, fingerprint.Sign(s.cfg.SigningSecret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
