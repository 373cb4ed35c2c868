// Package mail wraps the external mail relay. Calls are rate limited and go
// through a circuit breaker; there is no retry inside a run.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/Saharshbhardwaj/early-health-guardian1/internal/errors"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Message is the relay wire shape
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

// Config holds relay connection settings
type Config struct {
	Endpoint string
	APIKey   string
	From     string
	Timeout  int // seconds
}

// Relay is an HTTP client for the mail relay endpoint
type Relay struct {
	config  Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

// NewRelay creates a relay client
func NewRelay(cfg Config) *Relay {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mail-relay",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
	})

	return &Relay{
		config:  cfg,
		client:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// Enabled reports whether a relay endpoint is configured
func (r *Relay) Enabled() bool {
	return r.config.Endpoint != ""
}

// Send posts one message to the relay. The response body is ignored beyond
// the status code.
func (r *Relay) Send(ctx context.Context, msg Message) error {
	if !r.Enabled() {
		return apperrors.ErrMailNotConfigured
	}
	if len(msg.To) == 0 {
		return apperrors.ErrNoRecipients
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.post(ctx, msg)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return apperrors.WrapAs(apperrors.ErrMailUnavailable, err)
		}
		return err
	}
	return nil
}

func (r *Relay) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}
	if r.config.From != "" {
		req.Header.Set("X-Mail-From", r.config.From)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 300 {
		return apperrors.WrapAs(apperrors.ErrMailRejected, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
