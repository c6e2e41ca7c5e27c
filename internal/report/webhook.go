package report

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

const (
	// maxRetries is the maximum number of retry attempts per report.
	maxRetries = 3

	// baseRetryDelay is the base delay for exponential backoff between retries.
	baseRetryDelay = 2 * time.Second

	// defaultRequestTimeout is the HTTP request timeout for each attempt.
	defaultRequestTimeout = 10 * time.Second
)

// ErrRateLimited is returned when the endpoint answers 429. The report is
// dropped without further retries.
var ErrRateLimited = errors.New("rate limited")

// WebhookPayload is the JSON document posted for each report.
type WebhookPayload struct {
	Timestamp time.Time                 `json:"timestamp"`
	Duration  time.Duration             `json:"duration_ns"`
	Critical  bool                      `json:"critical"`
	Results   []models.CollectionResult `json:"results"`
	Findings  []models.Finding          `json:"findings,omitempty"`
}

// WebhookReporter POSTs each report as gzip-compressed JSON, retrying with
// exponential backoff on failure.
type WebhookReporter struct {
	url    string
	token  string
	client *http.Client
	logger *zap.Logger
	clock  clock.Clock
	delay  time.Duration
	budget time.Duration
}

// WebhookOption configures a WebhookReporter.
type WebhookOption func(*WebhookReporter)

// WithToken sends "Authorization: Bearer <token>" with every request.
func WithToken(token string) WebhookOption {
	return func(w *WebhookReporter) { w.token = token }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookReporter) { w.client = c }
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *WebhookReporter) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) WebhookOption {
	return func(w *WebhookReporter) { w.delay = d }
}

// WithSendBudget bounds the total time Publish spends on one report,
// attempts and backoff included. A retry whose backoff would end past the
// budget is not attempted. Zero means no bound.
func WithSendBudget(d time.Duration) WebhookOption {
	return func(w *WebhookReporter) { w.budget = d }
}

// WithWebhookClock sets the time source used for backoff.
func WithWebhookClock(c clock.Clock) WebhookOption {
	return func(w *WebhookReporter) { w.clock = c }
}

// NewWebhookReporter creates a reporter posting to url.
func NewWebhookReporter(url string, logger *zap.Logger, opts ...WebhookOption) *WebhookReporter {
	w := &WebhookReporter{
		url: url,
		client: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		logger: logger.Named("webhook"),
		clock:  clock.New(),
		delay:  baseRetryDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish sends r. It returns the last error once retries or the send
// budget are exhausted, ErrRateLimited on 429, or the context error if ctx
// ends while waiting.
func (w *WebhookReporter) Publish(ctx context.Context, r *models.CollectionReport) error {
	body, err := encodeReport(r)
	if err != nil {
		return err
	}

	var deadline time.Time
	if w.budget > 0 {
		deadline = w.clock.Now().Add(w.budget)
		var cancel context.CancelFunc
		ctx, cancel = w.clock.WithDeadline(ctx, deadline)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * w.delay
			if !deadline.IsZero() && w.clock.Now().Add(delay).After(deadline) {
				return fmt.Errorf("send budget of %s exhausted after %d attempts: %w", w.budget, attempt, lastErr)
			}
			w.logger.Warn("Retrying send",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(delay):
			}
		}

		lastErr = w.doSend(ctx, body)
		if lastErr == nil {
			w.logger.Debug("Report sent", zap.Int("bytes", len(body)))
			return nil
		}

		// Rate limited, drop immediately without further retries
		if errors.Is(lastErr, ErrRateLimited) {
			w.logger.Warn("Rate limited by endpoint, dropping report", zap.Error(lastErr))
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		w.logger.Warn("Send failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	return fmt.Errorf("all retries exhausted: %w", lastErr)
}

func encodeReport(r *models.CollectionReport) ([]byte, error) {
	payload := WebhookPayload{
		Timestamp: r.Timestamp,
		Duration:  r.Duration,
		Critical:  r.HasCritical(),
		Results:   r.Results,
		Findings:  r.Findings(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	// Compress with gzip
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("finalize gzip compression: %w", err)
	}
	return compressed.Bytes(), nil
}

// doSend performs a single HTTP POST.
func (w *WebhookReporter) doSend(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("endpoint returned %d: %w", resp.StatusCode, ErrRateLimited)
	}
	return fmt.Errorf("endpoint returned %d", resp.StatusCode)
}
