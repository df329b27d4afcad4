// Package mlclient talks to the external budget optimization model service.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/logging"
)

const (
	maxBodySize = 1 << 20 // 1 MB
	userAgent   = "bopt/1.0"
)

var (
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("mlclient: unauthorized")
	// ErrRateLimited indicates the service throttled the request.
	ErrRateLimited = errors.New("mlclient: rate limited")
	// ErrBadRequest indicates the service rejected the request body.
	ErrBadRequest = errors.New("mlclient: bad request")
	// ErrUnavailable indicates the service failed or the breaker is open.
	ErrUnavailable = errors.New("mlclient: service unavailable")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration
	MaxWait    time.Duration
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client calls the model service with retries behind a circuit breaker.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// New creates a client. Returns nil if BaseURL is empty.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}
	log := logging.OrNop(opts.Logger).Named("mlclient")

	rc := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.RetryMax = opts.MaxRetries
	rc.RetryWaitMin = opts.RetryWait
	rc.RetryWaitMax = opts.MaxWait
	rc.Logger = retryLogger{log.Sugar()}
	// hand the final response back so its status maps to an error below
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{baseURL: base, apiKey: opts.APIKey, timeout: opts.Timeout, http: rc, log: log}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ml-service",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// caller mistakes say nothing about service health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnauthorized)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", zap.String("breaker", name),
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Optimize proposes a per-category allocation of a total.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (*OptimizeResponse, error) {
	var out OptimizeResponse
	if err := c.do(ctx, http.MethodPost, "/optimize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Predict forecasts spend per category for the coming months.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	if req.MonthsAhead <= 0 {
		req.MonthsAhead = 3
	}
	var out PredictResponse
	if err := c.do(ctx, http.MethodPost, "/predict", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze summarizes historical spend.
func (c *Client) Analyze(ctx context.Context, items []Item) (*Analysis, error) {
	if items == nil {
		items = []Item{}
	}
	var out Analysis
	if err := c.do(ctx, http.MethodPost, "/analyze", items, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health probes the service.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx, method, path, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
		}
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return errors.Wrapf(err, "mlclient: parsing %s response", path)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "mlclient: encoding request")
		}
		reader = bytes.NewReader(b)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "mlclient: creating request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "mlclient: %s %s", method, path)
		}
		return nil, errors.Wrapf(ErrUnavailable, "%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "mlclient: reading response")
	}
	c.log.Debug("ml request", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(ErrUnavailable, "status %d: %s", resp.StatusCode, detail(data))
	case resp.StatusCode >= 400:
		return nil, errors.Wrapf(ErrBadRequest, "status %d: %s", resp.StatusCode, detail(data))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.Errorf("mlclient: unexpected status %d", resp.StatusCode)
	}
	return data, nil
}

// detail extracts a FastAPI-style {"detail": ...} message, or the raw body.
func detail(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && len(e.Detail) > 0 {
		var s string
		if json.Unmarshal(e.Detail, &s) == nil {
			return s
		}
		return string(e.Detail)
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// retryLogger adapts zap to retryablehttp's leveled logger.
type retryLogger struct{ s *zap.SugaredLogger }

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
