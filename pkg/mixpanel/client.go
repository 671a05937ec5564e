package mixpanel

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/pagermaid/analytics/pkg/httpclient"
)

const tracerName = "github.com/pagermaid/analytics/pkg/mixpanel"

// analyticsLogger wraps slog.Logger to automatically prepend "[Analytics]" to all messages
type analyticsLogger struct {
	logger *slog.Logger
}

func newAnalyticsLogger(logger *slog.Logger) *analyticsLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &analyticsLogger{logger: logger}
}

func (l *analyticsLogger) Debug(msg string, args ...any) {
	l.logger.Debug("[Analytics] "+msg, args...)
}

func (l *analyticsLogger) Warn(msg string, args ...any) {
	l.logger.Warn("[Analytics] "+msg, args...)
}

func (l *analyticsLogger) Error(msg string, args ...any) {
	l.logger.Error("[Analytics] "+msg, args...)
}

func (l *analyticsLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.logger.Enabled(ctx, level)
}

type Option func(*Client)

// WithAPIHost overrides the ingestion host. Both endpoints are resolved
// against it over https.
func WithAPIHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.apiHost = host
		}
	}
}

func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = newAnalyticsLogger(logger)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxInFlight caps concurrent requests. Dispatches beyond the cap are
// dropped instead of queued.
func WithMaxInFlight(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxInFlight = int64(n)
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// NewClient creates a client for the given project token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		apiHost:     DefaultAPIHost,
		timeout:     DefaultTimeout,
		maxInFlight: DefaultMaxInFlight,
		logger:      newAnalyticsLogger(nil),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		newInsertID: newInsertID,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httpclient.New()
	}

	c.inFlight = semaphore.NewWeighted(c.maxInFlight)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.logger.Debug("Client created", "api_host", c.apiHost, "timeout", c.timeout, "max_in_flight", c.maxInFlight, "has_token", token != "")

	return c
}

// ProfileSet reports whether a profile update has already been attempted.
func (c *Client) ProfileSet() bool {
	return c.profileSet.Load()
}

// Wait blocks until every dispatched request has finished. Callers must not
// submit new payloads while waiting; use Close for shutdown.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Close abandons in-flight requests and waits for their goroutines to exit.
// It is safe to call concurrently with Track and PeopleSet; payloads
// submitted after Close are dropped. Close may be called more than once.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}
