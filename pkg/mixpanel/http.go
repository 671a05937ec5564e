package mixpanel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// maxDrainBytes caps how much of an ingestion response is read before the
// connection is released.
const maxDrainBytes = 64 << 10

// endpointURL resolves one of the two endpoint names against the API host.
func (c *Client) endpointURL(endpoint string) (string, bool) {
	switch endpoint {
	case EndpointEvents:
		return "https://" + c.apiHost + "/track", true
	case EndpointPeople:
		return "https://" + c.apiHost + "/engage", true
	default:
		return "", false
	}
}

// dispatch sends an encoded payload to the named endpoint. Unknown endpoint
// names are ignored. Every failure is logged at debug level and dropped.
func (c *Client) dispatch(ctx context.Context, endpoint string, data []byte) {
	requestURL, ok := c.endpointURL(endpoint)
	if !ok {
		c.logger.Debug("Skipping payload for unknown endpoint", "endpoint", endpoint)
		return
	}

	ctx, span := c.tracer.Start(ctx, "mixpanel.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mixpanel.endpoint", endpoint)),
	)
	defer span.End()

	start := time.Now()
	status, err := c.post(ctx, requestURL, data)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.Int64("mixpanel.elapsed_ms", elapsed.Milliseconds()))
	if status != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("Request failed", "endpoint", endpoint, "error", err)
	}
	c.metrics.observe(endpoint, outcome, elapsed)

	c.logger.Debug("Request finished", "endpoint", endpoint, "status", status, "elapsed", elapsed)
}

// post performs the form-encoded ingestion request and returns the HTTP
// status code, or 0 if no response was received.
func (c *Client) post(ctx context.Context, requestURL string, data []byte) (int, error) {
	form := url.Values{}
	form.Set("data", string(data))
	form.Set("verbose", "1")
	form.Set("ip", "0")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.Body != nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("HTTP request failed with status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}
