package mixpanel

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultAPIHost is the ingestion host both endpoints live on.
	DefaultAPIHost = "api.mixpanel.com"
	// DefaultTimeout bounds a single ingestion request.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxInFlight bounds the number of concurrent ingestion requests.
	DefaultMaxInFlight = 32

	// Library identity fields attached to every event. The ingestion side
	// keys its parsing on these, so they must stay literal.
	LibName    = "python"
	LibVersion = "4.10.0"
)

// Endpoint names accepted by dispatch.
const (
	EndpointEvents = "events"
	EndpointPeople = "people"
)

// Event is a discrete behavioral event attributed to a distinct id.
type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
}

// ProfileUpdate is an upsert of descriptive attributes for a distinct id.
type ProfileUpdate struct {
	DistinctID string
	Properties map[string]any
}

// HTTPClient interface for making HTTP requests (allows mocking in tests)
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client emits events and profile updates to the ingestion endpoints.
// Delivery is best effort: every request runs in a detached goroutine and
// its outcome is only logged.
type Client struct {
	token       string
	apiHost     string
	timeout     time.Duration
	maxInFlight int64

	httpClient HTTPClient
	logger     *analyticsLogger
	tracer     trace.Tracer
	metrics    *Metrics

	now         func() time.Time
	newInsertID func() string

	// profileSet tracks "attempted", not "delivered". Concurrent first
	// calls may both observe false; ingestion dedupes by distinct id.
	profileSet atomic.Bool

	inFlight *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc

	// mu orders spawning against Close so wg.Add never races wg.Wait.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}
