package httpclient

import (
	"fmt"
	"net/http"
	"runtime"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pagermaid/analytics/pkg/version"
)

// UserAgent identifies this emitter on outgoing requests.
var UserAgent = fmt.Sprintf("pagermaid-analytics/%s (%s; %s)", version.Version, runtime.GOOS, runtime.GOARCH)

type userAgentTransport struct {
	agent string
	rt    http.RoundTripper
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r2 := req.Clone(req.Context())
	r2.Header.Set("User-Agent", u.agent)
	return u.rt.RoundTrip(r2)
}

// New returns an HTTP client that stamps the User-Agent header and traces
// every request. Timeouts are left to the caller's context.
func New() *http.Client {
	return &http.Client{
		Transport: NewTransport(http.DefaultTransport),
	}
}

// NewTransport wraps rt with User-Agent stamping and OpenTelemetry spans.
func NewTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return otelhttp.NewTransport(&userAgentTransport{
		agent: UserAgent,
		rt:    rt,
	})
}
