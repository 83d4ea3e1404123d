package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
)

// latencyTrackingRoundTripper wraps another RoundTripper to export the
// latency of every outgoing request to Prometheus, labeled by URL, method
// and response status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// normalized URL label without query params
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns the HTTP client used for feed and config polling.
// Connections are kept alive between polls so repeated downloads of the same
// feed skip the TCP/TLS handshake, and all timeouts are capped so a dead
// upstream cannot stall ingestion.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	instrumentedTransport := &latencyTrackingRoundTripper{next: transport}

	return &http.Client{
		Transport: instrumentedTransport,
		Timeout:   30 * time.Second,
	}
}
