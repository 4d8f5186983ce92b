// Package netcheck provides a best-effort internet reachability probe.
package netcheck

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout bounds the whole probe, all endpoints included.
const DefaultTimeout = 3 * time.Second

var probeEndpoints = []string{
	"https://www.gstatic.com/generate_204",
	"https://www.google.com",
}

// Probe reports whether the internet is reachable.
type Probe interface {
	Up(ctx context.Context) bool
}

// HTTPProbe checks reachability with short GET requests against a small
// fixed list of well-known endpoints. The first success wins.
type HTTPProbe struct {
	client    *http.Client
	endpoints []string
}

// NewHTTPProbe creates a probe with the default endpoints and timeout.
func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{
		client:    &http.Client{Timeout: DefaultTimeout},
		endpoints: probeEndpoints,
	}
}

// Up returns true as soon as any endpoint answers with a 2xx or 3xx
// status. It never returns an error; all failures read as "offline".
func (p *HTTPProbe) Up(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	for _, url := range p.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			continue
		}
		resp, err := p.client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 400 {
			return true
		}
	}
	return false
}
