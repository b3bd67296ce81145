// Package probes provides the HTTP probe used for captive portal detection.
package probes

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"

	"github.com/user/portalwatch/internal/model"
)

// maxBody bounds how much of a response body is inspected.
const maxBody = 1024

// InterfaceResolver maps a network to the OS interface its probes should
// leave through. An empty name means no binding.
type InterfaceResolver func(model.NetworkIdentity) string

// HTTPProber issues a single GET to a well-known URL and reports the raw
// status code. Redirects are never followed: a redirect is what a portal
// answers with.
type HTTPProber struct {
	url          string
	expectedBody string
	userAgent    string
	resolve      InterfaceResolver
	proxy        func(*url.URL) (*url.URL, error)
	dialTimeout  time.Duration
}

// HTTPOption configures an HTTPProber.
type HTTPOption func(*HTTPProber)

// WithExpectedBody marks 200 responses containing body as connected, for
// endpoints that answer with a fixed page instead of 204.
func WithExpectedBody(body string) HTTPOption {
	return func(p *HTTPProber) {
		p.expectedBody = body
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(p *HTTPProber) {
		p.userAgent = ua
	}
}

// WithInterfaceResolver binds probe sockets to the network's interface
// where the platform supports it.
func WithInterfaceResolver(r InterfaceResolver) HTTPOption {
	return func(p *HTTPProber) {
		p.resolve = r
	}
}

// WithProxyFunc overrides the proxy selection taken from the environment.
func WithProxyFunc(fn func(*url.URL) (*url.URL, error)) HTTPOption {
	return func(p *HTTPProber) {
		p.proxy = fn
	}
}

// NewHTTPProber creates a prober for probeURL.
func NewHTTPProber(probeURL string, opts ...HTTPOption) *HTTPProber {
	p := &HTTPProber{
		url:         probeURL,
		userAgent:   "portalwatch/1.0",
		proxy:       httpproxy.FromEnvironment().ProxyFunc(),
		dialTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the probe URL.
func (p *HTTPProber) URL() string {
	return p.url
}

// RunProbe runs Probe on its own goroutine and hands the result to done.
func (p *HTTPProber) RunProbe(ctx context.Context, network model.NetworkIdentity, done func(model.ProbeResult)) {
	go func() {
		done(p.Probe(ctx, network))
	}()
}

// Probe performs one request. Failures to get any response are reported as
// a transport failure; every response, whatever its status, is a result.
func (p *HTTPProber) Probe(ctx context.Context, network model.NetworkIdentity) model.ProbeResult {
	client := p.newClient(network)
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return model.TransportFailure(fmt.Errorf("failed to build probe request: %w", err))
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return model.TransportFailure(err)
	}
	defer resp.Body.Close()

	res := model.ProbeResult{ResponseCode: resp.StatusCode}
	if p.expectedBody != "" && resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return model.TransportFailure(fmt.Errorf("failed to read probe body: %w", err))
		}
		res.ContentMatched = strings.Contains(string(body), p.expectedBody)
	}
	return res
}

func (p *HTTPProber) newClient(network model.NetworkIdentity) *http.Client {
	dialer := &net.Dialer{Timeout: p.dialTimeout}
	if p.resolve != nil {
		if iface := p.resolve(network); iface != "" {
			dialer.Control = bindToDevice(iface)
		}
	}

	proxy := p.proxy
	return &http.Client{
		Transport: &http.Transport{
			Proxy: func(req *http.Request) (*url.URL, error) {
				if proxy == nil {
					return nil, nil
				}
				return proxy(req.URL)
			},
			DialContext:       dialer.DialContext,
			DisableKeepAlives: true,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
