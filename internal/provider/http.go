package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single vendor call.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps vendor response bodies.
const maxResponseSize = 4 * 1024 * 1024

// httpConfig is built from HTTPOptions.
type httpConfig struct {
	timeout     time.Duration
	userAgent   string
	egressProxy string
}

// HTTPOption configures NewHTTPClient.
type HTTPOption func(*httpConfig)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *httpConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent sent to vendors.
func WithUserAgent(ua string) HTTPOption {
	return func(c *httpConfig) {
		c.userAgent = ua
	}
}

// WithEgressProxy routes vendor traffic through a proxy.
// socks5:// and socks5h:// use a SOCKS5 dialer; http:// and https:// use a
// forward proxy. An empty string connects directly.
func WithEgressProxy(rawURL string) HTTPOption {
	return func(c *httpConfig) {
		c.egressProxy = rawURL
	}
}

// NewHTTPClient creates the client shared by all detectors.
func NewHTTPClient(opts ...HTTPOption) (*http.Client, error) {
	cfg := &httpConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.egressProxy != "" {
		if err := configureProxy(transport, cfg.egressProxy); err != nil {
			return nil, err
		}
	}

	var rt http.RoundTripper = transport
	if cfg.userAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: cfg.userAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.timeout,
	}, nil
}

func configureProxy(transport *http.Transport, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidProxy, rawURL)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			password, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxy, u.Scheme)
	}
	return nil
}

// userAgentTransport sets the User-Agent on every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

// do sends req and returns the body of a 2xx response. Non-2xx responses
// become *APIError.
func do(client *http.Client, logger *slog.Logger, name string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", name, err)
	}

	logger.Debug("vendor response",
		"provider", name,
		"status_code", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(body),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Provider: name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
