// internal/poller/https/client.go
package https

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/http2"
)

const (
	defaultChunkSize = 512
	defaultTimeout   = 15 * time.Second
)

// TransportError is any failure to obtain a complete 2xx response body.
type TransportError struct {
	Op         string // "request", "status" or "read"
	StatusCode int    // set when Op == "status"
	Err        error
}

func (e *TransportError) Error() string {
	if e.Op == "status" {
		return fmt.Sprintf("https: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("https: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config is the transport configuration. It is fixed for the client's life.
type Config struct {
	Timeout   time.Duration
	ChunkSize int

	// CAFile adds PEM roots on top of the system pool.
	CAFile string
	// RootCAs replaces the system pool entirely when set.
	RootCAs *x509.CertPool

	// KeepAlive keeps idle connections between requests. When false every
	// Get releases its connection on return.
	KeepAlive bool
	UserAgent string
}

// Client implements poller.Transport with HTTP/1.1 and HTTP/2 over TLS.
// It reuses one read buffer and must not be used concurrently.
type Client struct {
	hc        *http.Client
	tr        *http.Transport
	buf       []byte
	keepAlive bool
	userAgent string
}

// New builds the client. Certificates are validated against the system
// trust store unless RootCAs or CAFile say otherwise.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	roots := cfg.RootCAs
	if roots == nil && cfg.CAFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("https: read ca file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("https: no certificates in %s", cfg.CAFile)
		}
		roots = pool
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: cfg.Timeout,
		DisableKeepAlives:   !cfg.KeepAlive,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("https: configure http2: %w", err)
	}

	return &Client{
		hc:        &http.Client{Transport: tr, Timeout: cfg.Timeout},
		tr:        tr,
		buf:       make([]byte, cfg.ChunkSize),
		keepAlive: cfg.KeepAlive,
		userAgent: cfg.UserAgent,
	}, nil
}

// Get performs one GET and hands every body chunk to onChunk as it is read.
// The chunk slice is only valid during the call. Get returns after the body
// is fully delivered or on the first error.
func (c *Client) Get(ctx context.Context, rawURL string, onChunk func([]byte)) error {
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TransportError{Op: "request", Err: unwrapURLError(err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &TransportError{Op: "request", Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &TransportError{Op: "status", StatusCode: resp.StatusCode}
	}

	for {
		n, err := resp.Body.Read(c.buf)
		if n > 0 {
			onChunk(c.buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &TransportError{Op: "read", Err: unwrapURLError(err)}
		}
	}
}

// Close drops pooled connections.
func (c *Client) Close() error {
	c.tr.CloseIdleConnections()
	return nil
}

func (c *Client) release() {
	if !c.keepAlive {
		c.tr.CloseIdleConnections()
	}
}

// unwrapURLError strips *url.Error so the request URL, which carries the
// API key, never reaches the log.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// Redact returns rawURL with the key query parameter masked.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
