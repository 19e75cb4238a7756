// Package transport provides the HTTP transport used for gateway calls.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Options configures NewUpstreamTransport.
type Options struct {
	// DialTimeout bounds TCP connect plus TLS handshake.
	DialTimeout time.Duration

	// BrowserFingerprint presents a Chrome ClientHello instead of Go's.
	// Some payment CDNs rate limit the Go TLS fingerprint.
	BrowserFingerprint bool
}

// NewUpstreamTransport creates the RoundTripper used by the gateway client.
//
// https requests go over HTTP/2 when the server negotiates it and fall back to
// HTTP/1.1 otherwise. Plain http requests (local sandboxes, tests) use a
// standard HTTP/1.1 transport.
func NewUpstreamTransport(opts Options) http.RoundTripper {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: opts.DialTimeout}

	plain := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}

	if !opts.BrowserFingerprint {
		plain.ForceAttemptHTTP2 = true
		plain.TLSHandshakeTimeout = opts.DialTimeout
		return plain
	}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialFingerprinted(ctx, dialer, network, addr)
	}

	return &upstreamTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				conn, err := dial(ctx, network, addr)
				if err != nil {
					return nil, err
				}
				if proto := conn.(*utls.UConn).ConnectionState().NegotiatedProtocol; proto != http2.NextProtoTLS {
					conn.Close()
					return nil, fmt.Errorf("%w: %s negotiated %q", errNoH2, addr, proto)
				}
				return conn, nil
			},
			ReadIdleTimeout: 30 * time.Second,
		},
		h1: &http.Transport{
			DialTLSContext:      dial,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
		plain: plain,
	}
}

// errNoH2 reports a TLS connection that did not negotiate HTTP/2.
var errNoH2 = errors.New("server does not speak HTTP/2")

type upstreamTransport struct {
	h2    http.RoundTripper
	h1    http.RoundTripper
	plain http.RoundTripper

	// h1Hosts remembers hosts that refused HTTP/2.
	h1Hosts sync.Map
}

// RoundTrip implements http.RoundTripper.
//
// A request is replayed over HTTP/1.1 only when the server refused HTTP/2
// during the handshake, before any request bytes were written, so gateway
// calls that create or tokenize never run twice.
func (t *upstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}
	if _, ok := t.h1Hosts.Load(req.URL.Host); ok {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil || !errors.Is(err, errNoH2) {
		return resp, err
	}
	t.h1Hosts.Store(req.URL.Host, struct{}{})

	retry, rerr := replayable(req)
	if rerr != nil || retry == nil {
		return nil, err
	}
	return t.h1.RoundTrip(retry)
}

// replayable returns a copy of req with a fresh body, or nil when the body
// cannot be read again.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// dialFingerprinted establishes a TLS connection with Chrome's ClientHello.
func dialFingerprinted(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
