package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUpstreamTransport_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte("echo:" + string(body)))
	}))
	defer srv.Close()

	for _, fingerprint := range []bool{false, true} {
		client := &http.Client{Transport: NewUpstreamTransport(Options{DialTimeout: time.Second, BrowserFingerprint: fingerprint})}

		resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("fingerprint=%v: Post() error = %v", fingerprint, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if string(body) != "echo:hello" {
			t.Errorf("fingerprint=%v: body = %q", fingerprint, body)
		}
	}
}

func TestNewUpstreamTransport_DefaultTimeout(t *testing.T) {
	rt, ok := NewUpstreamTransport(Options{}).(*http.Transport)
	if !ok {
		t.Fatal("without fingerprinting the standard transport should be returned")
	}
	if rt.TLSHandshakeTimeout != 10*time.Second {
		t.Errorf("TLSHandshakeTimeout = %v, want 10s", rt.TLSHandshakeTimeout)
	}
}

// recordingTripper records request bodies and answers with err or a 200.
type recordingTripper struct {
	err    error
	bodies []string
}

func (r *recordingTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		req.Body.Close()
		body = string(b)
	}
	r.bodies = append(r.bodies, body)
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestUpstreamTransport_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		h2Err    error
		wantErr  bool
		wantH1   int
		wantBody string
	}{
		{"h2 ok", nil, false, 0, ""},
		{"alpn refused", fmt.Errorf("%w: gateway.test:443 negotiated %q", errNoH2, "http/1.1"), false, 1, `{"nonce":1}`},
		{"stream reset after write", errors.New("http2: stream closed"), true, 0, ""},
		{"connection lost", io.ErrUnexpectedEOF, true, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h2 := &recordingTripper{err: tt.h2Err}
			h1 := &recordingTripper{}
			rt := &upstreamTransport{h2: h2, h1: h1, plain: &recordingTripper{}}

			req, _ := http.NewRequest(http.MethodPost, "https://gateway.test/v1/payment_methods/paypal_accounts", strings.NewReader(`{"nonce":1}`))
			_, err := rt.RoundTrip(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RoundTrip() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(h1.bodies) != tt.wantH1 {
				t.Fatalf("HTTP/1.1 attempts = %d, want %d", len(h1.bodies), tt.wantH1)
			}
			if tt.wantH1 > 0 && h1.bodies[0] != tt.wantBody {
				t.Errorf("replayed body = %q, want %q", h1.bodies[0], tt.wantBody)
			}
		})
	}
}

func TestUpstreamTransport_RemembersHTTP1Hosts(t *testing.T) {
	h2 := &recordingTripper{err: errNoH2}
	h1 := &recordingTripper{}
	rt := &upstreamTransport{h2: h2, h1: h1, plain: &recordingTripper{}}

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodGet, "https://legacy.test/merchants", nil)
		if _, err := rt.RoundTrip(req); err != nil {
			t.Fatal(err)
		}
	}
	if len(h2.bodies) != 1 || len(h1.bodies) != 3 {
		t.Errorf("h2 attempts = %d, h1 attempts = %d; want 1 and 3", len(h2.bodies), len(h1.bodies))
	}
}

func TestUpstreamTransport_UnreplayableBody(t *testing.T) {
	h1 := &recordingTripper{}
	rt := &upstreamTransport{h2: &recordingTripper{err: errNoH2}, h1: h1, plain: &recordingTripper{}}

	req, _ := http.NewRequest(http.MethodPost, "https://gateway.test/v1", io.NopCloser(strings.NewReader("x")))
	if _, err := rt.RoundTrip(req); !errors.Is(err, errNoH2) {
		t.Errorf("RoundTrip() error = %v, want errNoH2", err)
	}
	if len(h1.bodies) != 0 {
		t.Error("a body without GetBody must not be replayed")
	}
}
