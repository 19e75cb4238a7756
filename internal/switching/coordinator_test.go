package switching

import (
	"context"
	"errors"
	"testing"
)

type testMeta struct {
	CorrelationID string
}

type testCodec struct{}

func (testCodec) Encode(m testMeta) Metadata {
	return NewMetadata("client-metadata-id", m.CorrelationID)
}

func (testCodec) Decode(md Metadata) (testMeta, error) {
	id, ok := md.Get("client-metadata-id")
	if !ok {
		return testMeta{}, errors.New("client-metadata-id missing")
	}
	return testMeta{CorrelationID: id}, nil
}

// testResult is a four-way result; kind is "success", "cancel", "no_result" or "failure".
type testResult struct {
	kind  string
	token string
	meta  testMeta
	err   error
}

type testMapper struct {
	collapseCancel bool
}

func (m testMapper) Success(meta testMeta, p Payload) (testResult, error) {
	tok := p.Values.Value("token")
	if tok == "bad" {
		return testResult{}, errors.New("token rejected")
	}
	return testResult{kind: "success", token: tok, meta: meta}, nil
}

func (m testMapper) Cancel(meta testMeta) testResult {
	if m.collapseCancel {
		return m.NoResult()
	}
	return testResult{kind: "cancel", meta: meta}
}

func (testMapper) NoResult() testResult          { return testResult{kind: "no_result"} }
func (testMapper) Failure(err error) testResult { return testResult{kind: "failure", err: err} }

func newTestCoordinator(collapseCancel bool) *Coordinator[testMeta, testResult] {
	return NewCoordinator[testMeta, testResult](nil, testCodec{}, testMapper{collapseCancel: collapseCancel}, CoordinatorConfig{
		RequestCode:    7,
		ReturnScheme:   "myapp",
		NotifyOnCancel: true,
		Rules:          Rules{Required: []string{"token"}},
	})
}

// TestCoordinator_RestartScenario walks launch → persist → restore → resolve.
func TestCoordinator_RestartScenario(t *testing.T) {
	c := newTestCoordinator(false)
	host := newFakeHost()

	pending := c.Start(context.Background(), host, testMeta{CorrelationID: "abc123"}, LaunchTarget{
		Kind:        TargetBrowser,
		Destination: "https://www.paypal.com/checkoutnow?token=EC-1",
	})
	started, ok := pending.(*Started)
	if !ok {
		t.Fatalf("Start() = %#v, want *Started", pending)
	}

	stored, err := started.StorableString()
	if err != nil {
		t.Fatalf("StorableString() error = %v", err)
	}

	// "process restart": only the string survives
	tests := []struct {
		name      string
		signal    string
		wantKind  string
		wantToken string
	}{
		{"success", "myapp://success?token=EC-1", "success", "EC-1"},
		{"other app", "otherapp://success", "no_result", ""},
		{"cancel", "myapp://cancel", "cancel", ""},
		{"missing token", "myapp://success", "failure", ""},
		{"mapper rejects", "myapp://success?token=bad", "failure", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Finish(stored, mustSignal(t, tt.signal))
			if err != nil {
				t.Fatalf("Finish() error = %v", err)
			}
			if got.kind != tt.wantKind {
				t.Errorf("kind = %s, want %s (err=%v)", got.kind, tt.wantKind, got.err)
			}
			if got.token != tt.wantToken {
				t.Errorf("token = %q, want %q", got.token, tt.wantToken)
			}
			if tt.wantKind == "success" && got.meta.CorrelationID != "abc123" {
				t.Errorf("CorrelationID = %q, want abc123", got.meta.CorrelationID)
			}
		})
	}
}

func TestCoordinator_FinishMalformed(t *testing.T) {
	c := newTestCoordinator(false)
	_, err := c.Finish("not a pending request", mustSignal(t, "myapp://success?token=x"))
	if !errors.Is(err, ErrMalformedPending) {
		t.Errorf("Finish() error = %v, want ErrMalformedPending", err)
	}
}

func TestCoordinator_CollapsedCancel(t *testing.T) {
	c := newTestCoordinator(true)
	started := &Started{Descriptor: Descriptor{
		Target: TargetApp, Destination: "com.venmo", ReturnScheme: "myapp", RequestCode: 7, NotifyOnCancel: true,
		Metadata: NewMetadata("client-metadata-id", "x"),
	}}

	if got := c.Resolve(started, mustSignal(t, "myapp://cancel")); got.kind != "no_result" {
		t.Errorf("kind = %s, want no_result", got.kind)
	}
}

func TestCoordinator_StartOverrides(t *testing.T) {
	c := newTestCoordinator(false)
	host := newFakeHost()
	host.schemes["custom"] = true
	notify := false

	pending := c.Start(context.Background(), host, testMeta{CorrelationID: "id"}, LaunchTarget{
		Kind:           TargetApp,
		Destination:    "com.venmo",
		ReturnScheme:   "custom",
		NotifyOnCancel: &notify,
	})
	started, ok := pending.(*Started)
	if !ok {
		t.Fatalf("Start() = %#v, want *Started", pending)
	}
	if started.Descriptor.ReturnScheme != "custom" || started.Descriptor.NotifyOnCancel {
		t.Errorf("descriptor = %+v, want overrides applied", started.Descriptor)
	}
	if got := c.Resolve(started, mustSignal(t, "custom://cancel")); got.kind != "no_result" {
		t.Errorf("kind = %s, want no_result when notify is off", got.kind)
	}
}

func TestCoordinator_StartInvalidTarget(t *testing.T) {
	c := newTestCoordinator(false)
	host := newFakeHost()

	pending := c.Start(context.Background(), host, testMeta{}, LaunchTarget{Kind: TargetBrowser})
	if _, ok := pending.(*LaunchFailure); !ok {
		t.Fatalf("Start() = %T, want *LaunchFailure", pending)
	}
	if len(host.opened) != 0 {
		t.Errorf("handoff attempted for invalid target")
	}
}

func TestCoordinator_MapPreservesClassification(t *testing.T) {
	c := newTestCoordinator(false)
	meta := testMeta{CorrelationID: "m"}

	tests := []struct {
		outcome Outcome
		want    string
	}{
		{&Success{Payload: Payload{Values: NewMetadata("token", "t")}}, "success"},
		{&Cancel{}, "cancel"},
		{&NoResult{}, "no_result"},
		{&Failure{Err: errors.New("x")}, "failure"},
	}

	for _, tt := range tests {
		if got := c.Map(meta, tt.outcome); got.kind != tt.want {
			t.Errorf("Map(%T) = %s, want %s", tt.outcome, got.kind, tt.want)
		}
	}
}

func TestCoordinator_ForeignRequestCode(t *testing.T) {
	c := newTestCoordinator(false)
	started := &Started{Descriptor: Descriptor{
		Target: TargetBrowser, Destination: "https://example.com", ReturnScheme: "myapp", RequestCode: 8, NotifyOnCancel: true,
		Metadata: NewMetadata("client-metadata-id", "x"),
	}}

	if got := c.Resolve(started, mustSignal(t, "myapp://success?token=t")); got.kind != "no_result" {
		t.Errorf("kind = %s, want no_result for another switch's request code", got.kind)
	}
}
