package switching

import (
	"errors"
	"strings"
	"testing"
)

func testDescriptor(t *testing.T) Descriptor {
	t.Helper()
	d, err := NewDescriptor(TargetBrowser, "https://www.paypal.com/checkoutnow?token=EC-1", "myapp", 7, true,
		NewMetadata("client-metadata-id", "abc123", "intent", "authorize", "a-key", "last"))
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	return d
}

func TestStorableString_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{
			name: "browser with metadata",
			d:    testDescriptor(t),
		},
		{
			name: "app without metadata",
			d: Descriptor{
				Target:       TargetApp,
				Destination:  "com.venmo",
				ReturnScheme: "com.merchant.app.braintree",
				RequestCode:  13488,
			},
		},
		{
			name: "notify off and unicode metadata",
			d: Descriptor{
				Target:       TargetBrowser,
				Destination:  "https://example.com/approve?x=1&y=2",
				ReturnScheme: "my-app.v2",
				RequestCode:  1,
				Metadata:     NewMetadata("zeta", "ü", "alpha", `quote"d`, "empty", ""),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := (&Started{Descriptor: tt.d}).StorableString()
			if err != nil {
				t.Fatalf("StorableString() error = %v", err)
			}

			got, err := ParseStarted(s)
			if err != nil {
				t.Fatalf("ParseStarted() error = %v", err)
			}
			if !got.Descriptor.Equal(tt.d) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got.Descriptor, tt.d)
			}
			if strings.Join(got.Descriptor.Metadata.Keys(), ",") != strings.Join(tt.d.Metadata.Keys(), ",") {
				t.Errorf("metadata order = %v, want %v", got.Descriptor.Metadata.Keys(), tt.d.Metadata.Keys())
			}
		})
	}
}

func TestStorableString_IsFlatJSON(t *testing.T) {
	s, err := (&Started{Descriptor: testDescriptor(t)}).StorableString()
	if err != nil {
		t.Fatalf("StorableString() error = %v", err)
	}
	if !strings.HasPrefix(s, "{") || strings.Contains(s, "\n") {
		t.Errorf("StorableString() = %q, want single-line JSON object", s)
	}
	if !strings.Contains(s, `"metadata":{"client-metadata-id":"abc123","intent":"authorize","a-key":"last"}`) {
		t.Errorf("metadata not encoded in insertion order: %s", s)
	}
}

func TestStorableString_InvalidDescriptor(t *testing.T) {
	_, err := (&Started{Descriptor: Descriptor{Target: TargetBrowser}}).StorableString()
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestStorableString_RejectsInvalidUTF8(t *testing.T) {
	base := Descriptor{Target: TargetApp, Destination: "com.venmo", ReturnScheme: "myapp", RequestCode: 3}
	tests := []struct {
		name   string
		mutate func(d *Descriptor)
	}{
		{"metadata value", func(d *Descriptor) { d.Metadata = NewMetadata("k", "a\xffb") }},
		{"metadata key", func(d *Descriptor) { d.Metadata = NewMetadata("\xfe", "v") }},
		{"destination", func(d *Descriptor) { d.Destination = "com.\xffvenmo" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			s, err := (&Started{Descriptor: d}).StorableString()
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("StorableString() = %q, %v; want ErrInvalidDescriptor", s, err)
			}
		})
	}
}

func TestParseStarted_IgnoresUnknownFields(t *testing.T) {
	s := `{"v":1,"target":"browser","destination":"https://x.test/a","return_scheme":"myapp",` +
		`"request_code":3,"notify_on_cancel":false,"metadata":{"k":"v"},"added_later":{"nested":[1,2]}}`

	got, err := ParseStarted(s)
	if err != nil {
		t.Fatalf("ParseStarted() error = %v", err)
	}
	if got.Descriptor.RequestCode != 3 {
		t.Errorf("RequestCode = %d, want 3", got.Descriptor.RequestCode)
	}
	if got.Descriptor.Metadata.Value("k") != "v" {
		t.Errorf("metadata k = %q, want v", got.Descriptor.Metadata.Value("k"))
	}
}

func TestParseStarted_MetadataOptional(t *testing.T) {
	s := `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`

	got, err := ParseStarted(s)
	if err != nil {
		t.Fatalf("ParseStarted() error = %v", err)
	}
	if got.Descriptor.Metadata.Len() != 0 {
		t.Errorf("metadata len = %d, want 0", got.Descriptor.Metadata.Len())
	}
}

func TestParseStarted_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not json", "EC-123"},
		{"json string", `"hello"`},
		{"json array", `[1,2,3]`},
		{"null", `null`},
		{"empty object", `{}`},
		{"truncated", `{"v":1,"target":"browser"`},
		{"trailing data", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true} {}`},
		{"missing version", `{"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"missing return scheme", `{"v":1,"target":"app","destination":"com.venmo","request_code":3,"notify_on_cancel":true}`},
		{"missing request code", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","notify_on_cancel":true}`},
		{"missing notify flag", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3}`},
		{"zero version", `{"v":0,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"negative version", `{"v":-4,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"future version", `{"v":99,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"wrong type", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":"3","notify_on_cancel":true}`},
		{"empty return scheme", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"","request_code":3,"notify_on_cancel":true}`},
		{"unknown target", `{"v":1,"target":"fax","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"relative browser url", `{"v":1,"target":"browser","destination":"/approve","return_scheme":"myapp","request_code":3,"notify_on_cancel":true}`},
		{"non-string metadata", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true,"metadata":{"n":1}}`},
		{"null metadata value", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true,"metadata":{"k":null}}`},
		{"object metadata value", `{"v":1,"target":"app","destination":"com.venmo","return_scheme":"myapp","request_code":3,"notify_on_cancel":true,"metadata":{"k":{"a":"b"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStarted(tt.input)
			if err == nil {
				t.Fatalf("ParseStarted() = %+v, want error", got)
			}
			if !errors.Is(err, ErrMalformedPending) {
				t.Errorf("error = %v, want ErrMalformedPending", err)
			}
		})
	}
}
