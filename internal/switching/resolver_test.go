package switching

import (
	"errors"
	"reflect"
	"testing"
)

func mustSignal(t *testing.T, raw string) ReturnSignal {
	t.Helper()
	sig, err := ParseReturnSignal(raw, Metadata{})
	if err != nil {
		t.Fatalf("ParseReturnSignal(%q) error = %v", raw, err)
	}
	return sig
}

func exampleStarted(notify bool) *Started {
	return &Started{Descriptor: Descriptor{
		Target:         TargetBrowser,
		Destination:    "https://www.paypal.com/checkoutnow?token=EC-1",
		ReturnScheme:   "myapp",
		RequestCode:    7,
		NotifyOnCancel: notify,
		Metadata:       NewMetadata("client-metadata-id", "abc123"),
	}}
}

func TestResolve_ExampleScenarios(t *testing.T) {
	r := NewResolver(Rules{Required: []string{"token"}})
	p := exampleStarted(true)

	t.Run("success", func(t *testing.T) {
		out := r.Resolve(p, mustSignal(t, "myapp://success?token=EC-1"))
		s, ok := out.(*Success)
		if !ok {
			t.Fatalf("Resolve() = %T, want *Success", out)
		}
		want := map[string]string{"client-metadata-id": "abc123", "token": "EC-1"}
		if got := s.Payload.Values.Map(); !reflect.DeepEqual(got, want) {
			t.Errorf("payload = %v, want %v", got, want)
		}
		if s.Payload.ReturnURL != "myapp://success?token=EC-1" {
			t.Errorf("ReturnURL = %q", s.Payload.ReturnURL)
		}
	})

	t.Run("other app", func(t *testing.T) {
		if out := r.Resolve(p, mustSignal(t, "otherapp://success")); !isNoResult(out) {
			t.Errorf("Resolve() = %T, want *NoResult", out)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		if out := r.Resolve(p, mustSignal(t, "myapp://cancel")); !isCancel(out) {
			t.Errorf("Resolve() = %T, want *Cancel", out)
		}
	})
}

func TestResolve_SchemeMismatch(t *testing.T) {
	r := NewResolver(Rules{})
	p := &Started{Descriptor: Descriptor{Target: TargetApp, Destination: "com.venmo", ReturnScheme: "a", RequestCode: 1, NotifyOnCancel: true}}

	for _, raw := range []string{"b://success", "b://cancel", "https://a/success", "ab://x", "b://error"} {
		if out := r.Resolve(p, mustSignal(t, raw)); !isNoResult(out) {
			t.Errorf("Resolve(%q) = %T, want *NoResult", raw, out)
		}
	}
}

func TestResolve_SchemeCaseInsensitive(t *testing.T) {
	r := NewResolver(Rules{})
	if out := r.Resolve(exampleStarted(true), mustSignal(t, "MyApp://success")); !isSuccess(out) {
		t.Errorf("Resolve() = %T, want *Success", out)
	}
}

func TestResolve_CancelRespectsNotifyOnCancel(t *testing.T) {
	r := NewResolver(Rules{Required: []string{"token"}})

	signals := []string{
		"myapp://cancel",
		"myapp://onetouch/v1/cancel",
		"myapp://x-callback-url/vzero/auth/venmo/CANCEL",
		"myapp:cancel",
	}

	for _, raw := range signals {
		t.Run(raw, func(t *testing.T) {
			if out := r.Resolve(exampleStarted(true), mustSignal(t, raw)); !isCancel(out) {
				t.Errorf("notify=true: Resolve() = %T, want *Cancel", out)
			}
			if out := r.Resolve(exampleStarted(false), mustSignal(t, raw)); !isNoResult(out) {
				t.Errorf("notify=false: Resolve() = %T, want *NoResult", out)
			}
		})
	}
}

func TestResolve_CustomCancelMarker(t *testing.T) {
	r := NewResolver(Rules{CancelMarkers: []string{"local-payment-cancel"}})
	if out := r.Resolve(exampleStarted(true), mustSignal(t, "myapp://local-payment-cancel?paymentToken=x")); !isCancel(out) {
		t.Errorf("Resolve() = %T, want *Cancel", out)
	}
	// default marker no longer applies once markers are overridden
	if out := r.Resolve(exampleStarted(true), mustSignal(t, "myapp://cancel")); !isSuccess(out) {
		t.Errorf("Resolve() = %T, want *Success", out)
	}
}

func TestResolve_ErrorMarker(t *testing.T) {
	r := NewResolver(Rules{ErrorMessageParam: "errorMessage"})

	out := r.Resolve(exampleStarted(true), mustSignal(t, "myapp://x-callback-url/vzero/auth/venmo/error?errorMessage=declined"))
	f, ok := out.(*Failure)
	if !ok {
		t.Fatalf("Resolve() = %T, want *Failure", out)
	}
	if !errors.Is(f.Err, ErrSwitchError) {
		t.Errorf("error = %v, want ErrSwitchError", f.Err)
	}
	if f.Err.Error() != "switch returned an error: declined" {
		t.Errorf("error = %q", f.Err.Error())
	}
}

func TestResolve_MissingRequiredField(t *testing.T) {
	r := NewResolver(Rules{Required: []string{"token", "PayerID"}})

	out := r.Resolve(exampleStarted(true), mustSignal(t, "myapp://success?token=EC-1"))
	f, ok := out.(*Failure)
	if !ok {
		t.Fatalf("Resolve() = %T, want *Failure", out)
	}
	if !errors.Is(f.Err, ErrMissingField) {
		t.Errorf("error = %v, want ErrMissingField", f.Err)
	}
}

func TestResolve_RequiredFieldFromMetadata(t *testing.T) {
	r := NewResolver(Rules{Required: []string{"client-metadata-id"}})
	if out := r.Resolve(exampleStarted(true), mustSignal(t, "myapp://success")); !isSuccess(out) {
		t.Errorf("Resolve() = %T, want *Success", out)
	}
}

func TestResolve_MergeOrder(t *testing.T) {
	r := NewResolver(Rules{})
	extras := NewMetadata("os-extra", "1", "token", "from-extras")
	sig, err := ParseReturnSignal("myapp://success?z=26&a=1&token=q#frag=f", extras)
	if err != nil {
		t.Fatal(err)
	}

	out := r.Resolve(exampleStarted(true), sig)
	s, ok := out.(*Success)
	if !ok {
		t.Fatalf("Resolve() = %T, want *Success", out)
	}

	wantKeys := []string{"client-metadata-id", "a", "token", "z", "frag", "os-extra"}
	if got := s.Payload.Values.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("keys = %v, want %v", got, wantKeys)
	}
	if got := s.Payload.Values.Value("token"); got != "from-extras" {
		t.Errorf("token = %q, want extras to win", got)
	}
}

func TestResolve_DoesNotMutateDescriptor(t *testing.T) {
	r := NewResolver(Rules{})
	p := exampleStarted(true)
	before := p.Descriptor.Metadata.Clone()

	r.Resolve(p, mustSignal(t, "myapp://success?token=EC-1&client-metadata-id=override"))

	if !p.Descriptor.Metadata.Equal(before) {
		t.Errorf("descriptor metadata mutated: %v", p.Descriptor.Metadata.Map())
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(Rules{Required: []string{"token"}})
	p := exampleStarted(true)

	for _, raw := range []string{"myapp://success?token=EC-1&b=2&a=1", "myapp://cancel", "other://x", "myapp://success"} {
		sig := mustSignal(t, raw)
		first := r.Resolve(p, sig)
		second := r.Resolve(p, sig)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Resolve(%q) not idempotent: %#v vs %#v", raw, first, second)
		}
	}
}

func TestResolve_NilInputs(t *testing.T) {
	r := NewResolver(Rules{})
	if out := r.Resolve(nil, mustSignal(t, "myapp://success")); !isNoResult(out) {
		t.Errorf("nil pending: Resolve() = %T, want *NoResult", out)
	}
	if out := r.Resolve(exampleStarted(true), ReturnSignal{}); !isNoResult(out) {
		t.Errorf("nil URL: Resolve() = %T, want *NoResult", out)
	}
}

func TestParseReturnSignal_Invalid(t *testing.T) {
	for _, raw := range []string{"no-scheme/path", "%zz://bad"} {
		if _, err := ParseReturnSignal(raw, Metadata{}); err == nil {
			t.Errorf("ParseReturnSignal(%q) error = nil, want error", raw)
		}
	}
}

func TestParseReturnSignal_Blank(t *testing.T) {
	for _, raw := range []string{"", "   "} {
		sig, err := ParseReturnSignal(raw, NewMetadata("k", "v"))
		if err != nil {
			t.Fatalf("ParseReturnSignal(%q) error = %v", raw, err)
		}
		if sig.URL != nil || sig.Extras.Value("k") != "v" {
			t.Errorf("ParseReturnSignal(%q) = %+v, want no URL with extras", raw, sig)
		}
		if out := NewResolver(Rules{}).Resolve(exampleStarted(true), sig); !isNoResult(out) {
			t.Errorf("blank return: Resolve() = %T, want *NoResult", out)
		}
	}
}

func isSuccess(o Outcome) bool {
	_, ok := o.(*Success)
	return ok
}

func isCancel(o Outcome) bool {
	_, ok := o.(*Cancel)
	return ok
}

func isNoResult(o Outcome) bool {
	_, ok := o.(*NoResult)
	return ok
}
