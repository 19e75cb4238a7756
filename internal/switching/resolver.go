package switching

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Outcome is the classification of a return: *Success, *Cancel, *NoResult or *Failure.
type Outcome interface {
	outcome()
}

// Payload is the data carried by a successful return.
type Payload struct {
	Values    Metadata // descriptor metadata merged with data from the return
	ReturnURL string
}

// Success means the return matched and carried every required field.
type Success struct {
	Payload Payload
}

// Cancel means the user explicitly cancelled and the descriptor asked to be told.
type Cancel struct{}

// NoResult means the return did not correlate with the pending request, or a
// cancellation was not meant to be surfaced. It is not an error.
type NoResult struct{}

// Failure means the return matched but could not be turned into a result.
type Failure struct {
	Err error
}

func (*Success) outcome()  {}
func (*Cancel) outcome()   {}
func (*NoResult) outcome() {}
func (*Failure) outcome()  {}

// ReturnSignal is the inbound deep link delivered by the host on resume.
// A nil URL means the host resumed without one, e.g. the buyer closed the
// browser tab; it resolves to NoResult.
type ReturnSignal struct {
	URL    *url.URL
	Extras Metadata // host-provided callback data, e.g. intent extras
}

// ParseReturnSignal parses a raw deep link. A blank raw value yields a
// signal without a URL.
func ParseReturnSignal(raw string, extras Metadata) (ReturnSignal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ReturnSignal{Extras: extras.Clone()}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ReturnSignal{}, fmt.Errorf("parsing return URL: %w", err)
	}
	if u.Scheme == "" {
		return ReturnSignal{}, fmt.Errorf("return URL %q has no scheme", raw)
	}
	return ReturnSignal{URL: u, Extras: extras.Clone()}, nil
}

// Rules tune how a Resolver reads returns for one payment method.
type Rules struct {
	// CancelMarkers are route segments that mark an explicit cancel. Default: "cancel".
	CancelMarkers []string

	// ErrorMarkers are route segments that mark a failed switch. Default: "error".
	ErrorMarkers []string

	// Required keys must be present and non-empty in the success payload.
	Required []string

	// ErrorMessageParam names the query parameter holding an error description.
	ErrorMessageParam string
}

// Resolver matches return signals against pending requests.
// Resolve is pure: it performs no I/O and mutates nothing.
type Resolver struct {
	rules Rules
}

// NewResolver creates a Resolver, filling in default markers.
func NewResolver(rules Rules) Resolver {
	if len(rules.CancelMarkers) == 0 {
		rules.CancelMarkers = []string{"cancel"}
	}
	if len(rules.ErrorMarkers) == 0 {
		rules.ErrorMarkers = []string{"error"}
	}
	return Resolver{rules: rules}
}

// Resolve classifies sig against the pending request.
//
// Algorithm:
//  1. Scheme differs from the descriptor's return scheme → NoResult
//  2. Cancel marker in the route → Cancel if NotifyOnCancel, else NoResult
//  3. Error marker in the route → Failure
//  4. Merge metadata, query, fragment and extras; missing required key → Failure
//  5. Otherwise → Success
func (r Resolver) Resolve(p *Started, sig ReturnSignal) Outcome {
	if p == nil || sig.URL == nil {
		return &NoResult{}
	}
	d := p.Descriptor
	if !strings.EqualFold(sig.URL.Scheme, d.ReturnScheme) {
		return &NoResult{}
	}

	route := routeSegments(sig.URL)
	if containsAny(route, r.rules.CancelMarkers) {
		if d.NotifyOnCancel {
			return &Cancel{}
		}
		return &NoResult{}
	}

	query := sig.URL.Query()
	if containsAny(route, r.rules.ErrorMarkers) {
		msg := ""
		if r.rules.ErrorMessageParam != "" {
			msg = query.Get(r.rules.ErrorMessageParam)
		}
		if msg == "" {
			msg = "no error message provided"
		}
		return &Failure{Err: fmt.Errorf("%w: %s", ErrSwitchError, msg)}
	}

	values := d.Metadata.Clone()
	mergeValues(&values, query)
	if sig.URL.Fragment != "" {
		if frag, err := url.ParseQuery(sig.URL.Fragment); err == nil {
			mergeValues(&values, frag)
		}
	}
	values.Merge(sig.Extras)

	for _, key := range r.rules.Required {
		if values.Value(key) == "" {
			return &Failure{Err: fmt.Errorf("%w: %s", ErrMissingField, key)}
		}
	}

	return &Success{Payload: Payload{
		Values:    values,
		ReturnURL: sig.URL.String(),
	}}
}

// routeSegments returns the lower-cased host and path segments of u.
// For myapp://onetouch/v1/cancel this is [onetouch v1 cancel].
func routeSegments(u *url.URL) []string {
	var segs []string
	if u.Host != "" {
		segs = append(segs, strings.ToLower(u.Host))
	}
	path := u.Path
	if path == "" && u.Opaque != "" {
		path = u.Opaque
	}
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, strings.ToLower(s))
		}
	}
	return segs
}

func containsAny(segs, markers []string) bool {
	for _, s := range segs {
		for _, m := range markers {
			if s == strings.ToLower(m) {
				return true
			}
		}
	}
	return false
}

// mergeValues copies the first value of each key, in sorted key order so the
// result does not depend on map iteration.
func mergeValues(dst *Metadata, src url.Values) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(src[k]) > 0 {
			dst.Set(k, src[k][0])
		}
	}
}
