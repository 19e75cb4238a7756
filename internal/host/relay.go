package host

import (
	"context"
	"errors"

	"payment-switch/internal/switching"
)

// Handoff is the instruction returned to the device: open a URL in the
// browser or switch to an installed app.
type Handoff struct {
	Kind         switching.Target `json:"kind"`
	URL          string           `json:"url,omitempty"`
	Package      string           `json:"package,omitempty"`
	ReturnScheme string           `json:"return_scheme"`
	RequestCode  int              `json:"request_code"`

	// Extras are passed to the app on launch; browsers get everything in URL.
	Extras *switching.Metadata `json:"extras,omitempty"`
}

// Relay is a switching.Host for a remote device. It answers capability
// checks from the device's Profile and records the handoff instead of
// performing it. One Relay serves one request; it is not safe for concurrent use.
type Relay struct {
	Profile
	handoff *Handoff
}

// NewRelay creates a Relay for a parsed profile.
func NewRelay(p Profile) *Relay {
	return &Relay{Profile: p}
}

// Open records the handoff described by d.
func (r *Relay) Open(_ context.Context, d switching.Descriptor) error {
	if r.handoff != nil {
		return errors.New("relay already holds a handoff")
	}
	h := &Handoff{
		Kind:         d.Target,
		ReturnScheme: d.ReturnScheme,
		RequestCode:  d.RequestCode,
	}
	switch d.Target {
	case switching.TargetApp:
		h.Package = d.Destination
		extras := d.Metadata.Clone()
		h.Extras = &extras
	default:
		h.URL = d.Destination
	}
	r.handoff = h
	return nil
}

// Handoff returns the recorded handoff, or nil when Open was never reached.
func (r *Relay) Handoff() *Handoff {
	return r.handoff
}
