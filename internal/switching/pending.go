package switching

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// PendingRequest is the result of a launch: *Started or *LaunchFailure.
type PendingRequest interface {
	pendingRequest()
}

// Started records a switch that left the host and is awaiting its return.
type Started struct {
	Descriptor Descriptor
}

// LaunchFailure records a switch that could not be started.
// No handoff happened.
type LaunchFailure struct {
	Err error
}

func (*Started) pendingRequest()       {}
func (*LaunchFailure) pendingRequest() {}

func (f *LaunchFailure) Error() string {
	if f.Err == nil {
		return "launch failed"
	}
	return f.Err.Error()
}

func (f *LaunchFailure) Unwrap() error {
	return f.Err
}

// storableVersion is the current pending request wire version.
const storableVersion = 1

// storedPending is the wire form of a Started request.
// Pointer fields distinguish "absent" from zero values so missing required
// fields are rejected instead of decoding to defaults.
type storedPending struct {
	Version        *int     `json:"v"`
	Target         *Target  `json:"target"`
	Destination    *string  `json:"destination"`
	ReturnScheme   *string  `json:"return_scheme"`
	RequestCode    *int     `json:"request_code"`
	NotifyOnCancel *bool    `json:"notify_on_cancel"`
	Metadata       Metadata `json:"metadata"`
}

// StorableString encodes the pending request as a flat JSON string that can be
// persisted verbatim and restored in another process with ParseStarted.
func (s *Started) StorableString() (string, error) {
	if err := s.Descriptor.Validate(); err != nil {
		return "", err
	}

	d := s.Descriptor
	version := storableVersion
	wire := storedPending{
		Version:        &version,
		Target:         &d.Target,
		Destination:    &d.Destination,
		ReturnScheme:   &d.ReturnScheme,
		RequestCode:    &d.RequestCode,
		NotifyOnCancel: &d.NotifyOnCancel,
		Metadata:       d.Metadata,
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encoding pending request: %w", err)
	}
	return string(data), nil
}

// ParseStarted restores a pending request produced by StorableString.
// Unknown fields are ignored; missing required fields, trailing data, and
// foreign or corrupt input fail with ErrMalformedPending.
func ParseStarted(s string) (*Started, error) {
	if len(bytes.TrimSpace([]byte(s))) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedPending)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var wire storedPending
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPending, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after pending request", ErrMalformedPending)
	}

	if err := wire.checkRequired(); err != nil {
		return nil, err
	}
	if *wire.Version < 1 || *wire.Version > storableVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedPending, *wire.Version)
	}

	d := Descriptor{
		Target:         *wire.Target,
		Destination:    *wire.Destination,
		ReturnScheme:   *wire.ReturnScheme,
		Metadata:       wire.Metadata,
		RequestCode:    *wire.RequestCode,
		NotifyOnCancel: *wire.NotifyOnCancel,
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPending, err)
	}
	return &Started{Descriptor: d}, nil
}

func (w *storedPending) checkRequired() error {
	missing := ""
	switch {
	case w.Version == nil:
		missing = "v"
	case w.Target == nil:
		missing = "target"
	case w.Destination == nil:
		missing = "destination"
	case w.ReturnScheme == nil:
		missing = "return_scheme"
	case w.RequestCode == nil:
		missing = "request_code"
	case w.NotifyOnCancel == nil:
		missing = "notify_on_cancel"
	}
	if missing != "" {
		return fmt.Errorf("%w: %s is required", ErrMalformedPending, missing)
	}
	return nil
}
