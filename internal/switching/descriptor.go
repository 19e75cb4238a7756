// Package switching implements the pending authentication request protocol:
// launching a browser or app switch, persisting the pending request across
// process restarts, and resolving the deep link that comes back.
//
// The package is transport-agnostic and holds no mutable state. Payment
// methods plug in through Coordinator with their own metadata and result types.
package switching

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"unicode/utf8"
)

// Sentinel errors for switch failures.
// Use errors.Is() to check against these.
var (
	ErrInvalidDescriptor    = errors.New("invalid switch descriptor")
	ErrReturnSchemeMismatch = errors.New("return scheme not handled by host")
	ErrNoHandler            = errors.New("no application can handle this destination")
	ErrHandoffFailed        = errors.New("switch handoff failed")
	ErrMalformedPending     = errors.New("malformed pending request")
	ErrMissingField         = errors.New("missing required return field")
	ErrSwitchError          = errors.New("switch returned an error")
)

// Target identifies the kind of surface control is handed to.
type Target string

const (
	TargetBrowser Target = "browser" // Browser tab opened on Destination URL
	TargetApp     Target = "app"     // Installed app identified by Destination package
)

// MaxRequestCode bounds request codes to the 16-bit range host platforms accept.
const MaxRequestCode = 0xFFFF

// schemePattern is the RFC 3986 scheme grammar.
var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

// Descriptor describes where control is handed off and how the return is recognised.
// Treat it as immutable once built; use NewDescriptor to get a private metadata copy.
type Descriptor struct {
	Target         Target
	Destination    string // absolute URL (browser) or package identifier (app)
	ReturnScheme   string
	Metadata       Metadata
	RequestCode    int
	NotifyOnCancel bool
}

// NewDescriptor builds and validates a descriptor.
func NewDescriptor(target Target, destination, returnScheme string, requestCode int, notifyOnCancel bool, metadata Metadata) (Descriptor, error) {
	d := Descriptor{
		Target:         target,
		Destination:    destination,
		ReturnScheme:   returnScheme,
		Metadata:       metadata.Clone(),
		RequestCode:    requestCode,
		NotifyOnCancel: notifyOnCancel,
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// Validate checks the descriptor invariants.
func (d Descriptor) Validate() error {
	if d.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidDescriptor)
	}
	if d.ReturnScheme == "" {
		return fmt.Errorf("%w: return scheme is required", ErrInvalidDescriptor)
	}
	if !ValidScheme(d.ReturnScheme) {
		return fmt.Errorf("%w: return scheme %q is not a valid URI scheme", ErrInvalidDescriptor, d.ReturnScheme)
	}
	if d.RequestCode < 1 || d.RequestCode > MaxRequestCode {
		return fmt.Errorf("%w: request code %d out of range", ErrInvalidDescriptor, d.RequestCode)
	}
	// JSON would replace invalid bytes with U+FFFD and break the round trip.
	if !utf8.ValidString(d.Destination) {
		return fmt.Errorf("%w: destination is not valid UTF-8", ErrInvalidDescriptor)
	}
	for _, k := range d.Metadata.keys {
		if !utf8.ValidString(k) || !utf8.ValidString(d.Metadata.values[k]) {
			return fmt.Errorf("%w: metadata entry %q is not valid UTF-8", ErrInvalidDescriptor, k)
		}
	}

	switch d.Target {
	case TargetBrowser:
		if _, err := d.URL(); err != nil {
			return err
		}
	case TargetApp:
		// package identifiers are opaque
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidDescriptor, d.Target)
	}
	return nil
}

// URL parses Destination as an absolute URL.
func (d Descriptor) URL() (*url.URL, error) {
	u, err := url.Parse(d.Destination)
	if err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrInvalidDescriptor, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: destination %q is not absolute", ErrInvalidDescriptor, d.Destination)
	}
	return u, nil
}

// Equal reports field-for-field equality, including metadata order.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.Target == other.Target &&
		d.Destination == other.Destination &&
		d.ReturnScheme == other.ReturnScheme &&
		d.RequestCode == other.RequestCode &&
		d.NotifyOnCancel == other.NotifyOnCancel &&
		d.Metadata.Equal(other.Metadata)
}

// ValidScheme reports whether s matches the URI scheme grammar.
func ValidScheme(s string) bool {
	return schemePattern.MatchString(s)
}
