// Package venmo runs Venmo approvals through an app switch to the Venmo app,
// falling back to the Venmo web flow in a browser when the app is missing.
package venmo

import (
	"errors"
	"fmt"

	"payment-switch/internal/switching"
)

// AppPackage identifies the Venmo app on the host.
const AppPackage = "com.venmo"

// Request starts a Venmo approval.
type Request struct {
	ProfileID          string `json:"profile_id,omitempty"`           // defaults to the configured profile
	PaymentMethodUsage string `json:"payment_method_usage,omitempty"` // single_use (default) or multi_use
	DisplayName        string `json:"display_name,omitempty"`
	Amount             string `json:"amount,omitempty"`
	FallbackToWeb      *bool  `json:"fallback_to_web,omitempty"` // defaults to the configured value
}

// Metadata is carried in the pending request across the switch.
type Metadata struct {
	PaymentContextID string
	ProfileID        string
	Web              bool // approval ran in the browser
}

const (
	keyPaymentContextID = "venmo-payment-context-id"
	keyProfileID        = "venmo-profile-id"
	keySurface          = "venmo-surface"
)

type codec struct{}

func (codec) Encode(m Metadata) switching.Metadata {
	surface := "app"
	if m.Web {
		surface = "web"
	}
	return switching.NewMetadata(
		keyPaymentContextID, m.PaymentContextID,
		keyProfileID, m.ProfileID,
		keySurface, surface,
	)
}

func (codec) Decode(md switching.Metadata) (Metadata, error) {
	id := md.Value(keyPaymentContextID)
	if id == "" {
		return Metadata{}, errors.New("venmo payment context id missing")
	}
	return Metadata{
		PaymentContextID: id,
		ProfileID:        md.Value(keyProfileID),
		Web:              md.Value(keySurface) == "web",
	}, nil
}

// Result is the outcome of a Venmo switch: *Success, *Cancelled, *NoResult or *Failure.
type Result interface {
	venmoResult()
}

// Success is an approved Venmo payment context.
// PaymentMethodNonce is set when the app tokenized during the switch.
type Success struct {
	PaymentContextID   string `json:"payment_context_id"`
	Username           string `json:"username,omitempty"`
	PaymentMethodNonce string `json:"payment_method_nonce,omitempty"`
	Web                bool   `json:"web,omitempty"`
}

// Cancelled is an explicit cancel in the Venmo app or web flow.
type Cancelled struct {
	PaymentContextID string `json:"payment_context_id"`
}

// NoResult means the return did not belong to this switch.
type NoResult struct{}

// Failure is a switch that came back with an error or unusable data.
type Failure struct {
	Err error
}

func (*Success) venmoResult()   {}
func (*Cancelled) venmoResult() {}
func (*NoResult) venmoResult()  {}
func (*Failure) venmoResult()   {}

// ErrContextMismatch is returned when the app resolves a different payment context.
var ErrContextMismatch = errors.New("returned resource does not match the payment context")

type mapper struct{}

func (mapper) Success(m Metadata, p switching.Payload) (Result, error) {
	id := p.Values.Value("resource_id")
	if id != m.PaymentContextID {
		return nil, fmt.Errorf("%w: %s", ErrContextMismatch, id)
	}
	return &Success{
		PaymentContextID:   id,
		Username:           p.Values.Value("username"),
		PaymentMethodNonce: p.Values.Value("payment_method_nonce"),
		Web:                m.Web,
	}, nil
}

func (mapper) Cancel(m Metadata) Result {
	return &Cancelled{PaymentContextID: m.PaymentContextID}
}

func (mapper) NoResult() Result {
	return &NoResult{}
}

func (mapper) Failure(err error) Result {
	return &Failure{Err: err}
}
