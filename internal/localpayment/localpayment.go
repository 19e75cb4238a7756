// Package localpayment runs bank-redirect payments (iDEAL, Sofort, Bancontact, ...)
// through a browser switch.
package localpayment

import (
	"errors"
	"fmt"

	"payment-switch/internal/switching"
)

// Request starts a local payment.
type Request struct {
	PaymentType       string `json:"payment_type"` // ideal, sofort, bancontact, ...
	Amount            string `json:"amount"`
	CurrencyCode      string `json:"currency_code"`
	CountryCode       string `json:"country_code,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	Surname           string `json:"surname,omitempty"`
	Email             string `json:"email,omitempty"`
	MerchantAccountID string `json:"merchant_account_id,omitempty"`
}

// Metadata is carried in the pending request across the switch.
type Metadata struct {
	PaymentID        string
	PaymentType      string
	ClientMetadataID string
}

const (
	keyPaymentID        = "local-payment-id"
	keyPaymentType      = "local-payment-type"
	keyClientMetadataID = "client-metadata-id"
)

type codec struct{}

func (codec) Encode(m Metadata) switching.Metadata {
	return switching.NewMetadata(
		keyPaymentID, m.PaymentID,
		keyPaymentType, m.PaymentType,
		keyClientMetadataID, m.ClientMetadataID,
	)
}

func (codec) Decode(md switching.Metadata) (Metadata, error) {
	m := Metadata{
		PaymentID:        md.Value(keyPaymentID),
		PaymentType:      md.Value(keyPaymentType),
		ClientMetadataID: md.Value(keyClientMetadataID),
	}
	if m.PaymentID == "" {
		return Metadata{}, errors.New("local payment id missing")
	}
	return m, nil
}

// Result is the outcome of a local payment switch: *Success, *Cancelled, *NoResult or *Failure.
type Result interface {
	localPaymentResult()
}

// Success is an approved local payment, ready to tokenize.
type Success struct {
	PaymentID        string `json:"payment_id"`
	PaymentType      string `json:"payment_type"`
	PaymentToken     string `json:"payment_token"`
	PayerID          string `json:"payer_id,omitempty"`
	ClientMetadataID string `json:"client_metadata_id"`
	ReturnURL        string `json:"return_url"`
}

// Cancelled is an explicit cancel on the bank page.
type Cancelled struct {
	PaymentID string `json:"payment_id"`
}

// NoResult means the return did not belong to this switch.
type NoResult struct{}

// Failure is a switch that came back unusable.
type Failure struct {
	Err error
}

func (*Success) localPaymentResult()   {}
func (*Cancelled) localPaymentResult() {}
func (*NoResult) localPaymentResult()  {}
func (*Failure) localPaymentResult()   {}

// ErrPaymentMismatch is returned when the return names a payment other than the one started.
var ErrPaymentMismatch = errors.New("returned payment id does not match the started payment")

type mapper struct{}

func (mapper) Success(m Metadata, p switching.Payload) (Result, error) {
	if id := p.Values.Value("paymentId"); id != "" && id != m.PaymentID {
		return nil, fmt.Errorf("%w: got %q", ErrPaymentMismatch, id)
	}
	return &Success{
		PaymentID:        m.PaymentID,
		PaymentType:      m.PaymentType,
		PaymentToken:     p.Values.Value("token"),
		PayerID:          p.Values.Value("PayerID"),
		ClientMetadataID: m.ClientMetadataID,
		ReturnURL:        p.ReturnURL,
	}, nil
}

func (mapper) Cancel(m Metadata) Result {
	return &Cancelled{PaymentID: m.PaymentID}
}

func (mapper) NoResult() Result         { return &NoResult{} }
func (mapper) Failure(err error) Result { return &Failure{Err: err} }
