// Package paypal runs PayPal checkout and vault approvals through a browser switch.
package paypal

import (
	"errors"
	"fmt"
	"strconv"

	"payment-switch/internal/switching"
)

// Flow distinguishes one-time checkout from billing agreement (vault) approval.
type Flow string

const (
	FlowCheckout Flow = "checkout"
	FlowVault    Flow = "vault"
)

// Request starts a PayPal approval.
type Request struct {
	Amount                      string `json:"amount,omitempty"`        // required for checkout
	CurrencyCode                string `json:"currency_code,omitempty"` // defaults to USD
	Intent                      string `json:"intent,omitempty"`        // authorize, sale or order
	Vault                       bool   `json:"vault,omitempty"`
	BillingAgreementDescription string `json:"billing_agreement_description,omitempty"`
	OfferPayLater               bool   `json:"offer_pay_later,omitempty"`
	ClientMetadataID            string `json:"client_metadata_id,omitempty"` // generated when empty
}

// Metadata is carried in the pending request across the switch.
type Metadata struct {
	ClientMetadataID string
	Flow             Flow
	Token            string // EC or BA token the approval URL was issued for
	ExpectedAmount   string
}

const (
	keyClientMetadataID = "client-metadata-id"
	keyFlow             = "paypal-flow"
	keyToken            = "paypal-token"
	keyAmount           = "paypal-amount"
)

type codec struct{}

func (codec) Encode(m Metadata) switching.Metadata {
	md := switching.NewMetadata(
		keyClientMetadataID, m.ClientMetadataID,
		keyFlow, string(m.Flow),
		keyToken, m.Token,
	)
	if m.ExpectedAmount != "" {
		md.Set(keyAmount, m.ExpectedAmount)
	}
	return md
}

func (codec) Decode(md switching.Metadata) (Metadata, error) {
	m := Metadata{
		ClientMetadataID: md.Value(keyClientMetadataID),
		Flow:             Flow(md.Value(keyFlow)),
		Token:            md.Value(keyToken),
		ExpectedAmount:   md.Value(keyAmount),
	}
	if m.Flow != FlowCheckout && m.Flow != FlowVault {
		return Metadata{}, fmt.Errorf("unknown paypal flow %q", m.Flow)
	}
	return m, nil
}

// Result is the outcome of a PayPal switch: *Success, *Cancelled, *NoResult or *Failure.
type Result interface {
	paypalResult()
}

// Success is an approved PayPal switch, ready to tokenize.
type Success struct {
	Flow                  Flow   `json:"flow"`
	ApprovalToken         string `json:"approval_token"`
	PayerID               string `json:"payer_id,omitempty"`
	BillingAgreementToken string `json:"billing_agreement_token,omitempty"`
	ClientMetadataID      string `json:"client_metadata_id"`
	ReturnURL             string `json:"return_url"`
}

// Cancelled is an explicit cancel by the buyer.
type Cancelled struct {
	ClientMetadataID string `json:"client_metadata_id"`
}

// NoResult means the return did not belong to this switch.
type NoResult struct{}

// Failure is a switch that came back unusable.
type Failure struct {
	Err error
}

func (*Success) paypalResult()   {}
func (*Cancelled) paypalResult() {}
func (*NoResult) paypalResult()  {}
func (*Failure) paypalResult()   {}

// ErrTokenMismatch is returned when the return carries a token other than the one issued.
var ErrTokenMismatch = errors.New("returned token does not match the approval token")

type mapper struct{}

func (mapper) Success(m Metadata, p switching.Payload) (Result, error) {
	token := p.Values.Value("token")
	s := &Success{
		Flow:             m.Flow,
		ApprovalToken:    token,
		PayerID:          p.Values.Value("PayerID"),
		ClientMetadataID: m.ClientMetadataID,
		ReturnURL:        p.ReturnURL,
	}
	if m.Flow == FlowVault {
		s.BillingAgreementToken = p.Values.Value("ba_token")
		if s.BillingAgreementToken == "" {
			s.BillingAgreementToken = token
		}
	}
	if m.Token != "" && token != m.Token && s.BillingAgreementToken != m.Token {
		return nil, fmt.Errorf("%w: got %s", ErrTokenMismatch, strconv.Quote(token))
	}
	return s, nil
}

func (mapper) Cancel(m Metadata) Result {
	return &Cancelled{ClientMetadataID: m.ClientMetadataID}
}

func (mapper) NoResult() Result {
	return &NoResult{}
}

func (mapper) Failure(err error) Result {
	return &Failure{Err: err}
}
