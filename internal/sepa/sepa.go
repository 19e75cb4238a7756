// Package sepa runs SEPA Direct Debit mandate approval through a browser switch.
// Mandates the gateway approves without buyer interaction complete immediately.
package sepa

import (
	"errors"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"payment-switch/internal/switching"
)

// Mandate types.
const (
	MandateOneOff    = "ONE_OFF"
	MandateRecurrent = "RECURRENT"
)

// Request starts a mandate approval.
type Request struct {
	AccountHolderName string `json:"account_holder_name"`
	IBAN              string `json:"iban"`
	CustomerID        string `json:"customer_id"`
	MandateType       string `json:"mandate_type,omitempty"` // one_off (default) or recurrent
	MerchantAccountID string `json:"merchant_account_id,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`
}

// Metadata is carried in the pending request across the switch. The return
// link carries nothing useful, so everything the result needs lives here.
type Metadata struct {
	IBANLastFour       string
	CustomerID         string
	BankReferenceToken string
	MandateType        string
}

const (
	keyIBANLastFour       = "sepa-iban-last-four"
	keyCustomerID         = "sepa-customer-id"
	keyBankReferenceToken = "sepa-bank-reference-token"
	keyMandateType        = "sepa-mandate-type"
)

type codec struct{}

func (codec) Encode(m Metadata) switching.Metadata {
	return switching.NewMetadata(
		keyIBANLastFour, m.IBANLastFour,
		keyCustomerID, m.CustomerID,
		keyBankReferenceToken, m.BankReferenceToken,
		keyMandateType, m.MandateType,
	)
}

func (codec) Decode(md switching.Metadata) (Metadata, error) {
	m := Metadata{
		IBANLastFour:       md.Value(keyIBANLastFour),
		CustomerID:         md.Value(keyCustomerID),
		BankReferenceToken: md.Value(keyBankReferenceToken),
		MandateType:        md.Value(keyMandateType),
	}
	if m.BankReferenceToken == "" {
		return Metadata{}, errors.New("sepa bank reference token missing")
	}
	return m, nil
}

// Result is the outcome of a mandate switch: *Success, *Cancelled, *NoResult or *Failure.
type Result interface {
	sepaResult()
}

// Success is an approved mandate, ready to tokenize.
type Success struct {
	IBANLastFour       string `json:"iban_last_four"`
	CustomerID         string `json:"customer_id"`
	BankReferenceToken string `json:"bank_reference_token"`
	MandateType        string `json:"mandate_type"`
}

// Cancelled is an explicit cancel on the mandate page.
type Cancelled struct{}

// NoResult means the return did not belong to this switch.
type NoResult struct{}

// Failure is a switch that came back unusable.
type Failure struct {
	Err error
}

func (*Success) sepaResult()   {}
func (*Cancelled) sepaResult() {}
func (*NoResult) sepaResult()  {}
func (*Failure) sepaResult()   {}

type mapper struct{}

func (mapper) Success(m Metadata, _ switching.Payload) (Result, error) {
	return successFrom(m), nil
}

func (mapper) Cancel(Metadata) Result   { return &Cancelled{} }
func (mapper) NoResult() Result         { return &NoResult{} }
func (mapper) Failure(err error) Result { return &Failure{Err: err} }

func successFrom(m Metadata) *Success {
	return &Success{
		IBANLastFour:       m.IBANLastFour,
		CustomerID:         m.CustomerID,
		BankReferenceToken: m.BankReferenceToken,
		MandateType:        m.MandateType,
	}
}

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

// NormalizeIBAN strips spaces, upper-cases and validates the ISO 13616 check digits.
// Examples: "de89 3704 0044 0532 0130 00" → "DE89370400440532013000"
func NormalizeIBAN(s string) (string, bool) {
	iban := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if !ibanPattern.MatchString(iban) {
		return "", false
	}

	// Move the country code and check digits to the end, map letters to 10..35,
	// and the result mod 97 must be 1.
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(strconv.Itoa(int(r-'A') + 10))
		} else {
			digits.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return "", false
	}
	if new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return "", false
	}
	return iban, true
}
