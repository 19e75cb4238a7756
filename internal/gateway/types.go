package gateway

import (
	"context"

	"payment-switch/internal/model"
)

// Client is the subset of the Braintree client API the switch flows need:
// creating the resource the buyer approves, then tokenizing the approval.
type Client interface {
	CreatePayPalPaymentResource(ctx context.Context, req *PayPalPaymentRequest) (*PayPalPaymentResource, error)
	CreateVenmoPaymentContext(ctx context.Context, req *VenmoContextRequest) (*VenmoPaymentContext, error)
	CreateSEPAMandate(ctx context.Context, req *SEPAMandateRequest) (*SEPAMandate, error)
	CreateLocalPayment(ctx context.Context, req *LocalPaymentRequest) (*LocalPayment, error)
	Tokenize(ctx context.Context, req *TokenizeRequest) (*model.Nonce, error)
}

// === PayPal ===

// PayPalPaymentRequest creates a one-time checkout or a billing agreement (vault).
type PayPalPaymentRequest struct {
	Vault                       bool   `json:"-"`
	Amount                      string `json:"amount,omitempty"`
	CurrencyISOCode             string `json:"currency_iso_code,omitempty"`
	Intent                      string `json:"intent,omitempty"`
	ReturnURL                   string `json:"return_url"`
	CancelURL                   string `json:"cancel_url"`
	OfferPayLater               bool   `json:"offer_pay_later,omitempty"`
	BillingAgreementDescription string `json:"description,omitempty"`
	ClientMetadataID            string `json:"correlation_id,omitempty"`
}

// PayPalPaymentResource is the approval resource the buyer is sent to.
// Token is the EC token for checkout or the BA token for vault.
type PayPalPaymentResource struct {
	ApprovalURL string `json:"redirect_url"`
	Token       string `json:"payment_token"`
}

// === Venmo ===

// VenmoContextRequest creates a payment context the Venmo app approves.
type VenmoContextRequest struct {
	ProfileID      string `json:"merchant_profile_id,omitempty"`
	PaymentMethod  string `json:"payment_method_usage"` // SINGLE_USE or MULTI_USE
	CustomerClient string `json:"customer_client"`      // MOBILE_APP or MOBILE_WEB
	DisplayName    string `json:"display_name,omitempty"`
	Amount         string `json:"total_amount,omitempty"`
}

// VenmoPaymentContext identifies the context the Venmo app resolves.
type VenmoPaymentContext struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	// WebURL is where the buyer approves when the app is not installed.
	WebURL string `json:"web_url,omitempty"`
}

// === SEPA Direct Debit ===

// SEPAMandateRequest creates a direct debit mandate.
type SEPAMandateRequest struct {
	AccountHolderName string `json:"account_holder_name"`
	IBAN              string `json:"iban"`
	CustomerID        string `json:"customer_id"`
	MandateType       string `json:"mandate_type"` // ONE_OFF or RECURRENT
	MerchantAccountID string `json:"merchant_account_id,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`
	ReturnURL         string `json:"return_url"`
	CancelURL         string `json:"cancel_url"`
}

// SEPAMandate is the created mandate. ApprovalURL is empty when the
// mandate was approved without buyer interaction.
type SEPAMandate struct {
	ApprovalURL        string `json:"approval_url,omitempty"`
	IBANLastFour       string `json:"last_4"`
	CustomerID         string `json:"customer_id"`
	BankReferenceToken string `json:"bank_reference_token"`
	MandateType        string `json:"mandate_type"`
}

// === Local payments ===

// LocalPaymentRequest creates a bank-redirect payment (iDEAL, Sofort, ...).
type LocalPaymentRequest struct {
	PaymentType       string `json:"funding_source"`
	Amount            string `json:"amount"`
	CurrencyCode      string `json:"currency_iso_code"`
	CountryCode       string `json:"payment_type_country_code,omitempty"`
	MerchantAccountID string `json:"merchant_account_id,omitempty"`
	GivenName         string `json:"first_name,omitempty"`
	Surname           string `json:"last_name,omitempty"`
	Email             string `json:"payer_email,omitempty"`
	ReturnURL         string `json:"return_url"`
	CancelURL         string `json:"cancel_url"`
}

// LocalPayment is the created payment and where the buyer approves it.
type LocalPayment struct {
	PaymentID   string `json:"payment_id"`
	ApprovalURL string `json:"approval_url"`
}

// === Tokenization ===

// Account types accepted by Tokenize.
const (
	AccountPayPal = "paypal_accounts"
	AccountVenmo  = "venmo_accounts"
	AccountSEPA   = "sepa_debit_accounts"
)

// TokenizeRequest exchanges an approved switch for a nonce.
// Fields are the account attributes for the given account type.
type TokenizeRequest struct {
	Account string            `json:"-"`
	Fields  map[string]string `json:"account"`
}

// errorResponse is the client API error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	FieldErrors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"fieldErrors"`
}

// nonceResponse wraps tokenization results, keyed by account type.
type nonceResponse struct {
	Nonce       string            `json:"nonce"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details"`
}
