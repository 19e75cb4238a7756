package gateway

import (
	"context"

	"payment-switch/internal/model"
)

// Mock implements Client for testing.
// Each method can be configured via function fields; unset fields return
// sandbox-shaped defaults.
type Mock struct {
	CreatePayPalPaymentResourceFunc func(ctx context.Context, req *PayPalPaymentRequest) (*PayPalPaymentResource, error)
	CreateVenmoPaymentContextFunc   func(ctx context.Context, req *VenmoContextRequest) (*VenmoPaymentContext, error)
	CreateSEPAMandateFunc           func(ctx context.Context, req *SEPAMandateRequest) (*SEPAMandate, error)
	CreateLocalPaymentFunc          func(ctx context.Context, req *LocalPaymentRequest) (*LocalPayment, error)
	TokenizeFunc                    func(ctx context.Context, req *TokenizeRequest) (*model.Nonce, error)
}

// CreatePayPalPaymentResource calls the configured func or returns an EC-MOCK resource.
func (m *Mock) CreatePayPalPaymentResource(ctx context.Context, req *PayPalPaymentRequest) (*PayPalPaymentResource, error) {
	if m.CreatePayPalPaymentResourceFunc != nil {
		return m.CreatePayPalPaymentResourceFunc(ctx, req)
	}
	return &PayPalPaymentResource{
		ApprovalURL: "https://www.sandbox.paypal.com/checkoutnow?token=EC-MOCK",
		Token:       "EC-MOCK",
	}, nil
}

// CreateVenmoPaymentContext calls the configured func or returns a created context.
func (m *Mock) CreateVenmoPaymentContext(ctx context.Context, req *VenmoContextRequest) (*VenmoPaymentContext, error) {
	if m.CreateVenmoPaymentContextFunc != nil {
		return m.CreateVenmoPaymentContextFunc(ctx, req)
	}
	return &VenmoPaymentContext{
		ID:     "cGF5bWVudGNvbnRleHRfbW9jaw",
		Status: "CREATED",
		WebURL: "https://venmo.com/go/checkout?resource_id=cGF5bWVudGNvbnRleHRfbW9jaw",
	}, nil
}

// CreateSEPAMandate calls the configured func or returns a mandate awaiting approval.
func (m *Mock) CreateSEPAMandate(ctx context.Context, req *SEPAMandateRequest) (*SEPAMandate, error) {
	if m.CreateSEPAMandateFunc != nil {
		return m.CreateSEPAMandateFunc(ctx, req)
	}
	last4 := ""
	if n := len(req.IBAN); n >= 4 {
		last4 = req.IBAN[n-4:]
	}
	return &SEPAMandate{
		ApprovalURL:        "https://sandbox.mandate.example/approve?ref=mock",
		IBANLastFour:       last4,
		CustomerID:         req.CustomerID,
		BankReferenceToken: "QkEtMTIzNDU2",
		MandateType:        req.MandateType,
	}, nil
}

// CreateLocalPayment calls the configured func or returns a PAY-MOCK payment.
func (m *Mock) CreateLocalPayment(ctx context.Context, req *LocalPaymentRequest) (*LocalPayment, error) {
	if m.CreateLocalPaymentFunc != nil {
		return m.CreateLocalPaymentFunc(ctx, req)
	}
	return &LocalPayment{
		PaymentID:   "PAY-MOCK",
		ApprovalURL: "https://www.sandbox.paypal.com/local?token=LP-MOCK",
	}, nil
}

// Tokenize calls the configured func or returns a fake nonce for the account type.
func (m *Mock) Tokenize(ctx context.Context, req *TokenizeRequest) (*model.Nonce, error) {
	if m.TokenizeFunc != nil {
		return m.TokenizeFunc(ctx, req)
	}
	return &model.Nonce{Nonce: "fake-nonce-" + req.Account, Type: req.Account}, nil
}
