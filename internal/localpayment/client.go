package localpayment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"payment-switch/internal/gateway"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Options configures a Client.
type Options struct {
	ReturnScheme      string
	NotifyOnCancel    bool
	MerchantAccountID string
	Launcher          *switching.Launcher
	Logger            *slog.Logger
}

// Client runs local payment switches against the gateway.
type Client struct {
	gw     gateway.Client
	coord  *switching.Coordinator[Metadata, Result]
	opts   Options
	logger *slog.Logger
}

// NewClient creates a local payment client.
func NewClient(gw gateway.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		gw: gw,
		coord: switching.NewCoordinator[Metadata, Result](opts.Launcher, codec{}, mapper{}, switching.CoordinatorConfig{
			RequestCode:    model.RequestCodeLocalPayment,
			ReturnScheme:   opts.ReturnScheme,
			NotifyOnCancel: opts.NotifyOnCancel,
			Rules: switching.Rules{
				CancelMarkers: []string{"local-payment-cancel", "cancel"},
				Required:      []string{"token"},
			},
		}),
		opts:   opts,
		logger: logger,
	}
}

// Start creates the payment and switches to the bank's approval page.
// The error is reserved for invalid requests and gateway failures.
func (c *Client) Start(ctx context.Context, h switching.Host, req *Request) (switching.PendingRequest, error) {
	gwReq, err := c.gatewayRequest(req)
	if err != nil {
		return nil, err
	}

	payment, err := c.gw.CreateLocalPayment(ctx, gwReq)
	if err != nil {
		return nil, err
	}
	if payment.PaymentID == "" {
		return nil, model.NewUpstreamError("gateway", errors.New("gateway returned a local payment without an id"))
	}

	meta := Metadata{
		PaymentID:        payment.PaymentID,
		PaymentType:      gwReq.PaymentType,
		ClientMetadataID: uuid.NewString(),
	}
	c.logger.InfoContext(ctx, "starting local payment switch",
		slog.String("payment_type", meta.PaymentType),
		slog.String("payment_id", meta.PaymentID),
	)
	return c.coord.Start(ctx, h, meta, switching.LaunchTarget{
		Kind:        switching.TargetBrowser,
		Destination: payment.ApprovalURL,
	}), nil
}

// Finish restores a pending request and classifies the return.
func (c *Client) Finish(pending string, sig switching.ReturnSignal) (Result, error) {
	return c.coord.Finish(pending, sig)
}

// Complete tokenizes an approved local payment into a nonce.
func (c *Client) Complete(ctx context.Context, s *Success) (*model.Nonce, error) {
	if s == nil || s.PaymentToken == "" {
		return nil, model.NewValidationError("payment_token", "is required")
	}
	fields := map[string]string{
		"intent":           "sale",
		"payment_token":    s.PaymentToken,
		"correlation_id":   s.ClientMetadataID,
		"payment_type":     s.PaymentType,
		"local_payment_id": s.PaymentID,
		"response_type":    "web",
	}
	if s.PayerID != "" {
		fields["payer_id"] = s.PayerID
	}
	if c.opts.MerchantAccountID != "" {
		fields["merchant_account_id"] = c.opts.MerchantAccountID
	}
	return c.gw.Tokenize(ctx, &gateway.TokenizeRequest{Account: gateway.AccountPayPal, Fields: fields})
}

func (c *Client) gatewayRequest(req *Request) (*gateway.LocalPaymentRequest, error) {
	if req == nil {
		return nil, model.NewValidationError("body", "request is required")
	}
	paymentType := strings.ToLower(strings.TrimSpace(req.PaymentType))
	if paymentType == "" {
		return nil, model.NewValidationError("payment_type", "is required")
	}
	amount, err := model.ParseAmount(req.Amount, req.CurrencyCode)
	if err != nil {
		return nil, err
	}
	if !switching.ValidScheme(c.opts.ReturnScheme) {
		return nil, model.NewInternalError(errors.New("local payment return scheme is not configured"))
	}

	merchantAccount := req.MerchantAccountID
	if merchantAccount == "" {
		merchantAccount = c.opts.MerchantAccountID
	}
	return &gateway.LocalPaymentRequest{
		PaymentType:       paymentType,
		Amount:            amount.String(),
		CurrencyCode:      amount.Currency,
		CountryCode:       strings.ToUpper(req.CountryCode),
		MerchantAccountID: merchantAccount,
		GivenName:         req.GivenName,
		Surname:           req.Surname,
		Email:             req.Email,
		ReturnURL:         c.opts.ReturnScheme + "://local-payment-success",
		CancelURL:         c.opts.ReturnScheme + "://local-payment-cancel",
	}, nil
}
