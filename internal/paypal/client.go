package paypal

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
	ReturnScheme   string
	NotifyOnCancel bool
	Launcher       *switching.Launcher
	Logger         *slog.Logger
}

// Client runs PayPal switches against the gateway.
type Client struct {
	gw           gateway.Client
	coord        *switching.Coordinator[Metadata, Result]
	returnScheme string
	logger       *slog.Logger
}

// NewClient creates a PayPal client.
func NewClient(gw gateway.Client, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		gw: gw,
		coord: switching.NewCoordinator[Metadata, Result](opts.Launcher, codec{}, mapper{}, switching.CoordinatorConfig{
			RequestCode:    model.RequestCodePayPal,
			ReturnScheme:   opts.ReturnScheme,
			NotifyOnCancel: opts.NotifyOnCancel,
			Rules:          switching.Rules{Required: []string{"token"}},
		}),
		returnScheme: opts.ReturnScheme,
		logger:       logger,
	}
}

// Start creates the PayPal payment resource and switches to its approval URL.
// The error is reserved for invalid requests and gateway failures.
func (c *Client) Start(ctx context.Context, h switching.Host, req *Request) (switching.PendingRequest, error) {
	gwReq, err := c.gatewayRequest(req)
	if err != nil {
		return nil, err
	}

	res, err := c.gw.CreatePayPalPaymentResource(ctx, gwReq)
	if err != nil {
		return nil, err
	}

	flow := FlowCheckout
	if req.Vault {
		flow = FlowVault
	}
	meta := Metadata{
		ClientMetadataID: gwReq.ClientMetadataID,
		Flow:             flow,
		Token:            res.Token,
		ExpectedAmount:   gwReq.Amount,
	}

	c.logger.InfoContext(ctx, "starting paypal switch",
		slog.String("flow", string(flow)),
		slog.String("client_metadata_id", meta.ClientMetadataID),
	)
	return c.coord.Start(ctx, h, meta, switching.LaunchTarget{
		Kind:        switching.TargetBrowser,
		Destination: res.ApprovalURL,
	}), nil
}

// Finish restores a pending request and classifies the return.
func (c *Client) Finish(pending string, sig switching.ReturnSignal) (Result, error) {
	return c.coord.Finish(pending, sig)
}

// Complete tokenizes an approved switch into a nonce.
func (c *Client) Complete(ctx context.Context, s *Success) (*model.Nonce, error) {
	if s == nil || s.ApprovalToken == "" {
		return nil, model.NewValidationError("approval_token", "is required")
	}
	fields := map[string]string{
		"correlation_id": s.ClientMetadataID,
		"payment_token":  s.ApprovalToken,
	}
	if s.PayerID != "" {
		fields["payer_id"] = s.PayerID
	}
	if s.BillingAgreementToken != "" {
		fields["ba_token"] = s.BillingAgreementToken
	}
	return c.gw.Tokenize(ctx, &gateway.TokenizeRequest{Account: gateway.AccountPayPal, Fields: fields})
}

func (c *Client) gatewayRequest(req *Request) (*gateway.PayPalPaymentRequest, error) {
	if req == nil {
		return nil, model.NewValidationError("body", "request is required")
	}

	gwReq := &gateway.PayPalPaymentRequest{
		Vault:                       req.Vault,
		OfferPayLater:               req.OfferPayLater,
		BillingAgreementDescription: req.BillingAgreementDescription,
		ClientMetadataID:            req.ClientMetadataID,
		ReturnURL:                   c.returnScheme + "://onetouch/v1/success",
		CancelURL:                   c.returnScheme + "://onetouch/v1/cancel",
	}
	if gwReq.ClientMetadataID == "" {
		gwReq.ClientMetadataID = uuid.NewString()
	}

	switch intent := strings.ToLower(req.Intent); intent {
	case "", "authorize", "sale", "order":
		gwReq.Intent = intent
	default:
		return nil, model.NewValidationError("intent", "must be authorize, sale or order")
	}

	if req.Amount == "" && !req.Vault {
		return nil, model.NewValidationError("amount", "is required for checkout")
	}
	if req.Amount != "" {
		currency := req.CurrencyCode
		if currency == "" {
			currency = "USD"
		}
		amount, err := model.ParseAmount(req.Amount, currency)
		if err != nil {
			return nil, err
		}
		gwReq.Amount = amount.String()
		gwReq.CurrencyISOCode = amount.Currency
	}

	if !switching.ValidScheme(c.returnScheme) {
		return nil, model.NewInternalError(errors.New("paypal return scheme is not configured"))
	}
	return gwReq, nil
}
