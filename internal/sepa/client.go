package sepa

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"payment-switch/internal/gateway"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Options configures a Client.
type Options struct {
	ReturnScheme      string
	NotifyOnCancel    bool
	MerchantAccountID string // default when the request names none
	Launcher          *switching.Launcher
	Logger            *slog.Logger
}

// Client runs mandate switches against the gateway.
type Client struct {
	gw    gateway.Client
	coord *switching.Coordinator[Metadata, Result]
	opts  Options
}

// StartOutcome is either a pending switch or a mandate approved without one.
type StartOutcome struct {
	Pending  switching.PendingRequest
	Approved *Success
}

// NewClient creates a SEPA client.
func NewClient(gw gateway.Client, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		gw: gw,
		coord: switching.NewCoordinator[Metadata, Result](opts.Launcher, codec{}, mapper{}, switching.CoordinatorConfig{
			RequestCode:    model.RequestCodeSEPA,
			ReturnScheme:   opts.ReturnScheme,
			NotifyOnCancel: opts.NotifyOnCancel,
		}),
		opts: opts,
	}
}

// Start creates the mandate. When the gateway returns an approval URL the
// buyer is switched to it; otherwise the mandate is already approved.
// The error is reserved for invalid requests and gateway failures.
func (c *Client) Start(ctx context.Context, h switching.Host, req *Request) (*StartOutcome, error) {
	gwReq, err := c.gatewayRequest(req)
	if err != nil {
		return nil, err
	}

	mandate, err := c.gw.CreateSEPAMandate(ctx, gwReq)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		IBANLastFour:       mandate.IBANLastFour,
		CustomerID:         mandate.CustomerID,
		BankReferenceToken: mandate.BankReferenceToken,
		MandateType:        mandate.MandateType,
	}
	if meta.MandateType == "" {
		meta.MandateType = gwReq.MandateType
	}
	if meta.IBANLastFour == "" {
		meta.IBANLastFour = gwReq.IBAN[len(gwReq.IBAN)-4:]
	}

	if mandate.ApprovalURL == "" {
		c.opts.Logger.InfoContext(ctx, "sepa mandate approved without switch",
			slog.String("customer_id", meta.CustomerID))
		return &StartOutcome{Approved: successFrom(meta)}, nil
	}

	c.opts.Logger.InfoContext(ctx, "starting sepa switch",
		slog.String("customer_id", meta.CustomerID),
		slog.String("mandate_type", meta.MandateType),
	)
	pending := c.coord.Start(ctx, h, meta, switching.LaunchTarget{
		Kind:        switching.TargetBrowser,
		Destination: mandate.ApprovalURL,
	})
	return &StartOutcome{Pending: pending}, nil
}

// Finish restores a pending request and classifies the return.
func (c *Client) Finish(pending string, sig switching.ReturnSignal) (Result, error) {
	return c.coord.Finish(pending, sig)
}

// Complete tokenizes an approved mandate into a nonce.
func (c *Client) Complete(ctx context.Context, s *Success) (*model.Nonce, error) {
	if s == nil || s.BankReferenceToken == "" {
		return nil, model.NewValidationError("bank_reference_token", "is required")
	}
	return c.gw.Tokenize(ctx, &gateway.TokenizeRequest{
		Account: gateway.AccountSEPA,
		Fields: map[string]string{
			"bank_reference_token": s.BankReferenceToken,
			"customer_id":          s.CustomerID,
			"iban_last_chars":      s.IBANLastFour,
			"mandate_type":         s.MandateType,
		},
	})
}

func (c *Client) gatewayRequest(req *Request) (*gateway.SEPAMandateRequest, error) {
	if req == nil {
		return nil, model.NewValidationError("body", "request is required")
	}
	if strings.TrimSpace(req.AccountHolderName) == "" {
		return nil, model.NewValidationError("account_holder_name", "is required")
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, model.NewValidationError("customer_id", "is required")
	}
	iban, ok := NormalizeIBAN(req.IBAN)
	if !ok {
		return nil, model.NewValidationError("iban", "is not a valid IBAN")
	}

	mandateType := strings.ToUpper(req.MandateType)
	switch mandateType {
	case "":
		mandateType = MandateOneOff
	case MandateOneOff, MandateRecurrent:
	default:
		return nil, model.NewValidationError("mandate_type", "must be one_off or recurrent")
	}

	if !switching.ValidScheme(c.opts.ReturnScheme) {
		return nil, model.NewInternalError(errors.New("sepa return scheme is not configured"))
	}

	merchantAccount := req.MerchantAccountID
	if merchantAccount == "" {
		merchantAccount = c.opts.MerchantAccountID
	}

	return &gateway.SEPAMandateRequest{
		AccountHolderName: strings.TrimSpace(req.AccountHolderName),
		IBAN:              iban,
		CustomerID:        req.CustomerID,
		MandateType:       mandateType,
		MerchantAccountID: merchantAccount,
		CountryCode:       strings.ToUpper(req.CountryCode),
		ReturnURL:         c.opts.ReturnScheme + "://sepa/success",
		CancelURL:         c.opts.ReturnScheme + "://sepa/cancel",
	}, nil
}
