// Package gateway is a thin client for the Braintree client API.
// It creates the resources a buyer approves during a switch and tokenizes
// the approved result into a nonce.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"payment-switch/internal/model"
	"payment-switch/internal/transport"
)

const (
	// DefaultBaseURL is the sandbox client API.
	DefaultBaseURL = "https://api.sandbox.braintreegateway.com/merchants"

	// DefaultAPIVersion is sent as Braintree-Version.
	DefaultAPIVersion = "2018-05-10"

	pathPayPalCheckout = "/v1/paypal_hermes/create_payment_resource"
	pathPayPalVault    = "/v1/paypal_hermes/setup_billing_agreement"
	pathVenmoContext   = "/v1/venmo/payment_contexts"
	pathSEPAMandate    = "/v1/sepa_debit"
	pathLocalPayment   = "/v1/local_payments/create"
	pathPaymentMethods = "/v1/payment_methods/"

	userAgent = "payment-switch/1.0"
)

// Config holds gateway client settings.
type Config struct {
	BaseURL         string // merchant-scoped base, e.g. DefaultBaseURL + "/{merchant_id}"
	TokenizationKey string
	APIVersion      string
	Timeout         time.Duration

	// BrowserFingerprint dials TLS with a Chrome ClientHello.
	BrowserFingerprint bool
}

// HTTPClient implements Client over HTTPS.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	key        string
	version    string
}

// NewClient creates a gateway client.
func NewClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base URL is required")
	}
	if cfg.TokenizationKey == "" {
		return nil, errors.New("tokenization key is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: transport.NewUpstreamTransport(transport.Options{
				DialTimeout:        cfg.Timeout,
				BrowserFingerprint: cfg.BrowserFingerprint,
			}),
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.TokenizationKey,
		version: cfg.APIVersion,
	}, nil
}

// CreatePayPalPaymentResource creates a checkout (EC token) or billing agreement (BA token).
func (c *HTTPClient) CreatePayPalPaymentResource(ctx context.Context, req *PayPalPaymentRequest) (*PayPalPaymentResource, error) {
	path := pathPayPalCheckout
	if req.Vault {
		path = pathPayPalVault
	}

	var resp struct {
		PaymentResource PayPalPaymentResource `json:"paymentResource"`
		AgreementSetup  PayPalPaymentResource `json:"agreementSetup"`
	}
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}

	res := resp.PaymentResource
	if req.Vault {
		res = resp.AgreementSetup
	}
	if res.ApprovalURL == "" {
		return nil, model.NewUpstreamError("Braintree", errors.New("response has no approval URL"))
	}
	return &res, nil
}

// CreateVenmoPaymentContext creates the context the Venmo app approves.
func (c *HTTPClient) CreateVenmoPaymentContext(ctx context.Context, req *VenmoContextRequest) (*VenmoPaymentContext, error) {
	var resp struct {
		PaymentContext VenmoPaymentContext `json:"paymentContext"`
	}
	if err := c.post(ctx, pathVenmoContext, req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentContext.ID == "" {
		return nil, model.NewUpstreamError("Braintree", errors.New("response has no payment context id"))
	}
	return &resp.PaymentContext, nil
}

// CreateSEPAMandate creates a SEPA direct debit mandate.
func (c *HTTPClient) CreateSEPAMandate(ctx context.Context, req *SEPAMandateRequest) (*SEPAMandate, error) {
	var resp struct {
		Message SEPAMandate `json:"message"`
	}
	if err := c.post(ctx, pathSEPAMandate, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// CreateLocalPayment creates a local payment and returns its approval URL.
func (c *HTTPClient) CreateLocalPayment(ctx context.Context, req *LocalPaymentRequest) (*LocalPayment, error) {
	var resp struct {
		PaymentResource struct {
			PaymentToken string `json:"paymentToken"`
			RedirectURL  string `json:"redirectUrl"`
		} `json:"paymentResource"`
	}
	if err := c.post(ctx, pathLocalPayment, req, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentResource.RedirectURL == "" {
		return nil, model.NewUpstreamError("Braintree", errors.New("response has no approval URL"))
	}
	return &LocalPayment{
		PaymentID:   resp.PaymentResource.PaymentToken,
		ApprovalURL: resp.PaymentResource.RedirectURL,
	}, nil
}

// Tokenize exchanges approved account details for a nonce.
func (c *HTTPClient) Tokenize(ctx context.Context, req *TokenizeRequest) (*model.Nonce, error) {
	if req.Account == "" {
		return nil, model.NewValidationError("account", "account type is required")
	}

	var resp map[string][]nonceResponse
	if err := c.post(ctx, pathPaymentMethods+req.Account, req, &resp); err != nil {
		return nil, err
	}

	for _, accounts := range resp {
		if len(accounts) == 0 || accounts[0].Nonce == "" {
			continue
		}
		a := accounts[0]
		return &model.Nonce{Nonce: a.Nonce, Type: a.Type, Description: a.Description, Details: a.Details}, nil
	}
	return nil, model.NewUpstreamError("Braintree", errors.New("tokenization returned no nonce"))
}

// === HTTP Helpers ===

func (c *HTTPClient) post(ctx context.Context, path string, body, result any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

// newRequest creates an HTTP request authenticated with the tokenization key.
func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Client-Key", c.key)
	req.Header.Set("Braintree-Version", c.version)

	return req, nil
}

// do executes the request and decodes the response.
func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("Braintree", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return model.NewUpstreamError("Braintree", fmt.Errorf("parsing response: %w", err))
		}
	}

	return nil
}

// parseError converts client API errors to model.APIError.
func parseError(statusCode int, body []byte) error {
	var apiErr errorResponse
	json.Unmarshal(body, &apiErr) // Best effort parse

	msg := apiErr.Error.Message

	switch statusCode {
	case 401:
		return model.NewUnauthorizedError("Braintree authentication failed")
	case 403:
		return model.NewUnauthorizedError("Braintree access denied")
	case 404:
		return model.NewNotFoundError("gateway resource")
	case 429:
		return model.NewRateLimitError("Braintree")
	case 400, 422:
		if len(apiErr.FieldErrors) > 0 {
			fe := apiErr.FieldErrors[0]
			return model.NewValidationError(fe.Field, fe.Message)
		}
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	default:
		return model.NewUpstreamError("Braintree", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}
