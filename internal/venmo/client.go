package venmo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"payment-switch/internal/gateway"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// DefaultWebURL is the Venmo web approval page used when the gateway
// does not return one.
const DefaultWebURL = "https://venmo.com/go/checkout"

// Options configures a Client.
type Options struct {
	ReturnScheme   string
	NotifyOnCancel bool
	ProfileID      string

	// MinAppVersion is the oldest Venmo app that supports payment contexts.
	// Empty accepts any installed version.
	MinAppVersion string
	FallbackToWeb bool
	Launcher      *switching.Launcher
	Logger        *slog.Logger
}

// Client runs Venmo switches against the gateway.
type Client struct {
	gw    gateway.Client
	coord *switching.Coordinator[Metadata, Result]
	opts  Options
}

// NewClient creates a Venmo client.
func NewClient(gw gateway.Client, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		gw: gw,
		coord: switching.NewCoordinator[Metadata, Result](opts.Launcher, codec{}, mapper{}, switching.CoordinatorConfig{
			RequestCode:    model.RequestCodeVenmo,
			ReturnScheme:   opts.ReturnScheme,
			NotifyOnCancel: opts.NotifyOnCancel,
			Rules: switching.Rules{
				Required:          []string{"resource_id"},
				ErrorMessageParam: "errorMessage",
			},
		}),
		opts: opts,
	}
}

// versionChecker is implemented by hosts that report installed app versions.
type versionChecker interface {
	AppVersionAtLeast(pkg, min string) bool
}

// Start creates a payment context and switches to the Venmo app, or to the
// web flow when the app is unavailable and fallback is enabled.
// The error is reserved for invalid requests and gateway failures.
func (c *Client) Start(ctx context.Context, h switching.Host, req *Request) (switching.PendingRequest, error) {
	if req == nil {
		return nil, model.NewValidationError("body", "request is required")
	}

	usage := strings.ToUpper(req.PaymentMethodUsage)
	switch usage {
	case "":
		usage = "SINGLE_USE"
	case "SINGLE_USE", "MULTI_USE":
	default:
		return nil, model.NewValidationError("payment_method_usage", "must be single_use or multi_use")
	}

	var amount string
	if req.Amount != "" {
		a, err := model.ParseAmount(req.Amount, "USD")
		if err != nil {
			return nil, err
		}
		amount = a.String()
	}

	if !switching.ValidScheme(c.opts.ReturnScheme) {
		return nil, model.NewInternalError(errors.New("venmo return scheme is not configured"))
	}

	profileID := req.ProfileID
	if profileID == "" {
		profileID = c.opts.ProfileID
	}
	fallback := c.opts.FallbackToWeb
	if req.FallbackToWeb != nil {
		fallback = *req.FallbackToWeb
	}

	web := !c.appAvailable(h)
	if web && !fallback {
		// Nothing to approve on; skip the gateway call.
		return &switching.LaunchFailure{Err: missingApp(c.opts.MinAppVersion)}, nil
	}

	customerClient := "MOBILE_APP"
	if web {
		customerClient = "MOBILE_WEB"
	}
	pc, err := c.gw.CreateVenmoPaymentContext(ctx, &gateway.VenmoContextRequest{
		ProfileID:      profileID,
		PaymentMethod:  usage,
		CustomerClient: customerClient,
		DisplayName:    req.DisplayName,
		Amount:         amount,
	})
	if err != nil {
		return nil, err
	}

	meta := Metadata{PaymentContextID: pc.ID, ProfileID: profileID, Web: web}
	target := switching.LaunchTarget{Kind: switching.TargetApp, Destination: AppPackage}
	if web {
		target = switching.LaunchTarget{Kind: switching.TargetBrowser, Destination: c.webURL(pc)}
	}

	c.opts.Logger.InfoContext(ctx, "starting venmo switch",
		slog.String("payment_context_id", pc.ID),
		slog.Bool("web", web),
	)
	return c.coord.Start(ctx, h, meta, target), nil
}

// Finish restores a pending request and classifies the return.
func (c *Client) Finish(pending string, sig switching.ReturnSignal) (Result, error) {
	return c.coord.Finish(pending, sig)
}

// Complete returns the nonce for an approved switch. A nonce minted by the
// app during the switch is returned as is; otherwise the context is tokenized.
func (c *Client) Complete(ctx context.Context, s *Success) (*model.Nonce, error) {
	if s == nil || s.PaymentContextID == "" {
		return nil, model.NewValidationError("payment_context_id", "is required")
	}
	if s.PaymentMethodNonce != "" {
		n := &model.Nonce{Nonce: s.PaymentMethodNonce, Type: "VenmoAccount"}
		if s.Username != "" {
			n.Description = s.Username
			n.Details = map[string]string{"username": s.Username}
		}
		return n, nil
	}
	return c.gw.Tokenize(ctx, &gateway.TokenizeRequest{
		Account: gateway.AccountVenmo,
		Fields:  map[string]string{"payment_context_id": s.PaymentContextID},
	})
}

func (c *Client) appAvailable(h switching.Host) bool {
	if h == nil {
		return false
	}
	if vc, ok := h.(versionChecker); ok {
		return vc.AppVersionAtLeast(AppPackage, c.opts.MinAppVersion)
	}
	return h.IsAppInstalled(AppPackage)
}

// webURL builds the web approval URL with the x-callback return routes.
func (c *Client) webURL(pc *gateway.VenmoPaymentContext) string {
	base := pc.WebURL
	if base == "" {
		base = DefaultWebURL
	}
	u, err := url.Parse(base)
	if err != nil {
		u, _ = url.Parse(DefaultWebURL)
	}
	callback := c.opts.ReturnScheme + "://x-callback-url/vzero/auth/venmo/"
	q := u.Query()
	q.Set("resource_id", pc.ID)
	q.Set("x-success", callback+"success")
	q.Set("x-cancel", callback+"cancel")
	q.Set("x-error", callback+"error")
	u.RawQuery = q.Encode()
	return u.String()
}

func missingApp(min string) error {
	if min == "" {
		return fmt.Errorf("%w: %s is not installed", switching.ErrNoHandler, AppPackage)
	}
	return fmt.Errorf("%w: %s %s or newer is not installed", switching.ErrNoHandler, AppPackage, min)
}
