// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"

	"payment-switch/internal/gateway"
	"payment-switch/internal/host"
	"payment-switch/internal/model"
	"payment-switch/internal/switching"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	MerchantID string

	// Merchant-specific configuration (loaded from secrets)
	Merchant MerchantConfig
}

// MerchantConfig contains merchant-specific settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type MerchantConfig struct {
	GatewayURL         string `json:"gateway_url,omitempty"` // defaults to the sandbox client API
	TokenizationKey    string `json:"tokenization_key"`
	APIVersion         string `json:"api_version,omitempty"`
	BrowserFingerprint bool   `json:"browser_fingerprint,omitempty"`
	ReturnScheme       string `json:"return_scheme"`
	MerchantAccountID  string `json:"merchant_account_id,omitempty"`

	Methods MethodsConfig `json:"methods"`
}

// MethodsConfig holds per-method settings. A method is served only when enabled.
type MethodsConfig struct {
	PayPal       MethodConfig `json:"paypal"`
	Venmo        VenmoConfig  `json:"venmo"`
	SEPA         MethodConfig `json:"sepa_direct_debit"`
	LocalPayment MethodConfig `json:"local_payment"`
}

// MethodConfig holds the settings every method shares.
type MethodConfig struct {
	Enabled bool `json:"enabled"`

	// NotifyOnCancel reports explicit cancels as cancel results instead of
	// no_result. Defaults to true.
	NotifyOnCancel *bool `json:"notify_on_cancel,omitempty"`

	// ReturnScheme overrides the merchant return scheme for this method.
	ReturnScheme string `json:"return_scheme,omitempty"`
}

// VenmoConfig adds the app-switch settings.
type VenmoConfig struct {
	MethodConfig
	ProfileID     string `json:"profile_id,omitempty"`
	MinAppVersion string `json:"min_app_version,omitempty"`
	FallbackToWeb bool   `json:"fallback_to_web,omitempty"`
}

// Notify resolves NotifyOnCancel to its effective value.
func (m MethodConfig) Notify() bool {
	return m.NotifyOnCancel == nil || *m.NotifyOnCancel
}

// Load reads configuration from file, environment, or Secret Manager.
// A .env file in the working directory is loaded first when present.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Otherwise, use ENV vars / Secret Manager approach
	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		MerchantID:  os.Getenv("MERCHANT_ID"),
	}

	// MerchantID required in all environments
	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("MERCHANT_ID environment variable required")
	}

	// Load merchant config based on environment
	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading merchant config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port        string         `json:"port"`
		Environment string         `json:"environment"`
		LogLevel    string         `json:"log_level"`
		MerchantID  string         `json:"merchant_id"`
		Merchant    MerchantConfig `json:"merchant"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		MerchantID:  fileConfig.MerchantID,
		Merchant:    fileConfig.Merchant,
	}

	if cfg.MerchantID == "" {
		return nil, fmt.Errorf("merchant_id is required")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches merchant config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{merchant_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.MerchantID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Merchant); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads merchant config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Merchant = MerchantConfig{
		GatewayURL:        os.Getenv("GATEWAY_URL"),
		TokenizationKey:   os.Getenv("GATEWAY_TOKENIZATION_KEY"),
		APIVersion:        os.Getenv("GATEWAY_API_VERSION"),
		ReturnScheme:      os.Getenv("RETURN_SCHEME"),
		MerchantAccountID: os.Getenv("MERCHANT_ACCOUNT_ID"),
	}

	var err error
	if c.Merchant.BrowserFingerprint, err = envBool("GATEWAY_BROWSER_FINGERPRINT", false); err != nil {
		return err
	}
	notify, err := envBool("NOTIFY_ON_CANCEL", true)
	if err != nil {
		return err
	}

	// ENABLED_METHODS is a comma-separated list, e.g. "paypal,venmo,sepa"
	for _, name := range strings.Split(envOrDefault("ENABLED_METHODS", "paypal"), ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		kind, ok := model.ParseMethodKind(name)
		if !ok {
			return fmt.Errorf("ENABLED_METHODS: unknown method %q", strings.TrimSpace(name))
		}
		mc := c.Merchant.Methods.method(kind)
		mc.Enabled = true
		mc.NotifyOnCancel = &notify
	}

	c.Merchant.Methods.Venmo.ProfileID = os.Getenv("VENMO_PROFILE_ID")
	c.Merchant.Methods.Venmo.MinAppVersion = os.Getenv("VENMO_MIN_APP_VERSION")
	if c.Merchant.Methods.Venmo.FallbackToWeb, err = envBool("VENMO_FALLBACK_TO_WEB", false); err != nil {
		return err
	}

	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	m := &c.Merchant
	if m.GatewayURL == "" {
		m.GatewayURL = gateway.DefaultBaseURL
	}
	u, err := url.Parse(m.GatewayURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("invalid gateway_url %q", m.GatewayURL)
	}
	if m.TokenizationKey == "" {
		return fmt.Errorf("tokenization_key is required")
	}
	if !switching.ValidScheme(m.ReturnScheme) {
		return fmt.Errorf("invalid return_scheme %q", m.ReturnScheme)
	}

	enabled := 0
	for _, kind := range model.MethodKinds {
		mc := m.Methods.method(kind)
		if !mc.Enabled {
			continue
		}
		enabled++
		if mc.ReturnScheme != "" && !switching.ValidScheme(mc.ReturnScheme) {
			return fmt.Errorf("methods.%s: invalid return_scheme %q", kind, mc.ReturnScheme)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one payment method must be enabled")
	}

	if v := m.Methods.Venmo.MinAppVersion; v != "" && !host.ValidVersion(v) {
		return fmt.Errorf("methods.venmo: min_app_version %q is not a semantic version", v)
	}

	return nil
}

// method returns the shared settings for kind.
func (m *MethodsConfig) method(kind model.MethodKind) *MethodConfig {
	switch kind {
	case model.MethodVenmo:
		return &m.Venmo.MethodConfig
	case model.MethodSEPA:
		return &m.SEPA
	case model.MethodLocalPayment:
		return &m.LocalPayment
	default:
		return &m.PayPal
	}
}

// Method returns the settings for kind.
func (c *Config) Method(kind model.MethodKind) MethodConfig {
	return *c.Merchant.Methods.method(kind)
}

// EnabledMethods lists the enabled methods in display order.
func (c *Config) EnabledMethods() []model.MethodKind {
	var kinds []model.MethodKind
	for _, kind := range model.MethodKinds {
		if c.Method(kind).Enabled {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// ReturnScheme is the deep-link scheme for kind: the method override, or the merchant scheme.
func (c *Config) ReturnScheme(kind model.MethodKind) string {
	if s := c.Method(kind).ReturnScheme; s != "" {
		return s
	}
	return c.Merchant.ReturnScheme
}

// GatewayConfig builds the gateway client settings. The client API is merchant scoped.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		BaseURL:            strings.TrimSuffix(c.Merchant.GatewayURL, "/") + "/" + url.PathEscape(c.MerchantID),
		TokenizationKey:    c.Merchant.TokenizationKey,
		APIVersion:         c.Merchant.APIVersion,
		Timeout:            30 * time.Second,
		BrowserFingerprint: c.Merchant.BrowserFingerprint,
	}
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envBool parses a boolean environment variable.
func envBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, val)
	}
	return b, nil
}
