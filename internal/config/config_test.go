package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"payment-switch/internal/gateway"
	"payment-switch/internal/model"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT", "MERCHANT_ID",
		"GATEWAY_URL", "GATEWAY_TOKENIZATION_KEY", "GATEWAY_API_VERSION", "GATEWAY_BROWSER_FINGERPRINT",
		"RETURN_SCHEME", "MERCHANT_ACCOUNT_ID", "ENABLED_METHODS", "NOTIFY_ON_CANCEL",
		"VENMO_PROFILE_ID", "VENMO_MIN_APP_VERSION", "VENMO_FALLBACK_TO_WEB",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("MERCHANT_ID", "merchant-1")
	t.Setenv("GATEWAY_TOKENIZATION_KEY", "sandbox_abc_merchant")
	t.Setenv("RETURN_SCHEME", "com.merchant.app")
}

func TestLoadFromEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENABLED_METHODS", "paypal, venmo,sepa")
	t.Setenv("NOTIFY_ON_CANCEL", "false")
	t.Setenv("VENMO_PROFILE_ID", "profile-1")
	t.Setenv("VENMO_MIN_APP_VERSION", "10.0.0")
	t.Setenv("VENMO_FALLBACK_TO_WEB", "true")
	t.Setenv("GATEWAY_BROWSER_FINGERPRINT", "1")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" || cfg.LogLevel != "debug" || cfg.MerchantID != "merchant-1" {
		t.Errorf("server settings = %+v", cfg)
	}
	if cfg.Merchant.GatewayURL != gateway.DefaultBaseURL {
		t.Errorf("GatewayURL = %s, want sandbox default", cfg.Merchant.GatewayURL)
	}
	if !cfg.Merchant.BrowserFingerprint {
		t.Error("BrowserFingerprint should be set")
	}

	want := []model.MethodKind{model.MethodPayPal, model.MethodVenmo, model.MethodSEPA}
	got := cfg.EnabledMethods()
	if len(got) != len(want) {
		t.Fatalf("EnabledMethods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledMethods[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if cfg.Method(model.MethodPayPal).Notify() {
		t.Error("NOTIFY_ON_CANCEL=false should apply to enabled methods")
	}

	v := cfg.Merchant.Methods.Venmo
	if v.ProfileID != "profile-1" || v.MinAppVersion != "10.0.0" || !v.FallbackToWeb {
		t.Errorf("venmo = %+v", v)
	}
}

func TestLoadMissingMerchantID(t *testing.T) {
	clearEnv(t)

	_, err := Load(context.Background())
	if err == nil {
		t.Error("Expected error for missing MERCHANT_ID")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing tokenization key", map[string]string{"GATEWAY_TOKENIZATION_KEY": ""}, "tokenization_key is required"},
		{"bad return scheme", map[string]string{"RETURN_SCHEME": "1bad scheme"}, "invalid return_scheme"},
		{"bad gateway url", map[string]string{"GATEWAY_URL": "ftp://gateway"}, "invalid gateway_url"},
		{"unknown method", map[string]string{"ENABLED_METHODS": "paypal,bitcoin"}, "unknown method"},
		{"no methods", map[string]string{"ENABLED_METHODS": " , "}, "at least one payment method"},
		{"bad venmo version", map[string]string{"ENABLED_METHODS": "venmo", "VENMO_MIN_APP_VERSION": "ten"}, "min_app_version"},
		{"bad bool", map[string]string{"NOTIFY_ON_CANCEL": "maybe"}, "not a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `{
		"port": "9090",
		"environment": "test",
		"log_level": "debug",
		"merchant_id": "file-merchant",
		"merchant": {
			"gateway_url": "https://api.braintreegateway.com/merchants/",
			"tokenization_key": "production_key",
			"return_scheme": "com.merchant.app",
			"merchant_account_id": "eur_account",
			"methods": {
				"paypal": {"enabled": true},
				"venmo": {"enabled": true, "notify_on_cancel": false, "profile_id": "p-1", "min_app_version": "v9.1"},
				"local_payment": {"enabled": true, "return_scheme": "com.merchant.lpm"}
			}
		}
	}`

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	clearEnv(t)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" || cfg.MerchantID != "file-merchant" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Method(model.MethodPayPal).Notify() || cfg.Method(model.MethodVenmo).Notify() {
		t.Error("notify_on_cancel should default to true and honor false")
	}
	if cfg.Method(model.MethodSEPA).Enabled {
		t.Error("sepa was not enabled")
	}
	if s := cfg.ReturnScheme(model.MethodLocalPayment); s != "com.merchant.lpm" {
		t.Errorf("ReturnScheme(local_payment) = %s", s)
	}
	if s := cfg.ReturnScheme(model.MethodPayPal); s != "com.merchant.app" {
		t.Errorf("ReturnScheme(paypal) = %s", s)
	}

	gw := cfg.GatewayConfig()
	if gw.BaseURL != "https://api.braintreegateway.com/merchants/file-merchant" || gw.TokenizationKey != "production_key" {
		t.Errorf("GatewayConfig = %+v", gw)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	write := func(t *testing.T, content string) string {
		path := filepath.Join(t.TempDir(), "config.json")
		os.WriteFile(path, []byte(content), 0o600)
		return path
	}

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr string
	}{
		{"file not found", func(t *testing.T) string { return "/nonexistent/config.json" }, "reading config file"},
		{"invalid JSON", func(t *testing.T) string { return write(t, "{invalid json") }, "parsing config file"},
		{"missing merchant_id", func(t *testing.T) string { return write(t, `{"merchant": {}}`) }, "merchant_id is required"},
		{"bad method scheme", func(t *testing.T) string {
			return write(t, `{"merchant_id": "m", "merchant": {"tokenization_key": "k", "return_scheme": "app",
				"methods": {"sepa_direct_debit": {"enabled": true, "return_scheme": "-x"}}}}`)
		}, "methods.sepa_direct_debit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CONFIG_FILE", tt.path(t))
			_, err := Load(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	if got := envOrDefault("TEST_VAR", "default"); got != "value" {
		t.Errorf("envOrDefault = %s, want value", got)
	}
	os.Unsetenv("TEST_VAR")
	if got := envOrDefault("TEST_VAR", "default"); got != "default" {
		t.Errorf("envOrDefault = %s, want default", got)
	}
}

func TestWithDefault(t *testing.T) {
	if withDefault("", "x") != "x" || withDefault("y", "x") != "y" {
		t.Error("withDefault mismatch")
	}
}
