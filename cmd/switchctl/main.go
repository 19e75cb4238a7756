// switchctl is a CLI tool for driving payment switches against switchd.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	switchctl methods -server URL
//	switchctl start -server URL -method M -return SCHEME [-app PKG[@VERSION]] [-no-browser] [-data JSON]
//	switchctl resolve -server URL -method M -pending P -url RETURN_URL [-extra key=value]
//	switchctl complete -server URL -method M -details JSON
//
// Examples:
//
//	P=$(switchctl start -method paypal -return com.merchant.app -data '{"amount":"10.00","currency_code":"USD"}' -q)
//	D=$(switchctl resolve -method paypal -pending "$P" -url 'com.merchant.app://onetouch/v1/success?token=EC-1' -q)
//	switchctl complete -method paypal -details "$D"
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"payment-switch/internal/host"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serverURL string
	quiet     bool
	noColor   bool
	verbose   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
	if env := os.Getenv("SWITCHD_URL"); env != "" {
		serverURL = env
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "methods":
		runMethods(args)
	case "start":
		runStart(args)
	case "resolve":
		runResolve(args)
	case "complete":
		runComplete(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `switchctl - payment switch test tool

Usage:
  switchctl <command> [options]

Commands:
  methods   List enabled payment methods
  start     Start a switch and print the pending request
  resolve   Resolve a pending request against a return URL
  complete  Exchange approved details for a payment method nonce

Examples:
  # Start a PayPal switch and capture the pending request
  P=$(switchctl start -method paypal -return com.merchant.app -data '{"amount":"10.00","currency_code":"USD"}' -q)

  # Resolve it with the deep link the browser returned
  D=$(switchctl resolve -method paypal -pending "$P" -url 'com.merchant.app://onetouch/v1/success?token=EC-1' -q)

  # Tokenize the approval
  switchctl complete -method paypal -details "$D"

Environment:
  SWITCHD_URL  Default server URL (overridden by -server)
  NO_COLOR     Disable colored output

Run 'switchctl <command> -h' for command-specific help.
`)
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet, quietHelp string) {
	def := serverURL
	if def == "" {
		def = "http://localhost:8080"
	}
	fs.StringVar(&serverURL, "server", def, "switchd base URL")
	fs.BoolVar(&quiet, "q", false, quietHelp)
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

// =============================================================================
// METHODS COMMAND
// =============================================================================

func runMethods(args []string) {
	fs := flag.NewFlagSet("methods", flag.ExitOnError)
	commonFlags(fs, "Quiet mode - one method per line")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: switchctl methods [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if noColor {
		disableColors()
	}

	body, err := doRequest(http.MethodGet, "/methods", nil, "")
	if err != nil {
		fatal("Failed to list methods: %v", err)
	}

	var resp struct {
		Methods []string `json:"methods"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal("Parsing response: %v", err)
	}

	if quiet {
		for _, m := range resp.Methods {
			fmt.Println(m)
		}
		return
	}
	if len(resp.Methods) == 0 {
		printWarning("No methods enabled")
		return
	}
	printSuccess("%d method(s) enabled", len(resp.Methods))
	for _, m := range resp.Methods {
		fmt.Printf("  %s%s%s\n", colorCyan, m, colorReset)
	}
}

// =============================================================================
// START COMMAND
// =============================================================================

// appFlags collects repeated -app PKG[@VERSION] values.
type appFlags []host.App

func (a *appFlags) String() string {
	parts := make([]string, 0, len(*a))
	for _, app := range *a {
		if app.Version != "" {
			parts = append(parts, app.Package+"@"+app.Version)
		} else {
			parts = append(parts, app.Package)
		}
	}
	return strings.Join(parts, ",")
}

func (a *appFlags) Set(v string) error {
	pkg, version, _ := strings.Cut(v, "@")
	if pkg == "" {
		return fmt.Errorf("app package is required")
	}
	*a = append(*a, host.App{Package: pkg, Version: version})
	return nil
}

func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	commonFlags(fs, "Quiet mode - only output the pending request (or result when immediate)")
	var method, returnScheme, data string
	var noBrowser bool
	var apps appFlags
	fs.StringVar(&method, "method", "", "Payment method: paypal, venmo, sepa_direct_debit, local_payment (required)")
	fs.StringVar(&returnScheme, "return", "", "Return scheme the host handles (required)")
	fs.BoolVar(&noBrowser, "no-browser", false, "Advertise a host without a browser")
	fs.Var(&apps, "app", "Installed app as PKG[@VERSION] (repeatable)")
	fs.StringVar(&data, "data", "{}", "Method request body as JSON, or @file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: switchctl start -method M -return SCHEME [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if noColor {
		disableColors()
	}

	if method == "" || returnScheme == "" {
		fs.Usage()
		os.Exit(1)
	}

	profile := host.Profile{ReturnSchemes: []string{returnScheme}, Browser: !noBrowser, Apps: apps}
	header, err := profile.Header()
	if err != nil {
		fatal("Building %s header: %v", host.HeaderName, err)
	}
	printInfo("%s: %s", host.HeaderName, header)

	reqBody, err := readJSONArg(data)
	if err != nil {
		fatal("Invalid -data: %v", err)
	}

	body, err := doRequest(http.MethodPost, "/switches/"+method, reqBody, header)
	if err != nil {
		fatal("Failed to start switch: %v", err)
	}

	var resp struct {
		Status         string          `json:"status"`
		PendingRequest string          `json:"pending_request"`
		Handoff        json.RawMessage `json:"handoff"`
		Result         json.RawMessage `json:"result"`
		Error          *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal("Parsing response: %v", err)
	}

	switch resp.Status {
	case "started":
		if quiet {
			fmt.Println(resp.PendingRequest)
			return
		}
		printSuccess("Switch started")
		if len(resp.Handoff) > 0 {
			fmt.Printf("  Handoff:\n")
			printJSON(resp.Handoff, "    ")
		}
		fmt.Printf("  Pending: %s%s%s\n", colorCyan, resp.PendingRequest, colorReset)
	case "immediate":
		if quiet {
			fmt.Println(string(resp.Result))
			return
		}
		printSuccess("Approved without a switch; complete with the result below")
		printJSON(resp.Result, "  ")
	case "launch_failed":
		msg := "launch failed"
		if resp.Error != nil {
			msg = resp.Error.Code + ": " + resp.Error.Message
		}
		fatal("Switch could not launch: %s", msg)
	default:
		fatal("Unexpected status %q", resp.Status)
	}
}

// =============================================================================
// RESOLVE COMMAND
// =============================================================================

// extraFlags collects repeated -extra key=value values.
type extraFlags map[string]string

func (e extraFlags) String() string {
	parts := make([]string, 0, len(e))
	for k, v := range e {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (e extraFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("extra must be key=value")
	}
	e[k] = val
	return nil
}

func runResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	commonFlags(fs, "Quiet mode - only output success details")
	var method, pending, returnURL string
	extras := extraFlags{}
	fs.StringVar(&method, "method", "", "Payment method (required)")
	fs.StringVar(&pending, "pending", "", "Pending request string from start (required)")
	fs.StringVar(&returnURL, "url", "", "Return URL delivered to the host (required)")
	fs.Var(extras, "extra", "Return intent extra as key=value (repeatable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: switchctl resolve -method M -pending P -url RETURN_URL [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if noColor {
		disableColors()
	}

	if method == "" || pending == "" || returnURL == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]any{
		"pending_request": pending,
		"return_url":      returnURL,
	}
	if len(extras) > 0 {
		reqBody["extras"] = map[string]string(extras)
	}

	body, err := doRequest(http.MethodPost, "/switches/"+method+"/resolve", reqBody, "")
	if err != nil {
		fatal("Failed to resolve switch: %v", err)
	}

	var resp struct {
		Result  string          `json:"result"`
		Details json.RawMessage `json:"details"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal("Parsing response: %v", err)
	}

	switch resp.Result {
	case "success":
		if quiet {
			fmt.Println(string(resp.Details))
			return
		}
		printSuccess("Switch approved")
		printJSON(resp.Details, "  ")
	case "cancel":
		printWarning("Buyer cancelled")
		os.Exit(2)
	case "no_result":
		printWarning("Return did not belong to this switch")
		os.Exit(2)
	default:
		fatal("Switch failed: %s", resp.Error)
	}
}

// =============================================================================
// COMPLETE COMMAND
// =============================================================================

func runComplete(args []string) {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	commonFlags(fs, "Quiet mode - only output the nonce")
	var method, details string
	fs.StringVar(&method, "method", "", "Payment method (required)")
	fs.StringVar(&details, "details", "", "Success details from resolve as JSON, or @file (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: switchctl complete -method M -details JSON [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if noColor {
		disableColors()
	}

	if method == "" || details == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody, err := readJSONArg(details)
	if err != nil {
		fatal("Invalid -details: %v", err)
	}

	body, err := doRequest(http.MethodPost, "/switches/"+method+"/complete", reqBody, "")
	if err != nil {
		fatal("Failed to complete switch: %v", err)
	}

	var resp struct {
		Nonce struct {
			Nonce string `json:"nonce"`
			Type  string `json:"type"`
		} `json:"nonce"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal("Parsing response: %v", err)
	}

	if quiet {
		fmt.Println(resp.Nonce.Nonce)
		return
	}
	printSuccess("Tokenized")
	fmt.Printf("  Nonce: %s%s%s (%s)\n", colorCyan, resp.Nonce.Nonce, colorReset, resp.Nonce.Type)
}

// readJSONArg accepts inline JSON or @path and returns it validated.
func readJSONArg(v string) (json.RawMessage, error) {
	data := []byte(v)
	if path, ok := strings.CutPrefix(v, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("not valid JSON")
	}
	return json.RawMessage(data), nil
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

func doRequest(method, path string, body any, switchHost string) ([]byte, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if switchHost != "" {
		req.Header.Set(host.HeaderName, switchHost)
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	// 422 carries a launch_failed start response the caller inspects.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorMessage(respBody))
	}
	return respBody, nil
}

// errorMessage extracts CODE: message from an error body, falling back to the raw text.
func errorMessage(body []byte) string {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Code == "" {
		return strings.TrimSpace(string(body))
	}
	return e.Error.Code + ": " + e.Error.Message
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := prefix + pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
