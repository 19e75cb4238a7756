package model

import (
	"encoding/json"
	"strings"

	"payment-switch/internal/switching"
)

// MethodKind names a payment method that completes through a switch.
type MethodKind string

const (
	MethodPayPal       MethodKind = "paypal"
	MethodVenmo        MethodKind = "venmo"
	MethodSEPA         MethodKind = "sepa_direct_debit"
	MethodLocalPayment MethodKind = "local_payment"
)

// MethodKinds lists every method in display order.
var MethodKinds = []MethodKind{MethodPayPal, MethodVenmo, MethodSEPA, MethodLocalPayment}

// ParseMethodKind normalizes a path or config key to a MethodKind.
// Accepts the canonical names plus "sepa" as an alias.
func ParseMethodKind(s string) (MethodKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "sepa" {
		return MethodSEPA, true
	}
	for _, k := range MethodKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Request codes identify the switch a return belongs to. Each method has its
// own code so concurrent switches of different methods never collide.
const (
	RequestCodeVenmo        = 13488
	RequestCodePayPal       = 13591
	RequestCodeLocalPayment = 13596
	RequestCodeSEPA         = 13597
)

// SwitchStatus is the state of a start call.
type SwitchStatus string

const (
	SwitchStarted      SwitchStatus = "started"
	SwitchLaunchFailed SwitchStatus = "launch_failed"
	SwitchImmediate    SwitchStatus = "immediate" // completed without leaving the app
)

// ResultKind classifies a resolved return.
type ResultKind string

const (
	ResultSuccess  ResultKind = "success"
	ResultCancel   ResultKind = "cancel"
	ResultNoResult ResultKind = "no_result"
	ResultFailure  ResultKind = "failure"
)

// Nonce is a single-use payment method reference returned by tokenization.
type Nonce struct {
	Nonce       string            `json:"nonce"`
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// StartResponse is the body of a start call.
// Handoff is the device instruction; it is opaque here to keep model free of host types.
type StartResponse struct {
	Status         SwitchStatus    `json:"status"`
	Method         MethodKind      `json:"method"`
	PendingRequest string          `json:"pending_request,omitempty"`
	Handoff        any             `json:"handoff,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

// ResolveRequest is the body of a resolve call.
type ResolveRequest struct {
	PendingRequest string             `json:"pending_request"`
	ReturnURL      string             `json:"return_url"`
	Extras         switching.Metadata `json:"extras"`
}

// ResolveResponse is the body of a resolve call.
// Details carries the method's success or cancel payload.
type ResolveResponse struct {
	Method  MethodKind      `json:"method"`
	Result  ResultKind      `json:"result"`
	Details json.RawMessage `json:"details,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CompleteResponse is the body of a complete call.
type CompleteResponse struct {
	Method MethodKind `json:"method"`
	Nonce  Nonce      `json:"nonce"`
}
