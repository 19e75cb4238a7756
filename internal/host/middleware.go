package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is the type for context values to avoid collisions
type contextKey string

// ProfileContextKey is the context key for storing the parsed Profile
const ProfileContextKey contextKey = "switch.host"

// HostRequired is the error code when the Switch-Host header is missing or invalid
const HostRequired = "SWITCH_HOST_REQUIRED"

// Middleware parses the Switch-Host header and stores the Profile in the
// request context. Only starting a switch needs the header: resolve, complete,
// discovery, health checks and MCP (which carries it in _meta) are exempt.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptRequest(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(HeaderName)
			if header == "" {
				writeHostError(w, HostRequired, "Switch-Host header is required to start a switch")
				return
			}

			profile, err := ParseHeader(header)
			if err != nil {
				logger.Warn("invalid Switch-Host header",
					slog.String("header", header),
					slog.String("error", err.Error()))
				writeHostError(w, HostRequired, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ProfileContextKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isExemptRequest returns true for requests that don't start a switch.
// Starting is POST /switches/{method}.
func isExemptRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return true
	}
	segs := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	return !(len(segs) == 2 && segs[0] == "switches")
}

// writeHostError writes the standard error envelope with a 400 status.
func writeHostError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}

// FromContext retrieves the Profile stored by Middleware.
func FromContext(ctx context.Context) (Profile, bool) {
	p, ok := ctx.Value(ProfileContextKey).(Profile)
	return p, ok
}

// ExtractMCPHeader extracts the Switch-Host value from MCP request meta.
// MCP format: {"_meta": {"switch-host": "return=\"com.merchant.app\", browser=?1"}}
// Returns empty string if not present.
func ExtractMCPHeader(meta map[string]any) string {
	v, ok := meta["switch-host"].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
