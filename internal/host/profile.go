// Package host describes the device a switch runs on.
// The caller advertises its capabilities in the Switch-Host header; Profile
// answers the launcher's capability checks from that advertisement and Relay
// records the handoff the caller must perform.
package host

import (
	"net/url"
	"strings"

	"golang.org/x/mod/semver"
)

// App is an installed application advertised by the host.
type App struct {
	Package string `json:"package"`
	Version string `json:"version,omitempty"` // empty when the host did not report one
}

// Profile is the parsed capability advertisement of one host.
type Profile struct {
	ReturnSchemes []string `json:"return_schemes"`
	Browser       bool     `json:"browser"`
	Apps          []App    `json:"apps,omitempty"`
}

// HandlesReturnScheme reports whether deep links with scheme are routed back to the host.
// Schemes compare case-insensitively.
func (p Profile) HandlesReturnScheme(scheme string) bool {
	for _, s := range p.ReturnSchemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}
	return false
}

// CanResolveURL reports whether the host browser can open u.
// Only http and https destinations are opened in a browser.
func (p Profile) CanResolveURL(u *url.URL) bool {
	if !p.Browser || u == nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// IsAppInstalled reports whether pkg is in the advertised app list.
func (p Profile) IsAppInstalled(pkg string) bool {
	_, ok := p.app(pkg)
	return ok
}

// AppVersionAtLeast reports whether pkg is installed at min or newer.
// An empty min only requires the app to be installed. An installed app that
// reported no version, or a non-semver version, does not satisfy a minimum.
//
// Examples (installed 10.2.0):
//   - min "10.0.0" → true
//   - min "v10.2"  → true
//   - min "11"     → false
func (p Profile) AppVersionAtLeast(pkg, min string) bool {
	a, ok := p.app(pkg)
	if !ok {
		return false
	}
	if min == "" {
		return true
	}

	have := normalizeVersion(a.Version)
	want := normalizeVersion(min)
	if !semver.IsValid(have) || !semver.IsValid(want) {
		return false
	}
	return semver.Compare(have, want) >= 0
}

func (p Profile) app(pkg string) (App, bool) {
	for _, a := range p.Apps {
		if a.Package == pkg {
			return a, true
		}
	}
	return App{}, false
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}

// ValidVersion reports whether v is a semver version, with or without the "v" prefix.
func ValidVersion(v string) bool {
	return semver.IsValid(normalizeVersion(v))
}
