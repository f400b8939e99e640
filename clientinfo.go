package tokenguard

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenguard/internal"
)

// ClientInfo is the request metadata the engine binds tokens to.
// Fingerprint is already a derived digest; the raw header values behind it
// are never retained.
type ClientInfo struct {
	IP          string
	UserAgent   string
	Fingerprint string
	DeviceLabel string
}

// ClientInfoFromRequest extracts the client IP, device fingerprint, and a
// human-readable device label from an inbound request. The first entry of
// X-Forwarded-For wins over RemoteAddr when present.
func ClientInfoFromRequest(r *http.Request) ClientInfo {
	ua := r.Header.Get("User-Agent")
	return ClientInfo{
		IP:        clientIPFromRequest(r),
		UserAgent: ua,
		Fingerprint: internal.Fingerprint(
			ua,
			r.Header.Get("Accept-Language"),
			r.Header.Get("Accept-Encoding"),
		),
		DeviceLabel: deviceLabel(ua),
	}
}

func clientIPFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceLabel summarizes a User-Agent into "Browser on OS". Best-effort
// string matching only; the label is cosmetic, never used for binding.
func deviceLabel(userAgent string) string {
	if userAgent == "" {
		return "Unknown device"
	}

	browser := "Unknown browser"
	switch {
	case strings.Contains(userAgent, "Edg/"), strings.Contains(userAgent, "Edge/"):
		browser = "Edge"
	case strings.Contains(userAgent, "OPR/"), strings.Contains(userAgent, "Opera"):
		browser = "Opera"
	case strings.Contains(userAgent, "Chrome/"):
		browser = "Chrome"
	case strings.Contains(userAgent, "Firefox/"):
		browser = "Firefox"
	case strings.Contains(userAgent, "Safari/"):
		browser = "Safari"
	}

	os := "Unknown OS"
	switch {
	case strings.Contains(userAgent, "Windows"):
		os = "Windows"
	case strings.Contains(userAgent, "Android"):
		os = "Android"
	case strings.Contains(userAgent, "iPhone"), strings.Contains(userAgent, "iPad"):
		os = "iOS"
	case strings.Contains(userAgent, "Mac OS X"), strings.Contains(userAgent, "Macintosh"):
		os = "macOS"
	case strings.Contains(userAgent, "Linux"):
		os = "Linux"
	}

	if browser == "Unknown browser" && os == "Unknown OS" {
		return "Unknown device"
	}
	return browser + " on " + os
}
