package tokenguard

import "context"

type clientIPContextKey struct{}
type fingerprintContextKey struct{}
type userAgentContextKey struct{}
type deviceLabelContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for rate limiting, session rows, audit events, and the observational
// IP-hash comparison.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceFingerprint attaches the derived device fingerprint to ctx.
// Tokens issued under this ctx embed its hash; the authentication gate
// compares against it.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, fingerprintContextKey{}, fingerprint)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. Used for the
// login attempt trail.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithDeviceLabel attaches a human-readable device description
// ("Chrome on Windows") to ctx for session listings.
func WithDeviceLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, deviceLabelContextKey{}, label)
}

// WithClientInfo attaches every field of info to ctx in one call.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	ctx = WithClientIP(ctx, info.IP)
	ctx = WithDeviceFingerprint(ctx, info.Fingerprint)
	ctx = WithUserAgent(ctx, info.UserAgent)
	return WithDeviceLabel(ctx, info.DeviceLabel)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func fingerprintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	fp, _ := ctx.Value(fingerprintContextKey{}).(string)
	return fp
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func deviceLabelFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	label, _ := ctx.Value(deviceLabelContextKey{}).(string)
	return label
}
