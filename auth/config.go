package auth

import "time"

// Config represents the ambient settings the auth package needs:
// bearer-token signing, password policy for the rare local service
// account, and the session cookie attributes github.go's callback
// sets.
type Config struct {
	// JWT settings, used for admin/agent bearer tokens (see token.go).
	JWTSecret              string
	JWTExpiration          time.Duration
	RefreshTokenEnabled    bool
	RefreshTokenExpiration time.Duration

	// Password policy, used only for the local service-account escape
	// hatch (see password.go); ordinary users sign in via GitHub.
	PasswordMinLength     int
	PasswordRequireStrong bool // uppercase, lowercase, number, special char

	// Session cookie attributes, matching the original callback's
	// httponly/secure/lax 7-day cookie.
	SessionTimeout time.Duration
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		JWTExpiration:          24 * time.Hour,
		RefreshTokenEnabled:    true,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		PasswordMinLength:      8,
		PasswordRequireStrong:  false,
		SessionTimeout:         7 * 24 * time.Hour,
		CookieSecure:           true,
		CookieHTTPOnly:         true,
		CookieSameSite:         "Lax",
	}
}
