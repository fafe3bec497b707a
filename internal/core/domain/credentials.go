package domain

import (
	"strconv"
	"time"
)

// Well-known UserConfig fields. Anything else (profile fields, provider
// metadata) is carried through untouched.
const (
	ConfigKeyToken          = "token"
	ConfigKeyRefreshToken   = "refreshToken"
	ConfigKeyExpirationTime = "expirationTime"
)

// UserConfig is the opaque field map stored per user in the calendar data store.
// Merges replace only the keys they carry.
type UserConfig map[string]any

// String returns the string value stored under key, or "" when absent or not a string.
func (c UserConfig) String(key string) string {
	if c == nil {
		return ""
	}
	if s, ok := c[key].(string); ok {
		return s
	}
	return ""
}

// AccessToken returns the stored access token.
func (c UserConfig) AccessToken() string { return c.String(ConfigKeyToken) }

// RefreshToken returns the stored refresh token.
func (c UserConfig) RefreshToken() string { return c.String(ConfigKeyRefreshToken) }

// Expiry returns the stored access token expiry.
// Accepts epoch milliseconds (as any numeric type or numeric string) or RFC3339.
// Returns the zero time when the expiry is unknown.
func (c UserConfig) Expiry() time.Time {
	if c == nil {
		return time.Time{}
	}
	switch v := c[ConfigKeyExpirationTime].(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMilli(v)
	case int:
		return time.UnixMilli(int64(v))
	case float64:
		return time.UnixMilli(int64(v))
	case string:
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clone returns a shallow copy of the config.
func (c UserConfig) Clone() UserConfig {
	out := make(UserConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Token is the result of a successful refresh-token exchange.
type Token struct {
	// AccessToken is the bearer token for API access.
	AccessToken string
	// RefreshToken is set only when the provider rotated the refresh token.
	RefreshToken string
	// Expiry is when the access token expires. Zero if the provider did not say.
	Expiry time.Time
}

// Fields returns the UserConfig fields to merge after a refresh.
// Expiry is stored as epoch milliseconds.
func (t *Token) Fields() UserConfig {
	fields := UserConfig{ConfigKeyToken: t.AccessToken}
	if t.RefreshToken != "" {
		fields[ConfigKeyRefreshToken] = t.RefreshToken
	}
	if !t.Expiry.IsZero() {
		fields[ConfigKeyExpirationTime] = t.Expiry.UnixMilli()
	}
	return fields
}

// Credential is a usable access credential for one user.
type Credential struct {
	// UserID owns the credential.
	UserID string
	// AccessToken is the bearer token for API access.
	AccessToken string
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string
	// Expiry is when the access token expires. Zero if unknown.
	Expiry time.Time
	// Stale is set when a refresh failed transiently and the previous
	// access token is being tried optimistically.
	Stale bool
}

// NeedsRefresh reports whether the credential should be refreshed at now.
// An unknown expiry always needs a refresh.
func (c *Credential) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if c.AccessToken == "" || c.Expiry.IsZero() {
		return true
	}
	return !now.Add(buffer).Before(c.Expiry)
}

// CredentialFromConfig builds a credential from a stored user config.
func CredentialFromConfig(userID string, cfg UserConfig) *Credential {
	return &Credential{
		UserID:       userID,
		AccessToken:  cfg.AccessToken(),
		RefreshToken: cfg.RefreshToken(),
		Expiry:       cfg.Expiry(),
	}
}
