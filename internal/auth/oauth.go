// Package auth owns the single Google Calendar credential set and the
// pending OAuth authorization attempts.
package auth

import (
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeCalendarReadonly is the only scope the briefing needs.
const ScopeCalendarReadonly = "https://www.googleapis.com/auth/calendar.readonly"

// NewGoogleConfig builds the OAuth2 client configuration for the
// Google authorization-code flow.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{ScopeCalendarReadonly},
		Endpoint:     google.Endpoint,
	}
}

// credentialsVersion is the stored blob format version. Bump when the
// on-disk fields change.
const credentialsVersion = 1

// Credentials is the OAuth2 credential set granting calendar access.
// Exactly one instance exists process-wide, owned by Store.
type Credentials struct {
	Version      int       `json:"version"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Valid reports whether the access token can still be presented
// upstream. A small skew keeps us from using a token that expires
// mid-request.
func (c *Credentials) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return time.Now().Add(10 * time.Second).Before(c.Expiry)
}

func credentialsFromToken(tok *oauth2.Token, scopes []string) *Credentials {
	return &Credentials{
		Version:      credentialsVersion,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}
}
