package models

import (
	"strings"
	"time"
)

// PlatformCredentials carries the caller's credentials for a single platform.
//
// AccessToken is a user bearer token. APIKey is a read-only credential that needs no user authorization:
// the Data API key for YouTube, an app token from the client credentials grant for Spotify.
type PlatformCredentials struct {
	AccessToken string    `json:"-"`
	Expiry      time.Time `json:"expiry"`
	APIKey      string    `json:"-"`
}

// HasToken reports whether a non-empty, non-expired bearer token is present.
// A zero Expiry means the expiry is unknown and the token is assumed valid.
func (c PlatformCredentials) HasToken() bool {
	if strings.TrimSpace(c.AccessToken) == "" {
		return false
	}
	return c.Expiry.IsZero() || time.Now().Before(c.Expiry)
}

// HasKey reports whether a read-only key is present.
func (c PlatformCredentials) HasKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Empty reports whether neither a usable token nor a key is present.
func (c PlatformCredentials) Empty() bool {
	return !c.HasToken() && !c.HasKey()
}

// Credentials groups per-platform credentials. They are read-only inputs.
type Credentials struct {
	Spotify PlatformCredentials
	YouTube PlatformCredentials
}

// For returns the credentials of the given platform.
func (c Credentials) For(p Platform) PlatformCredentials {
	switch p {
	case Spotify:
		return c.Spotify
	case YouTube:
		return c.YouTube
	default:
		return PlatformCredentials{}
	}
}
