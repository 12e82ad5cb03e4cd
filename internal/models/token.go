package models

import (
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// StoredToken is an OAuth token kept between CLI invocations, one per platform.
type StoredToken struct {
	id           string
	platform     Platform
	accessToken  string
	refreshToken string
	tokenType    string
	expiry       time.Time
	createdAt    time.Time
	updatedAt    time.Time
}

// NewStoredToken creates a [StoredToken] from an [oauth2.Token].
func NewStoredToken(platform Platform, tok *oauth2.Token) *StoredToken {
	now := time.Now()
	st := &StoredToken{platform: platform, createdAt: now, updatedAt: now}
	st.SetToken(tok)
	return st
}

// RestoreStoredToken rebuilds a [StoredToken] from persisted columns.
func RestoreStoredToken(id string, platform Platform, access, refresh, tokenType string, expiry, createdAt, updatedAt time.Time) *StoredToken {
	return &StoredToken{
		id:           id,
		platform:     platform,
		accessToken:  access,
		refreshToken: refresh,
		tokenType:    tokenType,
		expiry:       expiry,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (t *StoredToken) ID() string { return t.id }
func (t *StoredToken) SetID(id string) { t.id = id }
func (t *StoredToken) Platform() Platform { return t.platform }
func (t *StoredToken) AccessToken() string { return t.accessToken }
func (t *StoredToken) RefreshToken() string { return t.refreshToken }
func (t *StoredToken) TokenType() string { return t.tokenType }
func (t *StoredToken) Expiry() time.Time { return t.expiry }
func (t *StoredToken) CreatedAt() time.Time { return t.createdAt }
func (t *StoredToken) UpdatedAt() time.Time { return t.updatedAt }
func (t *StoredToken) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }

// SetToken replaces the token values. An empty refresh token keeps the previous one,
// since refresh responses commonly omit it.
func (t *StoredToken) SetToken(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	t.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		t.refreshToken = tok.RefreshToken
	}
	t.tokenType = tok.TokenType
	t.expiry = tok.Expiry
}

// Expired reports whether the access token is past its expiry.
func (t *StoredToken) Expired() bool {
	return !t.expiry.IsZero() && !time.Now().Before(t.expiry)
}

// OAuth2 converts the stored token back into an [oauth2.Token].
func (t *StoredToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.accessToken,
		RefreshToken: t.refreshToken,
		TokenType:    t.tokenType,
		Expiry:       t.expiry,
	}
}

// Credentials returns the token as [PlatformCredentials].
func (t *StoredToken) Credentials() PlatformCredentials {
	return PlatformCredentials{AccessToken: t.accessToken, Expiry: t.expiry}
}

// Validate checks required fields.
func (t *StoredToken) Validate() error {
	if t.platform != Spotify && t.platform != YouTube {
		return errors.New("platform must be spotify or youtube")
	}
	if t.accessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
