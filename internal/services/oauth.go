package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// SpotifyScopes are requested during the Spotify authorization code flow.
var SpotifyScopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadPrivate,
}

// YouTubeScopes are requested during the Google authorization code flow.
var YouTubeScopes = []string{
	youtube.YoutubeScope,
	youtube.YoutubeForceSslScope,
}

// OAuthConfig returns the authorization code flow configuration for platform.
func OAuthConfig(platform models.Platform, creds shared.CredentialsConfig) (*oauth2.Config, error) {
	switch platform {
	case models.Spotify:
		c := creds.Spotify
		if c.ClientID == "" || c.ClientSecret == "" {
			return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
		}
		return &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		}, nil
	case models.YouTube:
		c := creds.YouTube
		if c.ClientID == "" || c.ClientSecret == "" {
			return nil, fmt.Errorf("%w: youtube client_id and client_secret are required", shared.ErrMissingCredentials)
		}
		return &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       YouTubeScopes,
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %q", shared.ErrInvalidArgument, platform)
	}
}

// AuthCodeURL returns the consent page URL, asking for a refresh token.
func AuthCodeURL(config *oauth2.Config, state string) string {
	return config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SpotifyAppToken obtains an app-only token with the client credentials grant.
//
// The token can read public playlists and search the catalog but cannot modify any user data.
// An empty tokenURL uses the Spotify accounts service.
func SpotifyAppToken(ctx context.Context, c shared.SpotifyConfig, tokenURL string) (*oauth2.Token, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	cc := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     tokenURL,
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: client credentials grant: %v", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// RefreshToken exchanges the refresh token of tok for a fresh access token when tok has expired.
// A still valid token is returned unchanged.
func RefreshToken(ctx context.Context, config *oauth2.Config, tok *oauth2.Token) (*oauth2.Token, error) {
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	fresh, err := config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}
	return fresh, nil
}
