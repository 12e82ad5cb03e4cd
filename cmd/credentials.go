package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// credentials resolves credentials for the given platforms.
//
// Tokens come from the --spotify-token / --youtube-token flags, then the token store. The YouTube key comes
// from --youtube-key, then the configuration. Without a user token Spotify falls back to an app token
// obtained with the client credentials grant.
func (r *Runner) credentials(ctx context.Context, cmd *cli.Command, platforms ...models.Platform) models.Credentials {
	var creds models.Credentials
	seen := map[models.Platform]bool{}

	for _, p := range platforms {
		if seen[p] {
			continue
		}
		seen[p] = true

		switch p {
		case models.Spotify:
			creds.Spotify = r.spotifyCredentials(ctx, cmd)
		case models.YouTube:
			creds.YouTube = r.youtubeCredentials(ctx, cmd)
		}
	}
	return creds
}

func (r *Runner) spotifyCredentials(ctx context.Context, cmd *cli.Command) models.PlatformCredentials {
	var creds models.PlatformCredentials
	if token := strings.TrimSpace(cmd.String("spotify-token")); token != "" {
		creds.AccessToken = token
	} else {
		creds = r.storedCredentials(ctx, models.Spotify)
	}

	if creds.HasToken() {
		return creds
	}

	sc := r.config.Credentials.Spotify
	if sc.ClientID == "" || sc.ClientSecret == "" {
		return creds
	}
	tok, err := services.SpotifyAppToken(r.oauthContext(ctx), sc, r.spotifyTokenURL)
	if err != nil {
		r.logger.Warn("could not obtain a Spotify app token", "error", err)
		return creds
	}
	r.logger.Debug("using Spotify app token", "expiry", tok.Expiry)
	creds.APIKey = tok.AccessToken
	return creds
}

func (r *Runner) youtubeCredentials(ctx context.Context, cmd *cli.Command) models.PlatformCredentials {
	var creds models.PlatformCredentials
	if token := strings.TrimSpace(cmd.String("youtube-token")); token != "" {
		creds.AccessToken = token
	} else {
		creds = r.storedCredentials(ctx, models.YouTube)
	}

	creds.APIKey = strings.TrimSpace(cmd.String("youtube-key"))
	if creds.APIKey == "" {
		creds.APIKey = r.config.Credentials.YouTube.APIKey
	}
	return creds
}

// storedCredentials returns the stored token for platform, refreshing it when it has expired.
// Any failure degrades to no token.
func (r *Runner) storedCredentials(ctx context.Context, platform models.Platform) models.PlatformCredentials {
	store, err := r.tokenStore(ctx)
	if err != nil {
		r.logger.Warn("token store unavailable", "error", err)
		return models.PlatformCredentials{}
	}

	token, err := store.GetByPlatform(platform)
	if err != nil {
		if !errors.Is(err, shared.ErrTokenNotFound) {
			r.logger.Warn("failed to read stored token", "platform", platform, "error", err)
		}
		return models.PlatformCredentials{}
	}

	if token.Expired() {
		if token, err = r.refresh(ctx, store, token); err != nil {
			r.logger.Warn("stored token expired", "platform", platform, "error", err)
			return models.PlatformCredentials{}
		}
	}
	return token.Credentials()
}

// refresh exchanges the refresh token of an expired stored token and saves the result.
func (r *Runner) refresh(ctx context.Context, store TokenStore, token *models.StoredToken) (*models.StoredToken, error) {
	config, err := services.OAuthConfig(token.Platform(), r.config.Credentials)
	if err != nil {
		return nil, err
	}

	fresh, err := services.RefreshToken(r.oauthContext(ctx), config, token.OAuth2())
	if err != nil {
		return nil, err
	}

	token.SetToken(fresh)
	if err := store.Save(token); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}
	r.logger.Info("refreshed access token", "platform", token.Platform(), "expiry", token.Expiry())
	return token, nil
}

// oauthContext makes the oauth2 package use the runner's HTTP client.
func (r *Runner) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
}
