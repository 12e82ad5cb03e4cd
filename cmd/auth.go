package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/server"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultAuthTimeout = 2 * time.Minute

// AuthLogin returns the action that runs the OAuth2 authorization code flow for platform
// and stores the resulting token.
func (r *Runner) AuthLogin(platform models.Platform) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		config, err := services.OAuthConfig(platform, r.config.Credentials)
		if err != nil {
			return err
		}

		timeout := cmd.Duration("timeout")
		if timeout <= 0 {
			timeout = defaultAuthTimeout
		}

		token, err := r.doOAuth(ctx, platform, config, timeout)
		if err != nil {
			return err
		}

		store, err := r.tokenStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to open token store: %w", err)
		}
		if err := store.Save(models.NewStoredToken(platform, token)); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		r.logger.Info("stored token", "platform", platform, "expiry", token.Expiry)
		r.writePlainln("✓ %s authorization successful", platform.DisplayName())
		r.writePlain("✓ Token saved to %s\n", r.config.Database.Path)
		return nil
	}
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
//
// The server listens on the host and port of the configured redirect URI, falling back to the [server] settings.
func (r *Runner) doOAuth(ctx context.Context, platform models.Platform, config *oauth2.Config, timeout time.Duration) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := server.NewOAuthHandler(config, state, platform.DisplayName(), r.logger)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.Recover(r.logger), func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(r.oauthContext(req.Context())))
		})
	})
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	if u, err := url.Parse(config.RedirectURL); err == nil && u.Host != "" {
		addr = u.Host
	}

	srv, err := server.Listen(addr, router)
	if err != nil {
		return nil, err
	}
	r.logger.Info("started OAuth callback server", "platform", platform, "addr", srv.Addr())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := services.AuthCodeURL(config, state)
	r.writePlain("→ Opening browser for %s authorization...\n", platform.DisplayName())
	if err := r.openURL(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		token, err := handler.Wait(waitCtx)
		done <- outcome{token, err}
	}()

	select {
	case o := <-done:
		switch {
		case errors.Is(o.err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
		case o.err != nil:
			return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, o.err)
		}
		return o.token, nil
	case err := <-srv.Errors():
		return nil, fmt.Errorf("server error: %w", err)
	}
}

// tokenStatus is one row of `plx auth status`.
type tokenStatus struct {
	Platform    models.Platform `json:"platform"`
	Connected   bool            `json:"connected"`
	Expiry      *time.Time      `json:"expiry,omitempty"`
	Expired     bool            `json:"expired"`
	Refreshable bool            `json:"refreshable"`
	APIKey      bool            `json:"api_key"`
}

// AuthStatus reports stored tokens and configured read-only credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.tokenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	tokens, err := store.List(nil)
	if err != nil {
		return err
	}
	byPlatform := map[models.Platform]*models.StoredToken{}
	for _, t := range tokens {
		byPlatform[t.Platform()] = t
	}

	statuses := []tokenStatus{}
	for _, p := range []models.Platform{models.Spotify, models.YouTube} {
		s := tokenStatus{Platform: p}
		switch p {
		case models.Spotify:
			s.APIKey = r.config.Credentials.Spotify.ClientID != "" && r.config.Credentials.Spotify.ClientSecret != ""
		case models.YouTube:
			s.APIKey = r.config.Credentials.YouTube.APIKey != ""
		}
		if t, ok := byPlatform[p]; ok {
			s.Connected = true
			s.Expired = t.Expired()
			s.Refreshable = t.RefreshToken() != ""
			if exp := t.Expiry(); !exp.IsZero() {
				s.Expiry = &exp
			}
		}
		statuses = append(statuses, s)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	for _, s := range statuses {
		r.writePlain("%s\n", s.Platform.DisplayName())
		switch {
		case !s.Connected:
			r.writePlain("  Token: ✗ Not connected (run 'plx auth %s')\n", s.Platform)
		case s.Expired && s.Refreshable:
			r.writePlain("  Token: ⚠ Expired, will be refreshed on next use\n")
		case s.Expired:
			r.writePlain("  Token: ✗ Expired\n")
		case s.Expiry != nil:
			r.writePlain("  Token: ✓ Connected (expires %s)\n", s.Expiry.Local().Format(time.RFC1123))
		default:
			r.writePlain("  Token: ✓ Connected\n")
		}
		if s.APIKey {
			r.writePlain("  Read-only access: ✓ Configured\n")
		} else {
			r.writePlain("  Read-only access: ✗ Not configured\n")
		}
	}
	return nil
}

// AuthLogout deletes the stored token of a platform.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	platform, err := parsePlatform(cmd.StringArg("platform"))
	if err != nil {
		return err
	}

	store, err := r.tokenStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	if err := store.DeleteByPlatform(platform); err != nil {
		if errors.Is(err, shared.ErrTokenNotFound) {
			return r.writePlain("No %s token stored\n", platform.DisplayName())
		}
		return err
	}

	r.logger.Info("deleted token", "platform", platform)
	return r.writePlain("✓ Logged out of %s\n", platform.DisplayName())
}
