package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/oauth2"
)

func TestOAuthConfig(t *testing.T) {
	creds := shared.CredentialsConfig{
		Spotify: shared.SpotifyConfig{ClientID: "sp-id", ClientSecret: "sp-secret", RedirectURI: "http://127.0.0.1:3000/callback"},
		YouTube: shared.YouTubeConfig{ClientID: "yt-id", ClientSecret: "yt-secret", RedirectURI: "http://127.0.0.1:3000/callback"},
	}

	t.Run("Spotify", func(t *testing.T) {
		cfg, err := OAuthConfig(models.Spotify, creds)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(cfg.Endpoint.AuthURL, "accounts.spotify.com") {
			t.Errorf("unexpected auth url %s", cfg.Endpoint.AuthURL)
		}
		u := AuthCodeURL(cfg, "state123")
		for _, want := range []string{"client_id=sp-id", "state=state123", "playlist-modify-private"} {
			if !strings.Contains(u, want) {
				t.Errorf("expected %q in %s", want, u)
			}
		}
	})

	t.Run("YouTube", func(t *testing.T) {
		cfg, err := OAuthConfig(models.YouTube, creds)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		u := AuthCodeURL(cfg, "s")
		if !strings.Contains(u, "access_type=offline") {
			t.Errorf("expected offline access in %s", u)
		}
		if !strings.Contains(cfg.Endpoint.TokenURL, "google") {
			t.Errorf("unexpected token url %s", cfg.Endpoint.TokenURL)
		}
	})

	t.Run("Missing Client", func(t *testing.T) {
		_, err := OAuthConfig(models.YouTube, shared.CredentialsConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Unknown Platform", func(t *testing.T) {
		_, err := OAuthConfig(models.Platform("tidal"), creds)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSpotifyAppToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" {
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
			return
		}
		id, secret, ok := r.BasicAuth()
		if !ok || id != "sp-id" || secret != "sp-secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"app-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	t.Run("Issues Token", func(t *testing.T) {
		tok, err := SpotifyAppToken(context.Background(), shared.SpotifyConfig{ClientID: "sp-id", ClientSecret: "sp-secret"}, srv.URL)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tok.AccessToken != "app-token" {
			t.Errorf("expected app-token, got %s", tok.AccessToken)
		}
	})

	t.Run("Rejected Client", func(t *testing.T) {
		_, err := SpotifyAppToken(context.Background(), shared.SpotifyConfig{ClientID: "sp-id", ClientSecret: "wrong"}, srv.URL)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Missing Client", func(t *testing.T) {
		_, err := SpotifyAppToken(context.Background(), shared.SpotifyConfig{}, srv.URL)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	cfg := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}
	expired := time.Now().Add(-time.Hour)

	t.Run("Valid Token Unchanged", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "current", Expiry: time.Now().Add(time.Hour)}
		got, err := RefreshToken(context.Background(), cfg, tok)
		if err != nil || got.AccessToken != "current" {
			t.Errorf("expected unchanged token, got %v, %v", got, err)
		}
	})

	t.Run("Refreshes Expired Token", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh-1", Expiry: expired}
		got, err := RefreshToken(context.Background(), cfg, tok)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.AccessToken != "fresh" {
			t.Errorf("expected fresh token, got %s", got.AccessToken)
		}
	})

	t.Run("No Refresh Token", func(t *testing.T) {
		_, err := RefreshToken(context.Background(), cfg, &oauth2.Token{AccessToken: "old", Expiry: expired})
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Rejected Refresh", func(t *testing.T) {
		_, err := RefreshToken(context.Background(), cfg, &oauth2.Token{AccessToken: "old", RefreshToken: "bad", Expiry: expired})
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})
}
