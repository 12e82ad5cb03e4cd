package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/oauth2"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newToken(platform models.Platform, access, refresh string, expiry time.Time) *models.StoredToken {
	return models.NewStoredToken(platform, &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       expiry,
	})
}

func TestTokenRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token := newToken(models.Spotify, "access", "refresh", time.Now().Add(time.Hour))

		if err := repo.Create(token); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
		if token.ID() == "" {
			t.Error("token ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		token := newToken(models.YouTube, "access", "refresh", expiry)
		if err := repo.Create(token); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		got, err := repo.Get(token.ID())
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}

		if got.Platform() != models.YouTube {
			t.Errorf("expected platform youtube, got %s", got.Platform())
		}
		if got.AccessToken() != "access" || got.RefreshToken() != "refresh" || got.TokenType() != "Bearer" {
			t.Errorf("unexpected token values %q %q %q", got.AccessToken(), got.RefreshToken(), got.TokenType())
		}
		if !got.Expiry().Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry())
		}
	})

	t.Run("GetByPlatform", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		if err := repo.Create(newToken(models.Spotify, "sp", "", time.Time{})); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		got, err := repo.GetByPlatform(models.Spotify)
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if got.AccessToken() != "sp" {
			t.Errorf("expected sp, got %s", got.AccessToken())
		}
		if !got.Expiry().IsZero() {
			t.Errorf("expected zero expiry, got %v", got.Expiry())
		}
		if got.Expired() {
			t.Error("token without expiry should not be expired")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token := newToken(models.Spotify, "old", "refresh", time.Now())
		if err := repo.Create(token); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		token.SetToken(&oauth2.Token{AccessToken: "new", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
		if err := repo.Update(token); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		got, _ := repo.Get(token.ID())
		if got.AccessToken() != "new" {
			t.Errorf("expected new, got %s", got.AccessToken())
		}
		if got.RefreshToken() != "refresh" {
			t.Errorf("refresh token should be kept, got %q", got.RefreshToken())
		}
	})

	t.Run("Save", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		first := newToken(models.YouTube, "one", "refresh", time.Now().Add(time.Hour))
		if err := repo.Save(first); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		second := newToken(models.YouTube, "two", "", time.Now().Add(2*time.Hour))
		if err := repo.Save(second); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("expected the row to be reused, got %s and %s", first.ID(), second.ID())
		}

		tokens, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list tokens: %v", err)
		}
		if len(tokens) != 1 {
			t.Fatalf("expected 1 token, got %d", len(tokens))
		}
		if tokens[0].AccessToken() != "two" || tokens[0].RefreshToken() != "refresh" {
			t.Errorf("unexpected saved token %q %q", tokens[0].AccessToken(), tokens[0].RefreshToken())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		token := newToken(models.Spotify, "access", "", time.Time{})
		if err := repo.Create(token); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		if err := repo.Delete(token.ID()); err != nil {
			t.Fatalf("failed to delete token: %v", err)
		}
		if _, err := repo.Get(token.ID()); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected shared.ErrTokenNotFound, got %v", err)
		}
	})

	t.Run("DeleteByPlatform", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		if err := repo.Create(newToken(models.Spotify, "sp", "", time.Time{})); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
		if err := repo.Create(newToken(models.YouTube, "yt", "", time.Time{})); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		if err := repo.DeleteByPlatform(models.Spotify); err != nil {
			t.Fatalf("failed to delete token: %v", err)
		}
		if _, err := repo.GetByPlatform(models.Spotify); !errors.Is(err, shared.ErrTokenNotFound) {
			t.Errorf("expected shared.ErrTokenNotFound, got %v", err)
		}
		if _, err := repo.GetByPlatform(models.YouTube); err != nil {
			t.Errorf("youtube token should remain: %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		for _, p := range []models.Platform{models.YouTube, models.Spotify} {
			if err := repo.Create(newToken(p, string(p), "", time.Time{})); err != nil {
				t.Fatalf("failed to create token: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list tokens: %v", err)
		}
		if len(all) != 2 || all[0].Platform() != models.Spotify {
			t.Errorf("expected 2 tokens ordered by platform, got %d", len(all))
		}

		filtered, err := repo.List(map[string]any{"platform": models.YouTube})
		if err != nil {
			t.Fatalf("failed to list tokens: %v", err)
		}
		if len(filtered) != 1 || filtered[0].AccessToken() != "youtube" {
			t.Errorf("unexpected filtered tokens %v", filtered)
		}
	})

	t.Run("PruneExpired", func(t *testing.T) {
		repo := NewTokenRepository(setupTestDB(t))
		past := time.Now().Add(-time.Hour)
		if err := repo.Create(newToken(models.Spotify, "stale", "", past)); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}
		if err := repo.Create(newToken(models.YouTube, "refreshable", "refresh", past)); err != nil {
			t.Fatalf("failed to create token: %v", err)
		}

		n, err := repo.PruneExpired(time.Now())
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 pruned token, got %d", n)
		}
		if _, err := repo.GetByPlatform(models.YouTube); err != nil {
			t.Errorf("refreshable token should remain: %v", err)
		}
	})
}

func TestTokenRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewTokenRepository(setupTestDB(t))
			if err := repo.Create(newToken(models.Spotify, "", "", time.Time{})); err == nil {
				t.Fatal("expected validation error for empty access token")
			}
			if err := repo.Create(newToken(models.Platform("tidal"), "x", "", time.Time{})); err == nil {
				t.Fatal("expected validation error for unknown platform")
			}
		})

		t.Run("DuplicatePlatform", func(t *testing.T) {
			repo := NewTokenRepository(setupTestDB(t))
			if err := repo.Create(newToken(models.Spotify, "one", "", time.Time{})); err != nil {
				t.Fatalf("failed to create first token: %v", err)
			}
			if err := repo.Create(newToken(models.Spotify, "two", "", time.Time{})); err == nil {
				t.Fatal("expected error when creating a second token for a platform")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTokenRepository(setupTestDB(t))
			if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrTokenNotFound) {
				t.Errorf("expected shared.ErrTokenNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTokenRepository(setupTestDB(t))
			token := newToken(models.Spotify, "x", "", time.Time{})
			token.SetID("missing")
			if err := repo.Update(token); !errors.Is(err, shared.ErrTokenNotFound) {
				t.Errorf("expected shared.ErrTokenNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewTokenRepository(setupTestDB(t))
			if err := repo.DeleteByPlatform(models.YouTube); !errors.Is(err, shared.ErrTokenNotFound) {
				t.Errorf("expected shared.ErrTokenNotFound, got %v", err)
			}
		})
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewTokenRepository(db)
		db.Close()

		if _, err := repo.List(nil); err == nil {
			t.Error("expected error listing on a closed database")
		}
		if err := repo.Save(newToken(models.Spotify, "x", "", time.Time{})); err == nil {
			t.Error("expected error saving on a closed database")
		}
	})
}
