package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// fakeSpotify stands in for the Spotify Web API.
type fakeSpotify struct {
	mu          sync.Mutex
	tracks      int
	searchHits  int
	addCalls    [][]string
	failAddCall int // 1-based index of the add call that fails, 0 for none
	rateLimit   bool
	authHeaders []string
	created     map[string]any
}

func spotifyTrackJSON(i int) map[string]any {
	id := fmt.Sprintf("t%03d", i)
	return map[string]any{
		"type":         "track",
		"id":           id,
		"name":         fmt.Sprintf("Song %d", i),
		"duration_ms":  180000 + i,
		"preview_url":  "https://p.scdn.co/" + id,
		"artists":      []map[string]any{{"id": "a" + id, "name": fmt.Sprintf("Artist %d", i)}, {"id": "f" + id, "name": "Featured"}},
		"album":        map[string]any{"id": "al" + id, "name": fmt.Sprintf("Album %d", i)},
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/" + id},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func spotifyError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": msg}})
}

func (f *fakeSpotify) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /playlists/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") != "pl1" {
			spotifyError(w, http.StatusNotFound, "Not found.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":            "pl1",
			"name":          "Road Trip",
			"description":   "Songs for the road",
			"images":        []map[string]any{{"url": "https://i.scdn.co/cover"}},
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl1"},
			"tracks":        map[string]any{"total": f.tracks, "items": []any{}},
		})
	})

	mux.HandleFunc("GET /playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") != "pl1" {
			spotifyError(w, http.StatusNotFound, "Not found.")
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit == 0 {
			limit = 100
		}

		items := []any{}
		for i := offset; i < f.tracks && i < offset+limit; i++ {
			items = append(items, map[string]any{"added_at": "2024-01-01T00:00:00Z", "is_local": false, "track": spotifyTrackJSON(i)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": f.tracks, "limit": limit, "offset": offset})
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.rateLimit {
			spotifyError(w, http.StatusTooManyRequests, "API rate limit exceeded")
			return
		}
		if r.URL.Query().Get("type") != "track" {
			spotifyError(w, http.StatusBadRequest, "unexpected type")
			return
		}
		items := []any{}
		for i := 0; i < f.searchHits; i++ {
			items = append(items, spotifyTrackJSON(i))
		}
		writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": items, "total": len(items)}})
	})

	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, http.StatusOK, map[string]any{"id": "user1", "display_name": "Test User"})
	})

	mux.HandleFunc("POST /users/{user}/playlists", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = body
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"id": "newpl", "name": body["name"]})
	})

	mux.HandleFunc("POST /playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			URIs []string `json:"uris"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.addCalls = append(f.addCalls, body.URIs)
		call := len(f.addCalls)
		f.mu.Unlock()

		if call == f.failAddCall {
			spotifyError(w, http.StatusBadRequest, "Invalid track uri")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": "snap"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeSpotify) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

func newTestSpotify(t *testing.T, srv *httptest.Server, creds models.PlatformCredentials) *SpotifyService {
	t.Helper()
	svc, err := NewSpotifyService(context.Background(), creds, nil, Options{
		SpotifyBaseURL: srv.URL,
		Logger:         shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("NewSpotifyService failed: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	userCreds := models.PlatformCredentials{AccessToken: "user-token"}

	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), models.PlatformCredentials{}, nil, Options{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Platform", func(t *testing.T) {
			svc, err := NewSpotifyService(context.Background(), userCreds, nil, Options{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Platform() != models.Spotify {
				t.Errorf("expected spotify platform, got %s", svc.Platform())
			}
		})
	})

	t.Run("FetchPlaylist", func(t *testing.T) {
		t.Run("Paginates And Preserves Order", func(t *testing.T) {
			fake := &fakeSpotify{tracks: 250}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			pl, err := svc.FetchPlaylist(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("FetchPlaylist failed: %v", err)
			}

			if pl.TotalTracks != 250 || len(pl.Tracks) != 250 {
				t.Fatalf("expected 250 tracks, got total=%d len=%d", pl.TotalTracks, len(pl.Tracks))
			}
			for i, tr := range pl.Tracks {
				if want := fmt.Sprintf("t%03d", i); tr.ID != want {
					t.Fatalf("track %d has ID %s, want %s", i, tr.ID, want)
				}
			}

			first := pl.Tracks[0]
			if first.Name != "Song 0" || first.Album != "Album 0" || first.DurationMs != 180000 {
				t.Errorf("unexpected first track: %+v", first)
			}
			if len(first.Artists) != 2 || first.PrimaryArtist() != "Artist 0" {
				t.Errorf("unexpected artists: %v", first.Artists)
			}
			if first.URL(models.Spotify) != "https://open.spotify.com/track/t000" {
				t.Errorf("unexpected track url: %s", first.URL(models.Spotify))
			}
			if pl.Name != "Road Trip" || pl.ImageURL != "https://i.scdn.co/cover" || pl.Platform != models.Spotify {
				t.Errorf("unexpected playlist metadata: %+v", pl)
			}
		})

		t.Run("Sends Bearer Token", func(t *testing.T) {
			fake := &fakeSpotify{tracks: 1}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			if _, err := svc.FetchPlaylist(context.Background(), "pl1"); err != nil {
				t.Fatalf("FetchPlaylist failed: %v", err)
			}
			for _, h := range fake.authHeaders {
				if h != "Bearer user-token" {
					t.Errorf("unexpected Authorization header %q", h)
				}
			}
		})

		t.Run("Empty Playlist", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			pl, err := svc.FetchPlaylist(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("FetchPlaylist failed: %v", err)
			}
			if pl.TotalTracks != 0 || len(pl.Tracks) != 0 {
				t.Errorf("expected empty playlist, got %d tracks", pl.TotalTracks)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			_, err := svc.FetchPlaylist(context.Background(), "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("App Token Reads", func(t *testing.T) {
			fake := &fakeSpotify{tracks: 3}
			svc := newTestSpotify(t, fake.server(t), models.PlatformCredentials{APIKey: "app-token"})

			pl, err := svc.FetchPlaylist(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("FetchPlaylist failed: %v", err)
			}
			if pl.TotalTracks != 3 {
				t.Errorf("expected 3 tracks, got %d", pl.TotalTracks)
			}
			if fake.authHeaders[0] != "Bearer app-token" {
				t.Errorf("expected app token, got %q", fake.authHeaders[0])
			}
		})
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("Limits Results", func(t *testing.T) {
			fake := &fakeSpotify{searchHits: 8}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			tracks, err := svc.SearchTrack(context.Background(), "Song 0 Artist 0")
			if err != nil {
				t.Fatalf("SearchTrack failed: %v", err)
			}
			if len(tracks) != DefaultSearchLimit {
				t.Errorf("expected %d results, got %d", DefaultSearchLimit, len(tracks))
			}
			if tracks[0].ID != "t000" {
				t.Errorf("expected catalog order, got %s first", tracks[0].ID)
			}
		})

		t.Run("No Results", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			tracks, err := svc.SearchTrack(context.Background(), "nothing matches")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tracks == nil || len(tracks) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", tracks)
			}
		})

		t.Run("Rate Limited", func(t *testing.T) {
			fake := &fakeSpotify{rateLimit: true}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			_, err := svc.SearchTrack(context.Background(), "anything")
			if !errors.Is(err, shared.ErrQuotaExceeded) {
				t.Errorf("expected ErrQuotaExceeded, got %v", err)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		t.Run("Creates Private Playlist", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			id, err := svc.CreatePlaylist(context.Background(), "Mix (from YouTube Music)", "Converted")
			if err != nil {
				t.Fatalf("CreatePlaylist failed: %v", err)
			}
			if id != "newpl" {
				t.Errorf("expected newpl, got %s", id)
			}
			if fake.created["public"] != false {
				t.Errorf("expected private playlist, got public=%v", fake.created["public"])
			}
			if fake.created["name"] != "Mix (from YouTube Music)" {
				t.Errorf("unexpected name %v", fake.created["name"])
			}
		})

		t.Run("Requires User Token", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), models.PlatformCredentials{APIKey: "app-token"})

			_, err := svc.CreatePlaylist(context.Background(), "x", "y")
			if !errors.Is(err, shared.ErrAuthRequired) {
				t.Errorf("expected ErrAuthRequired, got %v", err)
			}
			if len(fake.authHeaders) != 0 {
				t.Errorf("expected no requests, got %d", len(fake.authHeaders))
			}
		})
	})

	t.Run("AddTracks", func(t *testing.T) {
		ids := make([]string, 250)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		t.Run("Batches Of 100", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			res, err := svc.AddTracks(context.Background(), "newpl", ids)
			if err != nil {
				t.Fatalf("AddTracks failed: %v", err)
			}
			if len(fake.addCalls) != 3 {
				t.Fatalf("expected 3 write calls, got %d", len(fake.addCalls))
			}
			for i, want := range []int{100, 100, 50} {
				if got := len(fake.addCalls[i]); got != want {
					t.Errorf("batch %d has %d uris, want %d", i, got, want)
				}
			}
			if fake.addCalls[0][0] != "spotify:track:t000" {
				t.Errorf("unexpected uri %s", fake.addCalls[0][0])
			}
			if res.Succeeded != 250 || res.Failed != 0 {
				t.Errorf("unexpected result %+v", res)
			}
		})

		t.Run("Failed Batch Is Counted", func(t *testing.T) {
			fake := &fakeSpotify{failAddCall: 2}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			res, err := svc.AddTracks(context.Background(), "newpl", ids)
			if err != nil {
				t.Fatalf("AddTracks should not fail on a per-batch error: %v", err)
			}
			if len(fake.addCalls) != 3 {
				t.Errorf("expected the loop to continue, got %d calls", len(fake.addCalls))
			}
			if res.Succeeded != 150 || res.Failed != 100 || len(res.FailedIDs) != 100 {
				t.Errorf("unexpected result %+v", res)
			}
			if res.FailedIDs[0] != "t100" {
				t.Errorf("expected second batch to fail, first failed id %s", res.FailedIDs[0])
			}
		})

		t.Run("Empty Input", func(t *testing.T) {
			fake := &fakeSpotify{}
			svc := newTestSpotify(t, fake.server(t), userCreds)

			res, err := svc.AddTracks(context.Background(), "newpl", nil)
			if err != nil || res.Succeeded != 0 || len(fake.addCalls) != 0 {
				t.Errorf("expected no calls, got %+v, %v, %d calls", res, err, len(fake.addCalls))
			}
		})
	})
}

func TestBatches(t *testing.T) {
	ids := make([]string, 7)
	got := batches(ids, 3)
	if len(got) != 3 || len(got[0]) != 3 || len(got[2]) != 1 {
		t.Errorf("unexpected batches: %v", got)
	}
	if len(batches(nil, 3)) != 0 {
		t.Error("expected no batches for empty input")
	}
	if got := batches(ids, 1); len(got) != 7 {
		t.Errorf("expected 7 single batches, got %d", len(got))
	}
}
