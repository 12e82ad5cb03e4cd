// Spotify Web API implementation of [Service]
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyPageSize  = 100
	spotifyBatchSize = 100
)

// SpotifyService implements [Service] on top of the zmb3/spotify client.
//
// Reads work with either a user bearer token or an app token from the client credentials grant;
// writes need the user token.
type SpotifyService struct {
	client      *spotify.Client
	creds       models.PlatformCredentials
	pacer       *shared.Pacer
	logger      *log.Logger
	searchLimit int
}

// NewSpotifyService creates a [SpotifyService] authorized with creds.
func NewSpotifyService(ctx context.Context, creds models.PlatformCredentials, pacer *shared.Pacer, opts Options) (*SpotifyService, error) {
	var token string
	switch {
	case creds.HasToken():
		token = creds.AccessToken
	case creds.HasKey():
		token = creds.APIKey
	default:
		return nil, shared.NewServiceError(shared.KindMissingCredentials, string(models.Spotify), "connect",
			fmt.Errorf("an access token or client credentials are required"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.httpClient())
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	var clientOpts []spotify.ClientOption
	if opts.SpotifyBaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(strings.TrimSuffix(opts.SpotifyBaseURL, "/")+"/"))
	}

	if pacer == nil {
		pacer = shared.NewPacer(opts.RequestInterval)
	}

	return &SpotifyService{
		client:      spotify.New(httpClient, clientOpts...),
		creds:       creds,
		pacer:       pacer,
		logger:      shared.WithLogger(opts.logger(), "platform", models.Spotify),
		searchLimit: opts.searchLimit(),
	}, nil
}

func (s *SpotifyService) Platform() models.Platform {
	return models.Spotify
}

// FetchPlaylist retrieves playlist metadata and pages through every item.
//
// Local files, episodes and unavailable entries carry no catalog track and are skipped.
func (s *SpotifyService) FetchPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	sp, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, classifySpotify("fetch playlist", err, true)
	}

	playlist := &models.Playlist{
		ID:           string(sp.ID),
		Name:         sp.Name,
		Description:  sp.Description,
		Platform:     models.Spotify,
		ExternalURLs: map[string]string{string(models.Spotify): models.PlaylistURL(models.Spotify, string(sp.ID))},
	}
	if len(sp.Images) > 0 {
		playlist.ImageURL = sp.Images[0].URL
	}

	offset := 0
	for {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, classifySpotify("fetch playlist items", err, true)
		}

		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			playlist.Tracks = append(playlist.Tracks, spotifyTrack(item.Track.Track))
		}

		s.logger.Debug("fetched playlist page", "playlist_id", playlistID, "offset", offset, "items", len(page.Items))

		if len(page.Items) < spotifyPageSize {
			break
		}
		offset += len(page.Items)
	}

	playlist.TotalTracks = len(playlist.Tracks)
	return playlist, nil
}

// SearchTrack runs a track search and returns at most searchLimit candidates.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string) ([]models.Track, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Track{}, nil
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(s.searchLimit))
	if err != nil {
		return nil, classifySpotify("search", err, false)
	}

	tracks := []models.Track{}
	if results == nil || results.Tracks == nil {
		return tracks, nil
	}
	for i := range results.Tracks.Tracks {
		if len(tracks) == s.searchLimit {
			break
		}
		tracks = append(tracks, spotifyTrack(&results.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist for the user behind the bearer token.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if !s.creds.HasToken() {
		return "", shared.NewServiceError(shared.KindAuthRequired, string(models.Spotify), "create playlist",
			fmt.Errorf("a user access token is required to create playlists"))
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return "", err
	}
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", classifySpotify("current user", err, false)
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return "", err
	}
	pl, err := s.client.CreatePlaylistForUser(ctx, user.ID, name, description, false, false)
	if err != nil {
		return "", classifySpotify("create playlist", err, false)
	}

	s.logger.Info("created playlist", "playlist_id", pl.ID, "name", name)
	return string(pl.ID), nil
}

// AddTracks adds tracks in batches of 100. A failed batch counts all of its tracks as failed.
// Exhausted rate limits stop further batches.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (AddResult, error) {
	var result AddResult
	if !s.creds.HasToken() {
		return result, shared.NewServiceError(shared.KindAuthRequired, string(models.Spotify), "add tracks",
			fmt.Errorf("a user access token is required to modify playlists"))
	}

	chunks := batches(trackIDs, spotifyBatchSize)
	for i, batch := range chunks {
		if err := s.pacer.Wait(ctx); err != nil {
			for _, rest := range chunks[i:] {
				result.fail(rest...)
			}
			return result, err
		}

		ids := make([]spotify.ID, len(batch))
		for j, id := range batch {
			ids[j] = spotify.ID(id)
		}

		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
			err = classifySpotify("add tracks", err, false)
			s.logger.Warn("failed to add batch", "playlist_id", playlistID, "batch", i, "size", len(batch), "error", err)
			if shared.IsQuotaExceeded(err) {
				for _, rest := range chunks[i:] {
					result.fail(rest...)
				}
				return result, err
			}
			result.fail(batch...)
			continue
		}
		result.Succeeded += len(batch)
	}

	return result, nil
}

func spotifyTrack(t *spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	track := models.NewTrack(string(t.ID), t.Name, artists, t.Album.Name, int(t.Duration))
	track.PreviewURL = t.PreviewURL
	track.ExternalURLs = map[string]string{string(models.Spotify): models.TrackURL(models.Spotify, string(t.ID))}
	if u, ok := t.ExternalURLs["spotify"]; ok && u != "" {
		track.ExternalURLs[string(models.Spotify)] = u
	}
	return track
}
