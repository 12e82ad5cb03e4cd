package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// DefaultSearchLimit is the number of candidates requested per search.
const DefaultSearchLimit = 5

// Service is the platform adapter contract shared by Spotify and YouTube Music.
type Service interface {
	// Platform identifies the catalog behind the adapter.
	Platform() models.Platform
	// FetchPlaylist returns the playlist with every page of items fetched.
	FetchPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)
	// SearchTrack returns up to the configured number of candidates, best first. No results is not an error.
	SearchTrack(ctx context.Context, query string) ([]models.Track, error)
	// CreatePlaylist creates a private playlist owned by the authenticated user and returns its ID.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)
	// AddTracks appends tracks in platform sized batches, counting failures instead of aborting.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) (AddResult, error)
}

// AddResult summarizes an [Service.AddTracks] call.
type AddResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

func (r *AddResult) fail(ids ...string) {
	r.Failed += len(ids)
	r.FailedIDs = append(r.FailedIDs, ids...)
}

// Options configures adapters built by a [Catalog].
type Options struct {
	Logger          *log.Logger
	HTTPClient      *http.Client
	RequestInterval time.Duration
	SearchLimit     int
	SpotifyBaseURL  string // overrides the Spotify Web API base URL
	YouTubeEndpoint string // overrides the YouTube Data API endpoint
}

func (o Options) searchLimit() int {
	if o.SearchLimit <= 0 {
		return DefaultSearchLimit
	}
	return o.SearchLimit
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return shared.NewLogger(nil)
	}
	return o.Logger
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient == nil {
		return http.DefaultClient
	}
	return o.HTTPClient
}

// Catalog builds platform adapters from explicit credentials.
//
// Adapters opened from the same Catalog share one pacer per platform, so consecutive requests
// stay spaced out even across adapter instances.
type Catalog struct {
	opts   Options
	pacers map[models.Platform]*shared.Pacer
}

// NewCatalog creates a [Catalog].
func NewCatalog(opts Options) *Catalog {
	return &Catalog{
		opts: opts,
		pacers: map[models.Platform]*shared.Pacer{
			models.Spotify: shared.NewPacer(opts.RequestInterval),
			models.YouTube: shared.NewPacer(opts.RequestInterval),
		},
	}
}

// Open returns the adapter for platform authorized with creds.
func (c *Catalog) Open(ctx context.Context, platform models.Platform, creds models.PlatformCredentials) (Service, error) {
	switch platform {
	case models.Spotify:
		return NewSpotifyService(ctx, creds, c.pacers[platform], c.opts)
	case models.YouTube:
		return NewYouTubeService(ctx, creds, c.pacers[platform], c.opts)
	default:
		return nil, fmt.Errorf("%w: unsupported platform %q", shared.ErrInvalidArgument, platform)
	}
}

func batches(ids []string, size int) [][]string {
	var out [][]string
	for size < len(ids) {
		ids, out = ids[size:], append(out, ids[:size])
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
