// package models defines the data model for the playlist converter
package models

import (
	"fmt"
	"strings"
	"time"
)

// UnknownArtist is used when a catalog entry carries no artist information.
const UnknownArtist = "Unknown Artist"

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Platform identifies a streaming service.
type Platform string

const (
	Spotify Platform = "spotify"
	YouTube Platform = "youtube"
)

// ParsePlatform resolves a user supplied platform name.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify", "spot":
		return Spotify, nil
	case "youtube", "yt", "ytmusic", "youtube-music", "youtubemusic":
		return YouTube, nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected spotify or youtube)", s)
	}
}

// DisplayName returns the human readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case Spotify:
		return "Spotify"
	case YouTube:
		return "YouTube Music"
	default:
		return string(p)
	}
}

func (p Platform) String() string {
	return string(p)
}

// Track is the platform-agnostic representation of a song.
//
// Tracks are built once per catalog lookup and treated as values afterwards.
type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []string          `json:"artists"`
	Album        string            `json:"album,omitempty"`
	DurationMs   int               `json:"duration_ms"`
	PreviewURL   string            `json:"preview_url,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// NewTrack builds a [Track], falling back to [UnknownArtist] when no artist names are usable.
func NewTrack(id, name string, artists []string, album string, durationMs int) Track {
	cleaned := make([]string, 0, len(artists))
	for _, a := range artists {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{UnknownArtist}
	}
	if durationMs < 0 {
		durationMs = 0
	}
	return Track{
		ID:         id,
		Name:       strings.TrimSpace(name),
		Artists:    cleaned,
		Album:      strings.TrimSpace(album),
		DurationMs: durationMs,
	}
}

// PrimaryArtist returns the first artist or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistLine joins the artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// SearchQuery builds the free-text query used to look the track up on another catalog.
func (t Track) SearchQuery() string {
	return strings.TrimSpace(t.Name + " " + strings.Join(t.Artists, " "))
}

// URL returns the canonical link for the track on the given platform.
func (t Track) URL(p Platform) string {
	if t.ExternalURLs == nil {
		return ""
	}
	return t.ExternalURLs[string(p)]
}

// Playlist is a fully fetched playlist.
//
// TotalTracks always equals len(Tracks) once an adapter has paginated through every item.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Tracks       []Track           `json:"tracks"`
	TotalTracks  int               `json:"total_tracks"`
	Platform     Platform          `json:"platform"`
	ImageURL     string            `json:"image_url,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// ConversionMode records how the target playlist was (or is to be) created.
type ConversionMode string

const (
	ModeAutomatic ConversionMode = "automatic"
	ModeManual    ConversionMode = "manual"
)

// ConversionResult is the terminal output of one conversion.
//
// Outside of manual mode MatchedTracks + len(FailedTracks) == TotalTracks.
// In manual mode every source track counts as matched.
type ConversionResult struct {
	Success       bool           `json:"success"`
	MatchedTracks int            `json:"matched_tracks"`
	TotalTracks   int            `json:"total_tracks"`
	FailedTracks  []Track        `json:"failed_tracks"`
	PlaylistURL   string         `json:"playlist_url,omitempty"`
	Message       string         `json:"message"`
	Instructions  string         `json:"instructions,omitempty"`
	SearchQueries []string       `json:"search_queries,omitempty"`
	Mode          ConversionMode `json:"mode"`
	State         string         `json:"state"`
}
