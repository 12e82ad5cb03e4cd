package models

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	spotifyPlaylistURL = regexp.MustCompile(`spotify\.com/playlist/([a-zA-Z0-9]+)`)
	spotifyPlaylistURI = regexp.MustCompile(`^spotify:playlist:([a-zA-Z0-9]+)$`)
	youtubeListParam   = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
)

// PlaylistRef identifies a playlist on a platform.
type PlaylistRef struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
}

// ExtractPlaylistID recognises Spotify playlist URLs and URIs and any URL carrying a list query parameter.
func ExtractPlaylistID(s string) (PlaylistRef, bool) {
	s = strings.TrimSpace(s)
	if m := spotifyPlaylistURL.FindStringSubmatch(s); m != nil {
		return PlaylistRef{ID: m[1], Platform: Spotify}, true
	}
	if m := spotifyPlaylistURI.FindStringSubmatch(s); m != nil {
		return PlaylistRef{ID: m[1], Platform: Spotify}, true
	}
	if m := youtubeListParam.FindStringSubmatch(s); m != nil {
		return PlaylistRef{ID: m[1], Platform: YouTube}, true
	}
	return PlaylistRef{}, false
}

// PlaylistURL builds the public URL of a playlist.
func PlaylistURL(p Platform, id string) string {
	switch p {
	case Spotify:
		return fmt.Sprintf("https://open.spotify.com/playlist/%s", id)
	case YouTube:
		return fmt.Sprintf("https://music.youtube.com/playlist?list=%s", id)
	default:
		return ""
	}
}

// TrackURL builds the public URL of a track.
func TrackURL(p Platform, id string) string {
	switch p {
	case Spotify:
		return fmt.Sprintf("https://open.spotify.com/track/%s", id)
	case YouTube:
		return fmt.Sprintf("https://music.youtube.com/watch?v=%s", id)
	default:
		return ""
	}
}
