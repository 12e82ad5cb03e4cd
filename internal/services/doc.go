// Package services defines the [Service] interface for music streaming catalogs and implements it for Spotify and YouTube Music.
//
// # Service Interface
//
// Both platforms expose the same four capabilities: fetch a playlist, search a track, create a playlist
// and add tracks. A [Catalog] builds the adapter for a platform from explicit [models.PlatformCredentials];
// nothing is read from the environment here.
//
// # Spotify Implementation
//
// [SpotifyService] wraps the zmb3/spotify client. Playlist items are paged 100 at a time by offset,
// searches use type=track and playlists are created for the user returned by /me. Tracks are added
// in batches of 100. An app token from the client credentials grant ([SpotifyAppToken]) is enough for reads.
//
// # YouTube Music Implementation
//
// [YouTubeService] wraps the YouTube Data API v3 client. Playlist items are paged 50 at a time by page token,
// searches are restricted to videos in the Music category, and items are inserted one request at a time.
// A Data API key is enough for reads; writes need an OAuth token.
//
// # Pacing
//
// Every network call first waits on a [shared.Pacer], spacing consecutive requests by the configured interval.
//
// # Error Handling
//
// Client errors are classified once, at this boundary, into [shared.ServiceError] values:
//   - [shared.ErrPlaylistNotFound] : playlist missing or private
//   - [shared.ErrAuthRequired] : write attempted without a user token, or token rejected
//   - [shared.ErrMissingCredentials] : neither token nor key supplied
//   - [shared.ErrQuotaExceeded] : API quota or rate limit exhausted
//   - [shared.ErrTransient] : anything else
//
// YouTube quota exhaustion is detected from the error reason (quotaExceeded and friends) with a fallback
// to a "quota" substring in the response body.
//
// # OAuth
//
// [OAuthConfig] returns the authorization code flow configuration used by the CLI's auth commands.
package services
