// Package models defines the domain entities shared by the playlist converter.
//
// The package contains two categories of types:
//
// 1. Catalog values, built by platform adapters and never mutated afterwards
//   - [Track] : Canonical song record (name, ordered artists, album, duration, links)
//   - [Playlist] : Fully paginated playlist with its tracks
//   - [ConversionResult] : Terminal summary of one conversion
//   - [Credentials] : Caller supplied bearer tokens and read-only keys per [Platform]
//   - [PlaylistRef] : Playlist identity parsed from a URL by [ExtractPlaylistID]
//
// 2. Persistent Entities
//   - [StoredToken] : OAuth token saved between CLI invocations
//
// Persistent entities implement the Model interface. The Repository[T] interface defines standard CRUD operations.
package models
