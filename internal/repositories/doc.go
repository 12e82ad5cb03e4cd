// Package repositories implements SQLite persistence for the CLI's stored state.
//
// Key Implementations:
//   - [TokenRepository] : OAuth tokens, one row per platform, with upsert and expiry pruning
//
// Lookups that match nothing return an error wrapping [shared.ErrTokenNotFound].
package repositories
