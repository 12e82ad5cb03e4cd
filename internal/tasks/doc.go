// Package tasks converts playlists between music services with real-time progress reporting.
//
// # Core Operations
//
// [Converter] exposes the two operations of the invocation surface:
//
//  1. [Converter.LoadSourcePlaylist] : resolve a playlist URL, URI or ID and fetch every track
//     - Spotify links, spotify:playlist URIs and any URL with a list= parameter are recognised
//     - YouTube loads with a rejected token retry with the API key alone
//
//  2. [Converter.Convert] : copy a loaded playlist to the other platform
//     - Searches the target for each track, in order, and selects a candidate
//     - Creates a private playlist named "<name> (from <source>)" and adds the matches
//     - Returns a [models.ConversionResult] with the unmatched tracks
//
// # State Machine
//
// Each call runs its own [State] machine:
//
//	Idle -> LoadingSource -> SourceReady | LoadFailed
//	SourceReady -> CreatingTarget -> MatchingTracks -> PopulatingTarget -> Completed | PartiallyFailed
//	CreatingTarget | MatchingTracks | PopulatingTarget -> GeneratingInstructions -> Completed
//	CreatingTarget | MatchingTracks | PopulatingTarget -> Failed
//
// # Degradation Policy
//
// [Decide] chooses between automatic creation and manual instructions from the target and its credentials.
// [OnQuotaExceeded] is consulted when the target runs out of quota mid-conversion: YouTube falls back to
// instructions covering every source track, Spotify fails.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct carries the state, step counters, an overall percentage and a message.
// Updates use select with default to prevent blocking, and the percentage never decreases within a run.
package tasks
