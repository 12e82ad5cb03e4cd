package tasks

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
)

// ProgressUpdate represents a progress event during a load or conversion.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	State   State  // State the run is in
	Step    int    // Current step number within the state
	Total   int    // Total steps in this state
	Percent int    // Overall completion, never decreasing within a run
	Message string // Human-readable message for display
	Data    any    // Optional state-specific data
}

func loadingSourceUpdate(ref models.PlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		State:   LoadingSource,
		Step:    1,
		Total:   1,
		Percent: 10,
		Message: fmt.Sprintf("Loading playlist %s from %s...", ref.ID, ref.Platform.DisplayName()),
	}
}

func keyFallbackUpdate() ProgressUpdate {
	return ProgressUpdate{
		State:   LoadingSource,
		Step:    1,
		Total:   1,
		Percent: 30,
		Message: "Access token rejected, retrying with API key...",
	}
}

func sourceReadyUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		State:   SourceReady,
		Step:    1,
		Total:   1,
		Percent: 100,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, pl.TotalTracks),
		Data:    pl,
	}
}

func creatingTargetUpdate(target models.Platform) ProgressUpdate {
	return ProgressUpdate{
		State:   CreatingTarget,
		Step:    1,
		Total:   1,
		Percent: 5,
		Message: fmt.Sprintf("Converting to %s...", target.DisplayName()),
	}
}

func searchTracksUpdate(step, total int, tr *models.Track) ProgressUpdate {
	percent := 10
	if total > 0 {
		percent = 10 + step*70/total
	}
	if tr == nil {
		return ProgressUpdate{
			State:   MatchingTracks,
			Step:    step,
			Total:   total,
			Percent: percent,
			Message: "Searching for matching tracks...",
		}
	}
	return ProgressUpdate{
		State:   MatchingTracks,
		Step:    step,
		Total:   total,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.ArtistLine(), tr.Name),
	}
}

func createPlaylistUpdate(name string, target models.Platform) ProgressUpdate {
	return ProgressUpdate{
		State:   PopulatingTarget,
		Step:    1,
		Total:   2,
		Percent: 85,
		Message: fmt.Sprintf("Creating %s playlist %q...", target.DisplayName(), name),
	}
}

func addTracksUpdate(count int, playlistURL string) ProgressUpdate {
	return ProgressUpdate{
		State:   PopulatingTarget,
		Step:    2,
		Total:   2,
		Percent: 90,
		Message: fmt.Sprintf("Adding %d tracks to playlist...", count),
		Data:    playlistURL,
	}
}

func instructionsUpdate(total int, reason string) ProgressUpdate {
	return ProgressUpdate{
		State:   GeneratingInstructions,
		Step:    1,
		Total:   1,
		Percent: 90,
		Message: fmt.Sprintf("%s, generating manual instructions for %d tracks...", reason, total),
	}
}

func completedUpdate(result *models.ConversionResult, state State) ProgressUpdate {
	return ProgressUpdate{
		State:   state,
		Step:    1,
		Total:   1,
		Percent: 100,
		Message: result.Message,
		Data:    result,
	}
}
