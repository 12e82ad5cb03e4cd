package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/match"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
)

// Catalog opens platform adapters from explicit credentials. [services.Catalog] is the production implementation.
type Catalog interface {
	Open(ctx context.Context, platform models.Platform, creds models.PlatformCredentials) (services.Service, error)
}

// Converter loads playlists and converts them between platforms.
//
// A Converter holds no per-conversion state; each call runs its own state machine and may be reused.
type Converter struct {
	catalog  Catalog
	selector match.Selector
	logger   *log.Logger
}

// Option configures a [Converter].
type Option func(*Converter)

// WithSelector sets the candidate selection strategy. The default is [match.FirstResult].
func WithSelector(s match.Selector) Option {
	return func(c *Converter) {
		if s != nil {
			c.selector = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConverter creates a [Converter] that opens adapters through catalog.
func NewConverter(catalog Catalog, opts ...Option) *Converter {
	c := &Converter{
		catalog:  catalog,
		selector: match.FirstResult{},
		logger:   shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run is the per-invocation state of a load or a conversion.
type run struct {
	machine
	progress chan<- ProgressUpdate
	percent  int
	logger   *log.Logger
}

func (c *Converter) newRun(progress chan<- ProgressUpdate, start State, kv ...any) *run {
	return &run{
		machine:  machine{state: start},
		progress: progress,
		logger:   shared.WithLogger(c.logger, kv...),
	}
}

// send reports update with its percentage clamped so a run never goes backwards.
func (r *run) send(update ProgressUpdate) {
	if update.Percent < r.percent {
		update.Percent = r.percent
	}
	r.percent = update.Percent
	sendProgress(r.progress, update)
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// LoadSourcePlaylist resolves a playlist URL, URI or ID and fetches the playlist with every track.
//
// Input that carries no recognisable playlist ID fails with [shared.ErrInvalidURL].
func (c *Converter) LoadSourcePlaylist(ctx context.Context, input string, creds models.Credentials, progress chan<- ProgressUpdate) (*models.Playlist, error) {
	ref, ok := models.ExtractPlaylistID(input)
	if !ok {
		r := c.newRun(progress, Idle, "input", input)
		if err := r.transition(LoadingSource); err != nil {
			return nil, err
		}
		err := shared.NewServiceError(shared.KindInvalidURL, "", "load playlist", fmt.Errorf("no playlist id in %q", input))
		return nil, r.loadFailed(err)
	}
	return c.LoadPlaylist(ctx, ref, creds, progress)
}

// LoadPlaylist fetches the playlist ref points to.
//
// A YouTube load with both a token and a key retries with the key alone when the token is rejected
// or its project is out of quota.
func (c *Converter) LoadPlaylist(ctx context.Context, ref models.PlaylistRef, creds models.Credentials, progress chan<- ProgressUpdate) (*models.Playlist, error) {
	r := c.newRun(progress, Idle, "platform", ref.Platform, "playlist_id", ref.ID)
	if err := r.transition(LoadingSource); err != nil {
		return nil, err
	}
	r.send(loadingSourceUpdate(ref))

	pc := creds.For(ref.Platform)
	pl, err := c.fetch(ctx, ref, pc)
	if err != nil && ref.Platform == models.YouTube && pc.HasToken() && pc.HasKey() {
		if kind := shared.KindOf(err); kind == shared.KindAuthRequired || kind == shared.KindQuotaExceeded {
			r.logger.Warn("token access failed, falling back to API key", "error", err)
			r.send(keyFallbackUpdate())
			pl, err = c.fetch(ctx, ref, models.PlatformCredentials{APIKey: pc.APIKey})
		}
	}
	if err != nil {
		return nil, r.loadFailed(err)
	}

	if err := r.transition(SourceReady); err != nil {
		return nil, err
	}
	r.logger.Info("loaded playlist", "name", pl.Name, "tracks", pl.TotalTracks)
	r.send(sourceReadyUpdate(pl))
	return pl, nil
}

func (c *Converter) fetch(ctx context.Context, ref models.PlaylistRef, creds models.PlatformCredentials) (*models.Playlist, error) {
	svc, err := c.catalog.Open(ctx, ref.Platform, creds)
	if err != nil {
		return nil, err
	}
	return svc.FetchPlaylist(ctx, ref.ID)
}

func (r *run) loadFailed(err error) error {
	if terr := r.transition(LoadFailed); terr != nil {
		return errors.Join(err, terr)
	}
	r.logger.Error("failed to load playlist", "error", err)
	r.send(ProgressUpdate{State: LoadFailed, Step: 1, Total: 1, Percent: 100, Message: err.Error()})
	return err
}

// pairing is a source track accepted for the target playlist.
type pairing struct {
	index  int
	target models.Track
	score  int
}

// Convert creates a copy of playlist on target.
//
// The degradation policy decides between automatic creation and manual instructions. Per-track search
// and add failures are collected in the result; quota exhaustion reroutes to instructions on YouTube.
// A failed conversion returns both a result listing every source track as failed and the error.
func (c *Converter) Convert(ctx context.Context, playlist *models.Playlist, target models.Platform, creds models.Credentials, progress chan<- ProgressUpdate) (*models.ConversionResult, error) {
	if playlist == nil {
		return nil, fmt.Errorf("%w: no playlist loaded", shared.ErrInvalidInput)
	}

	r := c.newRun(progress, SourceReady, "target", target, "playlist_id", playlist.ID)
	if err := r.transition(CreatingTarget); err != nil {
		return nil, err
	}
	r.send(creatingTargetUpdate(target))

	if target == playlist.Platform {
		return r.fail(playlist, fmt.Errorf("%w: playlist is already on %s", shared.ErrInvalidArgument, target.DisplayName()))
	}

	name := TargetName(playlist)
	tc := creds.For(target)

	action, err := Decide(target, tc)
	if err != nil {
		return r.fail(playlist, err)
	}
	if action == Manual {
		r.logger.Info("no access token for target, generating manual instructions")
		return r.instructions(playlist, name, ManualMessage(len(playlist.Tracks)), "No access token")
	}

	svc, err := c.catalog.Open(ctx, target, tc)
	if err != nil {
		return r.fail(playlist, err)
	}

	if err := r.transition(MatchingTracks); err != nil {
		return nil, err
	}
	matches, failed, err := c.matchTracks(ctx, r, svc, playlist)
	if err != nil {
		if shared.IsQuotaExceeded(err) {
			return r.quotaExceeded(playlist, target, name, len(matches), err)
		}
		return r.fail(playlist, err)
	}

	if err := r.transition(PopulatingTarget); err != nil {
		return nil, err
	}
	r.send(createPlaylistUpdate(name, target))

	playlistID, err := svc.CreatePlaylist(ctx, name, TargetDescription(playlist))
	if err != nil {
		if shared.IsQuotaExceeded(err) {
			return r.quotaExceeded(playlist, target, name, len(matches), err)
		}
		return r.fail(playlist, err)
	}
	playlistURL := models.PlaylistURL(target, playlistID)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.target.ID
	}
	r.send(addTracksUpdate(len(ids), playlistURL))

	added, addErr := svc.AddTracks(ctx, playlistID, ids)
	rejected := markRejected(matches, added.FailedIDs, failed)
	if addErr != nil {
		r.logger.Warn("adding tracks stopped early", "added", added.Succeeded, "failed", added.Failed, "error", addErr)
	}

	total := len(playlist.Tracks)
	matched := len(matches) - rejected
	result := &models.ConversionResult{
		Success:       true,
		MatchedTracks: matched,
		TotalTracks:   total,
		FailedTracks:  failedTracks(playlist, failed),
		PlaylistURL:   playlistURL,
		Message:       SuccessMessage(matched, total),
		Mode:          models.ModeAutomatic,
	}

	state := Completed
	if len(result.FailedTracks) > 0 || addErr != nil {
		state = PartiallyFailed
	}
	if err := r.transition(state); err != nil {
		return nil, err
	}
	result.State = state.String()

	r.logger.Info("conversion finished", "state", state, "matched", matched, "total", total, "url", playlistURL)
	r.send(completedUpdate(result, state))
	return result, nil
}

// matchTracks searches target for every source track in order.
//
// failed[i] is set for source tracks without an accepted candidate. Duplicate tracks reuse the first search.
// Quota exhaustion and cancellation stop the loop and are returned.
func (c *Converter) matchTracks(ctx context.Context, r *run, svc services.Service, playlist *models.Playlist) ([]pairing, []bool, error) {
	total := len(playlist.Tracks)
	failed := make([]bool, total)
	var matches []pairing
	searched := make(map[string][]models.Track)

	r.send(searchTracksUpdate(0, total, nil))

	for i := range playlist.Tracks {
		if err := ctx.Err(); err != nil {
			return matches, failed, err
		}

		track := &playlist.Tracks[i]
		r.send(searchTracksUpdate(i+1, total, track))

		key := shared.NormalizeTrackKey(track.Name, track.ArtistLine())
		candidates, ok := searched[key]
		if !ok {
			var err error
			candidates, err = svc.SearchTrack(ctx, track.SearchQuery())
			if err != nil {
				if shared.IsQuotaExceeded(err) || ctx.Err() != nil {
					return matches, failed, err
				}
				r.logger.Warn("search failed", "track", track.Name, "artist", track.PrimaryArtist(), "error", err)
				failed[i] = true
				continue
			}
			searched[key] = candidates
		}

		chosen, score, ok := c.selector.Select(*track, candidates)
		if !ok {
			r.logger.Debug("no match", "track", track.Name, "artist", track.PrimaryArtist(), "candidates", len(candidates))
			failed[i] = true
			continue
		}
		r.logger.Debug("matched", "track", track.Name, "candidate", chosen.ID, "score", score, "strategy", c.selector.Name())
		matches = append(matches, pairing{index: i, target: chosen, score: score})
	}

	return matches, failed, nil
}

// markRejected flags the source tracks whose target IDs the add step reported as failed
// and returns how many were flagged.
func markRejected(matches []pairing, failedIDs []string, failed []bool) int {
	pending := make(map[string]int, len(failedIDs))
	for _, id := range failedIDs {
		pending[id]++
	}

	n := 0
	for _, m := range matches {
		if pending[m.target.ID] > 0 {
			pending[m.target.ID]--
			failed[m.index] = true
			n++
		}
	}
	return n
}

func failedTracks(playlist *models.Playlist, failed []bool) []models.Track {
	tracks := []models.Track{}
	for i, f := range failed {
		if f {
			tracks = append(tracks, playlist.Tracks[i])
		}
	}
	return tracks
}

// quotaExceeded applies the quota branch of the degradation policy.
// Matches found so far are discarded: the instructions cover every source track.
func (r *run) quotaExceeded(playlist *models.Playlist, target models.Platform, name string, discarded int, cause error) (*models.ConversionResult, error) {
	if _, err := OnQuotaExceeded(target); err != nil {
		return r.fail(playlist, cause)
	}
	r.logger.Warn("quota exceeded, falling back to manual instructions", "discarded_matches", discarded, "error", cause)
	return r.instructions(playlist, name, QuotaMessage(len(playlist.Tracks)), fmt.Sprintf("%s API quota exceeded", target.DisplayName()))
}

// instructions finishes the run in manual mode. No write endpoint is called.
func (r *run) instructions(playlist *models.Playlist, name, message, reason string) (*models.ConversionResult, error) {
	if err := r.transition(GeneratingInstructions); err != nil {
		return nil, err
	}
	total := len(playlist.Tracks)
	r.send(instructionsUpdate(total, reason))

	result := &models.ConversionResult{
		Success:       true,
		MatchedTracks: total,
		TotalTracks:   total,
		FailedTracks:  []models.Track{},
		Message:       message,
		Instructions:  formatter.Instructions(name, playlist.Tracks),
		SearchQueries: formatter.SearchQueries(playlist.Tracks),
		Mode:          models.ModeManual,
	}

	if err := r.transition(Completed); err != nil {
		return nil, err
	}
	result.State = Completed.String()
	r.send(completedUpdate(result, Completed))
	return result, nil
}

func (r *run) fail(playlist *models.Playlist, err error) (*models.ConversionResult, error) {
	if terr := r.transition(Failed); terr != nil {
		err = errors.Join(err, terr)
	}

	result := &models.ConversionResult{
		Success:       false,
		MatchedTracks: 0,
		TotalTracks:   len(playlist.Tracks),
		FailedTracks:  append([]models.Track{}, playlist.Tracks...),
		Message:       err.Error(),
		Mode:          models.ModeAutomatic,
		State:         Failed.String(),
	}

	r.logger.Error("conversion failed", "error", err)
	r.send(completedUpdate(result, Failed))
	return result, err
}

// TargetName is the name given to the converted playlist, e.g. "Road Trip (from Spotify)".
func TargetName(playlist *models.Playlist) string {
	return fmt.Sprintf("%s (from %s)", playlist.Name, playlist.Platform.DisplayName())
}

// TargetDescription keeps the source description or notes where the playlist came from.
func TargetDescription(playlist *models.Playlist) string {
	if playlist.Description != "" {
		return playlist.Description
	}
	return fmt.Sprintf("Converted from %s playlist", playlist.Platform.DisplayName())
}

func SuccessMessage(matched, total int) string {
	return fmt.Sprintf("Successfully converted %d out of %d tracks", matched, total)
}

func ManualMessage(total int) string {
	return fmt.Sprintf("Instructions generated for %d tracks. Manual creation required due to YouTube OAuth restrictions.", total)
}

func QuotaMessage(total int) string {
	return fmt.Sprintf("YouTube API quota exceeded. Manual instructions provided for %d tracks.", total)
}
