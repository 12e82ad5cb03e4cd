// YouTube Data API v3 implementation of [Service]
package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubePageSize      = 50
	youtubeMusicCategory = "10"
	topicSuffix          = " - Topic"
)

// Placeholder titles YouTube returns for entries whose video is gone.
var unavailableTitles = map[string]bool{
	"Deleted video": true,
	"Private video": true,
}

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// YouTubeService implements [Service] on top of the YouTube Data API.
//
// An API key alone allows reads and searches. Creating playlists and inserting items needs an OAuth token.
type YouTubeService struct {
	svc         *youtube.Service
	creds       models.PlatformCredentials
	pacer       *shared.Pacer
	logger      *log.Logger
	searchLimit int
}

// NewYouTubeService creates a [YouTubeService] authorized with creds.
//
// The API key is attached as a query parameter and the bearer token as an Authorization header;
// both are sent when both are present.
func NewYouTubeService(ctx context.Context, creds models.PlatformCredentials, pacer *shared.Pacer, opts Options) (*YouTubeService, error) {
	if creds.Empty() {
		return nil, shared.NewServiceError(shared.KindMissingCredentials, string(models.YouTube), "connect",
			fmt.Errorf("an OAuth token or API key is required"))
	}

	base := opts.httpClient()
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if creds.HasKey() {
		rt = &transport.APIKey{Key: creds.APIKey, Transport: rt}
	}
	if creds.HasToken() {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"}),
			Base:   rt,
		}
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(&http.Client{Transport: rt, Timeout: base.Timeout})}
	if opts.YouTubeEndpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(strings.TrimSuffix(opts.YouTubeEndpoint, "/")+"/"))
	}

	svc, err := youtube.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	if pacer == nil {
		pacer = shared.NewPacer(opts.RequestInterval)
	}

	return &YouTubeService{
		svc:         svc,
		creds:       creds,
		pacer:       pacer,
		logger:      shared.WithLogger(opts.logger(), "platform", models.YouTube),
		searchLimit: opts.searchLimit(),
	}, nil
}

func (y *YouTubeService) Platform() models.Platform {
	return models.YouTube
}

// FetchPlaylist looks the playlist up and pages through its items 50 at a time.
//
// Deleted and private videos are skipped. Durations are filled in from the videos endpoint when it answers.
func (y *YouTubeService) FetchPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if err := y.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := y.svc.Playlists.List([]string{"snippet", "contentDetails"}).Id(playlistID).Context(ctx).Do()
	if err != nil {
		return nil, classifyYouTube("fetch playlist", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, shared.NewServiceError(shared.KindNotFound, string(models.YouTube), "fetch playlist",
			fmt.Errorf("playlist %s does not exist or is private", playlistID))
	}

	meta := resp.Items[0]
	playlist := &models.Playlist{
		ID:           meta.Id,
		Name:         meta.Snippet.Title,
		Description:  meta.Snippet.Description,
		Platform:     models.YouTube,
		ImageURL:     thumbnailURL(meta.Snippet.Thumbnails),
		ExternalURLs: map[string]string{string(models.YouTube): models.PlaylistURL(models.YouTube, meta.Id)},
	}

	pageToken := ""
	for {
		if err := y.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		call := y.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(youtubePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, classifyYouTube("fetch playlist items", err)
		}

		var tracks []models.Track
		for _, item := range page.Items {
			if tr, ok := playlistItemTrack(item); ok {
				tracks = append(tracks, tr)
			}
		}
		if err := y.fillDurations(ctx, tracks); err != nil {
			return nil, err
		}
		playlist.Tracks = append(playlist.Tracks, tracks...)

		y.logger.Debug("fetched playlist page", "playlist_id", playlistID, "items", len(page.Items))

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	playlist.TotalTracks = len(playlist.Tracks)
	return playlist, nil
}

// SearchTrack searches music videos and returns at most searchLimit candidates.
func (y *YouTubeService) SearchTrack(ctx context.Context, query string) ([]models.Track, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Track{}, nil
	}
	if err := y.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(youtubeMusicCategory).
		MaxResults(int64(y.searchLimit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyYouTube("search", err)
	}

	tracks := []models.Track{}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		if len(tracks) == y.searchLimit {
			break
		}
		tracks = append(tracks, videoTrack(item.Id.VideoId, item.Snippet.Title, item.Snippet.ChannelTitle))
	}

	if err := y.fillDurations(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist. It requires an OAuth token.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if !y.creds.HasToken() {
		return "", shared.NewServiceError(shared.KindAuthRequired, string(models.YouTube), "create playlist",
			fmt.Errorf("an OAuth token is required to create playlists"))
	}
	if err := y.pacer.Wait(ctx); err != nil {
		return "", err
	}

	pl := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: name, Description: description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: "private"},
	}
	created, err := y.svc.Playlists.Insert([]string{"snippet", "status"}, pl).Context(ctx).Do()
	if err != nil {
		return "", classifyYouTube("create playlist", err)
	}

	y.logger.Info("created playlist", "playlist_id", created.Id, "name", name)
	return created.Id, nil
}

// AddTracks inserts videos one request at a time. Failures are counted and the loop continues,
// except for quota exhaustion, which stops the loop and is returned with the partial result.
func (y *YouTubeService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (AddResult, error) {
	var result AddResult
	if !y.creds.HasToken() {
		return result, shared.NewServiceError(shared.KindAuthRequired, string(models.YouTube), "add tracks",
			fmt.Errorf("an OAuth token is required to modify playlists"))
	}

	for i, videoID := range trackIDs {
		if err := y.pacer.Wait(ctx); err != nil {
			result.fail(trackIDs[i:]...)
			return result, err
		}

		item := &youtube.PlaylistItem{
			Snippet: &youtube.PlaylistItemSnippet{
				PlaylistId: playlistID,
				ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: videoID},
			},
		}
		if _, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
			err = classifyYouTube("add track", err)
			y.logger.Warn("failed to add video", "playlist_id", playlistID, "video_id", videoID, "error", err)
			if shared.IsQuotaExceeded(err) {
				result.fail(trackIDs[i:]...)
				return result, err
			}
			result.fail(videoID)
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// fillDurations sets DurationMs from videos.list contentDetails.
// Quota errors are returned; other failures leave durations unknown.
func (y *YouTubeService) fillDurations(ctx context.Context, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}

	if err := y.pacer.Wait(ctx); err != nil {
		return err
	}
	resp, err := y.svc.Videos.List([]string{"contentDetails"}).Id(strings.Join(ids, ",")).Context(ctx).Do()
	if err != nil {
		err = classifyYouTube("video details", err)
		if shared.IsQuotaExceeded(err) {
			return err
		}
		y.logger.Warn("could not fetch video durations", "error", err)
		return nil
	}

	durations := make(map[string]int, len(resp.Items))
	for _, v := range resp.Items {
		if v.ContentDetails != nil {
			durations[v.Id] = ParseISODuration(v.ContentDetails.Duration)
		}
	}
	for i := range tracks {
		tracks[i].DurationMs = durations[tracks[i].ID]
	}
	return nil
}

func playlistItemTrack(item *youtube.PlaylistItem) (models.Track, bool) {
	if item == nil || item.Snippet == nil || unavailableTitles[item.Snippet.Title] {
		return models.Track{}, false
	}

	videoID := ""
	if item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" && item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	if videoID == "" {
		return models.Track{}, false
	}

	channel := item.Snippet.VideoOwnerChannelTitle
	if channel == "" {
		channel = item.Snippet.ChannelTitle
	}
	return videoTrack(videoID, item.Snippet.Title, channel), true
}

// videoTrack maps a video to a [models.Track].
//
// Auto-generated "Artist - Topic" channels name the artist directly; otherwise an "Artist - Title"
// video title is split, and the channel name is the last resort.
func videoTrack(videoID, title, channel string) models.Track {
	title = html.UnescapeString(title)
	channel = html.UnescapeString(channel)

	name, artist := title, channel
	switch {
	case strings.HasSuffix(channel, topicSuffix):
		artist = strings.TrimSuffix(channel, topicSuffix)
	case strings.Contains(title, " - "):
		parts := strings.SplitN(title, " - ", 2)
		artist, name = parts[0], parts[1]
	}

	track := models.NewTrack(videoID, name, []string{artist}, "", 0)
	track.ExternalURLs = map[string]string{string(models.YouTube): models.TrackURL(models.YouTube, videoID)}
	return track
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// ParseISODuration converts an ISO-8601 duration such as PT3M45S to milliseconds.
// Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	var total int
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += v * unit
	}
	return total * 1000
}
