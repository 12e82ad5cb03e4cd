package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

func parsePlatform(s string) (models.Platform, error) {
	p, err := models.ParsePlatform(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return p, nil
}

// loadSource loads the playlist named by input, resolving credentials for its platform and for extra.
//
// URLs and URIs carry their platform. A bare ID needs --platform.
func (r *Runner) loadSource(ctx context.Context, cmd *cli.Command, conv *tasks.Converter, input string, progress chan<- tasks.ProgressUpdate, extra ...models.Platform) (*models.Playlist, models.Credentials, error) {
	if ref, ok := models.ExtractPlaylistID(input); ok {
		creds := r.credentials(ctx, cmd, append(extra, ref.Platform)...)
		pl, err := conv.LoadSourcePlaylist(ctx, input, creds, progress)
		return pl, creds, err
	}

	if name := cmd.String("platform"); name != "" {
		platform, err := parsePlatform(name)
		if err != nil {
			return nil, models.Credentials{}, err
		}
		ref := models.PlaylistRef{ID: strings.TrimSpace(input), Platform: platform}
		creds := r.credentials(ctx, cmd, append(extra, platform)...)
		pl, err := conv.LoadPlaylist(ctx, ref, creds, progress)
		return pl, creds, err
	}

	creds := r.credentials(ctx, cmd, extra...)
	pl, err := conv.LoadSourcePlaylist(ctx, input, creds, progress)
	return pl, creds, err
}

// Playlist loads a playlist and prints or exports it.
//
// With --output, csv writes <output>_tracks.csv and <output>_metadata.json, md writes a directory with a
// README and the cover image, and the other formats write a single file.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("playlist")
	if input == "" {
		return fmt.Errorf("%w: playlist URL or ID", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	output := cmd.String("output")

	progress, done := r.progress(output != "")
	pl, _, err := r.loadSource(ctx, cmd, r.converter(nil), input, progress)
	done()
	if err != nil {
		return err
	}

	switch {
	case output != "" && format == formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(pl, strings.TrimSuffix(output, ".csv"))
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d tracks to %s and %s\n", len(pl.Tracks), res.TracksFile, res.MetadataFile)
	case output != "" && format == formatter.FormatMarkdown:
		res, err := formatter.WriteMarkdownExport(pl, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d tracks to %s\n", len(pl.Tracks), res.Directory)
	}

	data, err := formatter.Export(pl, format)
	if err != nil {
		return err
	}
	if output != "" {
		if err := formatter.WriteFile(output, data); err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d tracks to %s\n", len(pl.Tracks), output)
	}

	_, err = r.output.Write(data)
	return err
}

// Search runs a catalog search on one platform.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	platform, err := parsePlatform(cmd.StringArg("platform"))
	if err != nil {
		return err
	}
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	creds := r.credentials(ctx, cmd, platform)
	svc, err := r.catalog.Open(ctx, platform, creds.For(platform))
	if err != nil {
		return err
	}

	r.logger.Info("searching", "platform", platform, "query", query)
	tracks, err := svc.SearchTrack(ctx, query)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		return r.writePlain("No results on %s for %q\n", platform.DisplayName(), query)
	}

	r.writePlain("Found %d results on %s:\n\n", len(tracks), platform.DisplayName())
	for i, track := range tracks {
		r.writePlain("%d. %s - %s [%s]\n", i+1, track.ArtistLine(), track.Name, shared.FormatDuration(track.DurationMs))
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		if u := track.URL(platform); u != "" {
			r.writePlain("   %s\n", u)
		}
	}
	return nil
}
