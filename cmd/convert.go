package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Convert copies a playlist to the platform named by --to.
//
// When the target cannot be written to, the manual instructions are printed (or written to --instructions).
// Unmatched tracks can be saved with --failed.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("playlist")
	if input == "" {
		return fmt.Errorf("%w: playlist URL or ID", shared.ErrMissingArgument)
	}

	target, err := parsePlatform(cmd.String("to"))
	if err != nil {
		return err
	}

	selector, err := r.selector(cmd)
	if err != nil {
		return err
	}

	failedFormat, err := formatter.ParseFormat(cmd.String("failed-format"))
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	conv := r.converter(selector)
	progress, done := r.progress(!asJSON)

	pl, creds, err := r.loadSource(ctx, cmd, conv, input, progress, target)
	if err != nil {
		done()
		return err
	}

	result, convErr := conv.Convert(ctx, pl, target, creds, progress)
	done()
	if result == nil {
		return convErr
	}

	if path := cmd.String("instructions"); path != "" && result.Instructions != "" {
		if err := formatter.WriteFile(path, []byte(result.Instructions)); err != nil {
			return err
		}
		r.logger.Info("wrote manual instructions", "path", path)
	}

	if path := cmd.String("failed"); path != "" && len(result.FailedTracks) > 0 {
		data, err := formatter.FailedTracks(result, failedFormat)
		if err != nil {
			return err
		}
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("wrote unmatched tracks", "path", path, "count", len(result.FailedTracks))
	}

	if asJSON {
		if err := r.writeJSON(result, true); err != nil {
			return err
		}
		return convErr
	}

	r.writePlain("\n")
	r.writePlainHeader(fmt.Sprintf("%s → %s", pl.Platform.DisplayName(), target.DisplayName()))
	r.writePlain("%s", formatter.Summary(result))

	if result.Mode == models.ModeManual && result.Instructions != "" && cmd.String("instructions") == "" {
		r.writePlain("\n%s", result.Instructions)
	}
	return convErr
}
