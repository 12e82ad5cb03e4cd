// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/plx/internal/models"
	"github.com/urfave/cli/v3"
)

// credentialFlags override stored tokens and configured keys for a single invocation.
func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "spotify-token",
			Usage:   "Spotify access token",
			Sources: cli.EnvVars("PLX_SPOTIFY_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "youtube-token",
			Usage:   "YouTube access token",
			Sources: cli.EnvVars("PLX_YOUTUBE_TOKEN"),
		},
		&cli.StringFlag{
			Name:  "youtube-key",
			Usage: "YouTube Data API key for read-only access",
		},
	}
}

// setupCommand handles setup operations for configuration and the token database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing and initialize the token database",
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	timeout := func() cli.Flag {
		return &cli.DurationFlag{
			Name:  "timeout",
			Usage: "How long to wait for the browser callback",
			Value: defaultAuthTimeout,
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:    "spotify",
				Aliases: []string{"spot"},
				Usage:   "Authenticate with Spotify using OAuth2",
				Flags:   []cli.Flag{timeout()},
				Action:  r.AuthLogin(models.Spotify),
			},
			{
				Name:    "youtube",
				Aliases: []string{"yt", "ytmusic"},
				Usage:   "Authenticate with YouTube using OAuth2",
				Flags:   []cli.Flag{timeout()},
				Action:  r.AuthLogin(models.YouTube),
			},
			{
				Name:  "status",
				Usage: "Show stored tokens and configured keys",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "logout",
				Usage: "Delete the stored token of a platform",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "platform"},
				},
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistCommand fetches a playlist and prints or exports it.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Fetch a playlist by URL or ID",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "Platform of a bare playlist ID (spotify or youtube)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, csv or md",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file (csv: base path, md: directory)",
			},
		}, credentialFlags()...),
		Action: r.Playlist,
	}
}

// searchCommand searches a platform's catalog for tracks.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a platform for a track",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "platform"},
			&cli.StringArg{Name: "query"},
		},
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		}, credentialFlags()...),
		Action: r.Search,
	}
}

// convertCommand copies a playlist between platforms.
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "convert",
		Aliases: []string{"transfer"},
		Usage:   "Convert a playlist between Spotify and YouTube Music",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Aliases:  []string{"t"},
				Usage:    "Target platform (spotify or youtube)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "Platform of a bare playlist ID (spotify or youtube)",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Match strategy: first or score",
			},
			&cli.IntFlag{
				Name:  "min-score",
				Usage: "Minimum score accepted by the score strategy (0-100)",
			},
			&cli.StringFlag{
				Name:  "instructions",
				Usage: "Write manual instructions to a file",
			},
			&cli.StringFlag{
				Name:  "failed",
				Usage: "Write unmatched tracks to a file",
			},
			&cli.StringFlag{
				Name:  "failed-format",
				Usage: "Format of the unmatched tracks file: text, json, csv or md",
				Value: "csv",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the conversion result as JSON",
			},
		}, credentialFlags()...),
		Action: r.Convert,
	}
}
