package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plx/internal/match"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/repositories"
	"github.com/desertthunder/plx/internal/services"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TokenStore persists OAuth tokens between invocations. [repositories.TokenRepository] implements it.
type TokenStore interface {
	GetByPlatform(platform models.Platform) (*models.StoredToken, error)
	Save(token *models.StoredToken) error
	DeleteByPlatform(platform models.Platform) error
	List(criteria map[string]any) ([]*models.StoredToken, error)
	PruneExpired(now time.Time) (int64, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	loadConfig bool
	catalog    tasks.Catalog
	tokens     TokenStore
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(string) error

	// spotifyTokenURL overrides the accounts service used for app tokens.
	spotifyTokenURL string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    tasks.Catalog
	Tokens     TokenStore
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration.
//
// Without a Config the configuration is read from ConfigPath when the app starts.
func NewRunner(opts RunnerOpts) *Runner {
	loadConfig := opts.Config == nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loadConfig: loadConfig,
		catalog:    opts.Catalog,
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "plx",
		Usage:   "Convert playlists between Spotify & YouTube Music",
		Version: "0.1.0",
		Writer:  r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PLX_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistCommand, searchCommand, convertCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads configuration, applies the environment and builds the catalog.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.loadConfig && r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}
	r.config.ApplyEnv(os.Getenv)

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Logging.Level
	}
	if err := shared.SetLogLevel(r.logger, level); err != nil {
		return ctx, err
	}

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}

	if r.catalog == nil {
		r.catalog = services.NewCatalog(services.Options{
			Logger:          r.logger,
			HTTPClient:      r.httpClient,
			RequestInterval: r.config.Conversion.RequestInterval.Duration,
			SearchLimit:     r.config.Conversion.SearchLimit,
		})
	}
	return ctx, nil
}

// after releases the token store.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.tokens = nil, nil
	return err
}

// tokenStore opens the database on first use.
func (r *Runner) tokenStore(ctx context.Context) (TokenStore, error) {
	if r.tokens != nil {
		return r.tokens, nil
	}
	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.tokens = repositories.NewTokenRepository(db)
	return r.tokens, nil
}

func (r *Runner) converter(selector match.Selector) *tasks.Converter {
	return tasks.NewConverter(r.catalog, tasks.WithSelector(selector), tasks.WithLogger(r.logger))
}

// selector builds the matching strategy from flags, falling back to the configuration.
func (r *Runner) selector(cmd *cli.Command) (match.Selector, error) {
	strategy := cmd.String("strategy")
	if strategy == "" {
		strategy = r.config.Conversion.Strategy
	}
	minScore := r.config.Conversion.MinScore
	if cmd.IsSet("min-score") {
		minScore = cmd.Int("min-score")
	}
	selector, err := match.NewSelector(strategy, minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return selector, nil
}

// progress starts a printer for conversion updates. The returned func closes the channel and waits
// for the printer to drain it. When disabled, updates only reach the debug log.
func (r *Runner) progress(display bool) (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range ch {
			if !display {
				r.logger.Debug("progress", "state", update.State, "percent", update.Percent, "message", update.Message)
				continue
			}
			switch update.State {
			case tasks.LoadingSource, tasks.SourceReady, tasks.CreatingTarget:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.MatchingTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.PopulatingTarget:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.GeneratingInstructions:
				r.writePlain("\n📋 %s\n", update.Message)
			case tasks.LoadFailed, tasks.Failed:
				r.writePlain("\n✗ %s\n", update.Message)
			}
		}
	}()

	return ch, func() {
		close(ch)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
