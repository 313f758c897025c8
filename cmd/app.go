package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"apitester/internal/composer"
	"apitester/internal/config"
	"apitester/internal/format"
	httpclient "apitester/internal/http"
	"apitester/internal/logger"
	"apitester/internal/storage"
)

// App holds what lives for one session: settings, the logger and the
// in-memory store. The shell shares one App across every line it runs.
type App struct {
	cfg     *config.Config
	cfgPath string
	store   *storage.SessionStore
	log     zerolog.Logger
	baseLog zerolog.Logger
	color   bool
	closers []io.Closer
	stderr  io.Writer
	ready   bool
}

// NewApp creates an App that is set up on first command
func NewApp(stderr io.Writer) *App {
	return &App{
		log:    zerolog.Nop(),
		stderr: stderr,
	}
}

// setup loads config, builds the logger and opens the session store. Later
// calls only apply the per-line flags.
func (a *App) setup(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	if a.ready {
		return a.applyLineFlags(flags)
	}

	cfgPath, _ := flags.GetString("config")
	level, _ := flags.GetString("log-level")
	noColor, _ := flags.GetBool("no-color")

	a.color = format.ColorEnabled() && !noColor
	format.SetColor(a.color)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if level != "" {
		cfg.Log.Level = level
	}

	log, closer, err := logger.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closer)

	store, err := storage.NewSessionStore()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	a.closers = append(a.closers, store)

	a.cfg = cfg
	a.cfgPath = cfgPath
	a.log = log
	a.baseLog = log
	a.store = store
	a.ready = true
	return nil
}

// applyLineFlags applies --no-color and --log-level to one shell line on top
// of the session's settings. The config file is fixed for the session.
func (a *App) applyLineFlags(flags *pflag.FlagSet) error {
	if flags.Changed("config") {
		return fmt.Errorf("--config can only be set when the session starts")
	}

	noColor, _ := flags.GetBool("no-color")
	format.SetColor(a.color && !noColor)

	a.log = a.baseLog
	level, _ := flags.GetString("log-level")
	if level == "" {
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return fmt.Errorf("invalid log level %q", level)
	}
	a.log = a.baseLog.Level(lvl)
	return nil
}

// Close ends the session, discarding history, collections and variables
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.ready = false
	return errors.Join(errs...)
}

// dispatchOptions picks the transport for one command
type dispatchOptions struct {
	relay     bool
	relayURL  string
	noHistory bool
}

func (a *App) client(opts dispatchOptions) *httpclient.Client {
	clientOpts := []httpclient.ClientOption{
		httpclient.WithTimeout(a.cfg.Client.Timeout),
		httpclient.WithLogger(a.log),
	}

	if opts.relay || a.cfg.Client.UseRelay {
		relayURL := opts.relayURL
		if relayURL == "" {
			relayURL = a.cfg.Client.RelayURL
		}
		clientOpts = append(clientOpts, httpclient.WithRelay(relayURL))
	}

	return httpclient.NewClient(clientOpts...)
}

func (a *App) composer(opts dispatchOptions) *composer.Composer {
	composerOpts := []composer.Option{composer.WithLogger(a.log)}
	if !opts.noHistory {
		composerOpts = append(composerOpts, composer.WithRecorder(a.store))
	}
	return composer.New(a.client(opts), composerOpts...)
}

// printCommandError reports a failed command the way the CLI prints all
// failures
func printCommandError(err error) {
	var verr *composer.ValidationError
	if errors.As(err, &verr) {
		format.PrintFieldErrors(verr.Fields)
		return
	}
	format.PrintError(strings.TrimSpace(err.Error()))
}
