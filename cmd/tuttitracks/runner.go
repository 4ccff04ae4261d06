package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/apiclient"
	"github.com/justestif/go-tuttitracks/internal/auth"
	"github.com/justestif/go-tuttitracks/internal/config"
	"github.com/justestif/go-tuttitracks/internal/logging"
)

// Runner holds the dependencies shared by the command actions.
type Runner struct {
	cfg    *config.Config
	logger *log.Logger
	in     io.Reader
	output io.Writer
	cache  *auth.Cache
}

// RunnerOpts configures a Runner. Zero fields get defaults.
type RunnerOpts struct {
	Config *config.Config
	Logger *log.Logger
	Input  io.Reader
	Output io.Writer
	Cache  *auth.Cache
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(nil, opts.Config.Log.Level)
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{
		cfg:    opts.Config,
		logger: opts.Logger,
		in:     opts.Input,
		output: opts.Output,
		cache:  opts.Cache,
	}
}

func (r *Runner) register() []*cli.Command {
	var commands []*cli.Command
	for _, fn := range []func(*Runner) *cli.Command{
		serveCommand, editCommand, playlistsCommand, loginCommand, logoutCommand, initConfigCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Load reads the configuration named by the --config flag.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if err := cfg.Validate(); err != nil {
		return ctx, err
	}
	r.cfg = cfg
	r.logger.SetLevel(mustLevel(cfg.Log.Level))
	return ctx, nil
}

func mustLevel(level string) log.Level {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func (r *Runner) credentialsCache() (*auth.Cache, error) {
	if r.cache != nil {
		return r.cache, nil
	}
	return auth.DefaultCache()
}

func (r *Runner) authenticator() (*auth.Authenticator, error) {
	cache, err := r.credentialsCache()
	if err != nil {
		return nil, err
	}
	return auth.New(cache, r.cfg.Client.APIURL, auth.CheckWithClient, r.in, r.output,
		logging.Component(r.logger, "auth")), nil
}

// client returns a backend client for a logged-in session, prompting for
// login when needed.
func (r *Runner) client(ctx context.Context, logger *log.Logger) (*apiclient.Client, error) {
	a, err := r.authenticator()
	if err != nil {
		return nil, err
	}
	creds, err := a.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	return apiclient.New(creds.BaseURL, creds.Token, apiclient.WithLogger(logger)), nil
}

func (r *Runner) writeJSON(data any) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
