// Command tuttitracks runs the playlist backend and the terminal editor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logging.New(os.Stderr, "info")})
	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		runner.logger.Fatal("application error", "err", err)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tuttitracks",
		Usage: "Build Spotify playlists from your liked tracks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (default: ~/.config/tuttitracks/config.toml)",
				Sources: cli.EnvVars("TUTTI_CONFIG"),
			},
		},
		Before:   runner.Load,
		Commands: runner.register(),
	}
}
