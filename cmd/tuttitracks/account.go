package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/apiclient"
	"github.com/justestif/go-tuttitracks/internal/config"
)

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Log in to the backend with your Spotify account",
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the backend session and forget it",
		Action: r.Logout,
	}
}

func initConfigCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init-config",
		Usage: "Write an example configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Where to write the file (default: ~/.config/tuttitracks/config.toml)",
			},
		},
		Action: r.InitConfig,
	}
}

// Login always runs the login flow, replacing any cached session.
func (r *Runner) Login(ctx context.Context, _ *cli.Command) error {
	a, err := r.authenticator()
	if err != nil {
		return err
	}
	_, err = a.Login(ctx)
	return err
}

// Logout ends the cached session on the backend and deletes it locally.
func (r *Runner) Logout(ctx context.Context, _ *cli.Command) error {
	cache, err := r.credentialsCache()
	if err != nil {
		return err
	}
	a, err := r.authenticator()
	if err != nil {
		return err
	}
	creds, err := cache.Load()
	if err != nil {
		return err
	}
	if creds == nil {
		return r.writePlain("Not logged in\n")
	}

	client := apiclient.New(creds.BaseURL, creds.Token)
	if err := client.Logout(ctx); err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
		r.logger.Warn("backend logout failed", "err", err)
	}
	if err := a.Logout(); err != nil {
		return err
	}
	return r.writePlain("Logged out\n")
}

// InitConfig writes the example configuration.
func (r *Runner) InitConfig(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := config.Write(path); err != nil {
		return err
	}
	return r.writePlain("Wrote %s\n", path)
}
