package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/config"
	"github.com/justestif/go-tuttitracks/internal/db"
	"github.com/justestif/go-tuttitracks/internal/library"
	"github.com/justestif/go-tuttitracks/internal/logging"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/sqlite"
	"github.com/justestif/go-tuttitracks/internal/web"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.addr)",
			},
		},
		Action: r.Serve,
	}
}

// stores is the persistence selected by the database driver.
type stores struct {
	playlists playlists.Store
	tracks    library.TrackStore
	sessions  web.SessionManager // nil keeps sessions in memory
	close     func()
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &stores{
			playlists: playlists.NewMemoryStore(),
			tracks:    library.NewMemoryStore(),
			close:     func() {},
		}, nil

	case config.DriverSQLite:
		database, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return &stores{
			playlists: database,
			tracks:    database,
			close:     func() { database.Close() },
		}, nil

	case config.DriverPostgres:
		database, err := db.New(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		return &stores{
			playlists: database.Playlists(),
			tracks:    database.Tracks(),
			sessions:  web.NewDBSessionStore(database),
			close:     database.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// Serve runs the backend until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if addr := cmd.String("addr"); addr != "" {
		r.cfg.Server.Addr = addr
	}
	if err := r.cfg.ValidateServer(); err != nil {
		return err
	}

	st, err := openStores(ctx, r.cfg.Database)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", r.cfg.Database.Driver, err)
	}
	defer st.close()
	r.logger.Info("using store", "driver", r.cfg.Database.Driver)

	lib := library.New(st.tracks, library.WithLogger(logging.Component(r.logger, "library")))
	pl := playlists.NewService(st.playlists, st.tracks, logging.Component(r.logger, "playlists"))

	opts := []web.Option{web.WithLogger(logging.Component(r.logger, "web"))}
	if st.sessions != nil {
		opts = append(opts, web.WithSessions(st.sessions))
	}

	srv := web.NewServer(web.Config{
		Addr:         r.cfg.Server.Addr,
		RedirectURL:  r.cfg.Server.RedirectURL,
		ClientID:     r.cfg.Spotify.ClientID,
		ClientSecret: r.cfg.Spotify.ClientSecret,
	}, pl, lib, opts...)

	return srv.Run(ctx)
}
