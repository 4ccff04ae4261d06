package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/apiclient"
	"github.com/justestif/go-tuttitracks/internal/editor"
	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/logging"
	"github.com/justestif/go-tuttitracks/internal/reorder"
	"github.com/justestif/go-tuttitracks/internal/ui"
)

func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Open the playlist editor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "ID of a saved playlist to edit; omit to start a new one",
			},
		},
		Action: r.Edit,
	}
}

// Edit runs the terminal editor against the backend.
func (r *Runner) Edit(ctx context.Context, cmd *cli.Command) error {
	logger, logFile, err := logging.NewFile(r.cfg.Client.LogFile, r.cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	client, err := r.client(ctx, logging.Component(logger, "apiclient"))
	if err != nil {
		return err
	}

	var items []reorder.Item
	board := ui.NewBoard(nil)
	notices := ui.NewNotices(logging.Component(logger, "notices"))
	opts := []editor.Option{
		editor.WithNotifier(notices),
		editor.WithLogger(logging.Component(logger, "editor")),
	}

	if id := cmd.String("playlist"); id != "" {
		p, err := client.Playlist(ctx, id)
		if err != nil {
			return err
		}
		items, err = playlistItems(ctx, client, id, logger)
		if err != nil {
			return err
		}
		board.Set(items)
		opts = append(opts, editor.WithPlaylist(id, p.Name))
	}

	session, err := editor.NewSession(client, board, items, opts...)
	if err != nil {
		return fmt.Errorf("opening playlist: %w", err)
	}

	d := editor.NewDispatcher(logging.Component(logger, "dispatch"))
	session.Register(d)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.Run(runCtx)

	model := ui.NewModel(session, d, board, notices, logger)
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	cancel()
	<-d.Done()
	session.Close()

	if runErr != nil {
		return fmt.Errorf("running editor: %w", runErr)
	}
	if id := session.PlaylistID(); id != "" {
		return r.writePlain("Playlist %s saved with %d tracks\n", id, len(session.Items()))
	}
	return nil
}

// playlistItems returns the tracks of a saved playlist in order. Names come
// from the track details the backend returns for mood grouping; tracks it
// does not know are shown by ID.
func playlistItems(ctx context.Context, client *apiclient.Client, playlistID string, logger *log.Logger) ([]reorder.Item, error) {
	ids, err := client.TrackIDs(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(ids))
	groups, ungrouped, err := client.Moods(ctx, playlistID, features.DefaultMoodConfig())
	if err != nil {
		logger.Warn("loading track details", "playlist", playlistID, "err", err)
	}
	for _, g := range groups {
		for _, t := range g.Tracks {
			names[t.ID] = trackName(t)
		}
	}
	for _, t := range ungrouped {
		names[t.ID] = trackName(t)
	}

	items := make([]reorder.Item, len(ids))
	for i, id := range ids {
		name, ok := names[id]
		if !ok {
			name = id
		}
		items[i] = reorder.Item{ID: id, Name: name}
	}
	return items, nil
}

func trackName(t features.Track) string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Artist + " - " + t.Name
}
