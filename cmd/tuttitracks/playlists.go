package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/logging"
	"github.com/justestif/go-tuttitracks/internal/playlists"
	"github.com/justestif/go-tuttitracks/internal/spotify"
)

var errMissingID = errors.New("missing playlist ID")

func playlistsCommand(r *Runner) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
	}
	idArg := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "id"}}
	}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List and publish saved playlists",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.BoolFlag{
				Name:  "spotify",
				Usage: "List your Spotify playlists instead",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of Spotify playlists to list",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Offset into your Spotify playlists",
			},
		},
		Action: r.ListPlaylists,
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Publish a saved playlist to Spotify",
				Arguments: idArg(),
				Action:    r.SyncPlaylist,
			},
			{
				Name:      "moods",
				Usage:     "Group a playlist's tracks by mood",
				Arguments: idArg(),
				Flags: []cli.Flag{
					jsonFlag(),
					&cli.IntFlag{
						Name:  "groups",
						Usage: "Number of mood groups",
						Value: features.DefaultMoodConfig().NumGroups,
					},
				},
				Action: r.PlaylistMoods,
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved playlist",
				Arguments: idArg(),
				Action:    r.DeletePlaylist,
			},
		},
	}
}

// ListPlaylists prints the saved playlists, or a page of Spotify playlists.
func (r *Runner) ListPlaylists(ctx context.Context, cmd *cli.Command) error {
	client, err := r.client(ctx, logging.Component(r.logger, "apiclient"))
	if err != nil {
		return err
	}

	if cmd.Bool("spotify") {
		page, err := client.SpotifyPlaylists(ctx, cmd.Int("limit"), cmd.Int("offset"))
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(page)
		}
		return r.writePlain("%s\n", spotifyTable(page))
	}

	list, err := client.Playlists(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(list)
	}
	if len(list) == 0 {
		return r.writePlain("No saved playlists. Run \"tuttitracks edit\" to create one.\n")
	}
	return r.writePlain("%s\n", playlistTable(list))
}

// SyncPlaylist publishes a saved playlist to Spotify.
func (r *Runner) SyncPlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return errMissingID
	}
	client, err := r.client(ctx, logging.Component(r.logger, "apiclient"))
	if err != nil {
		return err
	}
	p, err := client.Sync(ctx, id)
	if err != nil {
		return err
	}
	return r.writePlain("Published %q to Spotify playlist %s\n", p.Name, p.SpotifyID)
}

// PlaylistMoods prints the mood groups of a saved playlist.
func (r *Runner) PlaylistMoods(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return errMissingID
	}
	client, err := r.client(ctx, logging.Component(r.logger, "apiclient"))
	if err != nil {
		return err
	}

	cfg := features.DefaultMoodConfig()
	cfg.NumGroups = cmd.Int("groups")
	groups, ungrouped, err := client.Moods(ctx, id, cfg)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"groups": groups, "ungrouped": ungrouped})
	}

	for _, g := range groups {
		if err := r.writePlain("%s (%d)\n", g.Name, len(g.Tracks)); err != nil {
			return err
		}
		for _, t := range g.Tracks {
			if err := r.writePlain("  %s\n", trackName(t)); err != nil {
				return err
			}
		}
	}
	if len(ungrouped) > 0 {
		return r.writePlain("%d tracks without audio features\n", len(ungrouped))
	}
	return nil
}

// DeletePlaylist deletes a saved playlist.
func (r *Runner) DeletePlaylist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return errMissingID
	}
	client, err := r.client(ctx, logging.Component(r.logger, "apiclient"))
	if err != nil {
		return err
	}
	if err := client.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("Deleted playlist %s\n", id)
}

func playlistTable(list []playlists.Playlist) string {
	rows := make([][]string, len(list))
	for i, p := range list {
		published := p.SpotifyID
		if published == "" {
			published = "-"
		}
		rows[i] = []string{strconv.FormatInt(p.ID, 10), p.Name, strconv.Itoa(p.TrackCount), published}
	}
	return newTable("ID", "Name", "Tracks", "Spotify").Rows(rows...).String()
}

func spotifyTable(page *spotify.PlaylistPage) string {
	rows := make([][]string, len(page.Playlists))
	for i, p := range page.Playlists {
		rows[i] = []string{p.ID, p.Name, strconv.Itoa(p.NumTracks)}
	}
	t := newTable("Spotify ID", "Name", "Tracks").Rows(rows...)
	return fmt.Sprintf("%s\n%d playlists", t, page.Total)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}
