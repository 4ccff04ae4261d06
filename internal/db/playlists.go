package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-tuttitracks/internal/playlists"
)

// PlaylistRepository stores playlists and their ordered tracks.
// It implements playlists.Store.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

const selectPlaylist = `
	SELECT p.id, p.owner, p.name, p.description, p.public, p.spotify_playlist_id,
	       (SELECT COUNT(*) FROM playlist_tracks t WHERE t.playlist_id = p.id)::int AS num_tracks,
	       p.created_at, p.updated_at
	FROM playlists p`

func scanPlaylist(row pgx.CollectableRow) (playlists.Playlist, error) {
	var p playlists.Playlist
	err := row.Scan(&p.ID, &p.Owner, &p.Name, &p.Description, &p.Public, &p.SpotifyID,
		&p.TrackCount, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePlaylist inserts the playlist and its tracks at indices 0..n-1.
func (r *PlaylistRepository) CreatePlaylist(ctx context.Context, p *playlists.Playlist, trackIDs []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO playlists (owner, name, description, public, spotify_playlist_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, p.Owner, p.Name, p.Description, p.Public, p.SpotifyID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting playlist: %w", err)
		}
		if err := insertTracks(ctx, tx, p.ID, 0, trackIDs); err != nil {
			return err
		}
		p.TrackCount = len(trackIDs)
		return nil
	})
}

func (r *PlaylistRepository) GetPlaylist(ctx context.Context, id int64) (*playlists.Playlist, error) {
	rows, _ := r.pool.Query(ctx, selectPlaylist+` WHERE p.id = $1`, id)
	p, err := pgx.CollectOneRow(rows, scanPlaylist)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("playlist %d: %w", id, playlists.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying playlist: %w", err)
	}
	return &p, nil
}

func (r *PlaylistRepository) ListPlaylists(ctx context.Context, owner string) ([]playlists.Playlist, error) {
	rows, _ := r.pool.Query(ctx, selectPlaylist+` WHERE p.owner = $1 ORDER BY p.id`, owner)
	out, err := pgx.CollectRows(rows, scanPlaylist)
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return out, nil
}

func (r *PlaylistRepository) UpdatePlaylist(ctx context.Context, p *playlists.Playlist) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE playlists
		SET name = $2, description = $3, public = $4, spotify_playlist_id = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Name, p.Description, p.Public, p.SpotifyID).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("playlist %d: %w", p.ID, playlists.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("updating playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) DeletePlaylist(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting playlist: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("playlist %d: %w", id, playlists.ErrNotFound)
	}
	return nil
}

func (r *PlaylistRepository) TrackIDs(ctx context.Context, id int64) ([]string, error) {
	var ids []string
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockPlaylist(ctx, tx, id); err != nil {
			return err
		}
		rows, _ := tx.Query(ctx,
			`SELECT track_id FROM playlist_tracks WHERE playlist_id = $1 ORDER BY idx`, id)
		var err error
		ids, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *PlaylistRepository) AppendTracks(ctx context.Context, id int64, trackIDs []string) error {
	return r.mutate(ctx, id, func(tx pgx.Tx, n int) error {
		return insertTracks(ctx, tx, id, n, trackIDs)
	})
}

func (r *PlaylistRepository) InsertTrack(ctx context.Context, id int64, trackID string, index int) error {
	return r.mutate(ctx, id, func(tx pgx.Tx, n int) error {
		if index < 0 || index > n {
			return fmt.Errorf("%w: insert at %d with %d tracks", playlists.ErrInvalidIndex, index, n)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE playlist_tracks SET idx = idx + 1 WHERE playlist_id = $1 AND idx >= $2`, id, index); err != nil {
			return fmt.Errorf("shifting tracks: %w", err)
		}
		return insertTracks(ctx, tx, id, index, []string{trackID})
	})
}

func (r *PlaylistRepository) MoveTrack(ctx context.Context, id int64, currentIndex, newIndex int) error {
	return r.mutate(ctx, id, func(tx pgx.Tx, n int) error {
		if currentIndex < 0 || currentIndex >= n || newIndex < 0 || newIndex >= n {
			return fmt.Errorf("%w: move %d -> %d with %d tracks", playlists.ErrInvalidIndex, currentIndex, newIndex, n)
		}
		if currentIndex == newIndex {
			return nil
		}

		// One statement: the moved row takes newIndex and the rows between
		// the two indices shift one step toward the gap.
		_, err := tx.Exec(ctx, `
			UPDATE playlist_tracks SET idx = CASE
				WHEN idx = $2 THEN $3
				WHEN $3 > $2 THEN idx - 1
				ELSE idx + 1
			END
			WHERE playlist_id = $1 AND idx BETWEEN LEAST($2, $3) AND GREATEST($2, $3)
		`, id, currentIndex, newIndex)
		if err != nil {
			return fmt.Errorf("moving track: %w", err)
		}
		return nil
	})
}

func (r *PlaylistRepository) RemoveTrack(ctx context.Context, id int64, trackID string) error {
	return r.mutate(ctx, id, func(tx pgx.Tx, _ int) error {
		var removed int
		err := tx.QueryRow(ctx, `
			DELETE FROM playlist_tracks
			WHERE id = (
				SELECT id FROM playlist_tracks
				WHERE playlist_id = $1 AND track_id = $2
				ORDER BY idx LIMIT 1
			)
			RETURNING idx
		`, id, trackID).Scan(&removed)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", playlists.ErrTrackMissing, trackID)
		}
		if err != nil {
			return fmt.Errorf("deleting track: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE playlist_tracks SET idx = idx - 1 WHERE playlist_id = $1 AND idx > $2`, id, removed); err != nil {
			return fmt.Errorf("shifting tracks: %w", err)
		}
		return nil
	})
}

func (r *PlaylistRepository) ReplaceTracks(ctx context.Context, id int64, trackIDs []string) error {
	return r.mutate(ctx, id, func(tx pgx.Tx, _ int) error {
		if _, err := tx.Exec(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = $1`, id); err != nil {
			return fmt.Errorf("clearing tracks: %w", err)
		}
		return insertTracks(ctx, tx, id, 0, trackIDs)
	})
}

// mutate locks the playlist row, runs fn with the current track count and
// bumps updated_at. Concurrent edits of one playlist are serialized.
func (r *PlaylistRepository) mutate(ctx context.Context, id int64, fn func(tx pgx.Tx, n int) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		n, err := lockPlaylist(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(tx, n); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE playlists SET updated_at = NOW() WHERE id = $1`, id)
		return err
	})
}

// lockPlaylist takes a row lock on the playlist and returns its track count.
func lockPlaylist(ctx context.Context, tx pgx.Tx, id int64) (int, error) {
	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM playlists WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("playlist %d: %w", id, playlists.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("locking playlist: %w", err)
	}

	var n int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return n, nil
}

// insertTracks inserts trackIDs at consecutive indices starting at start.
// It refuses tracks already in the playlist.
func insertTracks(ctx context.Context, tx pgx.Tx, playlistID int64, start int, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if id, ok := playlists.FirstDuplicate(trackIDs); ok {
		return playlists.DuplicateError(id)
	}
	var existing string
	err := tx.QueryRow(ctx, `
		SELECT track_id FROM playlist_tracks
		WHERE playlist_id = $1 AND track_id = ANY($2)
		LIMIT 1`, playlistID, trackIDs).Scan(&existing)
	switch {
	case err == nil:
		return playlists.DuplicateError(existing)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("checking duplicates: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO playlist_tracks (playlist_id, track_id, idx)
		SELECT $1, t.track_id, $3 + t.ord - 1
		FROM unnest($2::text[]) WITH ORDINALITY AS t(track_id, ord)
	`, playlistID, trackIDs, start)
	if err != nil {
		return fmt.Errorf("inserting tracks: %w", err)
	}
	return nil
}

var _ playlists.Store = (*PlaylistRepository)(nil)
