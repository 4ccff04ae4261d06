package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/justestif/go-tuttitracks/internal/playlists"
)

type playlistRow struct {
	ID          int64     `db:"id"`
	Owner       string    `db:"owner"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Public      bool      `db:"public"`
	SpotifyID   string    `db:"spotify_playlist_id"`
	TrackCount  int       `db:"num_tracks"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r playlistRow) toPlaylist() playlists.Playlist {
	return playlists.Playlist{
		ID:          r.ID,
		Owner:       r.Owner,
		Name:        r.Name,
		Description: r.Description,
		Public:      r.Public,
		SpotifyID:   r.SpotifyID,
		TrackCount:  r.TrackCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectPlaylist = `
	SELECT p.id, p.owner, p.name, p.description, p.public, p.spotify_playlist_id,
	       p.created_at, p.updated_at,
	       (SELECT COUNT(*) FROM playlist_tracks t WHERE t.playlist_id = p.id) AS num_tracks
	FROM playlists p`

func (db *DB) CreatePlaylist(ctx context.Context, p *playlists.Playlist, trackIDs []string) error {
	now := time.Now().UTC()
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO playlists (owner, name, description, public, spotify_playlist_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Owner, p.Name, p.Description, p.Public, p.SpotifyID, now, now)
		if err != nil {
			return fmt.Errorf("inserting playlist: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading playlist id: %w", err)
		}

		if err := insertTracks(ctx, tx, id, 0, trackIDs); err != nil {
			return err
		}

		p.ID = id
		p.CreatedAt = now
		p.UpdatedAt = now
		p.TrackCount = len(trackIDs)
		return nil
	})
}

func (db *DB) GetPlaylist(ctx context.Context, id int64) (*playlists.Playlist, error) {
	var row playlistRow
	err := db.GetContext(ctx, &row, selectPlaylist+` WHERE p.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("playlist %d: %w", id, playlists.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting playlist %d: %w", id, err)
	}
	p := row.toPlaylist()
	return &p, nil
}

func (db *DB) ListPlaylists(ctx context.Context, owner string) ([]playlists.Playlist, error) {
	var rows []playlistRow
	if err := db.SelectContext(ctx, &rows, selectPlaylist+` WHERE p.owner = ? ORDER BY p.id`, owner); err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	out := make([]playlists.Playlist, len(rows))
	for i, r := range rows {
		out[i] = r.toPlaylist()
	}
	return out, nil
}

func (db *DB) UpdatePlaylist(ctx context.Context, p *playlists.Playlist) error {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
		UPDATE playlists
		SET name = ?, description = ?, public = ?, spotify_playlist_id = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.Public, p.SpotifyID, now, p.ID)
	if err != nil {
		return fmt.Errorf("updating playlist %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("playlist %d: %w", p.ID, playlists.ErrNotFound)
	}
	p.UpdatedAt = now
	return nil
}

func (db *DB) DeletePlaylist(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkPlaylist(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
			return fmt.Errorf("deleting playlist tracks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting playlist %d: %w", id, err)
		}
		return nil
	})
}

func (db *DB) TrackIDs(ctx context.Context, id int64) ([]string, error) {
	var ids []string
	err := db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkPlaylist(ctx, tx, id); err != nil {
			return err
		}
		return tx.SelectContext(ctx, &ids,
			`SELECT track_id FROM playlist_tracks WHERE playlist_id = ? ORDER BY idx`, id)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (db *DB) AppendTracks(ctx context.Context, id int64, trackIDs []string) error {
	return db.mutate(ctx, id, func(tx *sqlx.Tx, n int) error {
		return insertTracks(ctx, tx, id, n, trackIDs)
	})
}

func (db *DB) InsertTrack(ctx context.Context, id int64, trackID string, index int) error {
	return db.mutate(ctx, id, func(tx *sqlx.Tx, n int) error {
		if index < 0 || index > n {
			return fmt.Errorf("%w: insert at %d with %d tracks", playlists.ErrInvalidIndex, index, n)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET idx = idx + 1 WHERE playlist_id = ? AND idx >= ?`, id, index); err != nil {
			return fmt.Errorf("shifting tracks: %w", err)
		}
		return insertTracks(ctx, tx, id, index, []string{trackID})
	})
}

func (db *DB) MoveTrack(ctx context.Context, id int64, currentIndex, newIndex int) error {
	return db.mutate(ctx, id, func(tx *sqlx.Tx, n int) error {
		if currentIndex < 0 || currentIndex >= n || newIndex < 0 || newIndex >= n {
			return fmt.Errorf("%w: move %d -> %d with %d tracks", playlists.ErrInvalidIndex, currentIndex, newIndex, n)
		}
		if currentIndex == newIndex {
			return nil
		}

		var rowID int64
		if err := tx.GetContext(ctx, &rowID,
			`SELECT rowid FROM playlist_tracks WHERE playlist_id = ? AND idx = ?`, id, currentIndex); err != nil {
			return fmt.Errorf("finding track at %d: %w", currentIndex, err)
		}

		var shift string
		var lo, hi int
		if newIndex > currentIndex {
			shift, lo, hi = "idx - 1", currentIndex+1, newIndex
		} else {
			shift, lo, hi = "idx + 1", newIndex, currentIndex-1
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET idx = `+shift+` WHERE playlist_id = ? AND idx BETWEEN ? AND ?`,
			id, lo, hi); err != nil {
			return fmt.Errorf("shifting tracks: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET idx = ? WHERE rowid = ?`, newIndex, rowID); err != nil {
			return fmt.Errorf("placing track: %w", err)
		}
		return nil
	})
}

func (db *DB) RemoveTrack(ctx context.Context, id int64, trackID string) error {
	return db.mutate(ctx, id, func(tx *sqlx.Tx, _ int) error {
		var row struct {
			RowID int64 `db:"row_id"`
			Idx   int   `db:"idx"`
		}
		err := tx.GetContext(ctx, &row, `
			SELECT rowid AS row_id, idx FROM playlist_tracks
			WHERE playlist_id = ? AND track_id = ?
			ORDER BY idx LIMIT 1`, id, trackID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", playlists.ErrTrackMissing, trackID)
		}
		if err != nil {
			return fmt.Errorf("finding track %s: %w", trackID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE rowid = ?`, row.RowID); err != nil {
			return fmt.Errorf("deleting track: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE playlist_tracks SET idx = idx - 1 WHERE playlist_id = ? AND idx > ?`, id, row.Idx); err != nil {
			return fmt.Errorf("shifting tracks: %w", err)
		}
		return nil
	})
}

func (db *DB) ReplaceTracks(ctx context.Context, id int64, trackIDs []string) error {
	return db.mutate(ctx, id, func(tx *sqlx.Tx, _ int) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
			return fmt.Errorf("clearing tracks: %w", err)
		}
		return insertTracks(ctx, tx, id, 0, trackIDs)
	})
}

// mutate runs fn in a transaction with the playlist's current track count,
// then bumps updated_at.
func (db *DB) mutate(ctx context.Context, id int64, fn func(tx *sqlx.Tx, n int) error) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkPlaylist(ctx, tx, id); err != nil {
			return err
		}
		var n int
		if err := tx.GetContext(ctx, &n,
			`SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?`, id); err != nil {
			return fmt.Errorf("counting tracks: %w", err)
		}
		if err := fn(tx, n); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
		return err
	})
}

func checkPlaylist(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("checking playlist %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("playlist %d: %w", id, playlists.ErrNotFound)
	}
	return nil
}

// insertTracks inserts trackIDs at consecutive indices starting at start.
// It refuses tracks already in the playlist.
func insertTracks(ctx context.Context, tx *sqlx.Tx, playlistID int64, start int, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	if id, ok := playlists.FirstDuplicate(trackIDs); ok {
		return playlists.DuplicateError(id)
	}
	query, args, err := sqlx.In(
		`SELECT track_id FROM playlist_tracks WHERE playlist_id = ? AND track_id IN (?) LIMIT 1`,
		playlistID, trackIDs)
	if err != nil {
		return fmt.Errorf("building duplicate check: %w", err)
	}
	var existing string
	err = tx.GetContext(ctx, &existing, tx.Rebind(query), args...)
	switch {
	case err == nil:
		return playlists.DuplicateError(existing)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking duplicates: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO playlist_tracks (playlist_id, track_id, idx) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing track insert: %w", err)
	}
	defer stmt.Close()

	for i, trackID := range trackIDs {
		if _, err := stmt.ExecContext(ctx, playlistID, trackID, start+i); err != nil {
			return fmt.Errorf("inserting track %s: %w", trackID, err)
		}
	}
	return nil
}
