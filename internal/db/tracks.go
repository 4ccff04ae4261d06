package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/library"
)

// TrackRepository stores track metadata and audio features.
// It implements library.TrackStore.
type TrackRepository struct {
	pool *pgxpool.Pool
}

type trackRow struct {
	ID               string     `db:"id"`
	Name             string     `db:"name"`
	Artist           string     `db:"artist"`
	Album            string     `db:"album"`
	URI              string     `db:"uri"`
	ReleaseYear      int        `db:"release_year"`
	Popularity       int        `db:"popularity"`
	DurationMs       int        `db:"duration_ms"`
	AddedAt          *time.Time `db:"added_at"`
	HasFeatures      bool       `db:"has_features"`
	Acousticness     float32    `db:"acousticness"`
	Danceability     float32    `db:"danceability"`
	Energy           float32    `db:"energy"`
	Instrumentalness float32    `db:"instrumentalness"`
	Liveness         float32    `db:"liveness"`
	Loudness         float32    `db:"loudness"`
	Speechiness      float32    `db:"speechiness"`
	Tempo            float32    `db:"tempo"`
	Valence          float32    `db:"valence"`
	Key              int        `db:"musical_key"`
	Mode             int        `db:"mode"`
	TimeSignature    int        `db:"time_signature"`
}

func (r trackRow) toTrack() features.Track {
	t := features.Track{
		ID:          r.ID,
		Name:        r.Name,
		Artist:      r.Artist,
		Album:       r.Album,
		URI:         r.URI,
		ReleaseYear: r.ReleaseYear,
		Popularity:  r.Popularity,
		DurationMs:  r.DurationMs,
	}
	if r.AddedAt != nil {
		t.AddedAt = *r.AddedAt
	}
	if r.HasFeatures {
		t.Audio = &features.Audio{
			Acousticness:     r.Acousticness,
			Danceability:     r.Danceability,
			Energy:           r.Energy,
			Instrumentalness: r.Instrumentalness,
			Liveness:         r.Liveness,
			Loudness:         r.Loudness,
			Speechiness:      r.Speechiness,
			Tempo:            r.Tempo,
			Valence:          r.Valence,
			Key:              r.Key,
			Mode:             r.Mode,
			TimeSignature:    r.TimeSignature,
		}
	}
	return t
}

const selectTracks = `
	SELECT id, name, artist, album, uri, release_year, popularity, duration_ms, added_at,
	       has_features, acousticness, danceability, energy, instrumentalness, liveness,
	       loudness, speechiness, tempo, valence, musical_key, mode, time_signature
	FROM tracks`

const setFeatures = `
	UPDATE tracks SET
		has_features = TRUE,
		acousticness = $2, danceability = $3, energy = $4, instrumentalness = $5,
		liveness = $6, loudness = $7, speechiness = $8, tempo = $9, valence = $10,
		musical_key = $11, mode = $12, time_signature = $13
	WHERE id = $1`

func featureArgs(id string, a features.Audio) []any {
	return []any{id,
		a.Acousticness, a.Danceability, a.Energy, a.Instrumentalness,
		a.Liveness, a.Loudness, a.Speechiness, a.Tempo, a.Valence,
		a.Key, a.Mode, a.TimeSignature,
	}
}

// UpsertTracks inserts or updates track metadata in one statement, then
// stores any audio features the tracks carry.
func (r *TrackRepository) UpsertTracks(ctx context.Context, tracks []features.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	// ON CONFLICT cannot touch the same row twice in one statement.
	tracks = dedupeTracks(tracks)

	n := len(tracks)
	ids := make([]string, n)
	names := make([]string, n)
	artists := make([]string, n)
	albums := make([]string, n)
	uris := make([]string, n)
	years := make([]int, n)
	popularity := make([]int, n)
	durations := make([]int, n)
	addedAts := make([]*time.Time, n)

	batch := &pgx.Batch{}
	for i, t := range tracks {
		ids[i] = t.ID
		names[i] = t.Name
		artists[i] = t.Artist
		albums[i] = t.Album
		uris[i] = t.URI
		years[i] = t.ReleaseYear
		popularity[i] = t.Popularity
		durations[i] = t.DurationMs
		if !t.AddedAt.IsZero() {
			added := t.AddedAt
			addedAts[i] = &added
		}
		if t.Audio != nil {
			batch.Queue(setFeatures, featureArgs(t.ID, *t.Audio)...)
		}
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tracks (id, name, artist, album, uri, release_year, popularity, duration_ms, added_at)
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[],
			                     $6::int[], $7::int[], $8::int[], $9::timestamptz[])
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				artist = EXCLUDED.artist,
				album = EXCLUDED.album,
				uri = EXCLUDED.uri,
				release_year = EXCLUDED.release_year,
				popularity = EXCLUDED.popularity,
				duration_ms = EXCLUDED.duration_ms,
				added_at = COALESCE(EXCLUDED.added_at, tracks.added_at)
		`, ids, names, artists, albums, uris, years, popularity, durations, addedAts)
		if err != nil {
			return fmt.Errorf("batch upserting tracks: %w", err)
		}

		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("storing audio features: %w", err)
		}
		return nil
	})
}

// GetTrack retrieves a track by ID.
func (r *TrackRepository) GetTrack(ctx context.Context, id string) (*features.Track, error) {
	rows, _ := r.pool.Query(ctx, selectTracks+` WHERE id = $1`, id)
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[trackRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", id, library.ErrTrackNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	t := row.toTrack()
	return &t, nil
}

// GetTracks returns the stored tracks among ids, in the order of ids.
func (r *TrackRepository) GetTracks(ctx context.Context, ids []string) ([]features.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _ := r.pool.Query(ctx, selectTracks+` WHERE id = ANY($1)`, ids)
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[trackRow])
	if err != nil {
		return nil, fmt.Errorf("querying tracks: %w", err)
	}

	byID := make(map[string]trackRow, len(found))
	for _, row := range found {
		byID[row.ID] = row
	}
	out := make([]features.Track, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row.toTrack())
		}
	}
	return out, nil
}

// SetFeatures stores audio features for a known track.
func (r *TrackRepository) SetFeatures(ctx context.Context, id string, audio features.Audio) error {
	result, err := r.pool.Exec(ctx, setFeatures, featureArgs(id, audio)...)
	if err != nil {
		return fmt.Errorf("storing features for %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("track %s: %w", id, library.ErrTrackNotFound)
	}
	return nil
}

// MissingFeatures returns the ids without stored audio features.
func (r *TrackRepository) MissingFeatures(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, _ := r.pool.Query(ctx, `SELECT id FROM tracks WHERE has_features AND id = ANY($1)`, ids)
	have, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("querying features: %w", err)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range have {
		seen[id] = true
	}
	var missing []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	return missing, nil
}

// dedupeTracks keeps the last occurrence of each track ID.
func dedupeTracks(tracks []features.Track) []features.Track {
	pos := make(map[string]int, len(tracks))
	out := make([]features.Track, 0, len(tracks))
	for _, t := range tracks {
		if i, ok := pos[t.ID]; ok {
			out[i] = t
			continue
		}
		pos[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

var _ library.TrackStore = (*TrackRepository)(nil)
