package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/justestif/go-tuttitracks/internal/features"
	"github.com/justestif/go-tuttitracks/internal/library"
)

type trackRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Artist      string     `db:"artist"`
	Album       string     `db:"album"`
	URI         string     `db:"uri"`
	ReleaseYear int        `db:"release_year"`
	Popularity  int        `db:"popularity"`
	DurationMs  int        `db:"duration_ms"`
	AddedAt     *time.Time `db:"added_at"`

	HasFeatures      bool    `db:"has_features"`
	Acousticness     float32 `db:"acousticness"`
	Danceability     float32 `db:"danceability"`
	Energy           float32 `db:"energy"`
	Instrumentalness float32 `db:"instrumentalness"`
	Liveness         float32 `db:"liveness"`
	Loudness         float32 `db:"loudness"`
	Speechiness      float32 `db:"speechiness"`
	Tempo            float32 `db:"tempo"`
	Valence          float32 `db:"valence"`
	Key              int     `db:"musical_key"`
	Mode             int     `db:"mode"`
	TimeSignature    int     `db:"time_signature"`
}

func newTrackRow(t features.Track) trackRow {
	r := trackRow{
		ID:          t.ID,
		Name:        t.Name,
		Artist:      t.Artist,
		Album:       t.Album,
		URI:         t.URI,
		ReleaseYear: t.ReleaseYear,
		Popularity:  t.Popularity,
		DurationMs:  t.DurationMs,
		Key:         -1,
	}
	if !t.AddedAt.IsZero() {
		added := t.AddedAt.UTC()
		r.AddedAt = &added
	}
	if a := t.Audio; a != nil {
		r.setAudio(*a)
	}
	return r
}

func (r *trackRow) setAudio(a features.Audio) {
	r.HasFeatures = true
	r.Acousticness = a.Acousticness
	r.Danceability = a.Danceability
	r.Energy = a.Energy
	r.Instrumentalness = a.Instrumentalness
	r.Liveness = a.Liveness
	r.Loudness = a.Loudness
	r.Speechiness = a.Speechiness
	r.Tempo = a.Tempo
	r.Valence = a.Valence
	r.Key = a.Key
	r.Mode = a.Mode
	r.TimeSignature = a.TimeSignature
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

const trackColumns = `id, name, artist, album, uri, release_year, popularity, duration_ms, added_at,
	has_features, acousticness, danceability, energy, instrumentalness, liveness, loudness,
	speechiness, tempo, valence, musical_key, mode, time_signature`

// Metadata columns are always refreshed; feature columns only when the
// incoming row carries features.
const upsertTrack = `
	INSERT INTO tracks (` + trackColumns + `) VALUES (
		:id, :name, :artist, :album, :uri, :release_year, :popularity, :duration_ms, :added_at,
		:has_features, :acousticness, :danceability, :energy, :instrumentalness, :liveness, :loudness,
		:speechiness, :tempo, :valence, :musical_key, :mode, :time_signature
	)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		artist = excluded.artist,
		album = excluded.album,
		uri = excluded.uri,
		release_year = excluded.release_year,
		popularity = excluded.popularity,
		duration_ms = excluded.duration_ms,
		added_at = COALESCE(excluded.added_at, tracks.added_at),
		has_features = MAX(tracks.has_features, excluded.has_features),
		acousticness = CASE WHEN excluded.has_features THEN excluded.acousticness ELSE tracks.acousticness END,
		danceability = CASE WHEN excluded.has_features THEN excluded.danceability ELSE tracks.danceability END,
		energy = CASE WHEN excluded.has_features THEN excluded.energy ELSE tracks.energy END,
		instrumentalness = CASE WHEN excluded.has_features THEN excluded.instrumentalness ELSE tracks.instrumentalness END,
		liveness = CASE WHEN excluded.has_features THEN excluded.liveness ELSE tracks.liveness END,
		loudness = CASE WHEN excluded.has_features THEN excluded.loudness ELSE tracks.loudness END,
		speechiness = CASE WHEN excluded.has_features THEN excluded.speechiness ELSE tracks.speechiness END,
		tempo = CASE WHEN excluded.has_features THEN excluded.tempo ELSE tracks.tempo END,
		valence = CASE WHEN excluded.has_features THEN excluded.valence ELSE tracks.valence END,
		musical_key = CASE WHEN excluded.has_features THEN excluded.musical_key ELSE tracks.musical_key END,
		mode = CASE WHEN excluded.has_features THEN excluded.mode ELSE tracks.mode END,
		time_signature = CASE WHEN excluded.has_features THEN excluded.time_signature ELSE tracks.time_signature END`

func (db *DB) UpsertTracks(ctx context.Context, tracks []features.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tracks {
			if _, err := tx.NamedExecContext(ctx, upsertTrack, newTrackRow(t)); err != nil {
				return fmt.Errorf("upserting track %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (db *DB) GetTrack(ctx context.Context, id string) (*features.Track, error) {
	var row trackRow
	err := db.GetContext(ctx, &row, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", id, library.ErrTrackNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting track %s: %w", id, err)
	}
	t := row.toTrack()
	return &t, nil
}

func (db *DB) GetTracks(ctx context.Context, ids []string) ([]features.Track, error) {
	rows, err := db.selectTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]trackRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]features.Track, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r.toTrack())
		}
	}
	return out, nil
}

func (db *DB) SetFeatures(ctx context.Context, id string, audio features.Audio) error {
	var r trackRow
	r.ID = id
	r.setAudio(audio)

	res, err := db.NamedExecContext(ctx, `
		UPDATE tracks SET
			has_features = 1,
			acousticness = :acousticness, danceability = :danceability, energy = :energy,
			instrumentalness = :instrumentalness, liveness = :liveness, loudness = :loudness,
			speechiness = :speechiness, tempo = :tempo, valence = :valence,
			musical_key = :musical_key, mode = :mode, time_signature = :time_signature
		WHERE id = :id`, r)
	if err != nil {
		return fmt.Errorf("storing features for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("track %s: %w", id, library.ErrTrackNotFound)
	}
	return nil
}

func (db *DB) MissingFeatures(ctx context.Context, ids []string) ([]string, error) {
	rows, err := db.selectTracks(ctx, `SELECT `+trackColumns+` FROM tracks WHERE has_features = 1 AND id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	have := make(map[string]bool, len(rows))
	for _, r := range rows {
		have[r.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if have[id] {
			continue
		}
		have[id] = true
		missing = append(missing, id)
	}
	return missing, nil
}

// selectTracks expands the IN (?) placeholder in query with ids.
func (db *DB) selectTracks(ctx context.Context, query string, ids []string) ([]trackRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, fmt.Errorf("building track query: %w", err)
	}
	var rows []trackRow
	if err := db.SelectContext(ctx, &rows, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("selecting tracks: %w", err)
	}
	return rows, nil
}
