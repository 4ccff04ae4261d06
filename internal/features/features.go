// Package features holds the track model with its Spotify audio features
// and the helpers that turn raw feature values into display values.
package features

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNoFeatures is returned when a track has no audio features yet.
var ErrNoFeatures = errors.New("track has no audio features")

// Track is a Spotify track known to the backend.
type Track struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Artist      string    `json:"artist"` // comma separated
	Album       string    `json:"album"`
	URI         string    `json:"uri"`
	ReleaseYear int       `json:"release_year"`
	Popularity  int       `json:"popularity"`
	DurationMs  int       `json:"duration_ms"`
	AddedAt     time.Time `json:"added_at,omitzero"`
	Audio       *Audio    `json:"audio,omitempty"` // nil until fetched
}

// Audio is the set of audio features Spotify computes for a track.
type Audio struct {
	Acousticness     float32 `json:"acousticness"`
	Danceability     float32 `json:"danceability"`
	Energy           float32 `json:"energy"`
	Instrumentalness float32 `json:"instrumentalness"`
	Liveness         float32 `json:"liveness"`
	Loudness         float32 `json:"loudness"`
	Speechiness      float32 `json:"speechiness"`
	Tempo            float32 `json:"tempo"`
	Valence          float32 `json:"valence"`
	Key              int     `json:"key"`  // pitch class, -1 when undetected
	Mode             int     `json:"mode"` // 1 major, 0 minor
	TimeSignature    int     `json:"time_signature"`
}

// URI returns the Spotify URI for a track ID.
func URI(id string) string {
	return "spotify:track:" + id
}

var keyNames = []string{"C", "D-flat", "D", "E-flat", "E", "F", "G-flat", "G", "A-flat", "A", "B-flat", "B"}

// KeyName converts a pitch class number to a readable key signature.
func KeyName(key int) string {
	if key < 0 || key >= len(keyNames) {
		return "unknown"
	}
	return keyNames[key]
}

// ModeName returns "Major" for mode 1 and "minor" otherwise.
func ModeName(mode int) string {
	if mode == 1 {
		return "Major"
	}
	return "minor"
}

// FormatDuration renders milliseconds as minutes and seconds, e.g. "3m 25.5s".
// Seconds are rounded to two decimals and always carry a fractional part.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := math.Round(float64(ms%60000)/10) / 100

	s := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return fmt.Sprintf("%dm %ss", minutes, s)
}

// Summary is the display form of a track's audio features.
type Summary struct {
	Name             string  `json:"name"`
	Artist           string  `json:"artist"`
	Album            string  `json:"album"`
	Popularity       int     `json:"popularity"`
	ReleaseYear      int     `json:"release_year"`
	Duration         string  `json:"duration"`
	Acousticness     float32 `json:"acousticness"`
	Danceability     float32 `json:"danceability"`
	Energy           float32 `json:"energy"`
	Instrumentalness float32 `json:"instrumentalness"`
	Liveness         float32 `json:"liveness"`
	Loudness         float32 `json:"loudness"`
	Speechiness      float32 `json:"speechiness"`
	Tempo            float32 `json:"tempo"`
	Valence          float32 `json:"valence"`
	Key              string  `json:"key"`
	Mode             string  `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
}

// Summarize builds the display summary of a track.
func Summarize(t Track) (Summary, error) {
	if t.Audio == nil {
		return Summary{}, fmt.Errorf("%w: %s", ErrNoFeatures, t.ID)
	}
	a := t.Audio
	return Summary{
		Name:             t.Name,
		Artist:           t.Artist,
		Album:            t.Album,
		Popularity:       t.Popularity,
		ReleaseYear:      t.ReleaseYear,
		Duration:         FormatDuration(t.DurationMs),
		Acousticness:     a.Acousticness,
		Danceability:     a.Danceability,
		Energy:           a.Energy,
		Instrumentalness: a.Instrumentalness,
		Liveness:         a.Liveness,
		Loudness:         a.Loudness,
		Speechiness:      a.Speechiness,
		Tempo:            a.Tempo,
		Valence:          a.Valence,
		Key:              KeyName(a.Key),
		Mode:             ModeName(a.Mode),
		TimeSignature:    a.TimeSignature,
	}, nil
}
