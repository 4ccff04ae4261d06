package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-tuttitracks/internal/features"
)

// AudioFeatures retrieves audio features for the given track IDs.
// Batches requests to max 100 tracks per request per Spotify API limits.
// Tracks without available audio features are absent from the result.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) (map[string]features.Audio, error) {
	out := make(map[string]features.Audio, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	spotifyIDs := make([]spotify.ID, len(ids))
	for i, id := range ids {
		spotifyIDs[i] = spotify.ID(id)
	}

	total := len(spotifyIDs)
	for i := 0; i < total; i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, total)

		batch, err := c.api.GetAudioFeatures(ctx, spotifyIDs[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, err)
		}

		for _, f := range batch {
			if f == nil {
				continue // Track has no audio features
			}
			out[f.ID.String()] = convertAudioFeatures(f)
		}
	}

	return out, nil
}

// convertAudioFeatures copies audio feature values.
func convertAudioFeatures(f *spotify.AudioFeatures) features.Audio {
	return features.Audio{
		Acousticness:     f.Acousticness,
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		Loudness:         f.Loudness,
		Speechiness:      f.Speechiness,
		Tempo:            f.Tempo,
		Valence:          f.Valence,
		Key:              int(f.Key),
		Mode:             int(f.Mode),
		TimeSignature:    int(f.TimeSignature),
	}
}
