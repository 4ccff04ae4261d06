package features

import (
	"cmp"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// MoodConfig holds mood grouping parameters.
type MoodConfig struct {
	NumGroups    int // Number of k-means clusters (default: 3)
	MinGroupSize int // Smaller clusters are returned as ungrouped
}

// DefaultMoodConfig returns the recommended default configuration.
func DefaultMoodConfig() MoodConfig {
	return MoodConfig{
		NumGroups:    3,
		MinGroupSize: 2,
	}
}

// MoodGroup is a set of playlist tracks with similar audio features.
type MoodGroup struct {
	Name     string             `json:"name"`
	Tracks   []Track            `json:"tracks"`
	Centroid map[string]float32 `json:"centroid"`
}

// trackObservation wraps a Track to implement clusters.Observation.
type trackObservation struct {
	index  int
	coords clusters.Coordinates
}

func (o trackObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o trackObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// featureNames defines the audio features used for grouping.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

// GroupByMood clusters tracks by audio feature similarity using k-means.
// Tracks keep their relative playlist order inside each group. Groups are
// returned largest first. Tracks without features, and tracks in clusters
// smaller than MinGroupSize, are returned as ungrouped.
func GroupByMood(tracks []Track, cfg MoodConfig) ([]MoodGroup, []Track, error) {
	if len(tracks) == 0 {
		return nil, nil, nil
	}
	if cfg.NumGroups <= 0 {
		cfg.NumGroups = DefaultMoodConfig().NumGroups
	}

	var obs clusters.Observations
	var ungrouped []Track
	for i := range tracks {
		if tracks[i].Audio == nil {
			ungrouped = append(ungrouped, tracks[i])
			continue
		}
		obs = append(obs, trackObservation{index: i, coords: extractFeatures(tracks[i].Audio)})
	}

	if len(obs) < cfg.NumGroups {
		return nil, tracks, nil
	}

	result, err := kmeans.New().Partition(obs, cfg.NumGroups)
	if err != nil {
		return nil, nil, err
	}

	var groups []MoodGroup
	for _, cluster := range result {
		indices := make([]int, 0, len(cluster.Observations))
		for _, o := range cluster.Observations {
			if to, ok := o.(trackObservation); ok {
				indices = append(indices, to.index)
			}
		}
		slices.Sort(indices)

		members := make([]Track, len(indices))
		for i, idx := range indices {
			members[i] = tracks[idx]
		}

		if len(members) == 0 {
			continue
		}
		if len(members) < cfg.MinGroupSize {
			ungrouped = append(ungrouped, members...)
			continue
		}

		centroid := make(map[string]float32, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = float32(cluster.Center[i])
		}

		groups = append(groups, MoodGroup{
			Name:     moodName(centroid),
			Tracks:   members,
			Centroid: centroid,
		})
	}

	slices.SortStableFunc(groups, func(a, b MoodGroup) int {
		return cmp.Compare(len(b.Tracks), len(a.Tracks))
	})

	return groups, ungrouped, nil
}

// extractFeatures returns the grouping features as a coordinate vector.
func extractFeatures(a *Audio) clusters.Coordinates {
	return clusters.Coordinates{
		float64(a.Energy),
		float64(a.Valence),
		float64(a.Danceability),
		float64(a.Acousticness),
	}
}

// moodName names a centroid using an energy/valence quadrant with an
// acoustic modifier.
func moodName(centroid map[string]float32) string {
	highEnergy := centroid["energy"] > 0.6
	highValence := centroid["valence"] > 0.5

	var name string
	switch {
	case highEnergy && highValence:
		name = "Upbeat Party"
	case highEnergy:
		name = "Intense & Dark"
	case highValence:
		name = "Chill & Happy"
	default:
		name = "Reflective & Melancholy"
	}

	if centroid["acousticness"] > 0.6 {
		return name + " (Acoustic)"
	}
	return name
}
