package library

import (
	"strconv"
	"strings"
	"time"
)

// SearchQuery holds the field filters of a track search.
type SearchQuery struct {
	Artist string
	Track  string
	Album  string
	Genre  string
	Year   string
}

// IsZero reports whether no filter is set.
func (q SearchQuery) IsZero() bool {
	return strings.TrimSpace(q.Artist) == "" &&
		strings.TrimSpace(q.Track) == "" &&
		strings.TrimSpace(q.Album) == "" &&
		strings.TrimSpace(q.Genre) == "" &&
		strings.TrimSpace(q.Year) == ""
}

// String renders the query in Spotify's field filter syntax, e.g.
// "artist:Queen year:1975". An empty query searches the current year.
func (q SearchQuery) String() string {
	if q.IsZero() {
		return "year:" + strconv.Itoa(time.Now().Year())
	}

	fields := []struct{ name, value string }{
		{"artist", q.Artist},
		{"track", q.Track},
		{"album", q.Album},
		{"genre", q.Genre},
		{"year", q.Year},
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			parts = append(parts, f.name+":"+v)
		}
	}
	return strings.Join(parts, " ")
}
