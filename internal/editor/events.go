package editor

import "github.com/justestif/go-tuttitracks/internal/reorder"

// DragStarted picks up the track at Index.
type DragStarted struct {
	Index int
}

// DragEnded drops the picked-up track at Index.
type DragEnded struct {
	Index int
}

// DragCancelled abandons the current drag.
type DragCancelled struct{}

// TrackAdded appends Item to the playlist.
type TrackAdded struct {
	Item reorder.Item
}

// TrackRemoved removes the track with ID from the playlist.
type TrackRemoved struct {
	ID string
}

// PlaylistSaved creates the playlist or updates its details.
type PlaylistSaved struct {
	Name        string
	Description string
}

// PageChanged moves the liked-tracks page by Delta pages. Zero reloads the
// current page.
type PageChanged struct {
	Delta int
}
