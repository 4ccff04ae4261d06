package sqlite

// Schema creates the tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	uri TEXT NOT NULL DEFAULT '',
	release_year INTEGER NOT NULL DEFAULT 0,
	popularity INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	added_at DATETIME,

	-- Audio features, valid when has_features = 1
	has_features BOOLEAN NOT NULL DEFAULT 0,
	acousticness REAL NOT NULL DEFAULT 0,
	danceability REAL NOT NULL DEFAULT 0,
	energy REAL NOT NULL DEFAULT 0,
	instrumentalness REAL NOT NULL DEFAULT 0,
	liveness REAL NOT NULL DEFAULT 0,
	loudness REAL NOT NULL DEFAULT 0,
	speechiness REAL NOT NULL DEFAULT 0,
	tempo REAL NOT NULL DEFAULT 0,
	valence REAL NOT NULL DEFAULT 0,
	musical_key INTEGER NOT NULL DEFAULT -1,
	mode INTEGER NOT NULL DEFAULT 0,
	time_signature INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS playlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	public BOOLEAN NOT NULL DEFAULT 1,
	spotify_playlist_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlists_owner ON playlists(owner);

-- idx is not unique: shifting updates pass through duplicate values.
CREATE TABLE IF NOT EXISTS playlist_tracks (
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	track_id TEXT NOT NULL,
	idx INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlist_tracks_order ON playlist_tracks(playlist_id, idx);
`
