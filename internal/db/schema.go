package db

// Schema is idempotent and applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	token_expiry TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	uri TEXT NOT NULL DEFAULT '',
	release_year INTEGER NOT NULL DEFAULT 0,
	popularity INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	added_at TIMESTAMPTZ,
	has_features BOOLEAN NOT NULL DEFAULT FALSE,
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
	time_signature INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS playlists (
	id BIGSERIAL PRIMARY KEY,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	public BOOLEAN NOT NULL DEFAULT TRUE,
	spotify_playlist_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_playlists_owner ON playlists(owner);

CREATE TABLE IF NOT EXISTS playlist_tracks (
	id BIGSERIAL PRIMARY KEY,
	playlist_id BIGINT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	track_id TEXT NOT NULL,
	idx INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlist_tracks_order ON playlist_tracks(playlist_id, idx);
`
