package datastore

var catalogSchemas = []string{
	`CREATE TABLE IF NOT EXISTS authors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS characters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		isbn TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author_id INTEGER REFERENCES authors(id),
		author_description TEXT NOT NULL DEFAULT '',
		synopsis TEXT NOT NULL DEFAULT '',
		overrides_applied TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS book_genres (
		isbn TEXT NOT NULL REFERENCES books(isbn) ON DELETE CASCADE,
		genre_id INTEGER NOT NULL REFERENCES genres(id),
		ord INTEGER NOT NULL,
		PRIMARY KEY (isbn, genre_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_characters (
		isbn TEXT NOT NULL REFERENCES books(isbn) ON DELETE CASCADE,
		character_id INTEGER NOT NULL REFERENCES characters(id),
		ord INTEGER NOT NULL,
		PRIMARY KEY (isbn, character_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_places (
		isbn TEXT NOT NULL REFERENCES books(isbn) ON DELETE CASCADE,
		place_id INTEGER NOT NULL REFERENCES places(id),
		ord INTEGER NOT NULL,
		PRIMARY KEY (isbn, place_id)
	)`,
}
