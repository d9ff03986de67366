package cache

// Every cache table shares the same shape: cache_key primary key, the
// JSON payload, and the insert timestamp used for TTL checks.

const googleBooksSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

const openLibrarySchema = `
CREATE TABLE IF NOT EXISTS openlibrary_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_cached_at ON openlibrary_cache(cached_at);
`

const libraryThingSchema = `
CREATE TABLE IF NOT EXISTS librarything_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_librarything_cached_at ON librarything_cache(cached_at);
`

const wikipediaSchema = `
CREATE TABLE IF NOT EXISTS wikipedia_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_wikipedia_cached_at ON wikipedia_cache(cached_at);
`

// allSchemas is applied on first open of the cache database.
var allSchemas = []string{
	googleBooksSchema,
	openLibrarySchema,
	libraryThingSchema,
	wikipediaSchema,
}

// validTableNames is the whitelist used before interpolating a table name
// into SQL.
var validTableNames = map[string]bool{
	"googlebooks_cache":  true,
	"openlibrary_cache":  true,
	"librarything_cache": true,
	"wikipedia_cache":    true,
}
