// Package datastore persists reconciled book records in a SQLite
// catalog. Names shared between books (authors, genres, characters,
// places) live in dimension tables keyed by unique name, so re-ingesting
// a book never duplicates them.
package datastore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/avelardo/librario/internal/metadata"
)

// ErrNotFound is returned when no book exists for an ISBN.
var ErrNotFound = errors.New("book not found")

// Catalog stores and retrieves reconciled book records.
type Catalog interface {
	UpsertBook(rec metadata.Record) error
	GetBook(isbn13 string) (metadata.Record, error)
	Close() error
}

// SQLiteCatalog is the Catalog implementation backed by a SQLite file.
type SQLiteCatalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog database at path.
func Open(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("connecting to catalog database: %w", err), closeErr)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("enabling foreign keys: %w", err), closeErr)
	}
	for _, schema := range catalogSchemas {
		if _, err := db.Exec(schema); err != nil {
			closeErr := db.Close()
			return nil, errors.Join(fmt.Errorf("creating catalog table: %w", err), closeErr)
		}
	}
	return &SQLiteCatalog{db: db}, nil
}

// Close closes the catalog database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// UpsertBook writes a record, replacing any previous version for the
// same ISBN. Dimension rows are reused by name; link rows are rewritten
// so the stored lists match the record exactly, in order.
func (c *SQLiteCatalog) UpsertBook(rec metadata.Record) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("starting catalog transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var authorID sql.NullInt64
	if rec.Author != "" {
		id, err := dimensionID(tx, "authors", "name", rec.Author)
		if err != nil {
			return err
		}
		authorID = sql.NullInt64{Int64: id, Valid: true}
	}

	_, err = tx.Exec(`INSERT INTO books (isbn, title, author_id, author_description, synopsis, overrides_applied)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(isbn) DO UPDATE SET
			title = excluded.title,
			author_id = excluded.author_id,
			author_description = excluded.author_description,
			synopsis = excluded.synopsis,
			overrides_applied = excluded.overrides_applied,
			updated_at = CURRENT_TIMESTAMP`,
		rec.ISBN, rec.Title, authorID, rec.AuthorDescription, rec.Synopsis,
		strings.Join(rec.OverridesApplied, ","))
	if err != nil {
		return fmt.Errorf("upserting book %s: %w", rec.ISBN, err)
	}

	if err := relinkList(tx, rec.ISBN, "genres", "label", "book_genres", "genre_id", rec.Genres); err != nil {
		return err
	}
	if err := relinkList(tx, rec.ISBN, "characters", "name", "book_characters", "character_id", rec.Characters); err != nil {
		return err
	}
	if err := relinkList(tx, rec.ISBN, "places", "name", "book_places", "place_id", rec.Places); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog transaction: %w", err)
	}
	return nil
}

// GetBook reads the stored record for an ISBN. Returns ErrNotFound when
// the catalog has no row for it.
func (c *SQLiteCatalog) GetBook(isbn13 string) (metadata.Record, error) {
	rec := metadata.Record{
		Genres:     []string{},
		Characters: []string{},
		Places:     []string{},
	}

	var overrides string
	var author sql.NullString
	err := c.db.QueryRow(`SELECT b.isbn, b.title, a.name, b.author_description, b.synopsis, b.overrides_applied
		FROM books b LEFT JOIN authors a ON a.id = b.author_id
		WHERE b.isbn = ?`, isbn13).
		Scan(&rec.ISBN, &rec.Title, &author, &rec.AuthorDescription, &rec.Synopsis, &overrides)
	if err == sql.ErrNoRows {
		return metadata.Record{}, fmt.Errorf("%w: %s", ErrNotFound, isbn13)
	}
	if err != nil {
		return metadata.Record{}, fmt.Errorf("reading book %s: %w", isbn13, err)
	}
	rec.Author = author.String
	if overrides != "" {
		rec.OverridesApplied = strings.Split(overrides, ",")
	}

	if rec.Genres, err = c.readList(isbn13, "genres", "label", "book_genres", "genre_id"); err != nil {
		return metadata.Record{}, err
	}
	if rec.Characters, err = c.readList(isbn13, "characters", "name", "book_characters", "character_id"); err != nil {
		return metadata.Record{}, err
	}
	if rec.Places, err = c.readList(isbn13, "places", "name", "book_places", "place_id"); err != nil {
		return metadata.Record{}, err
	}
	return rec, nil
}

// dimensionID returns the row id for a name in a dimension table,
// inserting it if new.
func dimensionID(tx *sql.Tx, table, column, value string) (int64, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?) ON CONFLICT(%s) DO NOTHING", table, column, column)
	if _, err := tx.Exec(query, value); err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}

	var id int64
	query = fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column)
	if err := tx.QueryRow(query, value).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolving %s id: %w", table, err)
	}
	return id, nil
}

// relinkList replaces a book's link rows for one dimension with the
// given values, preserving order through the ord column.
func relinkList(tx *sql.Tx, isbn, dimTable, dimColumn, linkTable, linkColumn string, values []string) error {
	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE isbn = ?", linkTable), isbn); err != nil {
		return fmt.Errorf("clearing %s: %w", linkTable, err)
	}
	for i, v := range values {
		id, err := dimensionID(tx, dimTable, dimColumn, v)
		if err != nil {
			return err
		}
		query := fmt.Sprintf("INSERT INTO %s (isbn, %s, ord) VALUES (?, ?, ?)", linkTable, linkColumn)
		if _, err := tx.Exec(query, isbn, id, i); err != nil {
			return fmt.Errorf("linking %s: %w", linkTable, err)
		}
	}
	return nil
}

func (c *SQLiteCatalog) readList(isbn, dimTable, dimColumn, linkTable, linkColumn string) ([]string, error) {
	query := fmt.Sprintf(`SELECT d.%s FROM %s l JOIN %s d ON d.id = l.%s
		WHERE l.isbn = ? ORDER BY l.ord`, dimColumn, linkTable, dimTable, linkColumn)
	rows, err := c.db.Query(query, isbn)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", linkTable, err)
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", linkTable, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
