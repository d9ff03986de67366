// Package ingest runs the full reconciliation pipeline for one book:
// resolve the ISBN, gather candidates from the metadata sources, pick
// the best one, decorate it with auxiliary facts, and persist the
// result.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/avelardo/librario/internal/config"
	"github.com/avelardo/librario/internal/covers"
	"github.com/avelardo/librario/internal/datastore"
	"github.com/avelardo/librario/internal/genres"
	"github.com/avelardo/librario/internal/isbn"
	"github.com/avelardo/librario/internal/librarything"
	"github.com/avelardo/librario/internal/metadata"
	"github.com/avelardo/librario/internal/objectstore"
	"github.com/avelardo/librario/internal/sources/googlebooks"
	"github.com/avelardo/librario/internal/sources/openlibrary"
	"github.com/avelardo/librario/internal/translate"
	"github.com/avelardo/librario/internal/wikipedia"
)

// Constructor variables allow tests to substitute clients pointed at
// fixture servers.
var (
	newGoogleBooks  = func() *googlebooks.Client { return googlebooks.New(config.GoogleBooksAPIKey) }
	newOpenLibrary  = openlibrary.New
	newLibraryThing = librarything.New
	newWikipedia    = wikipedia.New
	newCovers       = covers.New
	newTranslator   = func() *translate.Client {
		return translate.New(config.LibreTranslateURL, config.LibreTranslateAPIKey)
	}
	openCatalog = func(path string) (datastore.Catalog, error) { return datastore.Open(path) }
	openStore   = func(dir string) (objectstore.Store, error) { return objectstore.NewFS(dir) }
)

// Options configures one ingest run.
type Options struct {
	// ISBN is the raw ISBN-10 or ISBN-13 as given by the user.
	ISBN string
	// TitleOverride and AuthorOverride replace the source values in the
	// final record and widen the search when the ISBN finds nothing.
	TitleOverride  string
	AuthorOverride string
	// DocumentPath optionally names a source document to store alongside
	// the record.
	DocumentPath string
	// Force re-runs the pipeline even when the catalog already holds the
	// book.
	Force bool

	CatalogDB  string
	StorageDir string
}

// Run executes the pipeline and prints the resulting record as JSON.
func Run(ctx context.Context, opts Options) error {
	isbn13, err := resolveISBN(opts.ISBN)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(opts.CatalogDB)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	if !opts.Force {
		if existing, err := catalog.GetBook(isbn13); err == nil {
			slog.Info("Book already ingested, use --force to redo", "isbn", isbn13)
			return printRecord(existing)
		} else if !errors.Is(err, datastore.ErrNotFound) {
			return err
		}
	}

	rec, cover, err := buildRecord(ctx, isbn13, opts)
	if err != nil {
		return err
	}

	if err := persist(catalog, rec, cover, opts); err != nil {
		return err
	}
	return printRecord(rec)
}

// Show prints the stored record for an ISBN.
func Show(rawISBN, catalogDB string) error {
	isbn13, err := resolveISBN(rawISBN)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(catalogDB)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	rec, err := catalog.GetBook(isbn13)
	if err != nil {
		return err
	}
	return printRecord(rec)
}

// resolveISBN normalizes user input to a valid ISBN-13, converting
// ISBN-10 input along the way.
func resolveISBN(raw string) (string, error) {
	normalized := isbn.Normalize(raw)
	if isbn.IsValid13(normalized) {
		return normalized, nil
	}
	if len(normalized) == 10 {
		return isbn.From10(normalized)
	}
	return "", fmt.Errorf("%w: %q", isbn.ErrInvalid, raw)
}

// buildRecord runs the metadata gathering and assembly stages.
func buildRecord(ctx context.Context, isbn13 string, opts Options) (metadata.Record, []byte, error) {
	gb := newGoogleBooks()
	ol := newOpenLibrary()

	candidates := gatherCandidates(ctx, gb, ol, isbn13, opts)

	selected, err := metadata.ChooseBest(candidates)
	if err != nil {
		if !errors.Is(err, metadata.ErrNoCandidate) {
			return metadata.Record{}, nil, err
		}
		if opts.TitleOverride == "" {
			return metadata.Record{}, nil, fmt.Errorf("no metadata found for %s and no title given: %w", isbn13, err)
		}
		// Overrides alone still make a usable record.
		slog.Warn("No source metadata found, building record from overrides", "isbn", isbn13)
		selected = nil
	}
	if selected != nil {
		slog.Info("Selected candidate", "isbn", isbn13, "source", selected.Source, "completeness", selected.Completeness())
	}

	// The decoration fetches are independent of each other.
	var (
		wg    sync.WaitGroup
		facts metadata.Facts
		bio   string
		cover []byte
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		facts = newLibraryThing().FetchFacts(ctx, isbn13, config.LibraryThingAPIKey)
	}()
	go func() {
		defer wg.Done()
		author := opts.AuthorOverride
		if author == "" && selected != nil {
			author = selected.Author
		}
		bio = newWikipedia().AuthorBio(ctx, author, config.PreferredLanguage)
	}()
	go func() {
		defer wg.Done()
		data, err := newCovers().Fetch(ctx, isbn13)
		if err != nil {
			slog.Warn("Cover fetch failed", "isbn", isbn13, "error", err)
			return
		}
		cover = data
	}()
	wg.Wait()

	genreLabels, err := resolveGenres(ctx, ol, selected, isbn13)
	if err != nil {
		return metadata.Record{}, nil, err
	}

	// Candidates stay immutable after selection; a translated synopsis
	// goes through a copy.
	if selected != nil {
		if translated := maybeTranslate(ctx, selected.Synopsis, selected.Language); translated != selected.Synopsis {
			withTranslation := *selected
			withTranslation.Synopsis = translated
			selected = &withTranslation
		}
	}

	overrides := metadata.Overrides{Title: opts.TitleOverride, Author: opts.AuthorOverride}
	rec := metadata.Assemble(isbn13, selected, genreLabels, facts, bio, overrides)
	return rec, cover, nil
}

// gatherCandidates queries both sources. Google Books falls back to a
// title search when the ISBN lookup finds nothing and a title is known.
// A source that fails is logged and skipped; losing one source must not
// abort the ingest while the other can still produce candidates.
func gatherCandidates(ctx context.Context, gb *googlebooks.Client, ol *openlibrary.Client, isbn13 string, opts Options) []*metadata.Candidate {
	lang := config.PreferredLanguage

	candidates, err := gb.FetchByISBN(ctx, isbn13, lang)
	if err != nil {
		slog.Warn("Google Books lookup failed, continuing without it", "isbn", isbn13, "error", err)
		candidates = nil
	}
	if len(candidates) == 0 && opts.TitleOverride != "" {
		found, err := gb.FetchByTitle(ctx, opts.TitleOverride, opts.AuthorOverride, lang)
		if err != nil {
			slog.Warn("Google Books title search failed, continuing without it", "title", opts.TitleOverride, "error", err)
		} else {
			candidates = found
		}
	}

	olCandidate, err := ol.FetchByISBN(ctx, isbn13)
	if err != nil {
		slog.Warn("OpenLibrary lookup failed, continuing without it", "isbn", isbn13, "error", err)
	} else if olCandidate != nil {
		candidates = append(candidates, olCandidate)
	}
	return candidates
}

// resolveGenres maps the selected candidate's categories, falling back
// to the OpenLibrary work subjects when the candidate carries none.
func resolveGenres(ctx context.Context, ol *openlibrary.Client, selected *metadata.Candidate, isbn13 string) ([]string, error) {
	mapper, err := genres.NewMapper()
	if err != nil {
		return nil, err
	}

	var categories []string
	if selected != nil {
		categories = selected.Categories
	}
	labels := mapper.MapToSpanish(categories)
	if len(labels) > 0 {
		return labels, nil
	}

	subjects, err := ol.WorkSubjects(ctx, isbn13)
	if err != nil {
		slog.Warn("Work subject lookup failed", "isbn", isbn13, "error", err)
		return labels, nil
	}
	return mapper.MapToSpanish(subjects), nil
}

// maybeTranslate converts a synopsis into the preferred language when
// the source edition is in another one.
func maybeTranslate(ctx context.Context, synopsis, sourceLang string) string {
	target := config.PreferredLanguage
	if synopsis == "" || sourceLang == "" || sourceLang == target {
		return synopsis
	}
	translator := newTranslator()
	if !translator.Enabled() {
		return synopsis
	}
	return translator.Translate(ctx, synopsis, sourceLang, target)
}

// persist writes the record to the catalog and the binary artifacts to
// the object store.
func persist(catalog datastore.Catalog, rec metadata.Record, cover []byte, opts Options) error {
	if err := catalog.UpsertBook(rec); err != nil {
		return err
	}

	store, err := openStore(opts.StorageDir)
	if err != nil {
		return err
	}
	if len(cover) > 0 {
		if err := store.Put(objectstore.CoverKey(rec.ISBN), cover); err != nil {
			return err
		}
	}
	if opts.DocumentPath != "" {
		data, err := os.ReadFile(opts.DocumentPath)
		if err != nil {
			return fmt.Errorf("reading source document: %w", err)
		}
		if err := store.Put(objectstore.DocumentKey(rec.ISBN), data); err != nil {
			return err
		}
	}
	return nil
}

var recordOut io.Writer = os.Stdout

func printRecord(rec metadata.Record) error {
	enc := json.NewEncoder(recordOut)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}
