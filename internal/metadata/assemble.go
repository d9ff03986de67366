package metadata

import "github.com/avelardo/librario/internal/textutil"

// Assemble merges the selected candidate, the normalized genre set, the
// auxiliary facts, the author bio and the caller-supplied overrides into
// the final record. Precedence is lowest to highest: candidate fields
// (HTML-stripped where textual), then overrides, which always win and are
// noted in OverridesApplied. Pure assembly: no I/O, never fails; a nil
// candidate just leaves the upstream fields empty.
func Assemble(isbn13 string, selected *Candidate, genres []string, facts Facts, authorBio string, ov Overrides) Record {
	rec := Record{
		ISBN:       isbn13,
		Genres:     genres,
		Characters: facts.Characters,
		Places:     facts.Places,
	}
	if rec.Genres == nil {
		rec.Genres = []string{}
	}
	if rec.Characters == nil {
		rec.Characters = []string{}
	}
	if rec.Places == nil {
		rec.Places = []string{}
	}

	if selected != nil {
		rec.Title = textutil.StripHTML(selected.Title)
		rec.Author = textutil.StripHTML(selected.Author)
		rec.Synopsis = textutil.StripHTML(selected.Synopsis)
	}
	rec.AuthorDescription = textutil.StripHTML(authorBio)

	if ov.Title != "" {
		rec.Title = ov.Title
		rec.OverridesApplied = append(rec.OverridesApplied, "title")
	}
	if ov.Author != "" {
		rec.Author = ov.Author
		rec.OverridesApplied = append(rec.OverridesApplied, "author")
	}
	return rec
}
