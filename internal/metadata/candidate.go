// Package metadata holds the record types of the reconciliation pipeline
// and the logic that turns multi-source candidates into one canonical
// outward record.
package metadata

// Candidate is a source-tagged metadata snapshot for one work. Candidates
// are never mutated after creation; selection only reads them.
type Candidate struct {
	// Source is the human-readable name of the origin (e.g. "GoogleBooks").
	Source string

	// Priority ranks the origin when completeness ties; higher wins.
	Priority int

	Title    string
	Author   string
	Synopsis string

	// Categories are the raw, unnormalized category/subject labels.
	Categories []string

	// Language is the language code reported by the source, if any.
	Language string

	// ISBN13s are validated ISBN-13 identifiers the source attached to
	// this work, in source order.
	ISBN13s []string

	PublishedDate string
}

// Completeness counts the populated required fields (title, author,
// synopsis). It is the first tier of the selection order.
func (c *Candidate) Completeness() int {
	n := 0
	if c.Title != "" {
		n++
	}
	if c.Author != "" {
		n++
	}
	if c.Synopsis != "" {
		n++
	}
	return n
}

// Facts are the best-effort auxiliary facts for a work: character names
// and place mentions, each deduplicated and capped upstream.
type Facts struct {
	Characters []string `json:"characters"`
	Places     []string `json:"places"`
}

// Empty reports whether no facts were gathered.
func (f Facts) Empty() bool {
	return len(f.Characters) == 0 && len(f.Places) == 0
}

// Overrides are caller-supplied field values that unconditionally replace
// the reconciled ones.
type Overrides struct {
	Title  string
	Author string
}

// Record is the assembled outward-facing result of one ingest.
type Record struct {
	ISBN              string   `json:"isbn"`
	Title             string   `json:"title"`
	Author            string   `json:"author"`
	AuthorDescription string   `json:"author_description,omitempty"`
	Synopsis          string   `json:"synopsis"`
	Genres            []string `json:"genres"`
	Characters        []string `json:"characters"`
	Places            []string `json:"places"`
	OverridesApplied  []string `json:"overrides_applied,omitempty"`
}
