// Package genres normalizes free-form category and subject labels into a
// fixed canonical taxonomy of Spanish genre names.
package genres

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/avelardo/librario/internal/textutil"
)

// DefaultMax is the number of canonical labels kept per book.
const DefaultMax = 3

var splitPattern = regexp.MustCompile(`[/;,–—-]+`)

// entry is one raw-vocabulary key and its canonical label. The table is a
// slice, not a map: the substring fallback scan must be deterministic.
type entry struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// defaultTable reproduces the curated source-vocabulary mapping. Keys are
// lowercase; longer keys are listed before their prefixes so the substring
// fallback prefers the most specific match.
var defaultTable = []entry{
	{"biography & autobiography", "Biografía y autobiografía"},
	{"comics & graphic novels", "Cómic y novela gráfica"},
	{"imaginary wars and battles", "Guerras y batallas imaginarias"},
	{"life on other planets", "Vida en otros planetas"},
	{"new york times bestseller", "Best seller NYT"},
	{"science fiction", "Ciencia ficción"},
	{"literary criticism", "Crítica literaria"},
	{"epic fantasy", "Fantasía épica"},
	{"high fantasy", "Alta fantasía"},
	{"young adult", "Juvenil"},
	{"sci-fi", "Ciencia ficción"},
	{"thrillers", "Suspenso"},
	{"thriller", "Suspenso"},
	{"biography", "Biografía"},
	{"philosophy", "Filosofía"},
	{"fantasy", "Fantasía"},
	{"fiction", "Ficción"},
	{"history", "Historia"},
	{"mystery", "Misterio"},
	{"romance", "Romance"},
	{"religion", "Religión"},
	{"horror", "Terror"},
	{"poetry", "Poesía"},
	{"magic", "Magia"},
	{"epic", "Épica"},
}

// Mapper maps raw category labels to the canonical taxonomy.
type Mapper struct {
	table  []entry
	lookup map[string]string
	max    int
}

// NewMapper builds a Mapper from the compiled-in table, the optional
// mapping file named by the genres.mapping config key, and the genres.max
// cap (default 3).
func NewMapper() (*Mapper, error) {
	table := defaultTable
	if path := viper.GetString("genres.mapping"); path != "" {
		loaded, err := loadTable(path)
		if err != nil {
			return nil, err
		}
		table = loaded
	}

	max := viper.GetInt("genres.max")
	if max <= 0 {
		max = DefaultMax
	}

	lookup := make(map[string]string, len(table))
	for _, e := range table {
		lookup[e.Key] = e.Label
	}
	return &Mapper{table: table, lookup: lookup, max: max}, nil
}

// loadTable reads a yaml mapping file of {key, label} entries.
func loadTable(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genre mapping file: %w", err)
	}
	var table []entry
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing genre mapping file %s: %w", path, err)
	}
	for i := range table {
		table[i].Key = strings.ToLower(strings.TrimSpace(table[i].Key))
	}
	return table, nil
}

// MapToSpanish maps raw category labels to canonical Spanish genre labels.
// Labels are split into tokens on slash, comma, semicolon and dash runs;
// each token is looked up exactly, then by the science-fiction word pair,
// then by substring against the table in declaration order. Tokens with no
// mapping are dropped: the taxonomy is closed. The result is deduplicated
// in order of first appearance and capped at the configured maximum.
func (m *Mapper) MapToSpanish(raw []string) []string {
	var mapped []string
	for _, label := range raw {
		for _, token := range splitPattern.Split(label, -1) {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if canonical, ok := m.mapToken(strings.ToLower(token)); ok {
				mapped = append(mapped, canonical)
			}
		}
	}

	mapped = textutil.Dedup(mapped)
	if len(mapped) > m.max {
		mapped = mapped[:m.max]
	}
	return mapped
}

func (m *Mapper) mapToken(low string) (string, bool) {
	if label, ok := m.lookup[low]; ok {
		return label, true
	}

	words := strings.Fields(low)
	if containsWord(words, "science") && containsWord(words, "fiction") {
		return m.lookup["science fiction"], m.lookup["science fiction"] != ""
	}

	for _, e := range m.table {
		if strings.Contains(low, e.Key) {
			return e.Label, true
		}
	}
	return "", false
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}
