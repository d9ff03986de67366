package metadata

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/stretchr/testify/require"
)

func TestAssembleStripsMarkup(t *testing.T) {
	selected := &Candidate{
		Title:    "<b>El camino de los reyes</b>",
		Author:   "Brandon Sanderson",
		Synopsis: "<p>La guerra &amp; la tormenta</p>",
	}

	rec := Assemble("9780306406157", selected, []string{"Fantasía"}, Facts{}, "", Overrides{})

	require.Equal(t, "El camino de los reyes", rec.Title)
	require.Equal(t, "Brandon Sanderson", rec.Author)
	require.Equal(t, "La guerra & la tormenta", rec.Synopsis)
	require.Equal(t, []string{"Fantasía"}, rec.Genres)
	require.Empty(t, rec.OverridesApplied)
}

func TestAssembleOverridesWinLast(t *testing.T) {
	selected := &Candidate{Title: "Detected Title", Author: "Detected Author"}
	ov := Overrides{Title: "Titulo provisional", Author: "Autor provisional"}

	rec := Assemble("9780306406157", selected, nil, Facts{}, "", ov)

	require.Equal(t, "Titulo provisional", rec.Title)
	require.Equal(t, "Autor provisional", rec.Author)
	require.Equal(t, []string{"title", "author"}, rec.OverridesApplied)
}

func TestAssembleNilCandidate(t *testing.T) {
	facts := Facts{Characters: []string{"Kaladin"}, Places: []string{"Roshar"}}
	rec := Assemble("9780306406157", nil, nil, facts, "", Overrides{Title: "Solo titulo"})

	assert.Equal(t, "Solo titulo", rec.Title)
	assert.Equal(t, "", rec.Author)
	assert.Equal(t, "", rec.Synopsis)
	require.Equal(t, []string{"Kaladin"}, rec.Characters)
	require.Equal(t, []string{"Roshar"}, rec.Places)
	require.Equal(t, []string{"title"}, rec.OverridesApplied)
}

func TestAssembleEmptySlicesNotNil(t *testing.T) {
	rec := Assemble("9780306406157", nil, nil, Facts{}, "", Overrides{})
	require.NotNil(t, rec.Genres)
	require.NotNil(t, rec.Characters)
	require.NotNil(t, rec.Places)
}

func TestAssembleAuthorBio(t *testing.T) {
	rec := Assemble("9780306406157", nil, nil, Facts{}, "<p>Escritor estadounidense</p>", Overrides{})
	require.Equal(t, "Escritor estadounidense", rec.AuthorDescription)
}

func TestFactsEmpty(t *testing.T) {
	require.True(t, Facts{}.Empty())
	require.False(t, Facts{Characters: []string{"x"}}.Empty())
	require.False(t, Facts{Places: []string{"y"}}.Empty())
}
