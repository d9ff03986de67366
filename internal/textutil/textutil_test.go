package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"entity and paragraph", "<p>Hola &amp; mundo</p>", "Hola & mundo"},
		{"empty", "", ""},
		{"plain text untouched", "Hola mundo", "Hola mundo"},
		{"br becomes separator", "uno<br/>dos<BR >tres", "uno dos tres"},
		{"nested markup", "<div><b>El</b> <i>camino</i></div>", "El camino"},
		{"whitespace collapsed", "  mucho \t espacio \n aqui  ", "mucho espacio aqui"},
		{"numeric entity", "caf&#233; con leche", "café con leche"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripHTML(tt.input))
		})
	}
}

func TestStripHTMLIdempotent(t *testing.T) {
	inputs := []string{
		"<p>Hola &amp; mundo</p>",
		"plain text",
		"<b>bold</b> and <i>italic</i>",
		"   spaced   out   ",
		"",
	}
	for _, in := range inputs {
		once := StripHTML(in)
		require.Equal(t, once, StripHTML(once), "input %q", in)
	}
}

func TestDedup(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, Dedup([]string{"a", "b", "a", "c", "b"}))
}

func TestDedupKeepsFirstOccurrenceForm(t *testing.T) {
	// Comparison is exact-string: case variants are distinct values.
	got := Dedup([]string{"Kaladin", "kaladin", "Kaladin "})
	require.Equal(t, []string{"Kaladin", "kaladin", "Kaladin "}, got)
}

func TestDedupEmpty(t *testing.T) {
	require.Empty(t, Dedup(nil))
	require.Empty(t, Dedup([]string{}))
}
