package openlibrary

import (
	"encoding/json"
	"strings"
)

type bookData struct {
	Title       string     `json:"title"`
	PublishDate string     `json:"publish_date"`
	Authors     []namedRef `json:"authors"`
	Subjects    []namedRef `json:"subjects"`
}

type namedRef struct {
	Name string `json:"name"`
}

type keyRef struct {
	Key string `json:"key"`
}

type edition struct {
	Title       string   `json:"title"`
	PublishDate string   `json:"publish_date"`
	Works       []keyRef `json:"works"`
	Languages   []keyRef `json:"languages"`
}

// workID extracts the bare work identifier from the edition's first
// linked work key, e.g. /works/OL8479867W yields OL8479867W.
func (e *edition) workID() string {
	if len(e.Works) == 0 {
		return ""
	}
	return strings.TrimPrefix(e.Works[0].Key, "/works/")
}

type work struct {
	Subjects    []string        `json:"subjects"`
	Description flexDescription `json:"description"`
}

// flexDescription absorbs the two shapes OpenLibrary uses for work
// descriptions: a bare string or a {"type", "value"} object.
type flexDescription struct {
	Value string `json:"value"`
}

func (d *flexDescription) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	d.Value = obj.Value
	return nil
}

// MarshalJSON keeps cached work records round-trippable through the
// string form.
func (d flexDescription) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Value)
}
