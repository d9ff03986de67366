package librarything

import (
	"encoding/xml"
	"io"
	"strings"
)

const (
	fieldCharacters = "characternames"
	fieldPlaces     = "placesmentioned"
)

// parseWorkXML extracts the character and place fact lists from a
// librarything.ck.getwork response. The document nests fields under
// ltml/item/commonknowledge/fieldList; rather than mirror that whole
// hierarchy we walk the tokens and collect <fact> text under whichever
// <field name="..."> we are inside. Order within each list is preserved.
func parseWorkXML(r io.Reader) (characters, places []string, err error) {
	dec := xml.NewDecoder(r)

	var currentField string
	var inFact bool
	var factText strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "field":
				currentField = attrValue(t, "name")
			case "fact":
				inFact = true
				factText.Reset()
			}
		case xml.CharData:
			if inFact {
				factText.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "fact":
				inFact = false
				text := strings.TrimSpace(factText.String())
				if text == "" {
					break
				}
				switch currentField {
				case fieldCharacters:
					characters = append(characters, text)
				case fieldPlaces:
					places = append(places, text)
				}
			case "field":
				currentField = ""
			}
		}
	}
	return characters, places, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
