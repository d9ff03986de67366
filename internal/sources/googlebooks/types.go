package googlebooks

type volumesResponse struct {
	Items []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Description         string               `json:"description"`
	Categories          []string             `json:"categories"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	Language            string               `json:"language"`
	PublishedDate       string               `json:"publishedDate"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}
