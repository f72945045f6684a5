package plex

// Pin mirrors the payload returned by POST /pins and GET /pins/{id}.
// AuthToken stays empty until the user approves the code out of band.
type Pin struct {
	ID        uint64 `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
	ExpiresIn int    `json:"expiresIn"`
}

// Authenticated reports whether the pin carries a user token.
func (p Pin) Authenticated() bool {
	return p.AuthToken != ""
}

// Resource is a server advertised by /resources.
type Resource struct {
	Name        string       `json:"name"`
	Connections []Connection `json:"connections"`
}

// Connection is one candidate endpoint for a Resource.
type Connection struct {
	URI string `json:"uri"`
}

// Library is a section entry from {server}/library/sections/.
type Library struct {
	Title     string `json:"title"`
	Key       string `json:"key"`
	MediaType string `json:"type"`
}

// Album is an album-kind metadata entry. RatingKey is its identity; the
// remaining fields are descriptive and replaced on refresh.
type Album struct {
	RatingKey   string `json:"ratingKey"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	ParentTitle string `json:"parentTitle"`
	Thumb       string `json:"thumb"`
	Year        int    `json:"year,omitempty"`
	Index       int    `json:"index"`
}

// Author returns the album's parent title, which Plex uses for the artist.
func (a Album) Author() string {
	return a.ParentTitle
}

type librarySectionsResponse struct {
	MediaContainer *struct {
		Directory *[]Library `json:"Directory"`
	} `json:"MediaContainer"`
}

type albumListResponse struct {
	MediaContainer *struct {
		Metadata *[]Album `json:"Metadata"`
	} `json:"MediaContainer"`
}
