package plexfake

import (
	"time"

	"github.com/five82/audioshelf/internal/plex"
)

// Demo returns a fake populated with one server, one audiobook library and a
// handful of albums. The pin is approved on the second poll.
func Demo() *Server {
	s := New()
	s.SetPin(plex.Pin{ID: 4242, Code: "DEMO", ExpiresIn: 900})
	s.ApproveAfter(1, "demo-token")

	const lan = "http://192.168.1.20:32400"
	s.AddResource(plex.Resource{
		Name: "Home",
		Connections: []plex.Connection{
			{URI: "https://home.example.plex.direct:32400"},
			{URI: lan},
		},
	}, map[string]time.Duration{lan: 0})
	s.SetLibraries(lan, []plex.Library{
		{Title: "Audiobooks", Key: "7", MediaType: "artist"},
		{Title: "Music", Key: "3", MediaType: "artist"},
	})
	s.SetAlbums("7", []plex.Album{
		{RatingKey: "1001", Title: "The Hobbit", ParentTitle: "J. R. R. Tolkien", Thumb: "/library/metadata/1001/thumb/1", Year: 1937, Index: 1},
		{RatingKey: "1002", Title: "Dune", ParentTitle: "Frank Herbert", Thumb: "/library/metadata/1002/thumb/1", Year: 1965, Index: 1},
		{RatingKey: "1003", Title: "Neuromancer", ParentTitle: "William Gibson", Thumb: "/library/metadata/1003/thumb/1", Year: 1984, Index: 1},
	})
	s.SetAlbums("3", []plex.Album{})
	return s
}
