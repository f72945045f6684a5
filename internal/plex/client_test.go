package plex

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL string, id Identity) *Client {
	t.Helper()
	c, err := NewClient(Options{BaseURL: baseURL, Identity: id, Product: "audioshelf", Version: "1.2.3"})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != DefaultBaseURL {
		t.Fatalf("base = %q, want %q", u.String(), DefaultBaseURL)
	}

	u, err = parseBaseURL("plex.example.com/api/v2/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" || u.Path != "/api/v2" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_PinsAndResources(t *testing.T) {
	t.Parallel()

	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v2/pins":
			gotMethod = r.Method
			_, _ = w.Write([]byte(`{"id":1,"code":"ABCD","authToken":null,"expiresIn":900}`))
		case "/api/v2/pins/1":
			_, _ = w.Write([]byte(`{"id":1,"code":"ABCD","authToken":"T1"}`))
		case "/api/v2/resources":
			_ = json.NewEncoder(w).Encode([]Resource{{Name: "Home", Connections: []Connection{{URI: "http://a"}, {URI: "http://b"}}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL+"/api/v2", Identity{ClientID: "client", SessionID: "session"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	pin, err := c.GeneratePin(ctx)
	if err != nil {
		t.Fatalf("GeneratePin returned error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("GeneratePin method = %q, want POST", gotMethod)
	}
	if pin.ID != 1 || pin.Code != "ABCD" || pin.Authenticated() || pin.ExpiresIn != 900 {
		t.Fatalf("GeneratePin = %#v, want id=1 code=ABCD without token", pin)
	}

	pin, err = c.CheckPin(ctx, 1)
	if err != nil {
		t.Fatalf("CheckPin returned error: %v", err)
	}
	if pin.AuthToken != "T1" {
		t.Fatalf("CheckPin token = %q, want T1", pin.AuthToken)
	}

	resources, err := c.Resources(ctx)
	if err != nil {
		t.Fatalf("Resources returned error: %v", err)
	}
	if len(resources) != 1 || resources[0].Name != "Home" || len(resources[0].Connections) != 2 {
		t.Fatalf("Resources = %#v, want Home with 2 connections", resources)
	}
}

func TestClient_SendsIdentificationHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Identity{ClientID: "client-1", SessionID: "session-1"})
	if _, err := c.Resources(context.Background()); err != nil {
		t.Fatalf("Resources returned error: %v", err)
	}

	want := map[string]string{
		"Accept":                    "application/json",
		"X-Plex-Provides":           "player",
		"X-Plex-Platform":           runtime.GOOS,
		"X-Plex-Platform-Version":   runtime.GOARCH,
		"X-Plex-Product":            "audioshelf",
		"X-Plex-Version":            "1.2.3",
		"X-Plex-Client-Identifier":  "client-1",
		"X-Plex-Session-Identifier": "session-1",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("header %s = %q, want %q", k, got.Get(k), v)
		}
	}
	if got.Get("X-Plex-Token") != "" {
		t.Fatalf("X-Plex-Token = %q, want it absent before sign-in", got.Get("X-Plex-Token"))
	}

	c.SetIdentity(Identity{ClientID: "client-1", SessionID: "session-2", Token: "T1"})
	if _, err := c.Resources(context.Background()); err != nil {
		t.Fatalf("Resources returned error: %v", err)
	}
	if got.Get("X-Plex-Token") != "T1" || got.Get("X-Plex-Session-Identifier") != "session-2" {
		t.Fatalf("headers after SetIdentity = %v, want token T1 and session-2", got)
	}
}

func TestClient_LibrariesAndAlbums(t *testing.T) {
	t.Parallel()

	var albumQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/sections/":
			_, _ = w.Write([]byte(`{"MediaContainer":{"Directory":[{"title":"Audiobooks","key":"7","type":"artist"}]}}`))
		case "/library/sections/7/all":
			albumQuery = r.URL.Query().Get("type")
			_, _ = w.Write([]byte(`{"MediaContainer":{"Metadata":[
				{"ratingKey":"1001","title":"The Hobbit","parentTitle":"Tolkien","thumb":"/thumb/1001","year":1937,"index":1},
				{"ratingKey":"1002","title":"Untitled"}
			]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, "", Identity{})

	libs, err := c.Libraries(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("Libraries returned error: %v", err)
	}
	if len(libs) != 1 || libs[0] != (Library{Title: "Audiobooks", Key: "7", MediaType: "artist"}) {
		t.Fatalf("Libraries = %#v", libs)
	}

	albums, err := c.Albums(context.Background(), server.URL, "7")
	if err != nil {
		t.Fatalf("Albums returned error: %v", err)
	}
	if albumQuery != "9" {
		t.Fatalf("type query = %q, want 9", albumQuery)
	}
	if len(albums) != 2 || albums[0].Author() != "Tolkien" || albums[0].Year != 1937 || albums[1].Year != 0 {
		t.Fatalf("Albums = %#v", albums)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pins":
			_, _ = w.Write([]byte("{not-json"))
		case "/resources":
			http.Error(w, "nope", http.StatusUnauthorized)
		case "/library/sections/":
			_, _ = w.Write([]byte(`{}`))
		case "/library/sections/1/all":
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Identity{})
	ctx := context.Background()

	if _, err := c.GeneratePin(ctx); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("GeneratePin error = %v, want ErrMalformedResponse", err)
	}
	if _, err := c.Resources(ctx); !errors.Is(err, ErrNetwork) {
		t.Fatalf("Resources error = %v, want ErrNetwork", err)
	}
	if _, err := c.Libraries(ctx, server.URL); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Libraries error = %v, want ErrMalformedResponse", err)
	}
	if _, err := c.Albums(ctx, server.URL, "1"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Albums error = %v, want ErrMalformedResponse", err)
	}

	down := newTestClient(t, "http://127.0.0.1:1", Identity{})
	if _, err := down.CheckPin(ctx, 5); !errors.Is(err, ErrNetwork) {
		t.Fatalf("CheckPin error = %v, want ErrNetwork", err)
	}
}

func TestClient_EmptySectionsAreNotErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/sections/", "/library/sections/4/all":
			_, _ = w.Write([]byte(`{"MediaContainer":{"size":0}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, server.URL, Identity{})
	ctx := context.Background()

	libs, err := c.Libraries(ctx, server.URL)
	if err != nil {
		t.Fatalf("Libraries error = %v, want nil", err)
	}
	if libs == nil || len(libs) != 0 {
		t.Fatalf("Libraries = %#v, want empty slice", libs)
	}

	albums, err := c.Albums(ctx, server.URL, "4")
	if err != nil {
		t.Fatalf("Albums error = %v, want nil", err)
	}
	if albums == nil || len(albums) != 0 {
		t.Fatalf("Albums = %#v, want empty slice", albums)
	}

	if _, err := c.Albums(ctx, server.URL, " "); !errors.Is(err, errLibraryKeyRequired) {
		t.Fatalf("Albums blank key error = %v, want errLibraryKeyRequired", err)
	}
}

func TestClient_ProbeIgnoresStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	c := newTestClient(t, "", Identity{})
	if !c.Probe(context.Background(), server.URL) {
		t.Fatalf("Probe(%s) = false, want true for any answer", server.URL)
	}
	if c.Probe(context.Background(), "http://127.0.0.1:1") {
		t.Fatalf("Probe(closed port) = true, want false")
	}
}
