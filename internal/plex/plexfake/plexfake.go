// Package plexfake provides a deterministic in-memory plex.Service.
package plexfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/five82/audioshelf/internal/plex"
)

// Operation names accepted by Fail and Calls.
const (
	OpGeneratePin = "GeneratePin"
	OpCheckPin    = "CheckPin"
	OpResources   = "Resources"
	OpLibraries   = "Libraries"
	OpAlbums      = "Albums"
	OpProbe       = "Probe"
)

// Server is a scriptable plex.Service. The zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	pin          plex.Pin
	approveAfter int
	checks       int
	token        string

	resources []plex.Resource
	libraries map[string][]plex.Library
	albums    map[string][]plex.Album
	latency   map[string]time.Duration

	failures map[string]error
	calls    map[string]int
	identity plex.Identity
}

var _ plex.Service = (*Server)(nil)

// New returns an empty fake that issues pin {ID: 1, Code: "ABCD"}.
func New() *Server {
	return &Server{
		pin:          plex.Pin{ID: 1, Code: "ABCD"},
		approveAfter: -1,
		libraries:    make(map[string][]plex.Library),
		albums:       make(map[string][]plex.Album),
		latency:      make(map[string]time.Duration),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
}

// SetPin sets the pin returned by GeneratePin.
func (s *Server) SetPin(pin plex.Pin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pin = pin
}

// Approve makes every following CheckPin return token.
func (s *Server) Approve(token string) {
	s.ApproveAfter(0, token)
}

// ApproveAfter makes CheckPin return token once it has been called more than
// polls times.
func (s *Server) ApproveAfter(polls int, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approveAfter = polls
	s.checks = 0
	s.token = token
}

// AddResource registers a server. Connections listed in reachable answer
// probes after the given latency; all others never answer.
func (s *Server) AddResource(res plex.Resource, reachable map[string]time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, res)
	for uri, d := range reachable {
		s.latency[uri] = d
	}
}

// SetLibraries sets the sections served at serverURI.
func (s *Server) SetLibraries(serverURI string, libs []plex.Library) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.libraries[serverURI] = libs
}

// SetAlbums sets the albums of the section with libraryKey.
func (s *Server) SetAlbums(libraryKey string, albums []plex.Album) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums[libraryKey] = albums
}

// Fail makes op return err until cleared with a nil err.
func (s *Server) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Identity returns the identity most recently set by the caller.
func (s *Server) Identity() plex.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SetIdentity implements plex.Service.
func (s *Server) SetIdentity(id plex.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// GeneratePin implements plex.Service.
func (s *Server) GeneratePin(context.Context) (plex.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpGeneratePin); err != nil {
		return plex.Pin{}, err
	}
	s.checks = 0
	return s.pin, nil
}

// CheckPin implements plex.Service.
func (s *Server) CheckPin(_ context.Context, id uint64) (plex.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpCheckPin); err != nil {
		return plex.Pin{}, err
	}
	if id != s.pin.ID {
		return plex.Pin{}, fmt.Errorf("%w: GET /pins/%d returned status 404", plex.ErrNetwork, id)
	}
	s.checks++
	pin := s.pin
	if s.approveAfter >= 0 && s.checks > s.approveAfter {
		pin.AuthToken = s.token
	}
	return pin, nil
}

// Resources implements plex.Service.
func (s *Server) Resources(context.Context) ([]plex.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpResources); err != nil {
		return nil, err
	}
	out := make([]plex.Resource, len(s.resources))
	copy(out, s.resources)
	return out, nil
}

// Libraries implements plex.Service.
func (s *Server) Libraries(_ context.Context, serverURI string) ([]plex.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpLibraries); err != nil {
		return nil, err
	}
	libs, ok := s.libraries[serverURI]
	if !ok {
		return nil, fmt.Errorf("%w: media container not found", plex.ErrMalformedResponse)
	}
	return append(make([]plex.Library, 0, len(libs)), libs...), nil
}

// Albums implements plex.Service.
func (s *Server) Albums(_ context.Context, _ string, libraryKey string) ([]plex.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(OpAlbums); err != nil {
		return nil, err
	}
	albums, ok := s.albums[libraryKey]
	if !ok {
		return nil, fmt.Errorf("%w: media container not found", plex.ErrMalformedResponse)
	}
	return append(make([]plex.Album, 0, len(albums)), albums...), nil
}

// Probe implements plex.Service. Reachable URIs answer after their
// configured latency unless ctx is cancelled first.
func (s *Server) Probe(ctx context.Context, uri string) bool {
	s.mu.Lock()
	err := s.record(OpProbe)
	latency, ok := s.latency[uri]
	s.mu.Unlock()
	if err != nil || !ok {
		return false
	}
	if latency <= 0 {
		return true
	}
	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Server) record(op string) error {
	s.calls[op]++
	return s.failures[op]
}
