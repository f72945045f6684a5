package plex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNetwork marks transport failures and error statuses.
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse marks bodies that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	errLibraryKeyRequired = errors.New("library key required")
)

// Service is the capability the session engine needs from Plex.
// *Client implements it against the real API; plexfake.Server is the
// deterministic double used by tests and the --fake flag.
type Service interface {
	GeneratePin(ctx context.Context) (Pin, error)
	CheckPin(ctx context.Context, id uint64) (Pin, error)
	Resources(ctx context.Context) ([]Resource, error)
	Libraries(ctx context.Context, serverURI string) ([]Library, error)
	Albums(ctx context.Context, serverURI, libraryKey string) ([]Album, error)
	Probe(ctx context.Context, uri string) bool
	SetIdentity(id Identity)
}

// Ensure Client implements Service at compile time.
var _ Service = (*Client)(nil)

// Identity is the set of identifiers sent with every request.
type Identity struct {
	ClientID  string
	SessionID string
	Token     string
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	Product    string
	Version    string
	Identity   Identity
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to plex.tv and to individual Plex servers.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	product string
	version string
	log     zerolog.Logger

	mu       sync.RWMutex
	identity Identity
}

const (
	DefaultBaseURL  = "https://plex.tv/api/v2"
	defaultProduct  = "audioshelf"
	defaultVersion  = "0.1.0"
	requestTimeout  = 5 * time.Second
	albumTypeFilter = "9"
)

// NewClient builds a Client for the given plex.tv API base.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	product := strings.TrimSpace(opts.Product)
	if product == "" {
		product = defaultProduct
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = defaultVersion
	}
	return &Client{
		baseURL:  base,
		http:     httpClient,
		product:  product,
		version:  version,
		log:      opts.Logger,
		identity: opts.Identity,
	}, nil
}

// SetIdentity replaces the identifiers attached to subsequent requests.
func (c *Client) SetIdentity(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

// GeneratePin issues a new pairing code.
func (c *Client) GeneratePin(ctx context.Context) (Pin, error) {
	var pin Pin
	if err := c.doURL(ctx, http.MethodPost, c.apiURL("/pins"), &pin); err != nil {
		return Pin{}, err
	}
	c.log.Debug().Uint64("pin_id", pin.ID).Msg("generated pin")
	return pin, nil
}

// CheckPin polls the pairing status of the pin with the given id.
func (c *Client) CheckPin(ctx context.Context, id uint64) (Pin, error) {
	var pin Pin
	rel := "/pins/" + strconv.FormatUint(id, 10)
	if err := c.doURL(ctx, http.MethodGet, c.apiURL(rel), &pin); err != nil {
		return Pin{}, err
	}
	return pin, nil
}

// Resources lists the servers available to the signed-in user.
func (c *Client) Resources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	if err := c.doURL(ctx, http.MethodGet, c.apiURL("/resources"), &resources); err != nil {
		return nil, err
	}
	c.log.Debug().Int("count", len(resources)).Msg("retrieved resources")
	return resources, nil
}

// Libraries lists the sections of the server at serverURI.
func (c *Client) Libraries(ctx context.Context, serverURI string) ([]Library, error) {
	reqURL, err := serverURL(serverURI, "/library/sections/", nil)
	if err != nil {
		return nil, err
	}
	var payload librarySectionsResponse
	if err := c.doURL(ctx, http.MethodGet, reqURL, &payload); err != nil {
		return nil, err
	}
	if payload.MediaContainer == nil {
		return nil, fmt.Errorf("%w: media container not found", ErrMalformedResponse)
	}
	// Plex omits Directory when the server has no sections.
	if payload.MediaContainer.Directory == nil {
		return []Library{}, nil
	}
	return *payload.MediaContainer.Directory, nil
}

// Albums lists the album-kind entries of a library section.
func (c *Client) Albums(ctx context.Context, serverURI, libraryKey string) ([]Album, error) {
	if strings.TrimSpace(libraryKey) == "" {
		return nil, errLibraryKeyRequired
	}
	query := url.Values{}
	query.Set("type", albumTypeFilter)
	reqURL, err := serverURL(serverURI, "/library/sections/"+url.PathEscape(libraryKey)+"/all", query)
	if err != nil {
		return nil, err
	}
	var payload albumListResponse
	if err := c.doURL(ctx, http.MethodGet, reqURL, &payload); err != nil {
		return nil, err
	}
	if payload.MediaContainer == nil {
		return nil, fmt.Errorf("%w: media container not found", ErrMalformedResponse)
	}
	albums := []Album{}
	// Metadata is omitted for an empty section.
	if payload.MediaContainer.Metadata != nil {
		albums = *payload.MediaContainer.Metadata
	}
	c.log.Debug().Int("count", len(albums)).Str("library", libraryKey).Msg("retrieved albums")
	return albums, nil
}

// Probe reports whether the endpoint answered at all. The status code and
// payload are ignored.
func (c *Client) Probe(ctx context.Context, uri string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return false
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("uri", uri).Err(err).Msg("probe failed")
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return true
}

func (c *Client) apiURL(rel string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + rel
	return u.String()
}

func (c *Client) doURL(ctx context.Context, method, reqURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s %s returned status %d", ErrNetwork, method, req.URL.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	c.mu.RLock()
	id := c.identity
	c.mu.RUnlock()

	h := req.Header
	h.Set("Accept", "application/json")
	h.Set("X-Plex-Provides", "player")
	h.Set("X-Plex-Platform", runtime.GOOS)
	h.Set("X-Plex-Platform-Version", runtime.GOARCH)
	h.Set("X-Plex-Product", c.product)
	h.Set("X-Plex-Client-Name", c.product)
	h.Set("X-Plex-Version", c.version)
	h.Set("X-Plex-Client-Identifier", id.ClientID)
	h.Set("X-Plex-Session-Identifier", id.SessionID)
	if id.Token != "" {
		h.Set("X-Plex-Token", id.Token)
	}
}

func serverURL(serverURI, path string, query url.Values) (string, error) {
	trimmed := strings.TrimSpace(serverURI)
	if trimmed == "" {
		return "", fmt.Errorf("server uri required")
	}
	u, err := url.Parse(strings.TrimSuffix(trimmed, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server uri %q: %w", serverURI, err)
	}
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse plex url %q: %w", raw, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
