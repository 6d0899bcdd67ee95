// Package catalog reads movie listings from a TMDB-compatible API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"

	"github.com/splax/moviegate/internal/domain"
)

// ErrNotFound indicates the upstream has no such movie.
var ErrNotFound = errors.New("catalog: not found")

const (
	defaultLanguage = "en-US"
	requestTimeout  = 10 * time.Second
)

// Client queries the upstream movie database.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, bypassing the response cache.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs a Client. Responses are cached on disk under cacheDir, or in
// memory when cacheDir is empty, honouring upstream Cache-Control headers.
func New(baseURL, token, cacheDir string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: newCachingHTTPClient(cacheDir),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newCachingHTTPClient(cacheDir string) *http.Client {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}
	return &http.Client{Transport: httpcache.NewTransport(cache), Timeout: requestTimeout}
}

type listResponse struct {
	Page         int            `json:"page"`
	Results      []domain.Movie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Popular lists popular movies.
func (c *Client) Popular(ctx context.Context, page int) (domain.MoviePage, error) {
	return c.list(ctx, "/movie/popular", page, nil)
}

// TopRated lists the highest rated movies.
func (c *Client) TopRated(ctx context.Context, page int) (domain.MoviePage, error) {
	return c.list(ctx, "/movie/top_rated", page, nil)
}

// Search finds movies matching query.
func (c *Client) Search(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.EmptyMoviePage(), nil
	}
	return c.list(ctx, "/search/movie", page, url.Values{
		"query":         {query},
		"include_adult": {"false"},
	})
}

// Details fetches one movie.
func (c *Client) Details(ctx context.Context, id int64) (*domain.MovieDetail, error) {
	var detail domain.MovieDetail
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Credits fetches cast and crew for one movie.
func (c *Client) Credits(ctx context.Context, id int64) (*domain.Credits, error) {
	var credits domain.Credits
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10)+"/credits", nil, &credits); err != nil {
		return nil, err
	}
	if credits.Cast == nil {
		credits.Cast = []domain.CastMember{}
	}
	if credits.Crew == nil {
		credits.Crew = []domain.CrewMember{}
	}
	return &credits, nil
}

func (c *Client) list(ctx context.Context, path string, page int, params url.Values) (domain.MoviePage, error) {
	if page < 1 {
		page = 1
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("page", strconv.Itoa(page))

	var resp listResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return domain.EmptyMoviePage(), err
	}
	out := domain.MoviePage{
		Results:      resp.Results,
		Page:         resp.Page,
		TotalPages:   resp.TotalPages,
		TotalResults: resp.TotalResults,
	}
	if out.Results == nil {
		out.Results = []domain.Movie{}
	}
	if out.Page < 1 {
		out.Page = page
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	out.HasNext = out.Page < out.TotalPages
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if c.baseURL == "" {
		return errors.New("catalog: base url not configured")
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", defaultLanguage)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.logger.Debug("catalog cache hit", "path", path)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	// The cache only stores bodies that were read to EOF.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
