package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionCookieName matches the cookie the API issues.
const SessionCookieName = "session"

// Client provides typed access to the moviegate API for interactive tools.
// The session cookie is kept in a cookie jar, as a browser would.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A jar is attached when the
// client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	if cli.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		cli.httpClient.Jar = jar
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// User reflects API user payloads.
type User struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

// Movie is the subset of catalog fields the CLI displays.
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

// MoviePage is one page of movie results.
type MoviePage struct {
	Results    []Movie `json:"results"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	HasNext    bool    `json:"hasNext"`
}

type authResponse struct {
	OK   bool `json:"ok"`
	User User `json:"user"`
}

// Signup registers an account and stores the issued session.
func (c *Client) Signup(ctx context.Context, email, password string, name *string) (*User, error) {
	payload := map[string]any{"email": email, "password": password}
	if name != nil {
		payload["name"] = *name
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Login authenticates and stores the issued session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout clears the session on the server side and in the jar.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the current user, or nil when there is no valid session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Popular lists popular movies. It requires a session.
func (c *Client) Popular(ctx context.Context, page int) (*MoviePage, error) {
	var resp MoviePage
	if err := c.do(ctx, http.MethodGet, "/api/movies/popular?page="+strconv.Itoa(page), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search finds movies by title. It requires a session.
func (c *Client) Search(ctx context.Context, query string, page int) (*MoviePage, error) {
	params := url.Values{"query": {query}, "page": {strconv.Itoa(page)}}
	var resp MoviePage
	if err := c.do(ctx, http.MethodGet, "/api/movies/search?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionToken returns the session cookie currently held, if any.
func (c *Client) SessionToken() string {
	for _, cookie := range c.httpClient.Jar.Cookies(c.baseURL) {
		if cookie.Name == SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}

// SetSessionToken seeds the jar with a previously saved session.
func (c *Client) SetSessionToken(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	c.httpClient.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: SessionCookieName, Value: token, Path: "/"}})
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL.String() + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}
