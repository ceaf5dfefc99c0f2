package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Open Library books API endpoint
const DefaultBaseURL = "https://openlibrary.org/api/books"

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 1 << 20

var (
	ErrNotFound          = errors.New("no edition found for isbn")
	ErrIncompleteRecord  = errors.New("edition is missing title or authors")
	ErrUnexpectedStatus  = errors.New("unexpected status from open library")
	ErrMalformedResponse = errors.New("malformed open library response")
)

// Open Library API response structures
type Edition struct {
	Title   string   `json:"title"`
	Authors []Author `json:"authors"`
	Cover   *Cover   `json:"cover,omitempty"`
}

type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Cover struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// AuthorNames joins the non-empty author names with ", "
func (e *Edition) AuthorNames() string {
	names := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// CoverID extracts the numeric cover id from the cover URLs, if any.
// Cover URLs look like https://covers.openlibrary.org/b/id/240727-M.jpg.
func (e *Edition) CoverID() string {
	if e.Cover == nil {
		return ""
	}
	for _, u := range []string{e.Cover.Medium, e.Cover.Large, e.Cover.Small} {
		if id := coverIDFromURL(u); id != "" {
			return id
		}
	}
	return ""
}

func coverIDFromURL(raw string) string {
	const marker = "/b/id/"
	i := strings.Index(raw, marker)
	if i < 0 {
		return ""
	}
	rest := raw[i+len(marker):]
	end := strings.IndexAny(rest, "-.")
	if end <= 0 {
		return ""
	}
	id := rest[:end]
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}

// Client looks up editions by ISBN
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client; timeout bounds each lookup end to end
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// LookupISBN fetches the edition for isbn
func (c *Client) LookupISBN(ctx context.Context, isbn string) (*Edition, error) {
	bibKey := "ISBN:" + isbn

	// Build Open Library API URL
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("bibkeys", bibKey)
	q.Set("jscmd", "data")
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	// Make request to Open Library
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open library request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	// Read and parse response
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read open library response: %w", err)
	}

	var editions map[string]*Edition
	if err := json.Unmarshal(body, &editions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	edition, ok := editions[bibKey]
	if !ok || edition == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(edition.Title) == "" || edition.AuthorNames() == "" {
		return nil, ErrIncompleteRecord
	}
	edition.Title = strings.TrimSpace(edition.Title)

	return edition, nil
}
