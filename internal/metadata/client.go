package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reelview/backend/internal/models"
)

const (
	maxAttempts   = 3
	baseBackoff   = 200 * time.Millisecond
	posterBaseURL = "https://image.tmdb.org/t/p/w500"
)

// Client talks to a TMDB-shaped catalogue API using a bearer key. Transient
// failures are retried with exponential backoff.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a metadata client for the provided API.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Results []struct {
		ID           int     `json:"id"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		Overview     string  `json:"overview"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		Popularity   float64 `json:"popularity"`
		GenreIDs     []int   `json:"genre_ids"`
	} `json:"results"`
}

// SearchTitles queries the provider's movie or tv search endpoint.
func (c *Client) SearchTitles(ctx context.Context, query, kind string) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, ErrProviderUnavailable
	}
	if kind != models.KindMovie && kind != models.KindTV {
		return nil, fmt.Errorf("unsupported search kind %q", kind)
	}

	endpoint := fmt.Sprintf("%s/search/%s?query=%s&include_adult=false&language=en-US&page=1",
		c.baseURL, kind, url.QueryEscape(query))

	var payload searchResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(payload.Results))
	for _, entry := range payload.Results {
		result := SearchResult{
			ID:          entry.ID,
			Name:        entry.Title,
			Overview:    entry.Overview,
			ReleaseDate: entry.ReleaseDate,
			MovieOrTV:   kind,
			Popularity:  entry.Popularity,
			GenreIDs:    entry.GenreIDs,
		}
		if kind == models.KindTV {
			result.Name = entry.Name
			result.ReleaseDate = entry.FirstAirDate
		}
		if entry.PosterPath != "" {
			result.PosterURL = posterBaseURL + entry.PosterPath
		}
		results = append(results, result)
	}

	return results, nil
}

type genreResponse struct {
	Genres []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"genres"`
}

// ListGenres merges the provider's movie and tv genre lists, deduplicated by id.
func (c *Client) ListGenres(ctx context.Context) ([]models.Genre, error) {
	if c.apiKey == "" {
		return nil, ErrProviderUnavailable
	}

	var genres []models.Genre
	seen := make(map[int]struct{})

	for _, kind := range []string{models.KindMovie, models.KindTV} {
		var payload genreResponse
		endpoint := fmt.Sprintf("%s/genre/%s/list?language=en-US", c.baseURL, kind)
		if err := c.getJSON(ctx, endpoint, &payload); err != nil {
			return nil, err
		}
		for _, entry := range payload.Genres {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			seen[entry.ID] = struct{}{}
			genres = append(genres, models.Genre{ID: entry.ID, Name: entry.Name})
		}
	}

	return genres, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << (attempt - 1)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build metadata request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode metadata response: %w", err)
			}
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("metadata provider returned %d", resp.StatusCode)
			continue
		default:
			resp.Body.Close()
			return fmt.Errorf("metadata provider returned %d", resp.StatusCode)
		}
	}

	return fmt.Errorf("metadata request failed after %d attempts: %w", maxAttempts, lastErr)
}

var _ Provider = (*Client)(nil)
