package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/shared/errs"
	"library-backend/pkg/circuitbreaker"

	"github.com/rs/zerolog/log"
)

const noDescription = "No description available"

// Config for the volumes API client.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Timeout    time.Duration
}

// Client queries the Google Books volumes endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	cb         circuitbreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.New(20, 30*time.Second, 0.5, 3),
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			ImageLinks  *struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("volumes returned %d: %s", e.status, e.body)
}

// upstreamFault is true for 5xx and throttling, which count against the breaker.
func (e *statusError) upstreamFault() bool {
	return e.status >= http.StatusInternalServerError || e.status == http.StatusTooManyRequests
}

// Search returns import candidates for a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]model.BookCandidate, error) {
	var body volumesResponse
	var rejected *statusError
	err := c.cb.Call(func() error {
		err := c.fetch(ctx, query, &body)
		// A rejected query says nothing about upstream health.
		var se *statusError
		if errors.As(err, &se) && !se.upstreamFault() {
			rejected = se
			return nil
		}
		return err
	})
	if rejected != nil {
		log.Debug().Int("status", rejected.status).Str("query", query).Msg("google books rejected query")
		return nil, errs.Invalid("catalog rejected the query")
	}
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			log.Warn().Str("query", query).Msg("google books circuit open")
		}
		return nil, errs.Upstream("google books lookup", err)
	}

	candidates := make([]model.BookCandidate, 0, len(body.Items))
	for _, item := range body.Items {
		vi := item.VolumeInfo
		cand := model.BookCandidate{
			ID:          item.ID,
			Title:       vi.Title,
			Authors:     vi.Authors,
			Description: vi.Description,
		}
		if len(cand.Authors) == 0 {
			cand.Authors = []string{model.UnknownAuthor}
		}
		if cand.Description == "" {
			cand.Description = noDescription
		}
		if vi.ImageLinks != nil {
			cand.Thumbnail = vi.ImageLinks.Thumbnail
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *Client) fetch(ctx context.Context, query string, dst *volumesResponse) error {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode volumes: %w", err)
	}
	return nil
}
