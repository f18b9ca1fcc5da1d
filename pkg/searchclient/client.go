// Package searchclient talks to the external grocery search service.
package searchclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"budgetbite/pkg/models"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	SearchPath = "/api/v1/search"
	UserAgent  = "budgetbite/1.0 (+storefront)"
)

var ErrDecode = errors.New("search response is not valid JSON")

// APIError is returned for any non-2xx answer from the search service. The
// response body is not inspected.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// BuildRequest maps validated input onto the search service request body.
func BuildRequest(in models.SearchInput) models.SearchRequest {
	return models.SearchRequest{
		ProductName:     in.ProductName,
		ZipCode:         in.ZipCode,
		MinStoreResults: in.StoreCount,
		RadiusMiles:     in.RadiusMiles,
	}
}

type Client struct {
	// URL is the full search endpoint, e.g. http://localhost:8080/api/v1/search.
	URL string
	// Timeout overrides the transport timeout when positive.
	Timeout time.Duration
	// AllowedDomains restricts which hosts may be contacted. Empty allows all.
	AllowedDomains []string
	Log            zerolog.Logger
}

func New(searchURL string) *Client {
	return &Client{
		URL: searchURL,
		Log: zerolog.Nop(),
	}
}

func (c *Client) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(UserAgent),
		colly.Headers(map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		}),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.StdlibContext(ctx),
	)
	if len(c.AllowedDomains) > 0 {
		collector.AllowedDomains = c.AllowedDomains
	}
	if c.Timeout > 0 {
		collector.SetRequestTimeout(c.Timeout)
	}
	return collector
}

// Search posts req to the search service and returns the decoded JSON body as
// is. Shaping it into listings is left to the normalize package.
func (c *Client) Search(ctx context.Context, req models.SearchRequest) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	requestID := uuid.NewString()
	log := c.Log.With().Str("request_id", requestID).Logger()

	collector := c.newCollector(ctx)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("X-Request-Id", requestID)
		log.Debug().Str("url", r.URL.String()).Str("product", req.ProductName).Str("zip", req.ZipCode).Msg("Searching stores")
	})

	var (
		status  int
		payload []byte
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		payload = r.Body
	})

	start := time.Now()
	if err := collector.PostRaw(c.URL, body); err != nil {
		log.Warn().Err(err).Msg("Search request failed")
		return nil, fmt.Errorf("search request: %w", err)
	}

	if status < 200 || status > 299 {
		log.Warn().Int("status", status).Dur("took", time.Since(start)).Msg("Search service returned an error status")
		return nil, &APIError{StatusCode: status}
	}

	var out any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	log.Debug().Int("status", status).Int("bytes", len(payload)).Dur("took", time.Since(start)).Msg("Search response received")
	return out, nil
}
