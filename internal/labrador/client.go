// Package labrador fetches site activity from the Labrador API and keeps the
// latest snapshot of site records available to the dashboard.
package labrador

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/perse/carbon-dashboard/internal/config"
	"github.com/perse/carbon-dashboard/internal/domain"
	"github.com/perse/carbon-dashboard/internal/pkg/httpretry"
	"github.com/perse/carbon-dashboard/internal/pkg/logger"
)

// ErrNoAPIKey is returned when the client has no e_api_key to send.
var ErrNoAPIKey = errors.New("labrador: API key not configured")

const sitesPath = "/v3/site-activity"

// Client is a Labrador site-activity API client
type Client struct {
	baseURL    string
	apiKey     string
	utmSource  string
	siteType   string
	pageLimit  int
	httpClient httpretry.HTTPDoer
	log        *logger.Logger
}

// NewClient creates a new Labrador API client
func NewClient(cfg config.LabradorConfig) *Client {
	log := logger.With("component", "labrador")
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		utmSource: cfg.UTMSource,
		siteType:  cfg.SiteType,
		pageLimit: cfg.PageLimit,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries, httpretry.WithLogger(log)),
		log: log,
	}
}

type pagination struct {
	Limit   json.Number `json:"limit"`
	HasMore bool        `json:"hasMore"`
}

// sitesResponse is the envelope returned by the site-activity endpoint.
type sitesResponse struct {
	Data struct {
		Sites   []domain.SiteRecord `json:"sites"`
		Summary struct {
			Pagination pagination `json:"pagination"`
		} `json:"summary"`
	} `json:"data"`
}

// FetchAllSites pages through the site-activity endpoint and returns every
// site. The page size the API reports wins over the one requested.
func (c *Client) FetchAllSites(ctx context.Context) ([]domain.SiteRecord, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	requested := c.pageLimit
	if requested <= 0 {
		requested = 3000
	}

	var all []domain.SiteRecord
	offset := 0
	for {
		page, err := c.fetchPage(ctx, requested, offset)
		if err != nil {
			return nil, err
		}
		sites := page.Data.Sites
		if len(sites) == 0 {
			break
		}
		all = append(all, sites...)

		limit := effectiveLimit(page.Data.Summary.Pagination, len(sites), requested)
		c.log.Debug("fetched site page", "offset", offset, "count", len(sites), "limit", limit, "total", len(all))

		more := page.Data.Summary.Pagination.HasMore
		if !more && len(sites) == limit {
			more = true
		}
		if !more {
			break
		}
		offset += limit
	}

	if all == nil {
		all = []domain.SiteRecord{}
	}
	c.log.Info("fetched all sites", "count", len(all))
	return all, nil
}

// effectiveLimit is the API-reported limit, else the page length, else the
// requested limit.
func effectiveLimit(p pagination, pageLen, requested int) int {
	if n, err := strconv.Atoi(p.Limit.String()); err == nil && n > 0 {
		return n
	}
	if pageLen > 0 {
		return pageLen
	}
	return requested
}

func (c *Client) fetchPage(ctx context.Context, limit, offset int) (*sitesResponse, error) {
	params := url.Values{}
	params.Set("utmSource", c.utmSource)
	params.Set("siteType", c.siteType)
	params.Set("includeSiteDetails", "true")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	body, err := c.doRequest(ctx, sitesPath, params)
	if err != nil {
		return nil, fmt.Errorf("fetching sites at offset %d: %w", offset, err)
	}

	var resp sitesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing sites at offset %d: %w", offset, err)
	}
	return &resp, nil
}

// doRequest makes a GET request to the Labrador API
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("e_api_key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
