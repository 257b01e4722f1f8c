package foreman

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

const (
	defaultPerPage = 250
	defaultTimeout = 30 * time.Second
)

// Config holds the connection settings for a Foreman server.
type Config struct {
	URL      string
	Username string
	Password string
	Insecure bool   // skip TLS verification
	CACert   string // path to a PEM bundle for a private CA
	Timeout  time.Duration
	PerPage  int
}

// Client talks to the Foreman REST API with basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	perPage    int
	httpClient *http.Client
}

// NewClient builds a Client from connection settings.
func NewClient(cfg Config) (*Client, error) {
	transport := &http.Transport{}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("reading CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACert)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		perPage:  perPage,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Re-apply basic auth on redirects
				if len(via) > 0 {
					req.SetBasicAuth(cfg.Username, cfg.Password)
				}
				return nil
			},
		},
	}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is the error for non-2xx responses.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

// paginatedResponse is the Foreman v2 collection envelope.
type paginatedResponse struct {
	Total    int               `json:"total"`
	Subtotal int               `json:"subtotal"`
	Results  []json.RawMessage `json:"results"`
}

// Get performs an authenticated GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &StatusError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// GetJSON performs an authenticated GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

// GetAllPages fetches every page of a collection endpoint, returning the raw
// result records. Foreman counts pages rather than linking them, so this
// walks ?page=N until subtotal records have arrived.
func (c *Client) GetAllPages(ctx context.Context, path string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		params := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.perPage)},
		}
		body, err := c.Get(ctx, path, params)
		if err != nil {
			return nil, err
		}
		var resp paginatedResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("parsing %s page %d: %w", path, page, err)
		}
		all = append(all, resp.Results...)
		if len(resp.Results) == 0 || len(all) >= resp.Subtotal {
			return all, nil
		}
	}
}

// Hosts fetches every host record.
func (c *Client) Hosts(ctx context.Context) ([]models.Host, error) {
	raw, err := c.GetAllPages(ctx, "/api/v2/hosts")
	if err != nil {
		return nil, err
	}
	hosts := make([]models.Host, 0, len(raw))
	for _, r := range raw {
		var h models.Host
		if err := json.Unmarshal(r, &h); err != nil {
			return nil, fmt.Errorf("parsing host record: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}

// Hostgroups fetches every hostgroup record.
func (c *Client) Hostgroups(ctx context.Context) ([]models.Hostgroup, error) {
	raw, err := c.GetAllPages(ctx, "/api/v2/hostgroups")
	if err != nil {
		return nil, err
	}
	groups := make([]models.Hostgroup, 0, len(raw))
	for _, r := range raw {
		var g models.Hostgroup
		if err := json.Unmarshal(r, &g); err != nil {
			return nil, fmt.Errorf("parsing hostgroup record: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// Locations fetches every location record.
func (c *Client) Locations(ctx context.Context) ([]models.Location, error) {
	raw, err := c.GetAllPages(ctx, "/api/v2/locations")
	if err != nil {
		return nil, err
	}
	locations := make([]models.Location, 0, len(raw))
	for _, r := range raw {
		var l models.Location
		if err := json.Unmarshal(r, &l); err != nil {
			return nil, fmt.Errorf("parsing location record: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, nil
}

// Organizations fetches every organization record.
func (c *Client) Organizations(ctx context.Context) ([]models.Organization, error) {
	raw, err := c.GetAllPages(ctx, "/api/v2/organizations")
	if err != nil {
		return nil, err
	}
	orgs := make([]models.Organization, 0, len(raw))
	for _, r := range raw {
		var o models.Organization
		if err := json.Unmarshal(r, &o); err != nil {
			return nil, fmt.Errorf("parsing organization record: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
