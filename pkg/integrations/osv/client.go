package osv

import (
	"context"
	"time"

	"github.com/nodemedic/nodemedic/pkg/cache"
	"github.com/nodemedic/nodemedic/pkg/integrations"
)

// DefaultBaseURL is the public OSV API.
const DefaultBaseURL = "https://api.osv.dev"

// Ecosystem is the OSV ecosystem name for npm packages.
const Ecosystem = "npm"

// Vulnerability is an OSV advisory.
type Vulnerability struct {
	ID      string   `json:"id"`
	Summary string   `json:"summary,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates an OSV client caching responses in c for cacheTTL.
func NewClient(c cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "osv", cacheTTL, nil),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another OSV endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Query returns the advisories affecting pkg at version.
func (c *Client) Query(ctx context.Context, pkg, version string, refresh bool) ([]Vulnerability, error) {
	key := pkg
	if version != "" {
		key += "@" + version
	}

	var vulns []Vulnerability
	err := c.Cached(ctx, key, refresh, &vulns, func() error {
		var resp queryResponse
		if err := c.PostJSON(ctx, c.baseURL+"/v1/query", newQuery(pkg, version), &resp); err != nil {
			return err
		}
		vulns = make([]Vulnerability, 0, len(resp.Vulns))
		for _, v := range resp.Vulns {
			vulns = append(vulns, Vulnerability{ID: v.ID, Summary: v.Summary, Aliases: v.Aliases})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vulns, nil
}

type query struct {
	Package queryPackage `json:"package"`
	Version string       `json:"version,omitempty"`
}

type queryPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

func newQuery(pkg, version string) query {
	return query{Package: queryPackage{Name: pkg, Ecosystem: Ecosystem}, Version: version}
}

type queryResponse struct {
	Vulns []struct {
		ID      string   `json:"id"`
		Summary string   `json:"summary"`
		Aliases []string `json:"aliases"`
	} `json:"vulns"`
}
