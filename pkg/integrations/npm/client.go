package npm

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/nodemedic/nodemedic/pkg/cache"
	"github.com/nodemedic/nodemedic/pkg/integrations"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// PackageInfo is the latest release of a package.
type PackageInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies,omitempty"`
	Maintainers  []string `json:"maintainers,omitempty"`
	Repository   string   `json:"repository,omitempty"`
	HomePage     string   `json:"homepage,omitempty"`
	Description  string   `json:"description,omitempty"`
	License      string   `json:"license,omitempty"`
}

type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a registry client caching responses in c for cacheTTL.
func NewClient(c cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "npm", cacheTTL, nil),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another registry, such as a mirror.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// FetchPackage returns the latest release of pkg. A missing package wraps
// [integrations.ErrNotFound].
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = integrations.NormalizePkgName(pkg)

	var info PackageInfo
	err := c.Cached(ctx, pkg, refresh, &info, func() error {
		return c.fetch(ctx, pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, info *PackageInfo) error {
	var data registryResponse
	if err := c.Get(ctx, c.baseURL+"/"+integrations.RegistryPath(pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: npm package %s", err, pkg)
		}
		return err
	}

	latest := data.DistTags.Latest
	v, ok := data.Versions[latest]
	if !ok {
		return fmt.Errorf("%w: npm package %s has no latest version", integrations.ErrNotFound, pkg)
	}

	maintainers := people(v.Maintainers)
	if len(maintainers) == 0 {
		maintainers = people(data.Maintainers)
	}

	*info = PackageInfo{
		Name:         data.Name,
		Version:      latest,
		Description:  v.Description,
		License:      extractField(v.License, "type"),
		Repository:   integrations.NormalizeRepoURL(extractField(v.Repository, "url")),
		HomePage:     v.HomePage,
		Dependencies: slices.Sorted(maps.Keys(v.Dependencies)),
		Maintainers:  maintainers,
	}
	return nil
}

func people(ps []person) []string {
	var out []string
	for _, p := range ps {
		if p.Name != "" {
			out = append(out, p.Name)
		}
	}
	return out
}

func extractField(v any, field string) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[field].(string); ok {
			return s
		}
	}
	return ""
}

type registryResponse struct {
	Name        string                    `json:"name"`
	DistTags    distTags                  `json:"dist-tags"`
	Versions    map[string]versionDetails `json:"versions"`
	Maintainers []person                  `json:"maintainers"`
}

type distTags struct {
	Latest string `json:"latest"`
}

type person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type versionDetails struct {
	Description  string            `json:"description"`
	License      any               `json:"license"`
	Repository   any               `json:"repository"`
	HomePage     string            `json:"homepage"`
	Dependencies map[string]string `json:"dependencies"`
	Maintainers  []person          `json:"maintainers"`
}
