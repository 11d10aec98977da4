package deps

import (
	"context"
	"errors"

	"github.com/nodemedic/nodemedic/pkg/cache"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/integrations"
	"github.com/nodemedic/nodemedic/pkg/integrations/npm"
)

// NewNPM returns a Registry crawling the npm registry through client.
func NewNPM(client *npm.Client) *Registry {
	return NewRegistry("npm", NPMFetcher{client})
}

// NewNPMFromCache is NewNPM with a default registry client on c.
func NewNPMFromCache(c cache.Cache, opts Options) *Registry {
	opts = opts.WithDefaults()
	return NewNPM(npm.NewClient(c, opts.CacheTTL))
}

// NPMFetcher adapts the npm registry client to Fetcher.
type NPMFetcher struct{ *npm.Client }

// Fetch returns the latest release of name. An unknown package fails with
// errors.ErrCodePackageNotFound.
func (f NPMFetcher) Fetch(ctx context.Context, name string, refresh bool) (*Package, error) {
	p, err := f.FetchPackage(ctx, name, refresh)
	if err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return nil, errs.Wrap(errs.ErrCodePackageNotFound, err, "npm package %q not found", name)
		}
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "fetch npm package %q", name)
	}
	return &Package{
		Name:         p.Name,
		Version:      p.Version,
		Dependencies: p.Dependencies,
		Maintainers:  p.Maintainers,
		Description:  p.Description,
		License:      p.License,
		Repository:   p.Repository,
		HomePage:     p.HomePage,
	}, nil
}
