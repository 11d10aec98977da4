// Package integrations provides HTTP clients for the upstream services used
// to enrich dependency graphs.
//
// Each service has its own subpackage:
//
//   - [npm]: the npm registry (versions, dependencies, maintainers)
//   - [osv]: the OSV vulnerability database
//   - [github]: GitHub repository statistics and contributors
//
// # Client Pattern
//
// All clients embed [Client], which provides JSON GET/POST helpers with
// retry on transient failures and response caching through [cache.Cache]:
//
//	c, _ := cache.NewFileCache(cache.DefaultDir())
//	client := npm.NewClient(c, 24*time.Hour)
//	pkg, err := client.FetchPackage(ctx, "express", false) // false = use cache
//
// 404 responses surface as [ErrNotFound], 429 as [ErrRateLimited] and
// network or 5xx failures as [ErrNetwork]. The latter two are retried.
//
// [npm]: github.com/nodemedic/nodemedic/pkg/integrations/npm
// [osv]: github.com/nodemedic/nodemedic/pkg/integrations/osv
// [github]: github.com/nodemedic/nodemedic/pkg/integrations/github
// [cache.Cache]: github.com/nodemedic/nodemedic/pkg/cache.Cache
package integrations
