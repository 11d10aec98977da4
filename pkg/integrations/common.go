package integrations

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nodemedic/nodemedic/pkg/httputil"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist upstream.
	ErrNotFound = errors.New("not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")

	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("rate limited")
)

// NewHTTPClient creates an instrumented HTTP client with the standard
// timeout for upstream requests.
func NewHTTPClient() *http.Client {
	return httputil.NewClient(httpTimeout)
}

// NormalizePkgName trims and lowercases a package name. npm names are
// case-insensitive on lookup but canonical in lowercase.
func NormalizePkgName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RegistryPath escapes a package name for use as a registry URL path
// segment. Scoped names keep their @ but encode the slash.
func RegistryPath(name string) string {
	if scope, rest, ok := strings.Cut(name, "/"); ok && strings.HasPrefix(scope, "@") {
		return scope + "%2F" + url.PathEscape(rest)
	}
	return url.PathEscape(name)
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"git+ssh://git@github.com/", "https://github.com/",
	"ssh://git@github.com/", "https://github.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, ssh and git+ prefixes, the "github:" shorthand, and
// removes .git suffixes. Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(s, "github:"); ok {
		s = "https://github.com/" + rest
	}
	s = repoURLReplacer.Replace(s)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}

var githubRepoRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/?#]+?)(?:\.git)?(?:[/?#]|$)`)

// ExtractGitHubRepo returns owner and repo from a GitHub repository URL.
func ExtractGitHubRepo(raw string) (owner, repo string, ok bool) {
	m := githubRepoRe.FindStringSubmatch(NormalizeRepoURL(raw))
	if len(m) < 3 || strings.Contains(raw, "/sponsors/") {
		return "", "", false
	}
	return m[1], m[2], true
}

