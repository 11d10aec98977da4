package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nodemedic/nodemedic/pkg/cache"
	"github.com/nodemedic/nodemedic/pkg/integrations"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// MaxContributors bounds the contributor list fetched per repository.
const MaxContributors = 10

// Repository is the repository data shown for a package.
type Repository struct {
	FullName     string        `json:"full_name"`
	HTMLURL      string        `json:"html_url"`
	Stars        int           `json:"stars"`
	Forks        int           `json:"forks"`
	Contributors []Contributor `json:"contributors,omitempty"`
}

// Contributor is a repository contributor.
type Contributor struct {
	Login         string `json:"login"`
	HTMLURL       string `json:"html_url,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Contributions int    `json:"contributions"`
}

// Client provides access to the GitHub API with caching, automatic retries,
// and optional authentication.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub client. Pass an empty token for
// unauthenticated requests.
func NewClient(c cache.Cache, token string, cacheTTL time.Duration) *Client {
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(c, "github", cacheTTL, headers),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Fetch returns repository statistics and top contributors. A failed
// contributor listing leaves Contributors empty rather than failing.
func (c *Client) Fetch(ctx context.Context, owner, repo string, refresh bool) (*Repository, error) {
	key := owner + "/" + repo

	var r Repository
	err := c.Cached(ctx, key, refresh, &r, func() error {
		return c.fetchRepository(ctx, owner, repo, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FetchURL is Fetch for a repository URL in any of the forms npm uses.
func (c *Client) FetchURL(ctx context.Context, repoURL string, refresh bool) (*Repository, error) {
	owner, repo, ok := integrations.ExtractGitHubRepo(repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: not a GitHub repository: %q", integrations.ErrNotFound, repoURL)
	}
	return c.Fetch(ctx, owner, repo, refresh)
}

func (c *Client) fetchRepository(ctx context.Context, owner, repo string, r *Repository) error {
	var data repoResponse
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: github repo %s/%s", err, owner, repo)
		}
		return err
	}

	*r = Repository{
		FullName: data.FullName,
		HTMLURL:  data.HTMLURL,
		Stars:    data.Stars,
		Forks:    data.Forks,
	}
	if r.FullName == "" {
		r.FullName = owner + "/" + repo
	}
	if r.HTMLURL == "" {
		r.HTMLURL = fmt.Sprintf("https://github.com/%s/%s", owner, repo)
	}
	if contribs, err := c.fetchContributors(ctx, owner, repo); err == nil {
		r.Contributors = contribs
	}
	return nil
}

func (c *Client) fetchContributors(ctx context.Context, owner, repo string) ([]Contributor, error) {
	var data []contributorResponse
	url := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=%d", c.baseURL, owner, repo, MaxContributors)
	if err := c.Get(ctx, url, &data); err != nil {
		return nil, err
	}

	var result []Contributor
	for _, cr := range data {
		if cr.Type == "Bot" || cr.Login == "" {
			continue
		}
		result = append(result, Contributor{
			Login:         cr.Login,
			HTMLURL:       cr.HTMLURL,
			AvatarURL:     cr.AvatarURL,
			Contributions: cr.Contributions,
		})
	}
	return result, nil
}

type repoResponse struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Stars    int    `json:"stargazers_count"`
	Forks    int    `json:"forks_count"`
}

type contributorResponse struct {
	Login         string `json:"login"`
	HTMLURL       string `json:"html_url"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
	Type          string `json:"type"`
}
