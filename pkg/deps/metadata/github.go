package metadata

import (
	"context"

	"github.com/nodemedic/nodemedic/pkg/deps"
	"github.com/nodemedic/nodemedic/pkg/graph"
	"github.com/nodemedic/nodemedic/pkg/integrations"
	"github.com/nodemedic/nodemedic/pkg/integrations/github"
)

// GitHub adds repository statistics for packages hosted on GitHub. Packages
// whose repository or homepage is elsewhere are left untouched.
type GitHub struct {
	client *github.Client
}

func NewGitHub(client *github.Client) *GitHub {
	return &GitHub{client}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) Enrich(ctx context.Context, pkg *deps.Package, n *graph.Node, refresh bool) error {
	owner, name, ok := integrations.ExtractGitHubRepo(pkg.Repository)
	if !ok {
		owner, name, ok = integrations.ExtractGitHubRepo(pkg.HomePage)
	}
	if !ok {
		return nil
	}

	r, err := g.client.Fetch(ctx, owner, name, refresh)
	if err != nil {
		return err
	}

	repo := &graph.Repository{
		Name:  r.FullName,
		URL:   r.HTMLURL,
		Stars: r.Stars,
		Forks: r.Forks,
	}
	for _, c := range r.Contributors {
		repo.Contributors = append(repo.Contributors, graph.Contributor{
			Login:       c.Login,
			AvatarURL:   c.AvatarURL,
			ProfileURL:  c.HTMLURL,
			CommitCount: c.Contributions,
		})
	}
	n.Repository = repo
	return nil
}
