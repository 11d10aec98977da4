package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nodemedic/nodemedic/pkg/integrations"
)

func TestClient_Fetch(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		auth = r.Header.Get("Authorization")

		switch r.URL.Path {
		case "/repos/owner/repo":
			json.NewEncoder(w).Encode(repoResponse{
				FullName: "owner/repo",
				HTMLURL:  "https://github.com/owner/repo",
				Stars:    100,
				Forks:    7,
			})
		case "/repos/owner/repo/contributors":
			json.NewEncoder(w).Encode([]contributorResponse{
				{Login: "user1", Contributions: 10, Type: "User", AvatarURL: "https://a/1", HTMLURL: "https://github.com/user1"},
				{Login: "dependabot[bot]", Contributions: 50, Type: "Bot"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(nil, "test-token", time.Hour).WithBaseURL(server.URL)

	got, err := c.Fetch(context.Background(), "owner", "repo", true)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	want := &Repository{
		FullName: "owner/repo",
		HTMLURL:  "https://github.com/owner/repo",
		Stars:    100,
		Forks:    7,
		Contributors: []Contributor{
			{Login: "user1", HTMLURL: "https://github.com/user1", AvatarURL: "https://a/1", Contributions: 10},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestClient_FetchContributorsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/o/r" {
			w.Write([]byte(`{"stargazers_count":3}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(nil, "", time.Hour).WithBaseURL(server.URL)
	got, err := c.Fetch(context.Background(), "o", "r", false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Stars != 3 || got.Contributors != nil {
		t.Errorf("got %+v", got)
	}
	if got.FullName != "o/r" || got.HTMLURL != "https://github.com/o/r" {
		t.Errorf("defaults not filled: %+v", got)
	}
}

func TestClient_FetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/expressjs/express":
			w.Write([]byte(`{"full_name":"expressjs/express","stargazers_count":1}`))
		case "/repos/expressjs/express/contributors":
			w.Write([]byte(`[]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(nil, "", time.Hour).WithBaseURL(server.URL)
	ctx := context.Background()

	if _, err := c.FetchURL(ctx, "git+https://github.com/expressjs/express.git", false); err != nil {
		t.Errorf("FetchURL: %v", err)
	}
	if _, err := c.FetchURL(ctx, "https://gitlab.com/a/b", false); !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("non-GitHub URL err = %v, want ErrNotFound", err)
	}
	if _, err := c.Fetch(ctx, "missing", "repo", false); !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("missing repo err = %v, want ErrNotFound", err)
	}
}
