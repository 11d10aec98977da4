// Package github provides an HTTP client for the GitHub REST API.
//
// It fetches the repository statistics and top contributors shown for each
// package in the explorer.
//
// # Usage
//
//	client := github.NewClient(c, os.Getenv("GITHUB_TOKEN"), 24*time.Hour)
//	repo, err := client.Fetch(ctx, "expressjs", "express", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(repo.FullName, repo.Stars, len(repo.Contributors))
//
// # Authentication
//
// A personal access token is optional but recommended. Without one the API
// allows 60 requests per hour; with one, 5000.
package github
