package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const githubDefaultBaseURL = "https://api.github.com"

// GitHubAdapter calls the GitHub REST API.
type GitHubAdapter struct {
	pool    *ConnectionPool
	baseURL string
}

// NewGitHubAdapter builds a GitHub adapter on the given pool. An empty
// baseURL uses the public GitHub API.
func NewGitHubAdapter(pool *ConnectionPool, baseURL string) *GitHubAdapter {
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}

	return &GitHubAdapter{pool: pool, baseURL: baseURL}
}

func (a *GitHubAdapter) Provider() string { return "github" }

func (a *GitHubAdapter) Call(ctx context.Context, operation string, parameters map[string]any, credentials Credentials) (map[string]any, error) {
	token := credentials["access_token"]
	if token == "" {
		return nil, &AuthenticationError{Provider: a.Provider(), Message: "credentials missing access_token"}
	}

	repo, err := requireParam(a.Provider(), parameters, "repository")
	if err != nil {
		return nil, err
	}

	switch operation {
	case "create_issue":
		return a.createIssue(ctx, repo, parameters, token)
	case "add_comment":
		return a.addComment(ctx, repo, parameters, token)
	case "get_issue":
		number, numErr := requireParam(a.Provider(), parameters, "issue_number")
		if numErr != nil {
			return nil, numErr
		}

		endpoint := fmt.Sprintf("%s/repos/%s/issues/%s", a.baseURL, repo, url.PathEscape(number))

		return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodGet, endpoint, token, nil)
	default:
		return nil, &PermanentError{Provider: a.Provider(), Message: fmt.Sprintf("unsupported operation %q", operation)}
	}
}

func (a *GitHubAdapter) createIssue(ctx context.Context, repo string, parameters map[string]any, token string) (map[string]any, error) {
	title, err := requireParam(a.Provider(), parameters, "title")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"title": title}
	if body := stringParam(parameters, "body"); body != "" {
		payload["body"] = body
	}

	if labels, ok := parameters["labels"].([]any); ok {
		payload["labels"] = labels
	}

	endpoint := fmt.Sprintf("%s/repos/%s/issues", a.baseURL, repo)

	return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodPost, endpoint, token, payload)
}

func (a *GitHubAdapter) addComment(ctx context.Context, repo string, parameters map[string]any, token string) (map[string]any, error) {
	number, err := requireParam(a.Provider(), parameters, "issue_number")
	if err != nil {
		return nil, err
	}

	body, err := requireParam(a.Provider(), parameters, "body")
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/issues/%s/comments", a.baseURL, repo, url.PathEscape(number))

	return doJSON(ctx, a.pool.Client(), a.Provider(), http.MethodPost, endpoint, token, map[string]any{"body": body})
}
