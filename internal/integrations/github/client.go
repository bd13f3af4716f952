// Package github is a minimal GitHub API client covering the OAuth
// authorization-code flow, repository browsing, webhook registration, and
// commit diff inspection.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/apitest/gitbridge/internal/models"
	"github.com/google/uuid"
)

const (
	defaultAPIBaseURL   = "https://api.github.com"
	defaultOAuthBaseURL = "https://github.com"

	// oauthScopes is the fixed scope set requested during authorization.
	oauthScopes = "repo,user"
)

// Config holds the OAuth application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client is a minimal GitHub API client.
type Client struct {
	hc        *http.Client
	cfg       Config
	apiBase   string
	oauthBase string
}

// NewClient creates a new GitHub API client.
func NewClient(cfg Config) *Client {
	return &Client{
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
		cfg:       cfg,
		apiBase:   defaultAPIBaseURL,
		oauthBase: defaultOAuthBaseURL,
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// DefaultClient returns the process-wide client, initializing it exactly once
// under concurrent first use. Later calls ignore cfg.
func DefaultClient(cfg Config) *Client {
	defaultOnce.Do(func() {
		defaultClient = NewClient(cfg)
	})
	return defaultClient
}

// SetBaseURLs overrides the GitHub endpoints. Used by tests and GitHub
// Enterprise setups.
func (c *Client) SetBaseURLs(api, oauth string) {
	c.apiBase = strings.TrimSuffix(api, "/")
	c.oauthBase = strings.TrimSuffix(oauth, "/")
}

// UpstreamError wraps a failed call to the GitHub API: a transport failure,
// a non-2xx status, or an unparsable response body.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap returns the underlying transport or decode error, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AuthorizeURL builds the provider authorization redirect URL with a freshly
// generated opaque state value. It never fails.
func (c *Client) AuthorizeURL() string {
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("scope", oauthScopes)
	params.Set("state", uuid.New().String())

	return c.oauthBase + "/login/oauth/authorize?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for an access token.
//
// An OAuth-error-shaped response (error/error_description fields) is not a
// transport failure: it is returned as a successful AccessTokenResult for
// the caller to interpret via HasError. Only transport failures, non-200
// statuses, and undecodable bodies produce an UpstreamError.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*models.AccessTokenResult, error) {
	vals := url.Values{}
	vals.Set("client_id", c.cfg.ClientID)
	vals.Set("client_secret", c.cfg.ClientSecret)
	vals.Set("code", code)
	vals.Set("redirect_uri", c.cfg.RedirectURI)

	targetURL := c.oauthBase + "/login/oauth/access_token"
	req, err := http.NewRequestWithContext(ctx, "POST", targetURL, strings.NewReader(vals.Encode()))
	if err != nil {
		return nil, &UpstreamError{Op: "exchanging code", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "exchanging code", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError("exchanging code", resp)
	}

	var result models.AccessTokenResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &UpstreamError{Op: "decoding token response", Err: err}
	}

	return &result, nil
}

// ListRepositories lists the repositories of the user the token belongs to.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]models.Repository, error) {
	apiURL := c.apiBase + "/user/repos"
	req, err := c.apiRequest(ctx, "GET", apiURL, token, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "listing repositories", Err: err}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "listing repositories", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError("listing repositories", resp)
	}

	var repos []models.Repository
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, &UpstreamError{Op: "decoding repositories", Err: err}
	}

	return repos, nil
}

// ListBranches lists the branches of one repository.
func (c *Client) ListBranches(ctx context.Context, token, owner, repo string) ([]models.Branch, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/branches", c.apiBase, url.PathEscape(owner), url.PathEscape(repo))
	req, err := c.apiRequest(ctx, "GET", apiURL, token, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "listing branches", Err: err}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "listing branches", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError("listing branches", resp)
	}

	var branches []models.Branch
	if err := json.NewDecoder(resp.Body).Decode(&branches); err != nil {
		return nil, &UpstreamError{Op: "decoding branches", Err: err}
	}

	return branches, nil
}

// CreateWebhook registers a push/pull_request webhook on a repository. Any
// non-2xx upstream response is a failure carrying the response body as
// diagnostic detail; on failure no webhook exists and the caller must retry
// explicitly.
func (c *Client) CreateWebhook(ctx context.Context, token, owner, repo, callbackURL, secret string) error {
	payload := map[string]any{
		"name":   "web",
		"active": true,
		"events": []string{"push", "pull_request"},
		"config": map[string]any{
			"url":          callbackURL,
			"content_type": "json",
			"secret":       secret,
			"insecure_ssl": "0",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &UpstreamError{Op: "encoding webhook", Err: err}
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/hooks", c.apiBase, url.PathEscape(owner), url.PathEscape(repo))
	req, err := c.apiRequest(ctx, "POST", apiURL, token, strings.NewReader(string(body)))
	if err != nil {
		return &UpstreamError{Op: "creating webhook", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &UpstreamError{Op: "creating webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamStatusError("creating webhook", resp)
	}

	return nil
}

// LatestCommitSHAForPath returns the SHA of the most recent commit touching
// path on the given branch, or "" when the history has no match. The branch
// is normalized to fully-qualified ref form before querying.
func (c *Client) LatestCommitSHAForPath(ctx context.Context, token, owner, repo, branch, path string) (string, error) {
	params := url.Values{}
	params.Set("sha", models.NormalizeRef(branch))
	params.Set("path", path)
	params.Set("per_page", "1")

	apiURL := fmt.Sprintf("%s/repos/%s/%s/commits?%s", c.apiBase, url.PathEscape(owner), url.PathEscape(repo), params.Encode())
	req, err := c.apiRequest(ctx, "GET", apiURL, token, nil)
	if err != nil {
		return "", &UpstreamError{Op: "listing commits", Err: err}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", &UpstreamError{Op: "listing commits", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstreamStatusError("listing commits", resp)
	}

	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return "", &UpstreamError{Op: "decoding commits", Err: err}
	}

	if len(commits) == 0 {
		return "", nil
	}
	return commits[0].SHA, nil
}

// AddedLinesForPath fetches a commit's detail and returns the added lines of
// the file whose filename equals path. A commit without that file, or a file
// without patch text (binary, unchanged), yields an empty slice.
func (c *Client) AddedLinesForPath(ctx context.Context, token, owner, repo, commitSHA, path string) ([]string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.apiBase, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(commitSHA))
	req, err := c.apiRequest(ctx, "GET", apiURL, token, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "fetching commit", Err: err}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: "fetching commit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamStatusError("fetching commit", resp)
	}

	var commit struct {
		Files []struct {
			Filename string `json:"filename"`
			Patch    string `json:"patch"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commit); err != nil {
		return nil, &UpstreamError{Op: "decoding commit", Err: err}
	}

	for _, file := range commit.Files {
		if file.Filename == path {
			return AddedLines(file.Patch), nil
		}
	}

	return nil, nil
}

func (c *Client) apiRequest(ctx context.Context, method, apiURL, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

func upstreamStatusError(op string, resp *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &UpstreamError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
