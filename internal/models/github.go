package models

import (
	"strings"
	"time"
)

// AccessTokenResult is the parsed response from GitHub's OAuth token endpoint.
// GitHub reports OAuth failures (bad code, access denied) as a 200 response
// carrying error fields, so this struct holds both shapes and the caller
// decides via HasError.
type AccessTokenResult struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// HasError reports whether GitHub returned an OAuth error instead of a token.
func (r *AccessTokenResult) HasError() bool {
	return r.Error != "" || r.ErrorDescription != ""
}

// Repository is a read-only projection of a repository returned by the GitHub API.
type Repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Fork        bool   `json:"fork"`
	URL         string `json:"url"`
	BranchesURL string `json:"branches_url"`
}

// Branch is a read-only projection of a repository branch.
type Branch struct {
	Name      string       `json:"name"`
	Protected bool         `json:"protected"`
	Commit    BranchCommit `json:"commit"`
	Links     BranchLinks  `json:"_links"`
}

// BranchCommit identifies the commit a branch currently points at.
type BranchCommit struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

// BranchLinks holds the API and HTML URLs for a branch.
type BranchLinks struct {
	Self string `json:"self"`
	HTML string `json:"html"`
}

// FileWatch is a persisted polling registration: which repository path to
// re-check for changes on behalf of a user, as an alternative to webhooks.
// Branch is always stored as a fully-qualified ref (refs/heads/<name>).
// The stored OAuth token is never serialized back to clients.
type FileWatch struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	Owner         string    `json:"owner" db:"owner"`
	Repo          string    `json:"repo" db:"repo"`
	Branch        string    `json:"branch" db:"branch"`
	Path          string    `json:"path" db:"path"`
	OAuthToken    string    `json:"-" db:"oauth_token"`
	LastCommitSHA string    `json:"last_commit_sha,omitempty" db:"last_commit_sha"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeRef qualifies a branch name as refs/heads/<name>. Values that are
// already fully qualified pass through unchanged, so the operation is
// idempotent.
func NormalizeRef(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}

// Normalize rewrites the watch's branch into fully-qualified ref form.
func (w *FileWatch) Normalize() {
	w.Branch = NormalizeRef(w.Branch)
}
