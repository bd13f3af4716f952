package github

import (
	"encoding/json"
	"fmt"
)

// PushEvent is the transient parse of an inbound push payload. It exists only
// for the duration of one webhook request and is never persisted.
type PushEvent struct {
	Ref      string
	Owner    string
	RepoName string
	Commits  []PushCommit
}

// PushCommit is one commit entry of a push event.
type PushCommit struct {
	SHA         string
	AuthorLogin string
	AuthorEmail string
	Added       []string
	Modified    []string
}

// pushPayload mirrors the fields of GitHub's push event wire format that the
// receiver consumes.
type pushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"owner"`
	} `json:"repository"`
	Commits []struct {
		ID     string `json:"id"`
		Author struct {
			Username string `json:"username"`
			Name     string `json:"name"`
			Email    string `json:"email"`
		} `json:"author"`
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
	} `json:"commits"`
}

// ParsePushEvent decodes a raw push payload. Malformed JSON is the only
// failure mode; missing fields come back empty for the caller to judge.
// Per-commit extraction is best-effort: the author identity prefers a
// login-style username, falls back to the free-text name, then to empty.
func ParsePushEvent(payload []byte) (*PushEvent, error) {
	var raw pushPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parsing push payload: %w", err)
	}

	owner := raw.Repository.Owner.Login
	if owner == "" {
		owner = raw.Repository.Owner.Name
	}

	evt := &PushEvent{
		Ref:      raw.Ref,
		Owner:    owner,
		RepoName: raw.Repository.Name,
	}

	for _, c := range raw.Commits {
		author := c.Author.Username
		if author == "" {
			author = c.Author.Name
		}
		evt.Commits = append(evt.Commits, PushCommit{
			SHA:         c.ID,
			AuthorLogin: author,
			AuthorEmail: c.Author.Email,
			Added:       c.Added,
			Modified:    c.Modified,
		})
	}

	return evt, nil
}
