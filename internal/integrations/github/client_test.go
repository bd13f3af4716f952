package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/login/oauth2/code/github",
	})
	c.SetBaseURLs(srv.URL, srv.URL)
	return c, srv
}

func TestAuthorizeURL(t *testing.T) {
	c := NewClient(Config{
		ClientID:    "client-id",
		RedirectURI: "http://localhost:8080/login/oauth2/code/github",
	})

	u, err := url.Parse(c.AuthorizeURL())
	if err != nil {
		t.Fatalf("AuthorizeURL() produced unparsable URL: %v", err)
	}

	if u.Path != "/login/oauth/authorize" {
		t.Errorf("path = %q, want /login/oauth/authorize", u.Path)
	}

	q := u.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q, want client-id", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:8080/login/oauth2/code/github" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "repo,user" {
		t.Errorf("scope = %q, want repo,user", q.Get("scope"))
	}
	if q.Get("state") == "" {
		t.Error("state parameter is empty")
	}

	// Two calls must never reuse a state value.
	u2, _ := url.Parse(c.AuthorizeURL())
	if u2.Query().Get("state") == q.Get("state") {
		t.Error("state parameter repeated across calls")
	}
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/oauth/access_token" {
			t.Errorf("path = %q, want /login/oauth/access_token", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q, want application/json", accept)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_token",
			"token_type":   "bearer",
			"scope":        "repo,user",
		})
	}))

	result, err := c.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if gotForm.Get("client_id") != "client-id" ||
		gotForm.Get("client_secret") != "client-secret" ||
		gotForm.Get("code") != "the-code" {
		t.Errorf("form = %v, missing expected credentials", gotForm)
	}

	if result.AccessToken != "gho_token" {
		t.Errorf("AccessToken = %q, want gho_token", result.AccessToken)
	}
	if result.HasError() {
		t.Errorf("HasError() = true for successful exchange: %+v", result)
	}
}

func TestExchangeCodeOAuthError(t *testing.T) {
	// GitHub reports OAuth failures as 200 responses with error fields.
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
	}))

	result, err := c.ExchangeCode(context.Background(), "expired")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v, want nil for error-shaped 200", err)
	}
	if !result.HasError() {
		t.Error("HasError() = false, want true")
	}
	if result.Error != "bad_verification_code" {
		t.Errorf("Error = %q, want bad_verification_code", result.Error)
	}
}

func TestExchangeCodeUpstreamFailure(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	_, err := c.ExchangeCode(context.Background(), "code")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", ue.StatusCode)
	}
	if !strings.Contains(ue.Body, "bad gateway") {
		t.Errorf("Body = %q, want response body detail", ue.Body)
	}
}

func TestListRepositories(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/repos" {
			t.Errorf("path = %q, want /user/repos", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", auth)
		}
		if accept := r.Header.Get("Accept"); accept != "application/vnd.github+json" {
			t.Errorf("Accept = %q", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"r","full_name":"o/r","private":true,"html_url":"https://github.com/o/r"}]`))
	}))

	repos, err := c.ListRepositories(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ListRepositories() error = %v", err)
	}
	if len(repos) != 1 {
		t.Fatalf("len(repos) = %d, want 1", len(repos))
	}
	if repos[0].FullName != "o/r" || !repos[0].Private {
		t.Errorf("repos[0] = %+v", repos[0])
	}
}

func TestListBranches(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/o/r/branches" {
			t.Errorf("path = %q, want /repos/o/r/branches", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"name":"main","protected":true,"commit":{"sha":"abc","url":"u"},"_links":{"self":"s","html":"h"}}]`))
	}))

	branches, err := c.ListBranches(context.Background(), "tok", "o", "r")
	if err != nil {
		t.Fatalf("ListBranches() error = %v", err)
	}
	if len(branches) != 1 {
		t.Fatalf("len(branches) = %d, want 1", len(branches))
	}
	b := branches[0]
	if b.Name != "main" || !b.Protected || b.Commit.SHA != "abc" || b.Links.HTML != "h" {
		t.Errorf("branch = %+v", b)
	}
}

func TestCreateWebhook(t *testing.T) {
	var gotBody map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/o/r/hooks" {
			t.Errorf("path = %q, want /repos/o/r/hooks", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decoding webhook payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.CreateWebhook(context.Background(), "tok", "o", "r", "https://cb.example.com/webhook", "whsec")
	if err != nil {
		t.Fatalf("CreateWebhook() error = %v", err)
	}

	if gotBody["name"] != "web" || gotBody["active"] != true {
		t.Errorf("payload = %v, want name=web active=true", gotBody)
	}
	events, _ := gotBody["events"].([]any)
	if !reflect.DeepEqual(events, []any{"push", "pull_request"}) {
		t.Errorf("events = %v, want [push pull_request]", events)
	}
	cfg, _ := gotBody["config"].(map[string]any)
	if cfg["url"] != "https://cb.example.com/webhook" ||
		cfg["content_type"] != "json" ||
		cfg["secret"] != "whsec" ||
		cfg["insecure_ssl"] != "0" {
		t.Errorf("config = %v", cfg)
	}
}

func TestCreateWebhookRejected(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Validation Failed"}`))
	}))

	err := c.CreateWebhook(context.Background(), "tok", "o", "r", "https://cb.example.com/webhook", "whsec")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if ue.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want 422", ue.StatusCode)
	}
	if !strings.Contains(ue.Body, "Validation Failed") {
		t.Errorf("Body = %q, want upstream message", ue.Body)
	}
}

func TestLatestCommitSHAForPath(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/o/r/commits" {
			t.Errorf("path = %q, want /repos/o/r/commits", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("sha") != "refs/heads/main" {
			t.Errorf("sha = %q, want refs/heads/main", q.Get("sha"))
		}
		if q.Get("path") != "config.yaml" {
			t.Errorf("path = %q, want config.yaml", q.Get("path"))
		}
		if q.Get("per_page") != "1" {
			t.Errorf("per_page = %q, want 1", q.Get("per_page"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"sha":"abc123"}]`))
	}))

	sha, err := c.LatestCommitSHAForPath(context.Background(), "tok", "o", "r", "main", "config.yaml")
	if err != nil {
		t.Fatalf("LatestCommitSHAForPath() error = %v", err)
	}
	if sha != "abc123" {
		t.Errorf("sha = %q, want abc123", sha)
	}
}

func TestLatestCommitSHAForPathNoHistory(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))

	sha, err := c.LatestCommitSHAForPath(context.Background(), "tok", "o", "r", "main", "missing.txt")
	if err != nil {
		t.Fatalf("LatestCommitSHAForPath() error = %v", err)
	}
	if sha != "" {
		t.Errorf("sha = %q, want empty for path with no commits", sha)
	}
}

func TestAddedLinesForPath(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/o/r/commits/abc123" {
			t.Errorf("path = %q, want /repos/o/r/commits/abc123", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[
			{"filename":"other.txt","patch":"+ignored"},
			{"filename":"config.yaml","patch":"@@ -1,2 +1,3 @@\n context\n+new: value\n+more: stuff"}
		]}`))
	}))

	lines, err := c.AddedLinesForPath(context.Background(), "tok", "o", "r", "abc123", "config.yaml")
	if err != nil {
		t.Fatalf("AddedLinesForPath() error = %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"new: value", "more: stuff"}) {
		t.Errorf("lines = %v", lines)
	}
}

func TestAddedLinesForPathFileAbsent(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"files":[{"filename":"other.txt","patch":"+x"}]}`))
	}))

	lines, err := c.AddedLinesForPath(context.Background(), "tok", "o", "r", "abc123", "config.yaml")
	if err != nil {
		t.Fatalf("AddedLinesForPath() error = %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("lines = %v, want empty when file not in commit", lines)
	}
}
