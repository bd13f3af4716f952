package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/apitest/gitbridge/internal/api/middleware"
	"github.com/apitest/gitbridge/internal/integrations/github"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GitHubHandler handles the OAuth login flow, repository browsing, and
// webhook registration endpoints.
type GitHubHandler struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubHandler creates a new GitHub handler.
func NewGitHubHandler(client *github.Client, logger *slog.Logger) *GitHubHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubHandler{
		client: client,
		logger: logger,
	}
}

// Login redirects the user to GitHub's OAuth authorization page.
func (h *GitHubHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.client.AuthorizeURL(), http.StatusFound)
}

// OAuthCallback handles the provider redirect carrying the authorization code
// and exchanges it for an access token.
//
// An OAuth error reported by the provider (bad code, access denied) is a 400
// with the provider's description; only transport failures are a 500.
func (h *GitHubHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "Missing code parameter")
		return
	}

	result, err := h.client.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to exchange authorization code", "error", err)
		WriteErrorWithDetails(w, http.StatusInternalServerError,
			"Failed to authenticate with GitHub", err.Error())
		return
	}

	if result.HasError() {
		h.logger.Error("GitHub OAuth error",
			"oauth_error", result.Error,
			"description", result.ErrorDescription,
		)
		WriteErrorWithDetails(w, http.StatusBadRequest,
			"GitHub authentication failed", result.ErrorDescription)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// ListRepositories lists the authenticated user's repositories.
func (h *GitHubHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())

	repos, err := h.client.ListRepositories(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to list repositories", "error", err)
		WriteErrorWithDetails(w, http.StatusInternalServerError,
			"Failed to fetch repositories", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, repos)
}

// ListBranches lists the branches of one repository.
func (h *GitHubHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetToken(r.Context())
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	branches, err := h.client.ListBranches(r.Context(), token, owner, repo)
	if err != nil {
		h.logger.Error("failed to list branches", "owner", owner, "repo", repo, "error", err)
		WriteErrorWithDetails(w, http.StatusInternalServerError,
			"Failed to fetch branches", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, branches)
}

// CreateWebhookRequest is the body of POST /webhooks.
type CreateWebhookRequest struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	CallbackURL string `json:"callbackUrl"`
	Secret      string `json:"secret"`
}

// CreateWebhook registers a push/pull_request webhook on a repository. When
// the caller supplies no secret, a freshly generated random one is used and
// returned so the caller can configure its receiver.
func (h *GitHubHandler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req CreateWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Owner == "" || req.Repo == "" || req.CallbackURL == "" {
		WriteError(w, http.StatusBadRequest, "owner, repo and callbackUrl are required")
		return
	}

	if req.Secret == "" {
		req.Secret = uuid.New().String()
	}

	token := middleware.GetToken(r.Context())
	if err := h.client.CreateWebhook(r.Context(), token, req.Owner, req.Repo, req.CallbackURL, req.Secret); err != nil {
		// Upstream rejections here usually indicate a caller-supplied problem
		// such as insufficient scope, so they surface as 400 with the
		// upstream body as detail.
		h.logger.Error("failed to create webhook", "owner", req.Owner, "repo", req.Repo, "error", err)
		WriteErrorWithDetails(w, http.StatusBadRequest,
			"Failed to create webhook", err.Error())
		return
	}

	h.logger.Info("webhook created", "owner", req.Owner, "repo", req.Repo, "callback_url", req.CallbackURL)
	WriteJSON(w, http.StatusCreated, map[string]string{
		"message":     "Webhook created",
		"owner":       req.Owner,
		"repo":        req.Repo,
		"callbackUrl": req.CallbackURL,
		"secret":      req.Secret,
	})
}
