package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/apitest/gitbridge/internal/api/middleware"
	"github.com/apitest/gitbridge/internal/models"
	"github.com/apitest/gitbridge/internal/store"
	"github.com/go-chi/chi/v5"
)

// WatchHandler handles polling watch registration and lookup.
type WatchHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(st store.Store, logger *slog.Logger) *WatchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchHandler{
		store:  st,
		logger: logger,
	}
}

// CreateWatchRequest is the body of POST /polling/watch.
type CreateWatchRequest struct {
	UserID string `json:"userId"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	Path   string `json:"path"`
}

// Create registers a polling watch. The caller's OAuth token travels with the
// watch so the poller can query the repository later; the branch is stored in
// fully-qualified ref form.
func (h *WatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" || req.Owner == "" || req.Repo == "" || req.Branch == "" || req.Path == "" {
		WriteError(w, http.StatusBadRequest, "userId, owner, repo, branch and path are required")
		return
	}

	watch := &models.FileWatch{
		UserID:     req.UserID,
		Owner:      req.Owner,
		Repo:       req.Repo,
		Branch:     req.Branch,
		Path:       req.Path,
		OAuthToken: middleware.GetToken(r.Context()),
	}

	if err := h.store.Watches().Create(r.Context(), watch); err != nil {
		h.logger.Error("failed to create watch",
			"user_id", req.UserID,
			"owner", req.Owner,
			"repo", req.Repo,
			"error", err,
		)
		WriteErrorWithDetails(w, http.StatusBadRequest,
			"Failed to register watch", err.Error())
		return
	}

	h.logger.Info("watch registered",
		"watch_id", watch.ID,
		"user_id", watch.UserID,
		"owner", watch.Owner,
		"repo", watch.Repo,
		"branch", watch.Branch,
		"path", watch.Path,
	)
	WriteJSON(w, http.StatusCreated, watch)
}

// List returns the watches registered by one user.
func (h *WatchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	watches, err := h.store.Watches().ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list watches", "user_id", userID, "error", err)
		WriteErrorWithDetails(w, http.StatusInternalServerError,
			"Failed to list watches", err.Error())
		return
	}
	if watches == nil {
		watches = []*models.FileWatch{}
	}

	WriteJSON(w, http.StatusOK, watches)
}

// Get returns one watch by ID.
func (h *WatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watchID")

	watch, err := h.store.Watches().Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get watch", "watch_id", id, "error", err)
		WriteErrorWithDetails(w, http.StatusInternalServerError,
			"Failed to fetch watch", err.Error())
		return
	}
	if watch == nil {
		WriteError(w, http.StatusNotFound, "Watch not found")
		return
	}

	WriteJSON(w, http.StatusOK, watch)
}
