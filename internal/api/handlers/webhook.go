package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/apitest/gitbridge/internal/integrations/github"
)

// maxDeliveryBytes is the largest webhook payload GitHub delivers.
const maxDeliveryBytes = 25 << 20

// WebhookHandler receives push-event deliveries from GitHub. Every check is
// terminal at the first failure: configuration, signature presence, signature
// verification, event filtering, payload parsing.
type WebhookHandler struct {
	secret string
	logger *slog.Logger
}

// NewWebhookHandler creates a new inbound webhook handler. The secret is
// process-wide configuration, read-only at request time.
func NewWebhookHandler(secret string, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret: secret,
		logger: logger,
	}
}

// Receive handles one webhook delivery.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	// Never attempt verification against an absent secret.
	if h.secret == "" {
		WriteError(w, http.StatusPreconditionRequired, "Webhook secret not configured")
		return
	}

	// GitHub caps webhook deliveries at 25 MB.
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDeliveryBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	// The HMAC covers the exact raw body bytes, so verification happens
	// before any parsing.
	sig := r.Header.Get(github.SignatureHeader)
	if err := github.VerifySignature(payload, h.secret, sig); err != nil {
		h.logger.Warn("webhook signature rejected", "error", err)
		switch {
		case errors.Is(err, github.ErrMissingSignature):
			WriteError(w, http.StatusUnauthorized, "Missing signature header")
		case errors.Is(err, github.ErrInvalidSignatureFormat):
			WriteError(w, http.StatusUnauthorized, "Invalid signature format")
		default:
			WriteError(w, http.StatusUnauthorized, "Signature verification failed")
		}
		return
	}

	// Acknowledging an uninteresting event is a success, not an error.
	if event := r.Header.Get(github.EventHeader); event != "push" {
		h.logger.Debug("ignoring webhook event", "event", event)
		WriteJSON(w, http.StatusOK, map[string]string{"message": "Event ignored"})
		return
	}

	evt, err := github.ParsePushEvent(payload)
	if err != nil {
		h.logger.Error("failed to parse push payload", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid push payload")
		return
	}

	if evt.Ref == "" || evt.Owner == "" || evt.RepoName == "" {
		WriteJSON(w, http.StatusOK, map[string]string{"message": "Ignored: missing key fields"})
		return
	}

	repository := evt.Owner + "/" + evt.RepoName

	// One summary per commit; extraction is best-effort, a bad entry never
	// aborts its siblings.
	for _, commit := range evt.Commits {
		h.logger.Info("push commit received",
			"repository", repository,
			"ref", evt.Ref,
			"sha", commit.SHA,
			"author", commit.AuthorLogin,
			"author_email", commit.AuthorEmail,
			"added", commit.Added,
			"modified", commit.Modified,
		)
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message":    "Processed",
		"repository": repository,
		"ref":        evt.Ref,
	})
}
