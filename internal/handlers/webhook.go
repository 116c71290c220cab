package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavenote/wavenote-backend/internal/apierr"
	"github.com/wavenote/wavenote-backend/internal/logger"
	"github.com/wavenote/wavenote-backend/internal/services"
	"github.com/wavenote/wavenote-backend/internal/types"
)

type WebhookHandler struct {
	log        *logger.Logger
	verifier   services.WebhookVerifier
	reconciler services.ReconcilerService
}

func NewWebhookHandler(log *logger.Logger, verifier services.WebhookVerifier, reconciler services.ReconcilerService) *WebhookHandler {
	handlerLog := log.With("handler", "WebhookHandler")
	return &WebhookHandler{log: handlerLog, verifier: verifier, reconciler: reconciler}
}

// HandleIdentityEvent is the provider's async notification entry point.
// Signature verification runs against the raw body before any parsing.
func (wh *WebhookHandler) HandleIdentityEvent(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "unreadable_body", err), "could not read request body")
		return
	}

	if err := wh.verifier.Verify(raw, c.Request.Header); err != nil {
		switch {
		case errors.Is(err, services.ErrMissingHeaders):
			RespondError(c, apierr.New(http.StatusBadRequest, "missing_headers", err), "missing webhook signature headers")
		case errors.Is(err, services.ErrInvalidTimestamp):
			RespondError(c, apierr.New(http.StatusBadRequest, "invalid_timestamp", err), "webhook timestamp outside tolerance")
		default:
			RespondError(c, apierr.New(http.StatusBadRequest, "invalid_signature", err), "invalid webhook signature")
		}
		return
	}

	ev, err := types.ParseIdentityEvent(raw)
	if err != nil {
		RespondError(c, apierr.New(http.StatusBadRequest, "malformed_payload", err), "malformed payload")
		return
	}

	if ev.Type == types.EventUnknown {
		// Verified but not ours to act on. Acknowledge so the provider does
		// not redeliver.
		RespondOK(c, gin.H{
			"success": true,
			"message": fmt.Sprintf("event type %q acknowledged", ev.RawType),
		})
		return
	}

	result, err := wh.reconciler.Reconcile(c.Request.Context(), ev)
	if err != nil {
		wh.log.Error("Webhook reconciliation failed", "subject_id", ev.SubjectID, "event_type", ev.RawType, "error", err)
		RespondError(c, apierr.New(http.StatusInternalServerError, "reconciliation_failed", err), "failed to process identity event")
		return
	}

	RespondOK(c, gin.H{
		"success": true,
		"message": fmt.Sprintf("user %s", result.Outcome),
		"userId":  result.User.ID,
	})
}
