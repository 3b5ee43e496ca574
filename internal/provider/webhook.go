package provider

import (
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"call-ledger/internal/ledger"
)

const secretHeader = "X-Vapi-Secret"

// maxWebhookBody bounds how much of a webhook payload we are willing to read.
// End-of-call reports carry full transcripts, so this is generous.
const maxWebhookBody = 1 << 20

// Webhook receives Vapi server events and applies them to the call ledger.
//
// Delivery contract: the provider retries on non-2xx, so the handler only
// returns an error status when a retry could plausibly succeed. Events for
// unknown calls and out-of-order updates are logged and acknowledged.
type Webhook struct {
	ledger *ledger.Service
	secret string
	log    *slog.Logger
}

func NewWebhook(svc *ledger.Service, secret string, log *slog.Logger) *Webhook {
	return &Webhook{ledger: svc, secret: secret, log: log}
}

// Handle is the gin handler for POST /webhooks/vapi.
func (w *Webhook) Handle(c *gin.Context) {
	if !w.authorized(c.GetHeader(secretHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := ParseVapiEvent(body)
	if err != nil {
		if IsIgnored(err) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		w.log.Warn("webhook payload rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if err := w.apply(c, ev); err != nil {
		w.log.Error("webhook apply failed", "call_id", ev.CallID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event not applied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// apply routes one event into the ledger. Returns an error only for faults
// worth a provider retry (storage problems); expected races are absorbed.
func (w *Webhook) apply(c *gin.Context, ev StatusEvent) error {
	ctx := c.Request.Context()

	_, err := w.ledger.UpdateStatus(ctx, ev.CallID, ev.Status, ev.Terminal)
	switch {
	case err == nil:
		return nil

	case errors.Is(err, ledger.ErrNotFound):
		// The call was never logged on our side (or was detached). Drop it;
		// a retry cannot change that. Keep the raw payload so the event can
		// be reconciled by hand if it matters.
		w.log.Warn("webhook for unknown call dropped",
			append(eventAttrs(ev), "payload", ev.RawPayload)...)
		return nil

	case errors.Is(err, ledger.ErrInvalidTransition):
		// Out-of-order or duplicate delivery. For the final report the record
		// is usually already ended, so attach the artifacts it carries.
		if ev.Final {
			if _, aerr := w.ledger.Amend(ctx, ev.CallID, ledger.Amendment{
				EndedReason:     ev.Terminal.EndedReason,
				DurationSeconds: ev.Terminal.DurationSeconds,
				Transcript:      ev.Terminal.Transcript,
				Summary:         ev.Terminal.Summary,
				Success:         ev.Terminal.Success,
			}); aerr != nil && !errors.Is(aerr, ledger.ErrNotFound) {
				return aerr
			}
			return nil
		}
		w.log.Info("stale status update ignored", eventAttrs(ev)...)
		return nil

	case errors.Is(err, ledger.ErrValidation):
		w.log.Warn("webhook event failed validation", "call_id", ev.CallID, "error", err)
		return nil

	default:
		return err
	}
}

// eventAttrs builds the common log attributes for one provider event.
func eventAttrs(ev StatusEvent) []any {
	attrs := []any{"call_id", ev.CallID, "status", ev.Status}
	if !ev.OccurredAt.IsZero() {
		attrs = append(attrs, "occurred_at", ev.OccurredAt)
	}
	return attrs
}

func (w *Webhook) authorized(got string) bool {
	if w.secret == "" {
		// No secret configured (local runs); accept everything.
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(w.secret)) == 1
}
