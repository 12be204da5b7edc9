package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/gateway"
	"github.com/vasiliy-maslov/pos-platform/internal/jobs"
)

// ProviderHeader selects which provider's verification scheme applies to an
// incoming webhook.
const ProviderHeader = "X-Payment-Provider"

const maxWebhookBody = 1 << 20

// webhookEvent is the provider-agnostic slice of a webhook payload this
// service acts on. Providers send much more; everything else is ignored.
type webhookEvent struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type WebhookHandler struct {
	gateways  *gateway.Factory
	submitter jobs.Submitter
}

func NewWebhookHandler(gateways *gateway.Factory, submitter jobs.Submitter) *WebhookHandler {
	return &WebhookHandler{gateways: gateways, submitter: submitter}
}

func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/webhook", h.handleWebhook)
	router.Post("/webhook/test", h.handleTestWebhook)
}

// handleWebhook authenticates the payload against the provider's signature
// scheme before acting on it. Verification failures are a flat 403 with no
// detail about which check failed.
func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithJSON(w, http.StatusForbidden, map[string]string{"status": "forbidden"})
		return
	}

	provider := r.Header.Get(ProviderHeader)
	if provider == "" {
		provider = "paytabs"
	}

	gw := h.gateways.ForProvider(provider)
	event, verified := gw.VerifyWebhook(body, r.Header)
	if !verified {
		log.Warn().Str("provider", provider).Msg("Webhook signature verification failed")
		respondWithJSON(w, http.StatusForbidden, map[string]string{"status": "forbidden"})
		return
	}

	h.accept(r, provider, event.Raw)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTestWebhook skips signature verification for authenticated callers,
// so integrations can be exercised without provider credentials.
func (h *WebhookHandler) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	_, ok := requirePermission(w, r, "webhook-test", "create")
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	provider := r.Header.Get(ProviderHeader)
	if provider == "" {
		provider = "sandbox"
	}

	h.accept(r, provider, body)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// accept enqueues follow-up work for a verified webhook. A payload without a
// payment_id is acknowledged and dropped; the provider retrying it would not
// change anything.
func (h *WebhookHandler) accept(r *http.Request, provider string, raw []byte) {
	var event webhookEvent
	if err := json.Unmarshal(raw, &event); err != nil || event.PaymentID == "" {
		log.Warn().Str("provider", provider).Msg("Verified webhook without usable payment_id")
		return
	}

	job, err := jobs.NewJob(jobs.KindReceiptGenerate, event.PaymentID, jobs.ReceiptPayload{
		PaymentID: event.PaymentID,
		Amount:    event.Amount,
		Currency:  event.Currency,
	})
	if err != nil {
		log.Error().Err(err).Str("payment_id", event.PaymentID).Msg("Failed to build receipt job from webhook")
		return
	}
	if err := h.submitter.Submit(r.Context(), job); err != nil {
		log.Error().Err(err).Str("payment_id", event.PaymentID).Msg("Failed to submit receipt job from webhook")
	}
	log.Info().Str("provider", provider).Str("payment_id", event.PaymentID).Msg("Webhook accepted")
}
