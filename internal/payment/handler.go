package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/utils"
)

const maxWebhookBody = 65536

type Handler struct {
	Service       *StripeService
	Logger        *logger.Logger
	WebhookSecret string
}

func NewHandler(service *StripeService, log *logger.Logger, webhookSecret string) *Handler {
	return &Handler{Service: service, Logger: log, WebhookSecret: webhookSecret}
}

// CreateCheckout handles POST /order/{publicToken}/checkout.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "publicToken")

	result, err := h.Service.CreateCheckoutSession(token)
	if err != nil {
		status := utils.StatusOf(err)
		h.Logger.Error("PAYMENT", fmt.Sprintf("CreateCheckout %s: %v", token, err))
		writeJSON(w, status, utils.ErrorResponse("checkout failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("checkout session created", result))
}

// StripeWebhook handles POST /webhooks/stripe.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read webhook body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		h.Logger.Error("PAYMENT", fmt.Sprintf("webhook signature verification failed: %v", err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.Logger.Error("PAYMENT", fmt.Sprintf("webhook payload decode failed: %v", err))
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		if err := h.Service.HandleSessionCompleted(sess); err != nil {
			h.Logger.Error("PAYMENT", fmt.Sprintf("session completion failed: %v", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	default:
		h.Logger.Debug("PAYMENT", fmt.Sprintf("ignoring webhook event %s", event.Type))
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
