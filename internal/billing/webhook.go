package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayurlens/ayurlens-backend/internal/metrics"
)

// maxBodySize is the maximum allowed webhook body size (1 MB). Razorpay
// payloads carry a single payment entity and stay far below this.
const maxBodySize = 1 << 20 // 1 MB

// Events that mark an order as paid. Razorpay sends both payment.captured
// and order.paid for a successful capture; either one triggers the commit
// and the conditional write makes the second a no-op.
const (
	eventPaymentCaptured = "payment.captured"
	eventOrderPaid       = "order.paid"
)

// PayloadArchiver stores raw webhook bodies for audit. Archiving is
// best-effort: a failed archive never fails the webhook response.
type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, provider, eventID string, body []byte) error
}

// WebhookHandler processes Razorpay payment webhooks.
//
// Razorpay signs each delivery with HMAC-SHA256 over the raw body using the
// webhook secret, sent hex-encoded in X-Razorpay-Signature. Deliveries are
// at-least-once, so the handler must tolerate duplicates; it relies on the
// store's conditional commit rather than tracking delivery IDs.
type WebhookHandler struct {
	secret   string
	orders   OrderStore
	archiver PayloadArchiver // optional
	now      func() time.Time
}

// NewWebhookHandler creates a handler bound to the shared webhook secret and
// order store. archiver may be nil to disable payload archiving.
func NewWebhookHandler(secret string, orders OrderStore, archiver PayloadArchiver) *WebhookHandler {
	return &WebhookHandler{
		secret:   secret,
		orders:   orders,
		archiver: archiver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// webhookEvent is the subset of the Razorpay event envelope we act on.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// orderID resolves the order reference from whichever entity the event
// carries: payments name their order in order_id, order events in the
// order entity itself.
func (e *webhookEvent) orderID() string {
	if e.Payload.Payment.Entity.OrderID != "" {
		return e.Payload.Payment.Entity.OrderID
	}
	return e.Payload.Order.Entity.ID
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Webhook: failed to read body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Signature check comes before any parsing: an unverified body is
	// untrusted input and must not reach the JSON decoder or the store.
	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" || !h.verifySignature(body, signature) {
		log.Warn().Msg("Webhook: invalid or missing signature")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warn().Err(err).Msg("Webhook: unparseable event body")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if h.archiver != nil {
		eventID := event.Payload.Payment.Entity.ID
		if eventID == "" {
			eventID = event.orderID()
		}
		if err := h.archiver.ArchivePayload(r.Context(), "razorpay", eventID, body); err != nil {
			log.Warn().Err(err).Msg("Webhook: payload archive failed")
		}
	}

	switch event.Event {
	case eventPaymentCaptured, eventOrderPaid:
		h.handlePaid(r.Context(), w, &event)
	default:
		// Acknowledge everything else so Razorpay stops retrying events
		// we do not act on (refunds, failed payments, settlement).
		log.Debug().Str("event", event.Event).Msg("Webhook: event ignored")
		writeAck(w, "ignored")
	}
}

func (h *WebhookHandler) handlePaid(ctx context.Context, w http.ResponseWriter, event *webhookEvent) {
	rec := metrics.New("AyurLens")
	defer rec.Flush()
	rec.Dimension("Event", event.Event)

	orderID := event.orderID()
	if orderID == "" {
		log.Warn().Str("event", event.Event).Msg("Webhook: paid event without order reference")
		http.Error(w, "missing order reference", http.StatusBadRequest)
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Str("orderId", orderID).Msg("Webhook: order lookup failed")
		http.Error(w, "order lookup failed", http.StatusInternalServerError)
		return
	}
	if order == nil {
		// Not our order (or created in a different environment). Acknowledge
		// so the provider does not retry forever.
		log.Warn().Str("orderId", orderID).Msg("Webhook: unknown order")
		rec.Count("WebhookUnknownOrder")
		writeAck(w, "unknown order")
		return
	}

	grant, err := GrantForOrder(order, h.now())
	if err != nil {
		log.Error().Err(err).Str("orderId", orderID).Msg("Webhook: grant build failed")
		http.Error(w, "grant failed", http.StatusInternalServerError)
		return
	}

	receiptID := event.Payload.Payment.Entity.ID
	err = h.orders.CommitPaid(ctx, orderID, receiptID, grant)
	switch {
	case errors.Is(err, ErrAlreadyPaid):
		log.Info().Str("orderId", orderID).Msg("Webhook: duplicate delivery, order already paid")
		rec.Count("WebhookDuplicate")
		writeAck(w, "already processed")
	case err != nil:
		log.Error().Err(err).Str("orderId", orderID).Msg("Webhook: paid commit failed")
		http.Error(w, "commit failed", http.StatusInternalServerError)
	default:
		log.Info().
			Str("orderId", orderID).
			Str("receiptId", receiptID).
			Str("planId", order.PlanID).
			Str("userId", order.UserID).
			Msg("Webhook: order paid, entitlement granted")
		rec.Count("WebhookOrderPaid")
		writeAck(w, "ok")
	}
}

// verifySignature checks the hex-encoded HMAC-SHA256 of the body against
// the X-Razorpay-Signature value. Razorpay sends the bare hex digest with
// no algorithm prefix. Uses hmac.Equal for constant-time comparison.
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	received, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	return hmac.Equal(received, mac.Sum(nil))
}

func writeAck(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
