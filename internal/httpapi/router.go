package httpapi

import (
	"net/http"
	"time"
)

// RouterConfig collects the handlers and limits the mux needs.
type RouterConfig struct {
	Identifier      Identifier
	KeyConfigured   bool
	MaxUploadBytes  int64
	RequestDeadline time.Duration
	Webhook         http.Handler // optional; omitted when no secret is set
	Version         string
}

// NewMux builds the API routing table.
func NewMux(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/identify", NewIdentifyHandler(cfg.Identifier, cfg.KeyConfigured, cfg.MaxUploadBytes, cfg.RequestDeadline))
	if cfg.Webhook != nil {
		mux.Handle("/webhooks/razorpay", cfg.Webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": cfg.Version,
		})
	})
	return mux
}
