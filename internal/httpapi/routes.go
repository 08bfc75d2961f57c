package httpapi

import (
	"net/http"

	"github.com/kmassidik/walletengine/internal/common/middleware"
)

// RegisterRoutes mounts the wallet engine's public HTTP surface behind
// bearer-token identity verification.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, jwtSecret string) {
	protected := middleware.Identity(jwtSecret)

	mux.Handle("POST /api/v1/wallets/transactions", protected(http.HandlerFunc(h.CreateTransfer)))
	mux.Handle("GET /api/v1/wallets/{userId}/balance", protected(http.HandlerFunc(h.GetBalance)))
	mux.Handle("GET /api/v1/wallets/{userId}/ledger", protected(http.HandlerFunc(h.GetLedger)))
	mux.Handle("GET /api/v1/wallets/{userId}/transactions", protected(http.HandlerFunc(h.GetTransactionHistory)))
	mux.Handle("GET /api/v1/wallets/transactions/{transactionId}", protected(http.HandlerFunc(h.GetTransactionByID)))
}
