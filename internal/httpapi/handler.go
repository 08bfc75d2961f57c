// Package httpapi is the thin HTTP boundary over the Idempotency
// Coordinator / Transfer Engine gateway and the Read Projections. It owns
// request decoding, query-parameter parsing, and Kind-to-status mapping -
// nothing in here touches the Persistent Store or Fast Idempotency Cache
// directly.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/gateway"
	"github.com/kmassidik/walletengine/internal/reporting"
	"github.com/kmassidik/walletengine/internal/transfer"
)

type Handler struct {
	gateway     *gateway.TransferGateway
	projections *reporting.Projections
	log         *logger.Logger
}

func NewHandler(g *gateway.TransferGateway, projections *reporting.Projections, log *logger.Logger) *Handler {
	return &Handler{gateway: g, projections: projections, log: log}
}

// CreateTransfer handles POST /api/v1/wallets/transactions. The
// Idempotency-Key header is mandatory - a missing key never reaches the
// gateway at all, since there would be nothing to reserve.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey == "" {
		respondJSON(w, http.StatusBadRequest, errorResponseDTO{Error: "Idempotency-Key header is required", Code: domain.KindValidation.String()})
		return
	}

	var body transferRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponseDTO{Error: "invalid request body", Code: domain.KindValidation.String()})
		return
	}

	req := transfer.Request{
		IdempotencyKey: idempotencyKey,
		UserID:         body.UserID,
		Type:           domain.TransactionType(body.Type),
		AssetSymbol:    body.AssetSymbol,
		Amount:         body.Amount,
	}

	result, inFlight, err := h.gateway.ExecuteTransfer(r.Context(), idempotencyKey, req)
	if err != nil {
		if inFlight {
			respondJSON(w, http.StatusConflict, errorResponseDTO{Error: err.Error(), Code: domain.KindInFlight.String()})
			return
		}
		h.log.Errorf("transfer failed: %v", err)
		respondDomainError(w, err, http.StatusBadRequest)
		return
	}

	respondJSON(w, http.StatusOK, transferResponseDTO{
		Status:  "SUCCESS",
		TxID:    result.TxID,
		Balance: result.Balance.String(),
		Cached:  result.Cached,
	})
}

// GetBalance handles GET /api/v1/wallets/{userId}/balance?asset=SYMBOL.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		respondJSON(w, http.StatusBadRequest, errorResponseDTO{Error: "asset query parameter is required", Code: domain.KindValidation.String()})
		return
	}

	wallet, err := h.projections.GetBalance(r.Context(), userID, asset)
	if err != nil {
		respondDomainError(w, err, http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, walletResponseDTO{UserID: wallet.UserID, AssetSymbol: asset, Balance: wallet.Balance.String()})
}

// GetLedger handles GET /api/v1/wallets/{userId}/ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	q := r.URL.Query()

	page, err := h.projections.GetLedger(r.Context(), userID, q.Get("asset"), parseIntParam(q, "limit", 0), parseIntParam(q, "offset", 0))
	if err != nil {
		respondDomainError(w, err, http.StatusNotFound)
		return
	}

	entries := make([]ledgerEntryDTO, len(page.Entries))
	for i, e := range page.Entries {
		entries[i] = toLedgerEntryDTO(e)
	}
	respondJSON(w, http.StatusOK, ledgerPageDTO{Entries: entries, Pagination: toPaginationDTO(page.Pagination)})
}

// GetTransactionHistory handles GET /api/v1/wallets/{userId}/transactions.
func (h *Handler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	q := r.URL.Query()

	filter := reporting.TransactionHistoryFilter{
		Type:        domain.TransactionType(q.Get("type")),
		AssetSymbol: q.Get("asset"),
		Limit:       parseIntParam(q, "limit", 0),
		Offset:      parseIntParam(q, "offset", 0),
	}
	if start, ok := parseTimeParam(q, "startDate"); ok {
		filter.StartDate = &start
	}
	if end, ok := parseTimeParam(q, "endDate"); ok {
		filter.EndDate = &end
	}

	page, err := h.projections.GetTransactionHistory(r.Context(), userID, filter)
	if err != nil {
		respondDomainError(w, err, http.StatusNotFound)
		return
	}

	txns := make([]transactionDTO, len(page.Transactions))
	for i, t := range page.Transactions {
		txns[i] = toTransactionDTO(t)
	}
	respondJSON(w, http.StatusOK, transactionPageDTO{Transactions: txns, Pagination: toPaginationDTO(page.Pagination)})
}

// GetTransactionByID handles GET /api/v1/wallets/transactions/{transactionId}.
// A missing transaction is a genuine 404 - unlike a missing wallet, there
// is no request-shape mistake a caller can fix by looking at its own input.
func (h *Handler) GetTransactionByID(w http.ResponseWriter, r *http.Request) {
	txID := r.PathValue("transactionId")

	detail, err := h.projections.GetTransactionByID(r.Context(), txID)
	if err != nil {
		respondDomainError(w, err, http.StatusNotFound)
		return
	}

	ledger := make([]ledgerEntryDTO, len(detail.Ledger))
	for i, e := range detail.Ledger {
		ledger[i] = toLedgerEntryDTO(e)
	}
	respondJSON(w, http.StatusOK, transactionDetailDTO{Transaction: toTransactionDTO(detail.Transaction), Ledger: ledger})
}

func parseIntParam(q map[string][]string, name string, fallback int) int {
	values, ok := q[name]
	if !ok || len(values) == 0 || values[0] == "" {
		return fallback
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return fallback
	}
	return n
}

func parseTimeParam(q map[string][]string, name string) (time.Time, bool) {
	values, ok := q[name]
	if !ok || len(values) == 0 || values[0] == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, values[0])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
