package httpapi

import "github.com/kmassidik/walletengine/internal/domain"

type transferRequestDTO struct {
	UserID      string `json:"userId"`
	Type        string `json:"type"`
	AssetSymbol string `json:"assetSymbol"`
	Amount      string `json:"amount"`
}

type transferResponseDTO struct {
	Status  string `json:"status"`
	TxID    string `json:"txId"`
	Balance string `json:"balance"`
	Cached  bool   `json:"_cached,omitempty"`
}

type walletResponseDTO struct {
	UserID      string `json:"userId"`
	AssetSymbol string `json:"assetSymbol"`
	Balance     string `json:"balance"`
}

type ledgerEntryDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	EntryType     string `json:"entryType"`
	Amount        string `json:"amount"`
	BalanceAfter  string `json:"balanceAfter"`
	CreatedAt     string `json:"createdAt"`
}

type paginationDTO struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

type ledgerPageDTO struct {
	Entries    []ledgerEntryDTO `json:"entries"`
	Pagination paginationDTO    `json:"pagination"`
}

type transactionDTO struct {
	ID             string `json:"id"`
	IdempotencyKey string `json:"idempotencyKey"`
	FromWallet     string `json:"fromWallet"`
	ToWallet       string `json:"toWallet"`
	Amount         string `json:"amount"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt"`
}

type transactionPageDTO struct {
	Transactions []transactionDTO `json:"transactions"`
	Pagination   paginationDTO    `json:"pagination"`
}

type transactionDetailDTO struct {
	Transaction transactionDTO   `json:"transaction"`
	Ledger      []ledgerEntryDTO `json:"ledger"`
}

type errorResponseDTO struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toLedgerEntryDTO(e domain.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		EntryType:     string(e.EntryType),
		Amount:        e.Amount.String(),
		BalanceAfter:  e.BalanceAfter.String(),
		CreatedAt:     e.CreatedAt.Format(timeFormat),
	}
}

func toTransactionDTO(t domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:             t.ID,
		IdempotencyKey: t.IdempotencyKey,
		FromWallet:     t.FromWallet,
		ToWallet:       t.ToWallet,
		Amount:         t.Amount.String(),
		Type:           string(t.Type),
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt.Format(timeFormat),
	}
}

func toPaginationDTO(p domain.Pagination) paginationDTO {
	return paginationDTO{Limit: p.Limit, Offset: p.Offset, Total: p.Total, HasMore: p.HasMore}
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
