package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kmassidik/walletengine/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondDomainError maps a domain.Error's Kind to an HTTP status and
// writes it as the error envelope. notFoundStatus lets the caller decide
// whether "not found" means a bad request (a transfer referencing a
// wallet that doesn't exist) or a true 404 (looking up a transaction by
// id) - the same Kind means different things depending on which route hit
// it.
func respondDomainError(w http.ResponseWriter, err error, notFoundStatus int) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		respondJSON(w, statusForKind(derr.Kind, notFoundStatus), errorResponseDTO{Error: derr.Message, Code: derr.Kind.String()})
		return
	}
	respondJSON(w, http.StatusInternalServerError, errorResponseDTO{Error: "internal error", Code: domain.KindInfrastructure.String()})
}

func statusForKind(kind domain.Kind, notFoundStatus int) int {
	switch kind {
	case domain.KindValidation, domain.KindInsufficientFunds:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return notFoundStatus
	case domain.KindConflict, domain.KindInFlight:
		return http.StatusConflict
	case domain.KindContention, domain.KindCorruption, domain.KindInfrastructure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
