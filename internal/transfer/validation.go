package transfer

import (
	"regexp"
	"strings"

	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9_]{1,32}$`)

// Request is the validated, typed input to ExecuteTransfer - the engine
// never accepts a loose map or reads request headers itself, per the
// boundary-parsing discipline the HTTP adapter enforces upstream.
type Request struct {
	IdempotencyKey string
	UserID         string
	Type           domain.TransactionType
	AssetSymbol    string
	Amount         string
}

func validateRequest(req Request, maxAmount money.Amount) (amount money.Amount, assetSymbol string, err error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return money.Amount{}, "", domain.New(domain.KindValidation, "idempotencyKey is required")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return money.Amount{}, "", domain.New(domain.KindValidation, "userId is required")
	}
	if !req.Type.Valid() {
		return money.Amount{}, "", domain.New(domain.KindValidation, "type must be one of TOP_UP, BONUS, SPEND")
	}
	assetSymbol = strings.ToUpper(strings.TrimSpace(req.AssetSymbol))
	if !symbolRegex.MatchString(assetSymbol) {
		return money.Amount{}, "", domain.New(domain.KindValidation, "assetSymbol is invalid")
	}

	amount, err = money.Parse(req.Amount)
	if err != nil {
		return money.Amount{}, "", domain.Wrap(domain.KindValidation, "amount is not a valid decimal", err)
	}
	if !amount.IsPositive() {
		return money.Amount{}, "", domain.New(domain.KindValidation, "amount must be strictly positive")
	}
	if amount.ExceedsCeiling(maxAmount) {
		return money.Amount{}, "", domain.New(domain.KindValidation, "amount exceeds the configured maximum")
	}

	return amount, assetSymbol, nil
}
