// Package router implements the Request Router: it maps a caller-facing
// (type, userId) pair onto the (fromUserId, toUserId) endpoints the
// transfer engine locks and mutates, using the Treasury as the universal
// counterparty.
package router

import (
	"context"
	"fmt"

	"github.com/kmassidik/walletengine/internal/domain"
)

// TreasuryResolver looks up the Treasury user id by its well-known email.
// Implemented by the store package against the Persistent Store.
type TreasuryResolver interface {
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// Router memoizes the Treasury's user id for the process lifetime, exactly
// as required: resolved once at boot, never invalidated. If the treasury
// user's id changes after boot, routing stays stale until restart - this
// is a documented boot-time invariant, not a bug.
type Router struct {
	treasuryUserID string
}

// Resolve looks up the Treasury by email and memoizes its id. The service
// refuses to start if the Treasury user is absent, per the boot contract.
func Resolve(ctx context.Context, resolver TreasuryResolver, treasuryEmail string) (*Router, error) {
	treasury, err := resolver.FindUserByEmail(ctx, treasuryEmail)
	if err != nil {
		return nil, fmt.Errorf("router: treasury user %q not found at boot: %w", treasuryEmail, err)
	}
	return &Router{treasuryUserID: treasury.ID}, nil
}

func (r *Router) TreasuryUserID() string {
	return r.treasuryUserID
}

// Endpoints maps a transaction type and the acting user to the
// (fromUserId, toUserId) pair the transfer engine will lock and mutate.
func (r *Router) Endpoints(txType domain.TransactionType, userID string) (fromUserID, toUserID string, err error) {
	switch txType {
	case domain.TransactionTopUp, domain.TransactionBonus:
		return r.treasuryUserID, userID, nil
	case domain.TransactionSpend:
		return userID, r.treasuryUserID, nil
	default:
		return "", "", fmt.Errorf("router: unknown transaction type %q", txType)
	}
}
