// Package gateway wires the Idempotency Coordinator in front of the
// Transfer Engine, implementing the control flow from the system
// overview: reserve the idempotency key in FIC, run the engine under one
// PS transaction with retry, then write the terminal outcome back to FIC.
// It is the only caller of both idempotency.Coordinator and
// transfer.Engine - nothing else in the module needs to know both exist.
package gateway

import (
	"context"
	"errors"

	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/domain"
	"github.com/kmassidik/walletengine/internal/domain/money"
	"github.com/kmassidik/walletengine/internal/idempotency"
	"github.com/kmassidik/walletengine/internal/transfer"
)

type TransferGateway struct {
	coordinator *idempotency.Coordinator
	engine      *transfer.Engine
	log         *logger.Logger
}

func New(coordinator *idempotency.Coordinator, engine *transfer.Engine, log *logger.Logger) *TransferGateway {
	return &TransferGateway{coordinator: coordinator, engine: engine, log: log}
}

// ExecuteTransfer runs the full IC -> TE -> IC control flow. The bool
// return reports whether the request is a conflicting in-flight duplicate
// (caller should respond 409 and not retry on its own account).
func (g *TransferGateway) ExecuteTransfer(ctx context.Context, idempotencyKey string, req transfer.Request) (domain.TransferResult, bool, error) {
	reserve, err := g.coordinator.ReserveOrFetch(ctx, idempotencyKey)
	if err != nil {
		// FIC is an optimistic cache, not a lock - an outage degrades to
		// PS-only idempotency via the engine's own unique-constraint probe,
		// never correctness.
		g.log.Warnf("idempotency cache unavailable, degrading to PS-only idempotency: %v", err)
		reserve = idempotency.ReserveResult{State: idempotency.StateReserved}
	}

	switch reserve.State {
	case idempotency.StateTerminal:
		return g.resultFromTerminal(reserve.Outcome)
	case idempotency.StateInFlight:
		return domain.TransferResult{}, true, domain.New(domain.KindInFlight, "a request with this idempotency key is already being processed")
	}

	result, err := g.engine.ExecuteTransfer(ctx, req)
	if err != nil {
		g.finalizeFailure(ctx, idempotencyKey, err)
		return domain.TransferResult{}, false, err
	}

	outcome := idempotency.Outcome{Status: idempotency.StatusSuccess, TxID: result.TxID, Balance: result.Balance.String()}
	if finalizeErr := g.coordinator.Finalize(ctx, idempotencyKey, outcome); finalizeErr != nil {
		g.log.Errorf("finalize success outcome for %s: %v", idempotencyKey, finalizeErr)
	}
	return result, false, nil
}

func (g *TransferGateway) resultFromTerminal(outcome idempotency.Outcome) (domain.TransferResult, bool, error) {
	if outcome.Status == idempotency.StatusSuccess {
		balance := money.Zero
		if outcome.Balance != "" {
			if parsed, err := money.Parse(outcome.Balance); err == nil {
				balance = parsed
			}
		}
		return domain.TransferResult{TxID: outcome.TxID, Balance: balance, Cached: true}, false, nil
	}
	return domain.TransferResult{}, false, domain.New(domain.KindValidation, outcome.Message)
}

func (g *TransferGateway) finalizeFailure(ctx context.Context, idempotencyKey string, err error) {
	if domain.IsKind(err, domain.KindInFlight) || domain.IsKind(err, domain.KindConflict) {
		return
	}

	var derr *domain.Error
	message := err.Error()
	kind := domain.KindInfrastructure.String()
	if errors.As(err, &derr) {
		message = derr.Message
		kind = derr.Kind.String()
	}

	outcome := idempotency.Outcome{Status: idempotency.StatusFailed, Error: kind, Message: message}
	if finalizeErr := g.coordinator.Finalize(ctx, idempotencyKey, outcome); finalizeErr != nil {
		g.log.Errorf("finalize failed outcome for %s: %v", idempotencyKey, finalizeErr)
	}
}
