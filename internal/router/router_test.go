package router

import (
	"context"
	"testing"

	"github.com/kmassidik/walletengine/internal/domain"
)

type fakeResolver struct {
	users map[string]domain.User
}

func (f fakeResolver) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, ok := f.users[email]
	if !ok {
		return domain.User{}, domain.New(domain.KindNotFound, "user not found")
	}
	return u, nil
}

func TestResolve_MemoizesTreasuryID(t *testing.T) {
	resolver := fakeResolver{users: map[string]domain.User{
		"treasury@test.local": {ID: "treasury-id"},
	}}

	r, err := Resolve(context.Background(), resolver, "treasury@test.local")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.TreasuryUserID() != "treasury-id" {
		t.Errorf("expected treasury-id, got %s", r.TreasuryUserID())
	}
}

func TestResolve_FailsWhenTreasuryAbsent(t *testing.T) {
	resolver := fakeResolver{users: map[string]domain.User{}}

	_, err := Resolve(context.Background(), resolver, "missing@test.local")
	if err == nil {
		t.Fatal("expected error when treasury user is absent")
	}
}

func TestEndpoints_TopUpAndBonusFromTreasury(t *testing.T) {
	r := &Router{treasuryUserID: "treasury-id"}

	for _, txType := range []domain.TransactionType{domain.TransactionTopUp, domain.TransactionBonus} {
		from, to, err := r.Endpoints(txType, "alice")
		if err != nil {
			t.Fatalf("Endpoints(%s): %v", txType, err)
		}
		if from != "treasury-id" || to != "alice" {
			t.Errorf("Endpoints(%s) = (%s, %s), want (treasury-id, alice)", txType, from, to)
		}
	}
}

func TestEndpoints_SpendToTreasury(t *testing.T) {
	r := &Router{treasuryUserID: "treasury-id"}

	from, to, err := r.Endpoints(domain.TransactionSpend, "alice")
	if err != nil {
		t.Fatalf("Endpoints: %v", err)
	}
	if from != "alice" || to != "treasury-id" {
		t.Errorf("Endpoints(SPEND) = (%s, %s), want (alice, treasury-id)", from, to)
	}
}
