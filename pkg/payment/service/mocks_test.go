package service

import (
	"context"
	"time"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
	"github.com/hatchlabs/devbox-middleware/pkg/payment"
	"github.com/hatchlabs/devbox-middleware/pkg/solana"
)

// mockStore is a function-field test double for Store and PollerStore.
type mockStore struct {
	createIntent             func(ctx context.Context, intent *payment.Intent) error
	getIntent                func(ctx context.Context, id string) (*payment.Intent, error)
	listIntentsByAccount     func(ctx context.Context, accountID int64) ([]*payment.Intent, error)
	latestPendingIntent      func(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error)
	expireIntent             func(ctx context.Context, id string) error
	expireStaleIntents       func(ctx context.Context, now time.Time) (int64, error)
	settle                   func(ctx context.Context, intent *payment.Intent, transfer *payment.Transfer, credits int64) (*payment.Settlement, error)
	hasSettlement            func(ctx context.Context, signature string) (bool, error)
	listSettlementsByAccount func(ctx context.Context, accountID int64) ([]*payment.Settlement, error)
	listDepositWallets       func(ctx context.Context) ([]string, error)
}

func (m *mockStore) CreateIntent(ctx context.Context, intent *payment.Intent) error {
	return m.createIntent(ctx, intent)
}
func (m *mockStore) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	return m.getIntent(ctx, id)
}
func (m *mockStore) ListIntentsByAccount(ctx context.Context, accountID int64) ([]*payment.Intent, error) {
	return m.listIntentsByAccount(ctx, accountID)
}
func (m *mockStore) LatestPendingIntent(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error) {
	return m.latestPendingIntent(ctx, wallet, tokenMint, now)
}
func (m *mockStore) ExpireIntent(ctx context.Context, id string) error {
	return m.expireIntent(ctx, id)
}
func (m *mockStore) ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error) {
	return m.expireStaleIntents(ctx, now)
}
func (m *mockStore) Settle(ctx context.Context, intent *payment.Intent, transfer *payment.Transfer, credits int64) (*payment.Settlement, error) {
	return m.settle(ctx, intent, transfer, credits)
}
func (m *mockStore) HasSettlement(ctx context.Context, signature string) (bool, error) {
	if m.hasSettlement == nil {
		return false, nil
	}
	return m.hasSettlement(ctx, signature)
}
func (m *mockStore) ListSettlementsByAccount(ctx context.Context, accountID int64) ([]*payment.Settlement, error) {
	return m.listSettlementsByAccount(ctx, accountID)
}
func (m *mockStore) ListDepositWallets(ctx context.Context) ([]string, error) {
	return m.listDepositWallets(ctx)
}

// mockAccounts is a function-field test double for Accounts.
type mockAccounts struct {
	getByID            func(ctx context.Context, id int64) (*account.Account, error)
	getByDepositWallet func(ctx context.Context, address string) (*account.Account, error)
}

func (m *mockAccounts) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	return m.getByID(ctx, id)
}
func (m *mockAccounts) GetByDepositWallet(ctx context.Context, address string) (*account.Account, error) {
	return m.getByDepositWallet(ctx, address)
}

// mockChain is a function-field test double for Chain.
type mockChain struct {
	getBalance              func(ctx context.Context, address string) (uint64, error)
	getSignaturesForAddress func(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	getTransaction          func(ctx context.Context, signature string) (*solana.Transaction, error)
}

func (m *mockChain) GetBalance(ctx context.Context, address string) (uint64, error) {
	if m.getBalance == nil {
		return 0, nil
	}
	return m.getBalance(ctx, address)
}

func (m *mockChain) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	return m.getSignaturesForAddress(ctx, address, limit)
}
func (m *mockChain) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	return m.getTransaction(ctx, signature)
}
