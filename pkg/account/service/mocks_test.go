package service

import (
	"context"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
)

// mockStore is a function-field test double for Store.
type mockStore struct {
	getOrCreateByIdentity func(ctx context.Context, identityID, walletAddress string) (*account.Account, error)
	getByID               func(ctx context.Context, id int64) (*account.Account, error)
	setDepositWallet      func(ctx context.Context, identityID, address, encryptedKey string) (*account.Account, error)
}

func (m *mockStore) GetOrCreateByIdentity(ctx context.Context, identityID, walletAddress string) (*account.Account, error) {
	return m.getOrCreateByIdentity(ctx, identityID, walletAddress)
}

func (m *mockStore) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	return m.getByID(ctx, id)
}

func (m *mockStore) SetDepositWallet(ctx context.Context, identityID, address, encryptedKey string) (*account.Account, error) {
	return m.setDepositWallet(ctx, identityID, address, encryptedKey)
}
