// Package accountstore persists platform accounts in PostgreSQL.
package accountstore

import (
	"context"
	"errors"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
)

// ErrAccountNotFound is returned when a lookup finds no matching record.
var ErrAccountNotFound = errors.New("account not found")

// KeyDecryptor decrypts an encrypted private key string into raw bytes.
type KeyDecryptor func(encryptedKey string) ([]byte, error)

// Store defines the interface for account persistence.
type Store interface {
	// GetOrCreateByIdentity returns the account for the identity subject,
	// creating it if it does not exist yet. Safe under concurrent calls for
	// the same subject.
	GetOrCreateByIdentity(ctx context.Context, identityID, walletAddress string) (*account.Account, error)
	GetByIdentity(ctx context.Context, identityID string) (*account.Account, error)
	GetByID(ctx context.Context, id int64) (*account.Account, error)
	GetByDepositWallet(ctx context.Context, address string) (*account.Account, error)
	ListDepositWallets(ctx context.Context) ([]string, error)

	// SetDepositWallet stores the wallet address and encrypted key only when
	// no deposit wallet is set yet; returns the stored (possibly pre-existing)
	// account either way.
	SetDepositWallet(ctx context.Context, identityID, address, encryptedKey string) (*account.Account, error)
	GetDepositKey(ctx context.Context, decryptor KeyDecryptor, identityID string) ([]byte, error)

	// AddCredits atomically increments the account balance.
	AddCredits(ctx context.Context, accountID, amount int64) error
}
