package accountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the account store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) GetOrCreateByIdentity(ctx context.Context, identityID, walletAddress string) (*account.Account, error) {
	dao := toAccountDao(account.New(identityID, walletAddress))

	// Insert-or-ignore, then re-select. Two concurrent first requests for the
	// same subject both land on the same row.
	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (identity_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	acct, err := s.GetByIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	// Late wallet linkage: keep the stored wallet address current.
	if walletAddress != "" && acct.WalletAddress != walletAddress {
		_, err = s.db.NewUpdate().
			Model((*AccountDao)(nil)).
			Set("wallet_address = ?", walletAddress).
			Where("identity_id = ?", identityID).
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to update wallet address: %w", err)
		}
		acct.WalletAddress = walletAddress
	}

	return acct, nil
}

func (s *pgStore) GetByIdentity(ctx context.Context, identityID string) (*account.Account, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("identity_id = ?", identityID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(dao), nil
}

func (s *pgStore) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(dao), nil
}

func (s *pgStore) GetByDepositWallet(ctx context.Context, address string) (*account.Account, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("deposit_wallet_address = ?", address).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account by deposit wallet: %w", err)
	}
	return toAccount(dao), nil
}

func (s *pgStore) ListDepositWallets(ctx context.Context) ([]string, error) {
	var addrs []string
	err := s.db.NewSelect().
		Model((*AccountDao)(nil)).
		Column("deposit_wallet_address").
		Where("deposit_wallet_address IS NOT NULL").
		Scan(ctx, &addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit wallets: %w", err)
	}
	return addrs, nil
}

func (s *pgStore) SetDepositWallet(ctx context.Context, identityID, address, encryptedKey string) (*account.Account, error) {
	// Only the first writer wins; a second call keeps the existing wallet so
	// the stored encrypted key always matches the stored address.
	res, err := s.db.NewUpdate().
		Model((*AccountDao)(nil)).
		Set("deposit_wallet_address = ?", address).
		Set("deposit_private_key_encrypted = ?", encryptedKey).
		Where("identity_id = ?", identityID).
		Where("deposit_wallet_address IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set deposit wallet: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to set deposit wallet: %w", err)
	}

	return s.GetByIdentity(ctx, identityID)
}

func (s *pgStore) GetDepositKey(ctx context.Context, decryptor KeyDecryptor, identityID string) ([]byte, error) {
	dao := new(AccountDao)
	err := s.db.NewSelect().
		Model(dao).
		Column("deposit_private_key_encrypted").
		Where("identity_id = ?", identityID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get deposit key: %w", err)
	}

	if dao.DepositPrivateKeyEncrypted == nil || *dao.DepositPrivateKeyEncrypted == "" {
		return nil, nil
	}

	decrypted, err := decryptor(*dao.DepositPrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return decrypted, nil
}

func (s *pgStore) AddCredits(ctx context.Context, accountID, amount int64) error {
	_, err := s.db.NewUpdate().
		Model((*AccountDao)(nil)).
		Set("credits = credits + ?", amount).
		Where("id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add credits: %w", err)
	}
	return nil
}
