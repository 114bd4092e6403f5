package paymentstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/payment"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the payment store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) CreateIntent(ctx context.Context, intent *payment.Intent) error {
	dao := toIntentDao(intent)
	_, err := s.db.NewInsert().
		Model(dao).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (s *pgStore) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	dao := new(IntentDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return toIntent(dao)
}

func (s *pgStore) ListIntentsByAccount(ctx context.Context, accountID int64) ([]*payment.Intent, error) {
	var daos []IntentDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment intents: %w", err)
	}

	intents := make([]*payment.Intent, 0, len(daos))
	for i := range daos {
		intent, err := toIntent(&daos[i])
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func (s *pgStore) LatestPendingIntent(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error) {
	dao := new(IntentDao)
	query := s.db.NewSelect().
		Model(dao).
		Where("destination_wallet = ?", wallet).
		Where("status = ?", string(payment.IntentPending)).
		Where("expires_at > ?", now).
		Order("created_at DESC").
		Limit(1)

	if tokenMint == "" {
		query = query.Where("token_mint IS NULL")
	} else {
		query = query.Where("token_mint = ?", tokenMint)
	}

	err := query.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to find pending intent: %w", err)
	}
	return toIntent(dao)
}

func (s *pgStore) ExpireIntent(ctx context.Context, id string) error {
	_, err := s.db.NewUpdate().
		Model((*IntentDao)(nil)).
		Set("status = ?", string(payment.IntentExpired)).
		Where("id = ?", id).
		Where("status = ?", string(payment.IntentPending)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire intent: %w", err)
	}
	return nil
}

func (s *pgStore) ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*IntentDao)(nil)).
		Set("status = ?", string(payment.IntentExpired)).
		Where("status = ?", string(payment.IntentPending)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale intents: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale intents: %w", err)
	}
	return rows, nil
}

func (s *pgStore) Settle(ctx context.Context, intent *payment.Intent, transfer *payment.Transfer, credits int64) (*payment.Settlement, error) {
	dao := &SettlementDao{
		Signature:   transfer.Signature,
		IntentID:    intent.ID,
		Wallet:      transfer.ToWallet,
		AmountToken: transfer.Amount.String(),
		Slot:        int64(transfer.Slot),
	}
	if transfer.TokenMint != "" {
		dao.TokenMint = &transfer.TokenMint
	}

	// Settlement insert, intent confirmation and credit increment share one
	// transaction: two concurrent deliveries of the same signature race on
	// the unique signature column, and only the winner credits the account.
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(dao).
			On("CONFLICT (signature) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
		if rows == 0 {
			return ErrAlreadySettled
		}

		res, err = tx.NewUpdate().
			Model((*IntentDao)(nil)).
			Set("status = ?", string(payment.IntentConfirmed)).
			Where("id = ?", intent.ID).
			Where("status = ?", string(payment.IntentPending)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to confirm intent: %w", err)
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to confirm intent: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("intent %s is no longer pending", intent.ID)
		}

		_, err = tx.NewUpdate().
			TableExpr("accounts").
			Set("credits = credits + ?", credits).
			Where("id = ?", intent.AccountID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to credit account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toSettlement(dao)
}

func (s *pgStore) HasSettlement(ctx context.Context, signature string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*SettlementDao)(nil)).
		Where("signature = ?", signature).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check settlement: %w", err)
	}
	return exists, nil
}

func (s *pgStore) ListSettlementsByAccount(ctx context.Context, accountID int64) ([]*payment.Settlement, error) {
	var daos []SettlementDao
	err := s.db.NewSelect().
		Model(&daos).
		Join("JOIN payment_intents AS pi ON pi.id = ps.intent_id").
		Where("pi.account_id = ?", accountID).
		Order("ps.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}

	settlements := make([]*payment.Settlement, 0, len(daos))
	for i := range daos {
		settlement, err := toSettlement(&daos[i])
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, settlement)
	}
	return settlements, nil
}
