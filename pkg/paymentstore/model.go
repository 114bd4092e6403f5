package paymentstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/hatchlabs/devbox-middleware/pkg/payment"
)

// IntentDao is a data access object that maps directly to the
// 'payment_intents' table in PostgreSQL.
type IntentDao struct {
	bun.BaseModel     `bun:"table:payment_intents,alias:pi"`
	ID                string    `bun:"id,pk,type:uuid"`
	AccountID         int64     `bun:"account_id,notnull"`
	AmountUSD         string    `bun:"amount_usd,notnull,type:numeric(38,18)"`
	AmountToken       string    `bun:"amount_token,notnull,type:numeric(38,18)"`
	TokenSymbol       string    `bun:"token_symbol,notnull,type:varchar(16)"`
	TokenMint         *string   `bun:"token_mint,type:varchar(64)"`
	DestinationWallet string    `bun:"destination_wallet,notnull,type:varchar(64)"`
	Status            string    `bun:"status,notnull,type:varchar(16)"`
	ExpiresAt         time.Time `bun:"expires_at,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// SettlementDao maps to the 'payment_settlements' table. The unique
// signature column is the replay guard.
type SettlementDao struct {
	bun.BaseModel `bun:"table:payment_settlements,alias:ps"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Signature     string    `bun:"signature,unique,notnull,type:varchar(128)"`
	IntentID      string    `bun:"intent_id,notnull,type:uuid"`
	Wallet        string    `bun:"wallet,notnull,type:varchar(64)"`
	TokenMint     *string   `bun:"token_mint,type:varchar(64)"`
	AmountToken   string    `bun:"amount_token,notnull,type:numeric(38,18)"`
	Slot          int64     `bun:"slot,notnull,default:0"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func toIntentDao(i *payment.Intent) *IntentDao {
	dao := &IntentDao{
		ID:                i.ID,
		AccountID:         i.AccountID,
		AmountUSD:         i.AmountUSD.String(),
		AmountToken:       i.AmountToken.String(),
		TokenSymbol:       i.TokenSymbol,
		DestinationWallet: i.DestinationWallet,
		Status:            string(i.Status),
		ExpiresAt:         i.ExpiresAt,
	}
	if i.TokenMint != "" {
		dao.TokenMint = &i.TokenMint
	}
	return dao
}

func toIntent(dao *IntentDao) (*payment.Intent, error) {
	amountUSD, err := decimal.NewFromString(dao.AmountUSD)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_usd %q: %w", dao.AmountUSD, err)
	}
	amountToken, err := decimal.NewFromString(dao.AmountToken)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_token %q: %w", dao.AmountToken, err)
	}

	i := &payment.Intent{
		ID:                dao.ID,
		AccountID:         dao.AccountID,
		AmountUSD:         amountUSD,
		AmountToken:       amountToken,
		TokenSymbol:       dao.TokenSymbol,
		DestinationWallet: dao.DestinationWallet,
		Status:            payment.IntentStatus(dao.Status),
		ExpiresAt:         dao.ExpiresAt,
		CreatedAt:         dao.CreatedAt,
	}
	if dao.TokenMint != nil {
		i.TokenMint = *dao.TokenMint
	}
	return i, nil
}

func toSettlement(dao *SettlementDao) (*payment.Settlement, error) {
	amount, err := decimal.NewFromString(dao.AmountToken)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_token %q: %w", dao.AmountToken, err)
	}

	s := &payment.Settlement{
		ID:          dao.ID,
		Signature:   dao.Signature,
		IntentID:    dao.IntentID,
		Wallet:      dao.Wallet,
		AmountToken: amount,
		Slot:        uint64(dao.Slot),
		CreatedAt:   dao.CreatedAt,
	}
	if dao.TokenMint != nil {
		s.TokenMint = *dao.TokenMint
	}
	return s, nil
}
