// Package paymentstore persists payment intents and settlements in PostgreSQL.
package paymentstore

import (
	"context"
	"errors"
	"time"

	"github.com/hatchlabs/devbox-middleware/pkg/payment"
)

var (
	// ErrIntentNotFound is returned when a lookup finds no matching record.
	ErrIntentNotFound = errors.New("payment intent not found")
	// ErrAlreadySettled is returned when a settlement for the signature
	// already exists.
	ErrAlreadySettled = errors.New("signature already settled")
)

// Store defines the interface for payment persistence.
type Store interface {
	CreateIntent(ctx context.Context, intent *payment.Intent) error
	GetIntent(ctx context.Context, id string) (*payment.Intent, error)
	ListIntentsByAccount(ctx context.Context, accountID int64) ([]*payment.Intent, error)

	// LatestPendingIntent returns the most-recently-created pending,
	// unexpired intent for (wallet, mint), or ErrIntentNotFound.
	LatestPendingIntent(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error)

	// ExpireIntent flips a single intent pending->expired.
	ExpireIntent(ctx context.Context, id string) error
	// ExpireStaleIntents flips all pending intents past their deadline and
	// returns how many were expired.
	ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error)

	// Settle records the settlement, confirms the intent and credits the
	// account, all in one transaction. Returns ErrAlreadySettled when the
	// signature was already recorded, no matter which concurrent caller won.
	Settle(ctx context.Context, intent *payment.Intent, transfer *payment.Transfer, credits int64) (*payment.Settlement, error)

	HasSettlement(ctx context.Context, signature string) (bool, error)
	ListSettlementsByAccount(ctx context.Context, accountID int64) ([]*payment.Settlement, error)
}
