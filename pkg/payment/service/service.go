// Package service implements the payment business logic: intent creation,
// transfer matching and settlement.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/internal/metrics"
	"github.com/hatchlabs/devbox-middleware/pkg/account"
	"github.com/hatchlabs/devbox-middleware/pkg/accountstore"
	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	"github.com/hatchlabs/devbox-middleware/pkg/config"
	"github.com/hatchlabs/devbox-middleware/pkg/payment"
	"github.com/hatchlabs/devbox-middleware/pkg/paymentstore"
)

// Store is the narrow payment persistence interface for the service.
type Store interface {
	CreateIntent(ctx context.Context, intent *payment.Intent) error
	GetIntent(ctx context.Context, id string) (*payment.Intent, error)
	ListIntentsByAccount(ctx context.Context, accountID int64) ([]*payment.Intent, error)
	LatestPendingIntent(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error)
	ExpireIntent(ctx context.Context, id string) error
	Settle(ctx context.Context, intent *payment.Intent, transfer *payment.Transfer, credits int64) (*payment.Settlement, error)
	HasSettlement(ctx context.Context, signature string) (bool, error)
	ListSettlementsByAccount(ctx context.Context, accountID int64) ([]*payment.Settlement, error)
}

// Accounts is the slice of the account store the payment service uses.
type Accounts interface {
	GetByID(ctx context.Context, id int64) (*account.Account, error)
	GetByDepositWallet(ctx context.Context, address string) (*account.Account, error)
}

// Service defines the payment business logic.
type Service interface {
	CreateIntent(ctx context.Context, accountID int64, req *payment.CreateIntentRequest) (*payment.IntentResponse, error)
	// GetIntent returns an intent, lazily flipping it to expired when its
	// deadline has passed.
	GetIntent(ctx context.Context, accountID int64, id string) (*payment.IntentResponse, error)
	ListIntents(ctx context.Context, accountID int64) ([]*payment.IntentResponse, error)
	ListSettlements(ctx context.Context, accountID int64) ([]*payment.SettlementResponse, error)

	// HandleTransfer matches a detected inbound transfer against the most
	// recent pending intent for its destination wallet and settles on a
	// tolerance match. Unknown wallets and duplicate signatures are no-ops.
	HandleTransfer(ctx context.Context, transfer *payment.Transfer) error
}

type paymentService struct {
	store    Store
	accounts Accounts
	cfg      *config.PaymentsConfig

	tolerancePct decimal.Decimal
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new payment service.
func NewService(store Store, accounts Accounts, cfg *config.PaymentsConfig, logger *zap.Logger) (Service, error) {
	tolerance, err := decimal.NewFromString(cfg.TolerancePct)
	if err != nil {
		return nil, fmt.Errorf("parse tolerance_pct %q: %w", cfg.TolerancePct, err)
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance_pct must not be negative")
	}

	return &paymentService{
		store:        store,
		accounts:     accounts,
		cfg:          cfg,
		tolerancePct: tolerance,
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *paymentService) CreateIntent(ctx context.Context, accountID int64, req *payment.CreateIntentRequest) (*payment.IntentResponse, error) {
	amountUSD, err := decimal.NewFromString(req.AmountUSD)
	if err != nil || !amountUSD.IsPositive() {
		return nil, apperrors.BadRequestError(err, "amount_usd must be a positive decimal")
	}
	amountToken, err := decimal.NewFromString(req.AmountToken)
	if err != nil || !amountToken.IsPositive() {
		return nil, apperrors.BadRequestError(err, "amount_token must be a positive decimal")
	}
	if req.TokenSymbol == "" {
		return nil, apperrors.BadRequestError(nil, "token_symbol is required")
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "account not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("get account: %w", err))
	}
	if acct.DepositWalletAddress == "" {
		return nil, apperrors.BadRequestError(nil, "deposit wallet required before creating payment intents")
	}

	now := s.now()
	intent := &payment.Intent{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		AmountUSD:         amountUSD,
		AmountToken:       amountToken,
		TokenSymbol:       req.TokenSymbol,
		TokenMint:         req.TokenMint,
		DestinationWallet: acct.DepositWalletAddress,
		Status:            payment.IntentPending,
		ExpiresAt:         now.Add(s.cfg.IntentTTL),
		CreatedAt:         now,
	}
	if err := s.store.CreateIntent(ctx, intent); err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("create intent: %w", err))
	}

	metrics.IntentsCreated.WithLabelValues(req.TokenSymbol).Inc()
	s.logger.Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("account_id", accountID),
		zap.String("amount_token", amountToken.String()),
		zap.String("token_symbol", req.TokenSymbol))
	return payment.ToIntentResponse(intent), nil
}

func (s *paymentService) GetIntent(ctx context.Context, accountID int64, id string) (*payment.IntentResponse, error) {
	intent, err := s.store.GetIntent(ctx, id)
	if err != nil {
		if errors.Is(err, paymentstore.ErrIntentNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "intent not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("get intent: %w", err))
	}
	if intent.AccountID != accountID {
		return nil, apperrors.ResourceNotFoundError(nil, "intent not found")
	}

	if intent.Status == payment.IntentPending && intent.Expired(s.now()) {
		if err := s.store.ExpireIntent(ctx, id); err != nil {
			return nil, apperrors.GeneralError(fmt.Errorf("expire intent: %w", err))
		}
		intent.Status = payment.IntentExpired
	}
	return payment.ToIntentResponse(intent), nil
}

func (s *paymentService) ListIntents(ctx context.Context, accountID int64) ([]*payment.IntentResponse, error) {
	intents, err := s.store.ListIntentsByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list intents: %w", err))
	}
	responses := make([]*payment.IntentResponse, 0, len(intents))
	for _, in := range intents {
		responses = append(responses, payment.ToIntentResponse(in))
	}
	return responses, nil
}

func (s *paymentService) ListSettlements(ctx context.Context, accountID int64) ([]*payment.SettlementResponse, error) {
	settlements, err := s.store.ListSettlementsByAccount(ctx, accountID)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("list settlements: %w", err))
	}
	responses := make([]*payment.SettlementResponse, 0, len(settlements))
	for _, st := range settlements {
		responses = append(responses, payment.ToSettlementResponse(st))
	}
	return responses, nil
}

func (s *paymentService) HandleTransfer(ctx context.Context, transfer *payment.Transfer) error {
	if transfer.Signature == "" || transfer.ToWallet == "" {
		return apperrors.BadRequestError(nil, "signature and to_wallet are required")
	}
	if !transfer.Amount.IsPositive() {
		return apperrors.BadRequestError(nil, "amount must be positive")
	}

	if _, err := s.accounts.GetByDepositWallet(ctx, transfer.ToWallet); err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			s.logger.Debug("Transfer to unknown wallet ignored",
				zap.String("signature", transfer.Signature),
				zap.String("to_wallet", transfer.ToWallet))
			return nil
		}
		return fmt.Errorf("lookup deposit wallet: %w", err)
	}

	settled, err := s.store.HasSettlement(ctx, transfer.Signature)
	if err != nil {
		return fmt.Errorf("check settlement: %w", err)
	}
	if settled {
		return nil
	}

	intent, err := s.store.LatestPendingIntent(ctx, transfer.ToWallet, transfer.TokenMint, s.now())
	if err != nil {
		if errors.Is(err, paymentstore.ErrIntentNotFound) {
			s.logger.Info("No pending intent for transfer",
				zap.String("signature", transfer.Signature),
				zap.String("to_wallet", transfer.ToWallet))
			return nil
		}
		return fmt.Errorf("find pending intent: %w", err)
	}

	if !s.withinTolerance(intent.AmountToken, transfer.Amount) {
		s.logger.Info("Transfer amount outside tolerance",
			zap.String("signature", transfer.Signature),
			zap.String("intent_id", intent.ID),
			zap.String("expected", intent.AmountToken.String()),
			zap.String("received", transfer.Amount.String()))
		return nil
	}

	credits := intent.AmountUSD.Mul(decimal.NewFromInt(s.cfg.CreditsPerUSD)).Round(0).IntPart()

	settlement, err := s.store.Settle(ctx, intent, transfer, credits)
	if err != nil {
		if errors.Is(err, paymentstore.ErrAlreadySettled) {
			// A concurrent delivery of the same signature won the race.
			return nil
		}
		return fmt.Errorf("settle intent %s: %w", intent.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(intent.TokenSymbol).Inc()
	metrics.SettlementAmount.WithLabelValues(intent.TokenSymbol).Observe(transfer.Amount.InexactFloat64())
	metrics.CreditsGranted.Add(float64(credits))
	s.logger.Info("Payment settled",
		zap.String("intent_id", intent.ID),
		zap.String("signature", settlement.Signature),
		zap.Int64("account_id", intent.AccountID),
		zap.Int64("credits", credits))
	return nil
}

// withinTolerance reports whether received is within the configured
// percentage of expected.
func (s *paymentService) withinTolerance(expected, received decimal.Decimal) bool {
	diff := received.Sub(expected).Abs()
	allowed := expected.Mul(s.tolerancePct).Div(decimal.NewFromInt(100))
	return diff.LessThanOrEqual(allowed)
}
