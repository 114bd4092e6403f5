// Package service implements the account business logic and HTTP surface.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
	"github.com/hatchlabs/devbox-middleware/pkg/accountstore"
	apperrors "github.com/hatchlabs/devbox-middleware/pkg/app/errors"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
	"github.com/hatchlabs/devbox-middleware/pkg/keys"
)

// Store is the narrow data-access interface for the account service.
type Store interface {
	GetOrCreateByIdentity(ctx context.Context, identityID, walletAddress string) (*account.Account, error)
	GetByID(ctx context.Context, id int64) (*account.Account, error)
	SetDepositWallet(ctx context.Context, identityID, address, encryptedKey string) (*account.Account, error)
}

// Service defines the account business logic.
type Service interface {
	// Sync lazily creates the account for a verified identity and refreshes
	// its linked wallet address.
	Sync(ctx context.Context, identity *auth.Identity, req *account.SyncRequest) (*account.Response, error)
	// Me returns the caller's account.
	Me(ctx context.Context, accountID int64) (*account.Response, error)
	// EnsureDepositWallet creates the account's deposit wallet on first call
	// and returns the existing one afterwards.
	EnsureDepositWallet(ctx context.Context, identity *auth.Identity) (*account.Response, error)
	// Credits returns the current credit balance.
	Credits(ctx context.Context, accountID int64) (int64, error)
	// Resolve maps a verified identity to its account ID, creating the
	// account when needed. Used by the auth middleware.
	Resolve(ctx context.Context, identity *auth.Identity) (int64, error)
}

type accountService struct {
	store  Store
	cipher keys.KeyCipher
	logger *zap.Logger
}

// NewService creates a new account service.
func NewService(store Store, cipher keys.KeyCipher, logger *zap.Logger) Service {
	return &accountService{
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

func (s *accountService) Sync(ctx context.Context, identity *auth.Identity, req *account.SyncRequest) (*account.Response, error) {
	wallet := identity.WalletAddress
	if req != nil && req.WalletAddress != "" {
		wallet = req.WalletAddress
	}
	if wallet != "" {
		if err := keys.ValidateAddress(wallet); err != nil {
			return nil, apperrors.BadRequestError(err, "invalid wallet address")
		}
	}

	acct, err := s.store.GetOrCreateByIdentity(ctx, identity.Subject, wallet)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("sync account: %w", err))
	}
	return account.ToResponse(acct), nil
}

func (s *accountService) Me(ctx context.Context, accountID int64) (*account.Response, error) {
	acct, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "account not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("get account: %w", err))
	}
	return account.ToResponse(acct), nil
}

func (s *accountService) EnsureDepositWallet(ctx context.Context, identity *auth.Identity) (*account.Response, error) {
	wallet, err := keys.GenerateDepositWallet()
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("generate deposit wallet: %w", err))
	}

	encrypted, err := s.cipher.Encrypt(wallet.PrivateKey)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("encrypt deposit key: %w", err))
	}

	// First writer wins: a concurrent call may have stored its own wallet
	// already, in which case the freshly generated one is discarded and the
	// stored account is returned.
	acct, err := s.store.SetDepositWallet(ctx, identity.Subject, wallet.Address(), encrypted)
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return nil, apperrors.ResourceNotFoundError(err, "account not found")
		}
		return nil, apperrors.GeneralError(fmt.Errorf("store deposit wallet: %w", err))
	}

	if acct.DepositWalletAddress != wallet.Address() {
		s.logger.Debug("Deposit wallet already existed",
			zap.String("identity_id", identity.Subject),
			zap.String("address", acct.DepositWalletAddress))
	}
	return account.ToResponse(acct), nil
}

func (s *accountService) Credits(ctx context.Context, accountID int64) (int64, error) {
	acct, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accountstore.ErrAccountNotFound) {
			return 0, apperrors.ResourceNotFoundError(err, "account not found")
		}
		return 0, apperrors.GeneralError(fmt.Errorf("get account: %w", err))
	}
	return acct.Credits, nil
}

func (s *accountService) Resolve(ctx context.Context, identity *auth.Identity) (int64, error) {
	acct, err := s.store.GetOrCreateByIdentity(ctx, identity.Subject, identity.WalletAddress)
	if err != nil {
		return 0, apperrors.GeneralError(fmt.Errorf("resolve account: %w", err))
	}
	return acct.ID, nil
}
