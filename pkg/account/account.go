// Package account holds the domain model for platform accounts.
package account

import "time"

// Account represents the domain model for a platform user. Accounts are
// created lazily on the first authenticated request.
type Account struct {
	ID                        int64
	IdentityID                string // subject from the hosted identity provider
	WalletAddress             string // user's own wallet, if linked
	DepositWalletAddress      string
	DepositPrivateKeyEncrypted string
	Credits                   int64
	CreatedAt                 time.Time
}

// New creates an Account for the given identity subject.
func New(identityID, walletAddress string) *Account {
	return &Account{
		IdentityID:    identityID,
		WalletAddress: walletAddress,
	}
}

// SyncRequest is the body for POST /v1/accounts/sync.
type SyncRequest struct {
	WalletAddress string `json:"wallet_address,omitempty"`
}

// Response is the JSON shape returned for account endpoints.
type Response struct {
	ID                   int64  `json:"id"`
	IdentityID           string `json:"identity_id"`
	WalletAddress        string `json:"wallet_address,omitempty"`
	DepositWalletAddress string `json:"deposit_wallet_address,omitempty"`
	Credits              int64  `json:"credits"`
}

// ToResponse converts an Account to its JSON shape. The encrypted deposit
// key never leaves the service.
func ToResponse(a *Account) *Response {
	return &Response{
		ID:                   a.ID,
		IdentityID:           a.IdentityID,
		WalletAddress:        a.WalletAddress,
		DepositWalletAddress: a.DepositWalletAddress,
		Credits:              a.Credits,
	}
}
