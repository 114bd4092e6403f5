// Package payment holds the domain model for payment intents and their
// on-chain settlements.
package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle state of a payment intent.
type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentConfirmed IntentStatus = "confirmed"
	IntentExpired   IntentStatus = "expired"
	IntentFailed    IntentStatus = "failed"
)

// Intent is an expected payment: the user promised to send AmountToken of
// TokenMint to DestinationWallet before ExpiresAt.
type Intent struct {
	ID                string
	AccountID         int64
	AmountUSD         decimal.Decimal
	AmountToken       decimal.Decimal
	TokenSymbol       string
	TokenMint         string // empty for native SOL
	DestinationWallet string
	Status            IntentStatus
	ExpiresAt         time.Time
	CreatedAt         time.Time
}

// Expired reports whether the intent's deadline has passed.
func (i *Intent) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Settlement is a confirmed on-chain transaction matched to an intent.
// Signature is the deduplication key: at most one settlement per signature.
type Settlement struct {
	ID          int64
	Signature   string
	IntentID    string
	Wallet      string
	TokenMint   string
	AmountToken decimal.Decimal
	Slot        uint64
	CreatedAt   time.Time
}

// Transfer is a detected inbound transfer, reported by the webhook or found
// by the deposit poller.
type Transfer struct {
	Signature  string
	FromWallet string
	ToWallet   string
	TokenMint  string // empty for native SOL
	Amount     decimal.Decimal
	Slot       uint64
}

// CreateIntentRequest is the body for POST /v1/payments/intents.
type CreateIntentRequest struct {
	AmountUSD   string `json:"amount_usd"`
	AmountToken string `json:"amount_token"`
	TokenSymbol string `json:"token_symbol"`
	TokenMint   string `json:"token_mint,omitempty"`
}

// IntentResponse is the JSON shape for intent endpoints.
type IntentResponse struct {
	ID                string `json:"id"`
	AmountUSD         string `json:"amount_usd"`
	AmountToken       string `json:"amount_token"`
	TokenSymbol       string `json:"token_symbol"`
	TokenMint         string `json:"token_mint,omitempty"`
	DestinationWallet string `json:"destination_wallet"`
	Status            string `json:"status"`
	ExpiresAt         string `json:"expires_at"`
}

// ToIntentResponse converts an Intent to its JSON shape.
func ToIntentResponse(i *Intent) *IntentResponse {
	return &IntentResponse{
		ID:                i.ID,
		AmountUSD:         i.AmountUSD.String(),
		AmountToken:       i.AmountToken.String(),
		TokenSymbol:       i.TokenSymbol,
		TokenMint:         i.TokenMint,
		DestinationWallet: i.DestinationWallet,
		Status:            string(i.Status),
		ExpiresAt:         i.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// SettlementResponse is the JSON shape for settlement listings.
type SettlementResponse struct {
	Signature   string `json:"signature"`
	IntentID    string `json:"intent_id"`
	AmountToken string `json:"amount_token"`
	TokenMint   string `json:"token_mint,omitempty"`
	Slot        uint64 `json:"slot"`
}

// ToSettlementResponse converts a Settlement to its JSON shape.
func ToSettlementResponse(s *Settlement) *SettlementResponse {
	return &SettlementResponse{
		Signature:   s.Signature,
		IntentID:    s.IntentID,
		AmountToken: s.AmountToken.String(),
		TokenMint:   s.TokenMint,
		Slot:        s.Slot,
	}
}
