package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"
)

// DepositWallet is an ed25519 keypair used to receive Solana payments.
type DepositWallet struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey // 64 bytes: seed || public key
}

// GenerateDepositWallet generates a new random deposit wallet keypair.
func GenerateDepositWallet() (*DepositWallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 keypair: %w", err)
	}
	return &DepositWallet{PublicKey: pub, PrivateKey: priv}, nil
}

// DeriveDepositWallet deterministically derives a deposit wallet from an
// identity ID and server seed, so a lost row can be regenerated. Uses HKDF
// with SHA-256 for seed derivation.
func DeriveDepositWallet(identityID string, serverSeed []byte) (*DepositWallet, error) {
	if len(serverSeed) < 32 {
		return nil, fmt.Errorf("server seed must be at least 32 bytes")
	}

	info := []byte("deposit-wallet-" + identityID)
	hkdfReader := hkdf.New(sha256.New, serverSeed, nil, info)

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdfReader, seed); err != nil {
		return nil, fmt.Errorf("failed to derive wallet seed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &DepositWallet{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// Address returns the base58-encoded public key, the wallet's on-chain address.
func (w *DepositWallet) Address() string {
	return base58.Encode(w.PublicKey)
}

// WalletFromPrivateKey reconstructs a deposit wallet from a stored 64-byte
// private key.
func WalletFromPrivateKey(priv []byte) (*DepositWallet, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	key := ed25519.PrivateKey(priv)
	return &DepositWallet{
		PublicKey:  key.Public().(ed25519.PublicKey),
		PrivateKey: key,
	}, nil
}

// Sign signs a message with the wallet's private key.
func (w *DepositWallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.PrivateKey, message)
}

// Verify verifies a signature against a message.
func (w *DepositWallet) Verify(message, signature []byte) bool {
	return ed25519.Verify(w.PublicKey, message, signature)
}

// ValidateAddress reports whether s decodes to a 32-byte base58 public key.
func ValidateAddress(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("address must decode to %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return nil
}
