package accountstore

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hatchlabs/devbox-middleware/pkg/pgutil"
	mghelper "github.com/hatchlabs/devbox-middleware/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	requireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &AccountDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db)
}

func requireDockerAccess(t *testing.T) {
	t.Helper()

	candidates := []string{
		"/var/run/docker.sock",
		filepath.Join(os.Getenv("HOME"), ".docker/run/docker.sock"),
	}

	for _, sock := range candidates {
		if sock == "" {
			continue
		}
		if _, err := os.Stat(sock); err != nil {
			continue
		}
		conn, err := (&net.Dialer{}).DialContext(context.Background(), "unix", sock)
		if err == nil {
			_ = conn.Close()
			return
		}
	}

	t.Skip("docker daemon socket is not accessible; skipping testcontainer-backed accountstore tests")
}

func TestAccountPGStore_GetOrCreateByIdentity(t *testing.T) {
	ctx, s := setupStore(t)

	acct, err := s.GetOrCreateByIdentity(ctx, "auth0|alice", "GsbwXfJraMomNxBcjYLcG3mxkBUiyWXAB32fGbSMQRdW")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentity() failed: %v", err)
	}
	if acct.ID == 0 {
		t.Fatalf("expected assigned account id")
	}
	if acct.Credits != 0 {
		t.Fatalf("expected zero starting credits, got %d", acct.Credits)
	}

	again, err := s.GetOrCreateByIdentity(ctx, "auth0|alice", "GsbwXfJraMomNxBcjYLcG3mxkBUiyWXAB32fGbSMQRdW")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentity() on existing failed: %v", err)
	}
	if again.ID != acct.ID {
		t.Fatalf("expected same account, got ids %d and %d", acct.ID, again.ID)
	}
}

func TestAccountPGStore_GetOrCreateByIdentity_Concurrent(t *testing.T) {
	ctx, s := setupStore(t)

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct, err := s.GetOrCreateByIdentity(ctx, "auth0|race", "")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = acct.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("expected all workers to land on one account, got ids %v", ids)
		}
	}
}

func TestAccountPGStore_GetOrCreateByIdentity_UpdatesWallet(t *testing.T) {
	ctx, s := setupStore(t)

	acct, err := s.GetOrCreateByIdentity(ctx, "auth0|bob", "")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentity() failed: %v", err)
	}
	if acct.WalletAddress != "" {
		t.Fatalf("expected empty wallet, got %q", acct.WalletAddress)
	}

	acct, err = s.GetOrCreateByIdentity(ctx, "auth0|bob", "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentity() with wallet failed: %v", err)
	}
	if acct.WalletAddress != "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T" {
		t.Fatalf("expected wallet to be linked, got %q", acct.WalletAddress)
	}

	stored, err := s.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.WalletAddress != acct.WalletAddress {
		t.Fatalf("wallet not persisted: got %q", stored.WalletAddress)
	}
}

func TestAccountPGStore_NotFound(t *testing.T) {
	ctx, s := setupStore(t)

	if _, err := s.GetByIdentity(ctx, "auth0|missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.GetByID(ctx, 9999); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := s.GetByDepositWallet(ctx, "So11111111111111111111111111111111111111112"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountPGStore_SetDepositWallet_FirstWriterWins(t *testing.T) {
	ctx, s := setupStore(t)

	if _, err := s.GetOrCreateByIdentity(ctx, "auth0|carol", ""); err != nil {
		t.Fatalf("GetOrCreateByIdentity() failed: %v", err)
	}

	first, err := s.SetDepositWallet(ctx, "auth0|carol", "wallet-one", "cipher-one")
	if err != nil {
		t.Fatalf("SetDepositWallet() failed: %v", err)
	}
	if first.DepositWalletAddress != "wallet-one" {
		t.Fatalf("expected wallet-one, got %q", first.DepositWalletAddress)
	}

	second, err := s.SetDepositWallet(ctx, "auth0|carol", "wallet-two", "cipher-two")
	if err != nil {
		t.Fatalf("second SetDepositWallet() failed: %v", err)
	}
	if second.DepositWalletAddress != "wallet-one" {
		t.Fatalf("expected first wallet kept, got %q", second.DepositWalletAddress)
	}
	if second.DepositPrivateKeyEncrypted != "cipher-one" {
		t.Fatalf("expected first key kept, got %q", second.DepositPrivateKeyEncrypted)
	}

	wallets, err := s.ListDepositWallets(ctx)
	if err != nil {
		t.Fatalf("ListDepositWallets() failed: %v", err)
	}
	if len(wallets) != 1 || wallets[0] != "wallet-one" {
		t.Fatalf("unexpected wallet list: %v", wallets)
	}
}

func TestAccountPGStore_GetDepositKey(t *testing.T) {
	ctx, s := setupStore(t)

	if _, err := s.GetOrCreateByIdentity(ctx, "auth0|dave", ""); err != nil {
		t.Fatalf("GetOrCreateByIdentity() failed: %v", err)
	}

	passthrough := func(encrypted string) ([]byte, error) {
		return []byte(encrypted), nil
	}

	key, err := s.GetDepositKey(ctx, passthrough, "auth0|dave")
	if err != nil {
		t.Fatalf("GetDepositKey() without wallet failed: %v", err)
	}
	if key != nil {
		t.Fatalf("expected nil key before wallet exists, got %q", key)
	}

	if _, err := s.SetDepositWallet(ctx, "auth0|dave", "wallet-dave", "sealed-key"); err != nil {
		t.Fatalf("SetDepositWallet() failed: %v", err)
	}

	key, err = s.GetDepositKey(ctx, passthrough, "auth0|dave")
	if err != nil {
		t.Fatalf("GetDepositKey() failed: %v", err)
	}
	if string(key) != "sealed-key" {
		t.Fatalf("expected decryptor output, got %q", key)
	}
}

func TestAccountPGStore_AddCredits(t *testing.T) {
	ctx, s := setupStore(t)

	acct, err := s.GetOrCreateByIdentity(ctx, "auth0|erin", "")
	if err != nil {
		t.Fatalf("GetOrCreateByIdentity() failed: %v", err)
	}

	const workers = 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.AddCredits(ctx, acct.ID, 100); err != nil {
				t.Errorf("AddCredits() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := s.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.Credits != workers*100 {
		t.Fatalf("expected %d credits, got %d", workers*100, stored.Credits)
	}
}
