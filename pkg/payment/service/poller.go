package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/internal/metrics"
	"github.com/hatchlabs/devbox-middleware/pkg/config"
	"github.com/hatchlabs/devbox-middleware/pkg/solana"
)

// Chain is the slice of the Solana client the poller uses.
type Chain interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// PollerStore provides the wallet listing and intent expiry the poller needs
// on top of the matcher.
type PollerStore interface {
	ListDepositWallets(ctx context.Context) ([]string, error)
	HasSettlement(ctx context.Context, signature string) (bool, error)
	ExpireStaleIntents(ctx context.Context, now time.Time) (int64, error)
}

// Poller is the webhook's safety net: it scans deposit wallets for transfers
// the monitoring service never delivered and expires stale intents.
type Poller struct {
	store   PollerStore
	matcher Service
	chain   Chain
	cfg     *config.PaymentsConfig
	logger  *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a deposit wallet poller.
func NewPoller(store PollerStore, matcher Service, chain Chain, cfg *config.PaymentsConfig, logger *zap.Logger) *Poller {
	return &Poller{
		store:   store,
		matcher: matcher,
		chain:   chain,
		cfg:     cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// PollOnce runs a single scan over all deposit wallets.
func (p *Poller) PollOnce(ctx context.Context) error {
	start := time.Now()

	expired, err := p.store.ExpireStaleIntents(ctx, start)
	if err != nil {
		return fmt.Errorf("expire stale intents: %w", err)
	}
	if expired > 0 {
		metrics.IntentsExpired.Add(float64(expired))
		p.logger.Info("Expired stale payment intents", zap.Int64("count", expired))
	}

	wallets, err := p.store.ListDepositWallets(ctx)
	if err != nil {
		return fmt.Errorf("list deposit wallets: %w", err)
	}

	var scanned, matched int
	for _, wallet := range wallets {
		n, err := p.pollWallet(ctx, wallet)
		if err != nil {
			// One unreachable wallet must not stall the rest of the scan.
			metrics.ErrorsTotal.WithLabelValues("poller", "wallet_poll").Inc()
			p.logger.Warn("Failed to poll deposit wallet",
				zap.String("wallet", wallet),
				zap.Error(err))
			continue
		}
		scanned++
		matched += n
	}

	metrics.PollDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("Deposit poll completed",
		zap.Int("wallets_scanned", scanned),
		zap.Int("transfers_processed", matched),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (p *Poller) pollWallet(ctx context.Context, wallet string) (int, error) {
	sigs, err := p.chain.GetSignaturesForAddress(ctx, wallet, p.cfg.PollSignatureLimit)
	if err != nil {
		return 0, err
	}

	var processed int
	for _, sig := range sigs {
		if sig.Failed() {
			continue
		}

		settled, err := p.store.HasSettlement(ctx, sig.Signature)
		if err != nil {
			return processed, err
		}
		if settled {
			continue
		}

		tx, err := p.chain.GetTransaction(ctx, sig.Signature)
		if err != nil {
			return processed, err
		}

		for _, transfer := range solana.ExtractTransfers(tx) {
			if transfer.ToWallet != wallet {
				continue
			}
			transfer := transfer
			if err := p.matcher.HandleTransfer(ctx, &transfer); err != nil {
				p.logger.Error("Failed to process polled transfer",
					zap.String("signature", transfer.Signature),
					zap.Error(err))
				continue
			}
			processed++
		}
	}

	if processed > 0 {
		// Balance is informational only; a failed lookup does not fail the scan.
		if lamports, err := p.chain.GetBalance(ctx, wallet); err != nil {
			p.logger.Debug("Failed to read wallet balance",
				zap.String("wallet", wallet),
				zap.Error(err))
		} else {
			p.logger.Info("Deposit wallet settled transfers",
				zap.String("wallet", wallet),
				zap.Int("transfers", processed),
				zap.Uint64("lamports", lamports))
		}
	}
	return processed, nil
}

// Start launches the periodic polling goroutine.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.cfg.PollInterval)
		defer ticker.Stop()

		p.logger.Info("Started deposit poller", zap.Duration("interval", p.cfg.PollInterval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if err := p.PollOnce(ctx); err != nil {
					p.logger.Error("Deposit poll failed", zap.Error(err))
				}
				cancel()
			case <-p.stopCh:
				p.logger.Info("Stopping deposit poller")
				return
			}
		}
	}()
}

// Stop stops the periodic polling and waits for the current scan to finish.
// Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}
