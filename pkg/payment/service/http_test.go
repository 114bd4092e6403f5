package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hatchlabs/devbox-middleware/pkg/account"
	"github.com/hatchlabs/devbox-middleware/pkg/accountstore"
	"github.com/hatchlabs/devbox-middleware/pkg/auth"
	"github.com/hatchlabs/devbox-middleware/pkg/payment"
	"github.com/hatchlabs/devbox-middleware/pkg/paymentstore"
)

func newPaymentTestServer(t *testing.T, store Store, accounts Accounts) http.Handler {
	t.Helper()
	svc, err := NewService(store, accounts, testPaymentsConfig(), zap.NewNop())
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	RegisterWebhookRoutes(r, svc, zap.NewNop())
	return r
}

func paymentRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{Subject: "user-123"})
	ctx = auth.WithAccountID(ctx, 7)
	return req.WithContext(ctx)
}

func TestCreateIntentHTTP(t *testing.T) {
	store := &mockStore{
		createIntent: func(ctx context.Context, intent *payment.Intent) error { return nil },
	}
	accounts := &mockAccounts{
		getByID: func(ctx context.Context, id int64) (*account.Account, error) {
			return accountWithWallet(id), nil
		},
	}
	handler := newPaymentTestServer(t, store, accounts)

	req := paymentRequest(http.MethodPost, "/v1/payments/intents",
		[]byte(`{"amount_usd": "10", "amount_token": "10.05", "token_symbol": "USDC"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp payment.IntentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, depositWallet, resp.DestinationWallet)
	assert.Equal(t, "pending", resp.Status)
	assert.NotEmpty(t, resp.ID)
}

func TestCreateIntentHTTPUnauthenticated(t *testing.T) {
	handler := newPaymentTestServer(t, &mockStore{}, &mockAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/intents",
		bytes.NewReader([]byte(`{"amount_usd": "10", "amount_token": "10", "token_symbol": "USDC"}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetIntentHTTPNotFound(t *testing.T) {
	store := &mockStore{
		getIntent: func(ctx context.Context, id string) (*payment.Intent, error) {
			return nil, paymentstore.ErrIntentNotFound
		},
	}
	handler := newPaymentTestServer(t, store, &mockAccounts{})

	req := paymentRequest(http.MethodGet, "/v1/payments/intents/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListIntentsHTTP(t *testing.T) {
	store := &mockStore{
		listIntentsByAccount: func(ctx context.Context, accountID int64) ([]*payment.Intent, error) {
			return []*payment.Intent{pendingIntent("10")}, nil
		},
	}
	handler := newPaymentTestServer(t, store, &mockAccounts{})

	req := paymentRequest(http.MethodGet, "/v1/payments/intents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []payment.IntentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "pending", resp[0].Status)
	assert.Equal(t, depositWallet, resp[0].DestinationWallet)
}

func TestWebhookAlwaysAcks(t *testing.T) {
	t.Run("unknown wallet", func(t *testing.T) {
		accounts := &mockAccounts{
			getByDepositWallet: func(ctx context.Context, address string) (*account.Account, error) {
				return nil, accountstore.ErrAccountNotFound
			},
		}
		handler := newPaymentTestServer(t, &mockStore{}, accounts)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers",
			bytes.NewReader([]byte(`{"signature": "sig-x", "to_wallet": "UnknownWallet", "amount": "5", "slot": 1}`)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := newPaymentTestServer(t, &mockStore{}, &mockAccounts{})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers",
			bytes.NewReader([]byte("{invalid")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("internal failure", func(t *testing.T) {
		accounts := &mockAccounts{
			getByDepositWallet: func(ctx context.Context, address string) (*account.Account, error) {
				return nil, assert.AnError
			},
		}
		handler := newPaymentTestServer(t, &mockStore{}, accounts)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers",
			bytes.NewReader([]byte(`{"signature": "sig-x", "to_wallet": "W", "amount": "5", "slot": 1}`)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestWebhookSettles(t *testing.T) {
	intent := pendingIntent("5")
	var settled bool
	store := &mockStore{
		latestPendingIntent: func(ctx context.Context, wallet, tokenMint string, now time.Time) (*payment.Intent, error) {
			return intent, nil
		},
		settle: func(ctx context.Context, in *payment.Intent, tr *payment.Transfer, credits int64) (*payment.Settlement, error) {
			settled = true
			return &payment.Settlement{Signature: tr.Signature, IntentID: in.ID}, nil
		},
	}
	accounts := &mockAccounts{
		getByDepositWallet: func(ctx context.Context, address string) (*account.Account, error) {
			return accountWithWallet(7), nil
		},
	}
	handler := newPaymentTestServer(t, store, accounts)

	body := `{"signature": "sig-1", "from_wallet": "S", "to_wallet": "` + depositWallet +
		`", "token_mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "amount": "5", "slot": 10}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/transfers", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, settled)
}
