package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/models"
	"custody/pkg/crypto"
)

const secret = "ops-secret"

type recordingNotifier struct {
	subscribed []string
}

func (n *recordingNotifier) Subscribe(_ context.Context, sub *models.NewSubscription) error {
	n.subscribed = append(n.subscribed, sub.ClientID)
	sub.ResponseWriter.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func (n *recordingNotifier) Notify(context.Context, *models.Notification) {}

type owners map[string]string

func (o owners) WalletOwner(_ context.Context, walletID string) (string, error) {
	owner, ok := o[walletID]
	if !ok {
		return "", errors.Wrap(models.ErrWalletNotFound, walletID)
	}
	return owner, nil
}

func newOps(checks map[string]Check) (*Ops, *recordingNotifier) {
	n := &recordingNotifier{}
	ops := &Ops{
		Router:   chi.NewRouter(),
		Notifier: n,
		Wallets:  owners{"wallet-1": "alice"},
		Secret:   secret,
		Checks:   checks,
	}
	ops.Route()
	return ops, n
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) *health {
	var out struct {
		Result *health `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Result)
	return out.Result
}

func TestOps_Healthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		ops, _ := newOps(map[string]Check{"database": func(context.Context) error { return nil }})

		rec := httptest.NewRecorder()
		ops.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		out := decodeHealth(t, rec)
		assert.Equal(t, "ok", out.Status)
		assert.Equal(t, "ok", out.Checks["database"])
	})

	t.Run("failing dependency", func(t *testing.T) {
		ops, _ := newOps(map[string]Check{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rec := httptest.NewRecorder()
		ops.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		out := decodeHealth(t, rec)
		assert.Equal(t, "unavailable", out.Status)
		assert.Equal(t, "connection refused", out.Checks["redis"])
	})
}

func TestOps_Metrics(t *testing.T) {
	ops, _ := newOps(nil)

	rec := httptest.NewRecorder()
	ops.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOps_Subscribe(t *testing.T) {
	tests := []struct {
		name      string
		wallet    string
		signature string
		code      int
	}{
		{"valid", "wallet-1", crypto.GetSHA256("wallet-1", secret), http.StatusSwitchingProtocols},
		{"bad signature", "wallet-1", crypto.GetSHA256("wallet-1", "other"), http.StatusUnauthorized},
		{"no signature", "wallet-1", "", http.StatusUnauthorized},
		{"unknown wallet", "wallet-9", crypto.GetSHA256("wallet-9", secret), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, n := newOps(nil)

			req := httptest.NewRequest(http.MethodGet, "/ws/wallets/"+tt.wallet+"?signature="+tt.signature, nil)
			rec := httptest.NewRecorder()
			ops.Router.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusSwitchingProtocols {
				assert.Equal(t, []string{tt.wallet}, n.subscribed)
			} else {
				assert.Empty(t, n.subscribed)
			}
		})
	}
}
