package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/models"
)

func subscribeServer(t *testing.T, m *Manager, subscribed chan<- struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := m.Subscribe(r.Context(), &models.NewSubscription{
			ClientID:       r.URL.Query().Get("wallet"),
			ResponseWriter: w,
			Request:        r,
		})
		assert.NoError(t, err)
		subscribed <- struct{}{}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManager_DeliversToWalletSubscribers(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	subscribed := make(chan struct{}, 1)
	srv := subscribeServer(t, m, subscribed)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?wallet=Wallet-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-subscribed:
	case <-time.After(time.Second):
		t.Fatal("subscription was not registered")
	}

	m.Notify(ctx, &models.Notification{ClientID: "wallet-2", Message: "not for us"})
	m.Notify(ctx, &models.Notification{
		ClientID: "WALLET-1",
		Message:  &models.TransactionSettled{ID: "tx-1", WalletID: "wallet-1", Status: models.TxSuccess},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var got models.TransactionSettled
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "tx-1", got.ID)
	assert.Equal(t, models.TxSuccess, got.Status)
}

func TestManager_NotifyNeverBlocks(t *testing.T) {
	m := NewManager() // hub not started

	done := make(chan struct{})
	go func() {
		for i := 0; i < notificationBuffer*2; i++ {
			m.Notify(context.Background(), &models.Notification{ClientID: "w", Message: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Len(t, m.notifications, notificationBuffer)
}

func TestManager_StopClosesSubscriptions(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(stopped)
	}()

	subscribed := make(chan struct{}, 1)
	srv := subscribeServer(t, m, subscribed)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/?wallet=w", nil)
	require.NoError(t, err)
	defer conn.Close()
	<-subscribed

	cancel()
	<-stopped

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "unexpected error: %v", err)
}
