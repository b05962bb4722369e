package cellchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"

	"custody/app/models"
	"custody/app/network"
)

type fakeChain struct {
	mu   sync.Mutex
	sent []*Outgoing
	err  error
}

func (c *fakeChain) Send(_ context.Context, words []string, messages ...*Outgoing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, messages...)
	return nil
}

func (c *fakeChain) RunGetMethod(context.Context, *address.Address, string, ...interface{}) ([]interface{}, error) {
	return nil, nil
}

type tonapi struct {
	transactions []map[string]interface{}
}

func (s *tonapi) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		var body interface{}
		switch {
		case strings.HasSuffix(path, "/transactions"):
			body = map[string]interface{}{"transactions": s.transactions}
		case strings.HasSuffix(path, "/methods/get_wallet_address"):
			body = map[string]interface{}{
				"success": true,
				"decoded": map[string]interface{}{"jetton_wallet_address": models.TON.StableContract()},
			}
		case strings.HasPrefix(path, "/v2/jettons/"):
			body = map[string]interface{}{"metadata": map[string]interface{}{"symbol": "USD₮", "name": "Tether USD", "decimals": "6"}}
		case strings.Contains(path, "/jettons/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"account has no jetton wallet"}`))
			return
		case strings.HasPrefix(path, "/v2/accounts/"):
			body = map[string]interface{}{"balance": 2_500_000_000, "status": "active"}
		default:
			t.Errorf("unexpected request %s", path)
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func newTestAdapter(t *testing.T, api *tonapi, chain Chain) *Adapter {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	return New(Config{PollAttempts: 1, PollInterval: time.Millisecond}, chain, NewIndexer(server.URL, ""), NewSequence())
}

func generate(t *testing.T, a *Adapter) *models.KeyMaterial {
	t.Helper()
	keys, err := a.GenerateWallet(context.Background())
	require.NoError(t, err)
	return keys
}

func TestGenerateThenImport(t *testing.T) {
	a := newTestAdapter(t, &tonapi{}, &fakeChain{})

	generated := generate(t, a)
	assert.Len(t, strings.Fields(generated.Mnemonic), 24)
	assert.NoError(t, a.ValidateAddress(generated.Address))

	imported, err := a.ImportWallet(context.Background(), generated.Mnemonic)
	require.NoError(t, err)
	assert.Equal(t, generated.Address, imported.Address)
	assert.Equal(t, generated.PublicKey, imported.PublicKey)
}

func TestImportWallet_WrongLength(t *testing.T) {
	a := newTestAdapter(t, &tonapi{}, &fakeChain{})

	_, err := a.ImportWallet(context.Background(), "abandon abandon about")
	assert.ErrorIs(t, err, models.ErrInvalidSecret)
}

func TestBalances(t *testing.T) {
	a := newTestAdapter(t, &tonapi{}, &fakeChain{})
	owner := generate(t, a).Address

	assert.Equal(t, "2.5", a.GetBalance(context.Background(), owner).String())
	// never held the jetton
	assert.True(t, a.GetTokenBalance(context.Background(), owner, models.TON.StableContract()).IsZero())
}

func TestSubmitTransfer_CarriesCorrelationComment(t *testing.T) {
	chain := &fakeChain{}
	a := newTestAdapter(t, &tonapi{}, chain)
	sender, recipient := generate(t, a), generate(t, a)

	sub, err := a.SubmitTransfer(context.Background(), &models.TransferOrder{
		Keys:   sender,
		To:     recipient.Address,
		Amount: decimal.RequireFromString("1.25"),
	})
	require.NoError(t, err)

	ref, ok := models.ParseCorrelationRef(sub.Hash)
	require.True(t, ok)
	assert.False(t, ref.Jetton)

	require.Len(t, chain.sent, 1)
	msg := chain.sent[0]
	assert.Equal(t, "1250000000", msg.Amount.Nano().String())
	assert.False(t, msg.Bounce)

	body := msg.Body.BeginParse()
	assert.Equal(t, uint64(0), body.MustLoadUInt(32))
	assert.Equal(t, strconv.FormatUint(ref.ID, 10), body.MustLoadStringSnake())
}

func TestSubmitTokenTransfer_CarriesQueryID(t *testing.T) {
	chain := &fakeChain{}
	a := newTestAdapter(t, &tonapi{}, chain)
	sender, recipient := generate(t, a), generate(t, a)

	sub, err := a.SubmitTokenTransfer(context.Background(), &models.TransferOrder{
		Keys:     sender,
		To:       recipient.Address,
		Amount:   decimal.RequireFromString("3"),
		Contract: models.TON.StableContract(),
	})
	require.NoError(t, err)

	ref, ok := models.ParseCorrelationRef(sub.Hash)
	require.True(t, ok)
	assert.True(t, ref.Jetton)

	require.Len(t, chain.sent, 1)
	body := chain.sent[0].Body.BeginParse()
	assert.Equal(t, uint64(opJettonTransfer), body.MustLoadUInt(32))
	assert.Equal(t, ref.ID, body.MustLoadUInt(64))
	assert.Equal(t, "3000000", body.MustLoadBigCoins().String())
}

func TestSubmitTransfer_SendFailureIsRetryable(t *testing.T) {
	a := newTestAdapter(t, &tonapi{}, &fakeChain{err: assert.AnError})
	sender, recipient := generate(t, a), generate(t, a)

	_, err := a.SubmitTransfer(context.Background(), &models.TransferOrder{
		Keys:   sender,
		To:     recipient.Address,
		Amount: decimal.RequireFromString("1"),
	})
	require.Error(t, err)
	assert.True(t, models.IsRetryable(err))
}

func TestLookupTransaction_Native(t *testing.T) {
	api := &tonapi{transactions: []map[string]interface{}{
		{"hash": "aa", "lt": 10, "success": true, "total_fees": 1000, "out_msgs": []interface{}{
			map[string]interface{}{"decoded_body": map[string]interface{}{"text": "hello"}},
		}},
		{"hash": "bb", "lt": 11, "success": true, "total_fees": 2_500_000, "out_msgs": []interface{}{
			map[string]interface{}{"decoded_body": map[string]interface{}{"text": "1700000000000001"}},
		}},
	}}
	a := newTestAdapter(t, api, &fakeChain{})

	found, err := a.LookupTransaction(context.Background(), network.TxRef{Hash: "1700000000000001", From: "sender"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "bb", found[0].Hash)
	assert.Equal(t, "0.0025", found[0].Fee.String())
	assert.True(t, found[0].Success)
}

func TestLookupTransaction_JettonTwoHops(t *testing.T) {
	api := &tonapi{transactions: []map[string]interface{}{
		// newest first, as the indexer returns them
		{"hash": "excess", "lt": 21, "success": true, "total_fees": 1_000_000, "in_msg": map[string]interface{}{
			"decoded_op_name": "excess", "decoded_body": map[string]interface{}{"query_id": 1700000000000002},
		}},
		{"hash": "transfer", "lt": 20, "success": true, "total_fees": 4_000_000, "out_msgs": []interface{}{
			map[string]interface{}{"decoded_body": map[string]interface{}{"query_id": 1700000000000002, "amount": "3000000"}},
		}},
	}}
	a := newTestAdapter(t, api, &fakeChain{})

	ref := network.TxRef{Hash: "1700000000000002:jetton", From: "sender"}
	observed, err := network.Poll(context.Background(), a, ref, models.HopsFor(ref.Hash))
	require.NoError(t, err)

	outcome, ok := network.Settle(observed, 2)
	require.True(t, ok)
	assert.Equal(t, models.TxSuccess, outcome.Status)
	assert.Equal(t, "excess", outcome.Hash)
	assert.Equal(t, "0.005", outcome.Fee.String())
}

func TestLookupTransaction_NotYetVisible(t *testing.T) {
	a := newTestAdapter(t, &tonapi{}, &fakeChain{})

	observed, err := network.Poll(context.Background(), a, network.TxRef{Hash: "42:jetton", From: "sender"}, 2)
	require.NoError(t, err)
	assert.Empty(t, observed)

	_, ok := network.Settle(observed, 2)
	assert.False(t, ok)
}
