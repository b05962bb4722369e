package cellchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"custody/pkg/httpclient"
)

const (
	accountStatusActive   = "active"
	accountStatusUninit   = "uninit"
	accountStatusNonexist = "nonexist"
)

// Indexer reads account state from a TonAPI compatible HTTP indexer.
type Indexer struct {
	client *httpclient.Client
}

func NewIndexer(baseURL, apiKey string) *Indexer {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &Indexer{client: httpclient.New(httpclient.Config{
		Name:    "tonapi",
		BaseURL: baseURL,
		Headers: headers,
	})}
}

type Account struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
	Status  string `json:"status"`
}

// IsDeployed is false for accounts that never received or never deployed code.
func (a *Account) IsDeployed() bool {
	return a.Status != accountStatusUninit && a.Status != accountStatusNonexist
}

func (a *Account) IsActive() bool {
	return a.Status == accountStatusActive
}

type JettonPreview struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Image    string `json:"image"`
}

type JettonBalance struct {
	Balance string        `json:"balance"`
	Jetton  JettonPreview `json:"jetton"`
}

type JettonMetadata struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
	Image    string `json:"image"`
}

type JettonInfo struct {
	Metadata    JettonMetadata `json:"metadata"`
	TotalSupply string         `json:"total_supply"`
}

type Message struct {
	OpCode        string          `json:"op_code"`
	DecodedOpName string          `json:"decoded_op_name"`
	DecodedBody   json.RawMessage `json:"decoded_body"`
}

// Carries reports whether the decoded body holds id as a text comment or a query_id.
func (m *Message) Carries(id string) bool {
	if len(m.DecodedBody) == 0 {
		return false
	}

	decoder := json.NewDecoder(bytes.NewReader(m.DecodedBody))
	decoder.UseNumber()
	var body map[string]interface{}
	if err := decoder.Decode(&body); err != nil {
		return false
	}

	for _, key := range []string{"text", "query_id"} {
		if v, ok := body[key]; ok && v != nil && fmt.Sprint(v) == id {
			return true
		}
	}
	return false
}

type Transaction struct {
	Hash      string     `json:"hash"`
	Lt        int64      `json:"lt"`
	Success   bool       `json:"success"`
	Aborted   bool       `json:"aborted"`
	Destroyed bool       `json:"destroyed"`
	TotalFees int64      `json:"total_fees"`
	InMsg     *Message   `json:"in_msg"`
	OutMsgs   []*Message `json:"out_msgs"`
}

// Carries reports whether any inbound or outbound message of tx holds id.
func (t *Transaction) Carries(id string) bool {
	if t.InMsg != nil && t.InMsg.Carries(id) {
		return true
	}
	for _, m := range t.OutMsgs {
		if m.Carries(id) {
			return true
		}
	}
	return false
}

type transactions struct {
	Transactions []*Transaction `json:"transactions"`
}

type methodResult struct {
	Success bool                   `json:"success"`
	Decoded map[string]interface{} `json:"decoded"`
}

func (i *Indexer) Account(ctx context.Context, address string) (*Account, error) {
	result := &Account{}
	err := i.client.Get(ctx, "/v2/accounts/"+url.PathEscape(address), nil, result)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return &Account{Address: address, Status: accountStatusNonexist}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// JettonBalance returns nil without error when owner never held the jetton.
func (i *Indexer) JettonBalance(ctx context.Context, owner, jetton string) (*JettonBalance, error) {
	result := &JettonBalance{}
	path := fmt.Sprintf("/v2/accounts/%s/jettons/%s", url.PathEscape(owner), url.PathEscape(jetton))
	err := i.client.Get(ctx, path, nil, result)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (i *Indexer) JettonInfo(ctx context.Context, jetton string) (*JettonInfo, error) {
	result := &JettonInfo{}
	if err := i.client.Get(ctx, "/v2/jettons/"+url.PathEscape(jetton), nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (i *Indexer) Transactions(ctx context.Context, account string, limit int) ([]*Transaction, error) {
	result := &transactions{}
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	path := fmt.Sprintf("/v2/blockchain/accounts/%s/transactions", url.PathEscape(account))
	if err := i.client.Get(ctx, path, query, result); err != nil {
		return nil, err
	}
	return result.Transactions, nil
}

// JettonWalletAddress resolves the jetton wallet of owner through the master's get_wallet_address.
func (i *Indexer) JettonWalletAddress(ctx context.Context, master, owner string) (string, error) {
	result := &methodResult{}
	path := fmt.Sprintf("/v2/blockchain/accounts/%s/methods/get_wallet_address", url.PathEscape(master))
	if err := i.client.Get(ctx, path, url.Values{"args": {owner}}, result); err != nil {
		return "", err
	}

	wallet, _ := result.Decoded["jetton_wallet_address"].(string)
	if !result.Success || wallet == "" {
		return "", errors.Errorf("get_wallet_address failed for %s on %s", owner, master)
	}
	return wallet, nil
}
