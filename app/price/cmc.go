package price

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	"custody/pkg/httpclient"
)

const usd = "USD"

// cmc talks to the CoinMarketCap v2 cryptocurrency endpoints.
type cmc struct {
	client *httpclient.Client
}

func newCMC(cfg Config) *cmc {
	return &cmc{client: httpclient.New(httpclient.Config{
		Name:    "coinmarketcap",
		BaseURL: cfg.CMCURL,
		Headers: map[string]string{"X-CMC_PRO_API_KEY": cfg.CMCAPIKey},
		RPS:     cfg.RPS,
		Burst:   1,
	})}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type coinInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

type usdQuote struct {
	Price            decimal.Decimal `json:"price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `json:"percent_change_7d"`
	PercentChange30d decimal.Decimal `json:"percent_change_30d"`
	MarketCap        decimal.Decimal `json:"market_cap"`
}

type latestQuote struct {
	TotalSupply decimal.NullDecimal  `json:"total_supply"`
	MaxSupply   decimal.NullDecimal  `json:"max_supply"`
	Quote       map[string]*usdQuote `json:"quote"`
}

type historicalQuotes struct {
	Quotes []struct {
		Timestamp time.Time            `json:"timestamp"`
		Quote     map[string]*usdQuote `json:"quote"`
	} `json:"quotes"`
}

func (c *cmc) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	env := &envelope{}
	if err := c.client.Get(ctx, "/v2/cryptocurrency/"+endpoint, query, env); err != nil {
		return err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.Errorf("coinmarketcap %s returned no data", endpoint)
	}
	return errors.Wrapf(json.Unmarshal(env.Data, out), "failed to decode coinmarketcap %s", endpoint)
}

// info looks a coin up by contract address when one is known. A symbol lookup
// returns every coin sharing the ticker; the first one is the ranked one.
func (c *cmc) info(ctx context.Context, query *models.TokenQuery) (*coinInfo, error) {
	if query.Contract != "" {
		byID := map[string]*coinInfo{}
		if err := c.get(ctx, "info", url.Values{"address": {query.Contract}}, &byID); err != nil {
			return nil, err
		}
		for _, info := range byID {
			return info, nil
		}
		return nil, errors.Wrapf(models.ErrTokenNotFound, "no coin for contract %s", query.Contract)
	}

	bySymbol := map[string][]*coinInfo{}
	if err := c.get(ctx, "info", url.Values{"symbol": {query.Symbol}}, &bySymbol); err != nil {
		return nil, err
	}
	for _, infos := range bySymbol {
		if len(infos) > 0 {
			return infos[0], nil
		}
	}
	return nil, errors.Wrapf(models.ErrTokenNotFound, "no coin for symbol %s", query.Symbol)
}

func (c *cmc) latest(ctx context.Context, id int64) (*latestQuote, *usdQuote, error) {
	key := strconv.FormatInt(id, 10)
	byID := map[string]*latestQuote{}
	if err := c.get(ctx, "quotes/latest", url.Values{"id": {key}}, &byID); err != nil {
		return nil, nil, err
	}
	latest, ok := byID[key]
	if !ok || latest.Quote[usd] == nil {
		return nil, nil, errors.Errorf("coinmarketcap has no usd quote for %d", id)
	}
	return latest, latest.Quote[usd], nil
}

func (c *cmc) historical(ctx context.Context, id int64, window *models.HistoryWindow) (*historicalQuotes, error) {
	query := url.Values{
		"id":         {strconv.FormatInt(id, 10)},
		"time_start": {window.Start.UTC().Format(time.RFC3339)},
		"time_end":   {window.End.UTC().Format(time.RFC3339)},
		"interval":   {window.Interval},
		"convert":    {usd},
	}
	result := &historicalQuotes{}
	if err := c.get(ctx, "quotes/historical", query, result); err != nil {
		return nil, err
	}
	return result, nil
}
