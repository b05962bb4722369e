package price

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"custody/app/models"
	"custody/pkg/log"
)

const (
	defaultPriceTTL = time.Minute
	defaultMetaTTL  = 24 * time.Hour
	cleanupInterval = 10 * time.Minute
)

// Manager is the CoinMarketCap backed price oracle. Prices and metadata sit in
// an in-process cache and, when configured, in a shared redis tier behind it.
type Manager struct {
	Shared Shared

	cmc      *cmc
	prices   *cache.Cache
	metas    *cache.Cache
	priceTTL time.Duration
	metaTTL  time.Duration
}

func NewManager(cfg Config, shared Shared) *Manager {
	priceTTL := cfg.PriceTTL
	if priceTTL == 0 {
		priceTTL = defaultPriceTTL
	}
	metaTTL := cfg.MetaTTL
	if metaTTL == 0 {
		metaTTL = defaultMetaTTL
	}

	return &Manager{
		Shared:   shared,
		cmc:      newCMC(cfg),
		prices:   cache.New(priceTTL, cleanupInterval),
		metas:    cache.New(metaTTL, cleanupInterval),
		priceTTL: priceTTL,
		metaTTL:  metaTTL,
	}
}

func (m *Manager) GetTokenMeta(ctx context.Context, query *models.TokenQuery) (*models.PriceMeta, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	key := "meta:" + query.CacheKey()
	if cached, ok := m.metas.Get(key); ok {
		return cached.(*models.PriceMeta), nil
	}
	meta := &models.PriceMeta{}
	if m.fromShared(ctx, key, meta) {
		m.metas.Set(key, meta, cache.DefaultExpiration)
		return meta, nil
	}

	info, err := m.cmc.info(ctx, query)
	if err != nil {
		log.Errorw("failed to get token info", "symbol", query.Symbol, "contract", query.Contract, "error", err)
		return nil, err
	}

	meta = &models.PriceMeta{ID: info.ID, Name: info.Name, Symbol: info.Symbol, Logo: info.Logo}
	m.metas.Set(key, meta, cache.DefaultExpiration)
	m.toShared(ctx, key, meta, m.metaTTL)
	return meta, nil
}

func (m *Manager) GetPrice(ctx context.Context, query *models.TokenQuery) (*models.Price, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	key := "price:" + query.CacheKey()
	if cached, ok := m.prices.Get(key); ok {
		return cached.(*models.Price), nil
	}
	price := &models.Price{}
	if m.fromShared(ctx, key, price) {
		m.prices.Set(key, price, cache.DefaultExpiration)
		return price, nil
	}

	meta, err := m.GetTokenMeta(ctx, query)
	if err != nil {
		return nil, err
	}
	_, quote, err := m.cmc.latest(ctx, meta.ID)
	if err != nil {
		log.Errorw("failed to get token price", "symbol", query.Symbol, "contract", query.Contract, "error", err)
		return nil, err
	}

	price = &models.Price{Price: quote.Price, PriceChangePercentage: quote.PercentChange24h}
	m.prices.Set(key, price, cache.DefaultExpiration)
	m.toShared(ctx, key, price, m.priceTTL)
	return price, nil
}

func (m *Manager) GetExtendedInfo(ctx context.Context, query *models.TokenQuery) (*models.ExtendedInfo, error) {
	meta, err := m.GetTokenMeta(ctx, query)
	if err != nil {
		return nil, err
	}

	latest, quote, err := m.cmc.latest(ctx, meta.ID)
	if err != nil {
		log.Errorw("failed to get extended info", "symbol", query.Symbol, "contract", query.Contract, "error", err)
		return nil, err
	}

	return &models.ExtendedInfo{
		PriceMeta:        *meta,
		Price:            quote.Price,
		PercentChange24h: quote.PercentChange24h,
		PercentChange7d:  quote.PercentChange7d,
		PercentChange30d: quote.PercentChange30d,
		MarketCap:        quote.MarketCap,
		TotalSupply:      latest.TotalSupply.Decimal,
		MaxSupply:        latest.MaxSupply.Decimal,
	}, nil
}

// GetHistoricalQuotes returns USD prices over window, oldest first. An empty
// upstream series is not an error.
func (m *Manager) GetHistoricalQuotes(ctx context.Context, query *models.TokenQuery, window *models.HistoryWindow) (
	[]*models.HistoricalQuote, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	meta, err := m.GetTokenMeta(ctx, query)
	if err != nil {
		return nil, err
	}

	history, err := m.cmc.historical(ctx, meta.ID, window)
	if err != nil {
		log.Errorw("failed to get historical quotes", "symbol", query.Symbol, "contract", query.Contract, "error", err)
		return nil, err
	}

	result := make([]*models.HistoricalQuote, 0, len(history.Quotes))
	for _, q := range history.Quotes {
		quote := q.Quote[usd]
		if quote == nil {
			continue
		}
		result = append(result, &models.HistoricalQuote{Timestamp: q.Timestamp, Price: quote.Price})
	}
	return result, nil
}

func (m *Manager) fromShared(ctx context.Context, key string, dest interface{}) bool {
	if m.Shared == nil {
		return false
	}
	found, err := m.Shared.Get(ctx, key, dest)
	if err != nil {
		log.Warnw("shared price cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (m *Manager) toShared(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if m.Shared == nil {
		return
	}
	if err := m.Shared.Set(ctx, key, value, ttl); err != nil {
		log.Warnw("shared price cache write failed", "key", key, "error", err)
	}
}
