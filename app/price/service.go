package price

import (
	"context"

	"custody/app/models"
)

type Service interface {
	GetPrice(ctx context.Context, query *models.TokenQuery) (*models.Price, error)
	GetTokenMeta(ctx context.Context, query *models.TokenQuery) (*models.PriceMeta, error)
	GetExtendedInfo(ctx context.Context, query *models.TokenQuery) (*models.ExtendedInfo, error)
	GetHistoricalQuotes(ctx context.Context, query *models.TokenQuery, window *models.HistoryWindow) (
		[]*models.HistoricalQuote, error)
}
