package notifier

import (
	"context"

	"custody/app/models"
)

// Service streams settled transactions to websocket subscribers of a wallet.
type Service interface {
	Subscribe(ctx context.Context, subscription *models.NewSubscription) error
	Notify(ctx context.Context, notification *models.Notification)
}
