package ports

import (
	"context"

	"model-promotion-service/internal/core/domain"
)

// PromotionNotifier is told about successful promotions. Notifier failures
// never fail the promotion itself; the controller logs and moves on.
type PromotionNotifier interface {
	ModelPromoted(ctx context.Context, event domain.PromotionEvent) error
}
