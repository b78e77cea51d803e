package ports

import (
	"context"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

// CardUploader is the inbound contract for the upload pipeline.
type CardUploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.CardRecord, error)
}

// CatalogService is the inbound read/maintenance model for a user's catalog.
type CatalogService interface {
	GetCard(ctx context.Context, cardID int64) (*domain.CardRecord, error)
	ListCards(ctx context.Context, username string) ([]domain.CardRecord, error)
	RemoveCard(ctx context.Context, cardID int64, all bool) (remaining int, err error)
}

// PriceRefresher starts price enrichment for cards.
type PriceRefresher interface {
	EnrichAsync(ctx context.Context, cardID int64)
	EnrichAllForUser(ctx context.Context, username string) (int, error)
}

// PriceEnricher runs a single price lookup to completion.
type PriceEnricher interface {
	EnrichCard(ctx context.Context, cardID int64) error
}
