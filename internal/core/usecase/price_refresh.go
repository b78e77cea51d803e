package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/ports"
)

// PriceRefreshUseCase fetches a market price for one stored card.
type PriceRefreshUseCase struct {
	cards     ports.CardRepository
	reference ports.CardReference
	now       func() time.Time
}

func NewPriceRefreshUseCase(cards ports.CardRepository, reference ports.CardReference) *PriceRefreshUseCase {
	return &PriceRefreshUseCase{cards: cards, reference: reference, now: time.Now}
}

// Refresh returns false when no positive price was found; the stored price
// is left untouched in that case.
func (uc *PriceRefreshUseCase) Refresh(ctx context.Context, cardID int64) (bool, error) {
	card, err := uc.cards.GetByID(ctx, cardID)
	if err != nil {
		return false, err
	}
	ref, err := uc.reference.FindCard(ctx, card.Ref())
	if err != nil {
		return false, fmt.Errorf("find card %d in reference: %w", cardID, err)
	}
	if ref == nil || ref.MarketPrice <= 0 {
		slog.Info("price_unavailable", "card_id", cardID, "card_name", card.Name)
		return false, nil
	}
	if err := uc.cards.UpdatePrice(ctx, cardID, ref.MarketPrice, uc.now()); err != nil {
		return false, err
	}
	slog.Info("price_updated", "card_id", cardID, "price", ref.MarketPrice)
	return true, nil
}
