package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

// CardWriterUseCase stores a classifier detection as a new catalog row.
type CardWriterUseCase struct {
	cards     ports.CardRepository
	reference ports.CardReference
}

func NewCardWriterUseCase(cards ports.CardRepository, reference ports.CardReference) *CardWriterUseCase {
	return &CardWriterUseCase{cards: cards, reference: reference}
}

func (uc *CardWriterUseCase) WriteFromFile(ctx context.Context, detectionPath string, catalogID int64) (int64, error) {
	raw, err := os.ReadFile(detectionPath)
	if err != nil {
		return 0, fmt.Errorf("read detection: %w", err)
	}
	detection, err := domain.ParseDetection(raw)
	if err != nil {
		return 0, err
	}
	return uc.Write(ctx, detection, catalogID)
}

// Write normalises the detection, fills gaps from the reference database when
// it answers, and inserts one copy without a price.
func (uc *CardWriterUseCase) Write(ctx context.Context, detection domain.CardDetection, catalogID int64) (int64, error) {
	if catalogID <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "write card", fmt.Errorf("catalog id %d", catalogID))
	}
	attrs := detection.Attributes()

	if uc.reference != nil {
		ref, err := uc.reference.FindCard(ctx, attrs.Ref())
		switch {
		case err != nil:
			slog.Warn("card_reference_unavailable", "card_name", attrs.Name, "error", err.Error())
		case ref != nil:
			attrs = attrs.FillMissing(ref.CardAttributes)
		}
	}

	id, err := uc.cards.Insert(ctx, catalogID, attrs)
	if err != nil {
		return 0, err
	}
	slog.Info("card_written", "card_id", id, "catalog_id", catalogID, "card_name", attrs.Name)
	return id, nil
}
