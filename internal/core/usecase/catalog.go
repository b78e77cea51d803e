package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

type CatalogUseCase struct {
	users    ports.UserRepository
	catalogs ports.CatalogRepository
	cards    ports.CardRepository
}

func NewCatalogUseCase(users ports.UserRepository, catalogs ports.CatalogRepository, cards ports.CardRepository) *CatalogUseCase {
	return &CatalogUseCase{users: users, catalogs: catalogs, cards: cards}
}

func (uc *CatalogUseCase) GetCard(ctx context.Context, cardID int64) (*domain.CardRecord, error) {
	if cardID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get card", errors.New("card id must be positive"))
	}
	card, err := uc.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (uc *CatalogUseCase) ListCards(ctx context.Context, username string) ([]domain.CardRecord, error) {
	target, err := ResolveCatalog(ctx, uc.users, uc.catalogs, username)
	if err != nil {
		return nil, err
	}
	cards, err := uc.cards.ListByCatalog(ctx, target.CatalogID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	if cards == nil {
		cards = []domain.CardRecord{}
	}
	return cards, nil
}

// RemoveCard takes one copy off the card row, or the whole row when all is set.
func (uc *CatalogUseCase) RemoveCard(ctx context.Context, cardID int64, all bool) (int, error) {
	if cardID <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "remove card", errors.New("card id must be positive"))
	}
	if all {
		if err := uc.cards.Delete(ctx, cardID); err != nil {
			return 0, fmt.Errorf("delete card: %w", err)
		}
		return 0, nil
	}
	remaining, err := uc.cards.RemoveCopy(ctx, cardID)
	if err != nil {
		return 0, fmt.Errorf("remove card copy: %w", err)
	}
	return remaining, nil
}
