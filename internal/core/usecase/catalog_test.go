package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

func TestCatalogListCards(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	uc := NewCatalogUseCase(users, catalogs, cards)

	list, err := uc.ListCards(context.Background(), "ash")
	if err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(list))
	}

	if _, err := uc.ListCards(context.Background(), "brock"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected catalog not found, got %v", err)
	}
}

func TestCatalogListCardsEmptyIsNotNil(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	cards.ids[10] = nil
	uc := NewCatalogUseCase(users, catalogs, cards)

	list, err := uc.ListCards(context.Background(), "ash")
	if err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}

func TestCatalogRemoveCard(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	uc := NewCatalogUseCase(users, catalogs, cards)

	remaining, err := uc.RemoveCard(context.Background(), 101, false)
	if err != nil || remaining != 1 {
		t.Fatalf("expected one copy left, got %d err=%v", remaining, err)
	}
	remaining, err = uc.RemoveCard(context.Background(), 101, false)
	if err != nil || remaining != 0 {
		t.Fatalf("expected row gone, got %d err=%v", remaining, err)
	}
	if _, err := uc.GetCard(context.Background(), 101); !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
}

func TestCatalogRemoveCardAll(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	uc := NewCatalogUseCase(users, catalogs, cards)

	if _, err := uc.RemoveCard(context.Background(), 100, true); err != nil {
		t.Fatalf("RemoveCard() error = %v", err)
	}
	if len(cards.deleted) != 1 || cards.deleted[0] != 100 {
		t.Fatalf("unexpected deletes %v", cards.deleted)
	}
	if _, err := uc.RemoveCard(context.Background(), 0, true); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
