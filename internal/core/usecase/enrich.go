package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

// PriceEnrichmentUseCase dispatches price lookups without holding up callers.
type PriceEnrichmentUseCase struct {
	dispatcher ports.PriceDispatcher
	lookup     ports.PriceLookup
	users      ports.UserRepository
	catalogs   ports.CatalogRepository
	cards      ports.CardRepository
	observer   ports.PipelineObserver

	inflight sync.WaitGroup
}

func NewPriceEnrichmentUseCase(
	dispatcher ports.PriceDispatcher,
	lookup ports.PriceLookup,
	users ports.UserRepository,
	catalogs ports.CatalogRepository,
	cards ports.CardRepository,
	observer ports.PipelineObserver,
) *PriceEnrichmentUseCase {
	return &PriceEnrichmentUseCase{
		dispatcher: dispatcher,
		lookup:     lookup,
		users:      users,
		catalogs:   catalogs,
		cards:      cards,
		observer:   observer,
	}
}

// EnrichAsync hands the card to the dispatcher in the background. The
// request context's cancellation is not inherited.
func (uc *PriceEnrichmentUseCase) EnrichAsync(ctx context.Context, cardID int64) {
	detached := context.WithoutCancel(ctx)
	uc.inflight.Add(1)
	go func() {
		defer uc.inflight.Done()
		started := time.Now()
		err := uc.dispatcher.Dispatch(detached, cardID)
		if err != nil {
			err = domain.NewStageError(domain.StageEnrichment, err)
		}
		if uc.observer != nil {
			uc.observer.ObserveStage(domain.StageEnrichment, time.Since(started), err)
			uc.observer.ObserveDispatch(err)
		}
		if err != nil {
			slog.Warn("price_enrichment_failed",
				"card_id", cardID,
				"stage", string(domain.StageEnrichment),
				"error", err.Error(),
			)
		}
	}()
}

// EnrichAllForUser dispatches one lookup per card in the user's catalog and
// returns how many were started.
func (uc *PriceEnrichmentUseCase) EnrichAllForUser(ctx context.Context, username string) (int, error) {
	target, err := ResolveCatalog(ctx, uc.users, uc.catalogs, username)
	if err != nil {
		return 0, err
	}
	ids, err := uc.cards.ListIDsByCatalog(ctx, target.CatalogID)
	if err != nil {
		return 0, fmt.Errorf("list catalog cards: %w", err)
	}
	for _, id := range ids {
		uc.EnrichAsync(ctx, id)
	}
	slog.Info("price_refresh_started",
		"username", target.Username,
		"catalog_id", target.CatalogID,
		"count", len(ids),
	)
	return len(ids), nil
}

// EnrichCard runs the price lookup for one card and waits for it.
func (uc *PriceEnrichmentUseCase) EnrichCard(ctx context.Context, cardID int64) error {
	if err := uc.lookup.Lookup(ctx, cardID); err != nil {
		return fmt.Errorf("price lookup for card %d: %w", cardID, err)
	}
	return nil
}

// Wait blocks until in-flight dispatches finish or ctx is done.
func (uc *PriceEnrichmentUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		uc.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
