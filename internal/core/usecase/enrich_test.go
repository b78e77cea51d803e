package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

func TestEnrichAsyncDoesNotBlockAndSurvivesCancel(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	dispatcher := &dispatcherFake{release: make(chan struct{})}
	observer := &observerFake{}
	uc := NewPriceEnrichmentUseCase(dispatcher, &lookupFake{}, users, catalogs, cards, observer)

	ctx, cancel := context.WithCancel(context.Background())
	uc.EnrichAsync(ctx, 100)
	cancel()

	if got := dispatcher.dispatched(); len(got) != 0 {
		t.Fatalf("dispatch should still be pending, got %v", got)
	}
	close(dispatcher.release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := uc.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := dispatcher.dispatched(); len(got) != 1 || got[0] != 100 {
		t.Fatalf("unexpected dispatched ids %v", got)
	}
	if dispatcher.ctxErrs[0] != nil {
		t.Fatalf("dispatch context inherited cancellation: %v", dispatcher.ctxErrs[0])
	}
	if observer.dispatches != 1 {
		t.Fatalf("expected one dispatch observation, got %d", observer.dispatches)
	}
}

func TestEnrichAsyncSwallowsDispatchError(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	dispatcher := &dispatcherFake{err: errors.New("queue down")}
	observer := &observerFake{}
	uc := NewPriceEnrichmentUseCase(dispatcher, &lookupFake{}, users, catalogs, cards, observer)

	uc.EnrichAsync(context.Background(), 101)
	if err := uc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := dispatcher.dispatched(); len(got) != 1 {
		t.Fatalf("expected one dispatch attempt, got %v", got)
	}
	if len(observer.stages) != 1 || observer.stages[0] != domain.StageEnrichment {
		t.Fatalf("expected enrichment stage observation, got %v", observer.stages)
	}
	if stage, ok := domain.StageOf(observer.stageErrs[0]); !ok || stage != domain.StageEnrichment {
		t.Fatalf("dispatch failure should carry the enrichment stage, got %v", observer.stageErrs[0])
	}
}

func TestEnrichAllForUserDispatchesEveryCard(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	dispatcher := &dispatcherFake{}
	uc := NewPriceEnrichmentUseCase(dispatcher, &lookupFake{}, users, catalogs, cards, nil)

	count, err := uc.EnrichAllForUser(context.Background(), "ash")
	if err != nil {
		t.Fatalf("EnrichAllForUser() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if err := uc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	got := dispatcher.dispatched()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != 100 || got[1] != 101 {
		t.Fatalf("unexpected dispatched ids %v", got)
	}
}

func TestEnrichAllForUserUnknownUser(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	uc := NewPriceEnrichmentUseCase(&dispatcherFake{}, &lookupFake{}, users, catalogs, cards, nil)

	_, err := uc.EnrichAllForUser(context.Background(), "gary")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestEnrichAllForUserEmptyCatalog(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	cards.ids[10] = nil
	uc := NewPriceEnrichmentUseCase(&dispatcherFake{}, &lookupFake{}, users, catalogs, cards, nil)

	count, err := uc.EnrichAllForUser(context.Background(), "ash")
	if err != nil || count != 0 {
		t.Fatalf("expected zero count, got %d err=%v", count, err)
	}
}

func TestEnrichCardRunsLookup(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	lookup := &lookupFake{}
	uc := NewPriceEnrichmentUseCase(&dispatcherFake{}, lookup, users, catalogs, cards, nil)

	if err := uc.EnrichCard(context.Background(), 200); err != nil {
		t.Fatalf("EnrichCard() error = %v", err)
	}
	if len(lookup.ids) != 1 || lookup.ids[0] != 200 {
		t.Fatalf("unexpected lookups %v", lookup.ids)
	}

	lookup.err = errors.New("exit status 1")
	if err := uc.EnrichCard(context.Background(), 200); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	users, catalogs, cards := newCatalogFixture()
	dispatcher := &dispatcherFake{release: make(chan struct{})}
	uc := NewPriceEnrichmentUseCase(dispatcher, &lookupFake{}, users, catalogs, cards, nil)
	uc.EnrichAsync(context.Background(), 100)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := uc.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(dispatcher.release)
	if err := uc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}
