package local

import (
	"context"
	"fmt"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

// Dispatcher runs price lookups in-process, at most limit at a time.
type Dispatcher struct {
	lookup ports.PriceLookup
	slots  chan struct{}
}

func NewDispatcher(lookup ports.PriceLookup, limit int) *Dispatcher {
	if limit <= 0 {
		limit = 4
	}
	return &Dispatcher{lookup: lookup, slots: make(chan struct{}, limit)}
}

// Dispatch waits for a free slot and runs the lookup to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, cardID int64) error {
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return domain.WrapError(domain.ErrOverloaded, "dispatch price lookup", ctx.Err())
	}
	defer func() { <-d.slots }()

	if err := d.lookup.Lookup(ctx, cardID); err != nil {
		return fmt.Errorf("card %d: %w", cardID, err)
	}
	return nil
}
