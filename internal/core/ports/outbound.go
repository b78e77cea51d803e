package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

// Workspaces owns per-request scratch directories.
type Workspaces interface {
	Create(ctx context.Context, filename string) (*domain.UploadJob, error)
	WriteSource(ctx context.Context, job *domain.UploadJob, data io.Reader) error
	Destroy(job *domain.UploadJob) error
}

// CardDetector runs the image classifier.
type CardDetector interface {
	Detect(ctx context.Context, imagePath, outputPath string) (domain.CardDetection, error)
}

// CardInserter runs the catalog writer for a detection file.
type CardInserter interface {
	Insert(ctx context.Context, detectionPath string, catalogID int64, resultPath string) (domain.InsertReceipt, error)
}

// PriceLookup runs the price refresh for one stored card.
type PriceLookup interface {
	Lookup(ctx context.Context, cardID int64) error
}

// PriceDispatcher hands a card off for price enrichment.
type PriceDispatcher interface {
	Dispatch(ctx context.Context, cardID int64) error
}

// PriceRefreshQueue publishes and consumes price refresh events.
type PriceRefreshQueue interface {
	PublishPriceRefresh(ctx context.Context, cardID int64) error
	SubscribePriceRefresh(ctx context.Context, handler func(context.Context, int64) error) error
}

type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateWithCatalog(ctx context.Context, username, email string) (*domain.User, *domain.Catalog, error)
}

type CatalogRepository interface {
	GetByOwnerID(ctx context.Context, ownerID int64) (*domain.Catalog, error)
}

// CardRepository persists card rows.
type CardRepository interface {
	Insert(ctx context.Context, catalogID int64, attrs domain.CardAttributes) (int64, error)
	GetByID(ctx context.Context, cardID int64) (*domain.CardRecord, error)
	LatestInCatalog(ctx context.Context, catalogID int64) (*domain.CardRecord, error)
	ListByCatalog(ctx context.Context, catalogID int64) ([]domain.CardRecord, error)
	ListIDsByCatalog(ctx context.Context, catalogID int64) ([]int64, error)
	RemoveCopy(ctx context.Context, cardID int64) (remaining int, err error)
	Delete(ctx context.Context, cardID int64) error
	UpdatePrice(ctx context.Context, cardID int64, price float64, at time.Time) error
}

// PipelineObserver records stage outcomes.
type PipelineObserver interface {
	ObserveStage(stage domain.Stage, duration time.Duration, err error)
	ObserveUpload(outcome string, stage domain.Stage)
	ObserveDispatch(err error)
}

// CardReference looks cards up in the public card database. A nil card with
// a nil error means no match.
type CardReference interface {
	FindCard(ctx context.Context, ref domain.CardRef) (*domain.ReferenceCard, error)
}
