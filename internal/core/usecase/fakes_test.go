package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

type workspaceFake struct {
	createErr  error
	writeErr   error
	destroyErr error
	created    []*domain.UploadJob
	destroyed  []string
	written    string
}

func (f *workspaceFake) Create(_ context.Context, _ string) (*domain.UploadJob, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("job-%d", len(f.created)+1)
	job := &domain.UploadJob{
		ID:                  id,
		WorkspaceDir:        "/tmp/jobs/" + id,
		SourceImagePath:     "/tmp/jobs/" + id + "/source.png",
		DetectionOutputPath: "/tmp/jobs/" + id + "/detected_card.json",
		InsertResultPath:    "/tmp/jobs/" + id + "/insert_result.json",
	}
	f.created = append(f.created, job)
	return job, nil
}

func (f *workspaceFake) WriteSource(_ context.Context, _ *domain.UploadJob, data io.Reader) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.written = string(raw)
	return nil
}

func (f *workspaceFake) Destroy(job *domain.UploadJob) error {
	f.destroyed = append(f.destroyed, job.ID)
	return f.destroyErr
}

type detectorFake struct {
	detection domain.CardDetection
	err       error
	calls     int
}

func (f *detectorFake) Detect(context.Context, string, string) (domain.CardDetection, error) {
	f.calls++
	if f.err != nil {
		return domain.CardDetection{}, f.err
	}
	return f.detection, nil
}

type inserterFake struct {
	receipt   domain.InsertReceipt
	err       error
	calls     int
	catalogID int64
	detection string
	result    string
	ctxErr    error
}

func (f *inserterFake) Insert(ctx context.Context, detectionPath string, catalogID int64, resultPath string) (domain.InsertReceipt, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	f.catalogID = catalogID
	f.detection = detectionPath
	f.result = resultPath
	if f.err != nil {
		return domain.InsertReceipt{}, f.err
	}
	return f.receipt, nil
}

type userRepoFake struct {
	users map[string]*domain.User
	err   error
}

func (f *userRepoFake) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[username]
	if !ok {
		return nil, domain.WrapError(domain.ErrUserNotFound, "get user", errors.New(username))
	}
	copyUser := *user
	return &copyUser, nil
}

func (f *userRepoFake) CreateWithCatalog(context.Context, string, string) (*domain.User, *domain.Catalog, error) {
	return nil, nil, errors.New("not implemented")
}

type catalogRepoFake struct {
	byOwner map[int64]*domain.Catalog
}

func (f *catalogRepoFake) GetByOwnerID(_ context.Context, ownerID int64) (*domain.Catalog, error) {
	catalog, ok := f.byOwner[ownerID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCatalogNotFound, "get catalog", fmt.Errorf("owner %d", ownerID))
	}
	copyCatalog := *catalog
	return &copyCatalog, nil
}

type cardRepoFake struct {
	cards      map[int64]*domain.CardRecord
	latest     map[int64]int64
	ids        map[int64][]int64
	listErr    error
	latestCall int
	deleted    []int64
	inserted   []domain.CardAttributes
	insertErr  error
	prices     map[int64]float64
}

func (f *cardRepoFake) Insert(_ context.Context, catalogID int64, attrs domain.CardAttributes) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, attrs)
	id := int64(1000 + len(f.inserted))
	f.cards[id] = &domain.CardRecord{ID: id, CatalogID: catalogID, CardAttributes: attrs, Quantity: 1}
	return id, nil
}

func (f *cardRepoFake) GetByID(_ context.Context, cardID int64) (*domain.CardRecord, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCardNotFound, "get card", fmt.Errorf("id %d", cardID))
	}
	copyCard := *card
	return &copyCard, nil
}

func (f *cardRepoFake) LatestInCatalog(ctx context.Context, catalogID int64) (*domain.CardRecord, error) {
	f.latestCall++
	id, ok := f.latest[catalogID]
	if !ok {
		return nil, domain.WrapError(domain.ErrCardNotFound, "latest card", fmt.Errorf("catalog %d", catalogID))
	}
	return f.GetByID(ctx, id)
}

func (f *cardRepoFake) ListByCatalog(_ context.Context, catalogID int64) ([]domain.CardRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.CardRecord
	for _, id := range f.ids[catalogID] {
		out = append(out, *f.cards[id])
	}
	return out, nil
}

func (f *cardRepoFake) ListIDsByCatalog(_ context.Context, catalogID int64) ([]int64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids[catalogID], nil
}

func (f *cardRepoFake) RemoveCopy(_ context.Context, cardID int64) (int, error) {
	card, ok := f.cards[cardID]
	if !ok {
		return 0, domain.WrapError(domain.ErrCardNotFound, "remove copy", fmt.Errorf("id %d", cardID))
	}
	card.Quantity--
	if card.Quantity <= 0 {
		delete(f.cards, cardID)
		return 0, nil
	}
	return card.Quantity, nil
}

func (f *cardRepoFake) Delete(_ context.Context, cardID int64) error {
	if _, ok := f.cards[cardID]; !ok {
		return domain.WrapError(domain.ErrCardNotFound, "delete card", fmt.Errorf("id %d", cardID))
	}
	delete(f.cards, cardID)
	f.deleted = append(f.deleted, cardID)
	return nil
}

func (f *cardRepoFake) UpdatePrice(_ context.Context, cardID int64, price float64, _ time.Time) error {
	if _, ok := f.cards[cardID]; !ok {
		return domain.WrapError(domain.ErrCardNotFound, "update price", fmt.Errorf("id %d", cardID))
	}
	if f.prices == nil {
		f.prices = map[int64]float64{}
	}
	f.prices[cardID] = price
	return nil
}

type referenceFake struct {
	card *domain.ReferenceCard
	err  error
	refs []domain.CardRef
}

func (f *referenceFake) FindCard(_ context.Context, ref domain.CardRef) (*domain.ReferenceCard, error) {
	f.refs = append(f.refs, ref)
	return f.card, f.err
}

type userCreatorFake struct {
	userRepoFake
	created []string
	err     error
}

func (f *userCreatorFake) CreateWithCatalog(_ context.Context, username, _ string) (*domain.User, *domain.Catalog, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.created = append(f.created, username)
	return &domain.User{ID: 9, Username: username}, &domain.Catalog{ID: 90, OwnerID: 9}, nil
}

type refresherFake struct {
	mu  sync.Mutex
	ids []int64
}

func (f *refresherFake) EnrichAsync(_ context.Context, cardID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, cardID)
}

func (f *refresherFake) EnrichAllForUser(context.Context, string) (int, error) {
	return 0, errors.New("not implemented")
}

type dispatcherFake struct {
	mu      sync.Mutex
	ids     []int64
	err     error
	release chan struct{}
	ctxErrs []error
}

func (f *dispatcherFake) Dispatch(ctx context.Context, cardID int64) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, cardID)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *dispatcherFake) dispatched() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.ids...)
}

type lookupFake struct {
	ids []int64
	err error
}

func (f *lookupFake) Lookup(_ context.Context, cardID int64) error {
	f.ids = append(f.ids, cardID)
	return f.err
}

type observerFake struct {
	mu         sync.Mutex
	stages     []domain.Stage
	stageErrs  []error
	outcomes   []string
	failStages []domain.Stage
	dispatches int
}

func (f *observerFake) ObserveStage(stage domain.Stage, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
	f.stageErrs = append(f.stageErrs, err)
}

func (f *observerFake) ObserveUpload(outcome string, stage domain.Stage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	f.failStages = append(f.failStages, stage)
}

func (f *observerFake) ObserveDispatch(error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatches++
}

func newCatalogFixture() (*userRepoFake, *catalogRepoFake, *cardRepoFake) {
	users := &userRepoFake{users: map[string]*domain.User{
		"ash":   {ID: 1, Username: "ash"},
		"misty": {ID: 2, Username: "misty"},
		"brock": {ID: 3, Username: "brock"},
	}}
	catalogs := &catalogRepoFake{byOwner: map[int64]*domain.Catalog{
		1: {ID: 10, OwnerID: 1},
		2: {ID: 20, OwnerID: 2},
	}}
	cards := &cardRepoFake{
		cards: map[int64]*domain.CardRecord{
			100: {ID: 100, CatalogID: 10, CardAttributes: domain.CardAttributes{Name: "Pikachu"}, Quantity: 1},
			101: {ID: 101, CatalogID: 10, CardAttributes: domain.CardAttributes{Name: "Onix"}, Quantity: 2},
			200: {ID: 200, CatalogID: 20, CardAttributes: domain.CardAttributes{Name: "Staryu"}, Quantity: 1},
		},
		latest: map[int64]int64{10: 101, 20: 200},
		ids:    map[int64][]int64{10: {100, 101}, 20: {200}},
	}
	return users, catalogs, cards
}
