package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/core/ports"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// UploadCardUseCase runs one upload request through workspace, detection,
// catalog resolution and insert, then hands the new card to price enrichment.
type UploadCardUseCase struct {
	workspaces ports.Workspaces
	detector   ports.CardDetector
	inserter   ports.CardInserter
	users      ports.UserRepository
	catalogs   ports.CatalogRepository
	cards      ports.CardRepository
	prices     ports.PriceRefresher
	observer   ports.PipelineObserver
	now        func() time.Time
}

func NewUploadCardUseCase(
	workspaces ports.Workspaces,
	detector ports.CardDetector,
	inserter ports.CardInserter,
	users ports.UserRepository,
	catalogs ports.CatalogRepository,
	cards ports.CardRepository,
	prices ports.PriceRefresher,
	observer ports.PipelineObserver,
) *UploadCardUseCase {
	return &UploadCardUseCase{
		workspaces: workspaces,
		detector:   detector,
		inserter:   inserter,
		users:      users,
		catalogs:   catalogs,
		cards:      cards,
		prices:     prices,
		observer:   observer,
		now:        time.Now,
	}
}

func (uc *UploadCardUseCase) Upload(ctx context.Context, req domain.UploadRequest) (card *domain.CardRecord, err error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, domain.NewStageError(domain.StageCatalog,
			domain.WrapError(domain.ErrInvalidInput, "upload card", errors.New("username is required")))
	}
	if req.Body == nil {
		return nil, domain.NewStageError(domain.StageWorkspace,
			domain.WrapError(domain.ErrInvalidInput, "upload card", errors.New("image body is required")))
	}

	// A started upload runs to completion; child processes are bounded only
	// by their own command timeouts.
	ctx = context.WithoutCancel(ctx)

	var job *domain.UploadJob
	defer func() {
		if err != nil {
			stage, _ := domain.StageOf(err)
			uc.advance(job, domain.JobFailed)
			uc.observeUpload(OutcomeFailed, stage)
			return
		}
		uc.observeUpload(OutcomeSuccess, "")
	}()

	job, err = uc.prepareWorkspace(ctx, req)
	if err != nil {
		return nil, err
	}
	defer uc.destroyWorkspace(job)
	uc.advance(job, domain.JobWorkspaceReady)

	detection, err := uc.detect(ctx, job)
	if err != nil {
		return nil, err
	}
	uc.advance(job, domain.JobDetected)

	target, err := uc.resolveCatalog(ctx, username)
	if err != nil {
		return nil, err
	}
	uc.advance(job, domain.JobCatalogResolved)

	receipt, err := uc.insert(ctx, job, target)
	if err != nil {
		return nil, err
	}
	uc.advance(job, domain.JobInserted)

	card, err = uc.readBack(ctx, target, receipt)
	if err != nil {
		return nil, err
	}
	uc.advance(job, domain.JobResponded)

	slog.Info("card_uploaded",
		"job_id", job.ID,
		"username", target.Username,
		"catalog_id", target.CatalogID,
		"card_id", card.ID,
		"card_name", detection.Name,
	)

	if uc.prices != nil {
		uc.prices.EnrichAsync(ctx, card.ID)
		uc.advance(job, domain.JobEnrichmentDispatched)
	}
	return card, nil
}

func (uc *UploadCardUseCase) advance(job *domain.UploadJob, state domain.JobState) {
	if job == nil {
		return
	}
	slog.Debug("upload_state",
		"job_id", job.ID,
		"from", string(job.State),
		"to", string(state),
	)
	job.State = state
}

func (uc *UploadCardUseCase) prepareWorkspace(ctx context.Context, req domain.UploadRequest) (*domain.UploadJob, error) {
	started := uc.now()
	job, err := uc.workspaces.Create(ctx, req.Filename)
	if err != nil {
		err = domain.NewStageError(domain.StageWorkspace, fmt.Errorf("create workspace: %w", err))
		uc.observeStage(domain.StageWorkspace, started, err)
		return nil, err
	}
	job.State = domain.JobReceived
	if err := uc.workspaces.WriteSource(ctx, job, req.Body); err != nil {
		uc.destroyWorkspace(job)
		err = domain.NewStageError(domain.StageWorkspace, fmt.Errorf("write source image: %w", err))
		uc.observeStage(domain.StageWorkspace, started, err)
		return nil, err
	}
	uc.observeStage(domain.StageWorkspace, started, nil)
	return job, nil
}

func (uc *UploadCardUseCase) detect(ctx context.Context, job *domain.UploadJob) (domain.CardDetection, error) {
	started := uc.now()
	detection, err := uc.detector.Detect(ctx, job.SourceImagePath, job.DetectionOutputPath)
	if err != nil {
		err = domain.NewStageError(domain.StageDetection, fmt.Errorf("detect card: %w", err))
	}
	uc.observeStage(domain.StageDetection, started, err)
	return detection, err
}

func (uc *UploadCardUseCase) resolveCatalog(ctx context.Context, username string) (domain.CatalogTarget, error) {
	started := uc.now()
	target, err := ResolveCatalog(ctx, uc.users, uc.catalogs, username)
	if err != nil {
		err = domain.NewStageError(domain.StageCatalog, err)
	}
	uc.observeStage(domain.StageCatalog, started, err)
	return target, err
}

func (uc *UploadCardUseCase) insert(ctx context.Context, job *domain.UploadJob, target domain.CatalogTarget) (domain.InsertReceipt, error) {
	started := uc.now()
	receipt, err := uc.inserter.Insert(ctx, job.DetectionOutputPath, target.CatalogID, job.InsertResultPath)
	if err != nil {
		err = domain.NewStageError(domain.StageInsert, fmt.Errorf("insert card: %w", err))
	}
	uc.observeStage(domain.StageInsert, started, err)
	return receipt, err
}

// readBack loads the row the writer created. The reported id must belong to
// the target catalog; without an id the newest row of that catalog is used.
func (uc *UploadCardUseCase) readBack(ctx context.Context, target domain.CatalogTarget, receipt domain.InsertReceipt) (*domain.CardRecord, error) {
	if receipt.CardID > 0 {
		card, err := uc.cards.GetByID(ctx, receipt.CardID)
		if err != nil {
			return nil, domain.NewStageError(domain.StageInsert,
				domain.WrapError(domain.ErrProcessingFailed, "read inserted card", err))
		}
		if card.CatalogID != target.CatalogID {
			return nil, domain.NewStageError(domain.StageInsert,
				domain.WrapError(domain.ErrProcessingFailed, "read inserted card",
					fmt.Errorf("card %d belongs to catalog %d, want %d", card.ID, card.CatalogID, target.CatalogID)))
		}
		return card, nil
	}

	slog.Warn("insert_receipt_missing",
		"catalog_id", target.CatalogID,
		"fallback", "latest_in_catalog",
	)
	card, err := uc.cards.LatestInCatalog(ctx, target.CatalogID)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInsert,
			domain.WrapError(domain.ErrProcessingFailed, "read inserted card", err))
	}
	return card, nil
}

func (uc *UploadCardUseCase) destroyWorkspace(job *domain.UploadJob) {
	if job == nil {
		return
	}
	if err := uc.workspaces.Destroy(job); err != nil {
		slog.Warn("workspace_cleanup_failed",
			"job_id", job.ID,
			"dir", job.WorkspaceDir,
			"error", err.Error(),
		)
	}
}

func (uc *UploadCardUseCase) observeStage(stage domain.Stage, started time.Time, err error) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveStage(stage, uc.now().Sub(started), err)
}

func (uc *UploadCardUseCase) observeUpload(outcome string, stage domain.Stage) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveUpload(outcome, stage)
}

// ResolveCatalog maps a username to the user's single catalog.
func ResolveCatalog(ctx context.Context, users ports.UserRepository, catalogs ports.CatalogRepository, username string) (domain.CatalogTarget, error) {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return domain.CatalogTarget{}, fmt.Errorf("resolve user %q: %w", username, err)
	}
	catalog, err := catalogs.GetByOwnerID(ctx, user.ID)
	if err != nil {
		return domain.CatalogTarget{}, fmt.Errorf("resolve catalog for user %q: %w", username, err)
	}
	return domain.CatalogTarget{
		UserID:    user.ID,
		Username:  user.Username,
		CatalogID: catalog.ID,
	}, nil
}
