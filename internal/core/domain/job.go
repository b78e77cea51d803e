package domain

import (
	"io"
	"time"
)

// JobState tracks an upload request through the pipeline.
type JobState string

const (
	JobReceived             JobState = "received"
	JobWorkspaceReady       JobState = "workspace_ready"
	JobDetected             JobState = "detected"
	JobCatalogResolved      JobState = "catalog_resolved"
	JobInserted             JobState = "inserted"
	JobResponded            JobState = "responded"
	JobEnrichmentDispatched JobState = "enrichment_dispatched"
	JobFailed               JobState = "failed"
)

// UploadJob is owned by a single upload request and removed when it ends.
type UploadJob struct {
	ID                  string
	WorkspaceDir        string
	SourceImagePath     string
	DetectionOutputPath string
	InsertResultPath    string
	CreatedAt           time.Time
	State               JobState
}

type UploadRequest struct {
	Username string
	Filename string
	Body     io.Reader
}
