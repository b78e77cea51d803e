package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoCardDetected   = errors.New("no card detected")
	ErrProcessingFailed = errors.New("processing failed")
	ErrUserNotFound     = errors.New("user not found")
	ErrCatalogNotFound  = errors.New("catalog not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
	ErrOverloaded       = errors.New("too many concurrent uploads")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Stage names a step of the upload pipeline.
type Stage string

const (
	StageWorkspace  Stage = "workspace"
	StageDetection  Stage = "detection"
	StageCatalog    Stage = "catalog"
	StageInsert     Stage = "insert"
	StageEnrichment Stage = "enrichment"
)

// StageError tags a pipeline failure with the stage that produced it.
// The wrapped error keeps its kind reachable through errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e == nil || e.Err == nil {
		return "pipeline stage error"
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if errors.As(err, &existing) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the pipeline stage carried by err, if any.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
