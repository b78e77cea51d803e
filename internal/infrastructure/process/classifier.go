package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

const DefaultNoCardExitCode = 3

// Classifier runs the image recognizer as `<cmd> <image> <output>`.
type Classifier struct {
	runner     Runner
	cmd        Command
	noCardCode int
}

func NewClassifier(runner Runner, cmd Command, noCardCode int) *Classifier {
	if runner == nil {
		runner = ExecRunner{}
	}
	if noCardCode == 0 {
		noCardCode = DefaultNoCardExitCode
	}
	return &Classifier{runner: runner, cmd: cmd, noCardCode: noCardCode}
}

// Detect waits for the classifier to exit even if ctx is cancelled; the
// command timeout is the only bound on a started run.
func (c *Classifier) Detect(ctx context.Context, imagePath, outputPath string) (domain.CardDetection, error) {
	res, err := c.runner.Run(context.WithoutCancel(ctx), c.cmd, imagePath, outputPath)
	if err != nil {
		return domain.CardDetection{}, domain.WrapError(domain.ErrProcessingFailed, "run classifier", err)
	}

	switch res.ExitCode {
	case 0:
	case c.noCardCode:
		return domain.CardDetection{}, domain.WrapError(domain.ErrNoCardDetected, "run classifier",
			fmt.Errorf("exit status %d", res.ExitCode))
	default:
		slog.Warn("classifier_failed",
			"exit_code", res.ExitCode,
			"stderr", res.Stderr,
		)
		return domain.CardDetection{}, domain.WrapError(domain.ErrProcessingFailed, "run classifier",
			fmt.Errorf("exit status %d", res.ExitCode))
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = errors.New("classifier reported success but wrote no output")
		}
		return domain.CardDetection{}, domain.WrapError(domain.ErrProcessingFailed, "read classifier output", err)
	}
	detection, err := domain.ParseDetection(raw)
	if err != nil {
		return domain.CardDetection{}, domain.WrapError(domain.ErrProcessingFailed, "read classifier output",
			fmt.Errorf("malformed output: %v", err))
	}
	return detection, nil
}
