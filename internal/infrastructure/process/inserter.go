package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

// Inserter runs the catalog writer as `<cmd> <detection> <catalogID> <result>`.
type Inserter struct {
	runner Runner
	cmd    Command
}

func NewInserter(runner Runner, cmd Command) *Inserter {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Inserter{runner: runner, cmd: cmd}
}

// Insert waits for the writer to exit even if ctx is cancelled, so a row it
// committed is always reported back through the receipt.
func (i *Inserter) Insert(ctx context.Context, detectionPath string, catalogID int64, resultPath string) (domain.InsertReceipt, error) {
	res, err := i.runner.Run(context.WithoutCancel(ctx), i.cmd, detectionPath, strconv.FormatInt(catalogID, 10), resultPath)
	if err != nil {
		return domain.InsertReceipt{}, domain.WrapError(domain.ErrProcessingFailed, "run inserter", err)
	}
	if res.ExitCode != 0 {
		slog.Warn("inserter_failed",
			"exit_code", res.ExitCode,
			"catalog_id", catalogID,
			"stderr", res.Stderr,
		)
		return domain.InsertReceipt{}, domain.WrapError(domain.ErrProcessingFailed, "run inserter",
			fmt.Errorf("exit status %d", res.ExitCode))
	}
	return readReceipt(resultPath), nil
}

// readReceipt returns an empty receipt when the writer left no usable result.
func readReceipt(path string) domain.InsertReceipt {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("insert_receipt_unreadable", "path", path, "error", err.Error())
		}
		return domain.InsertReceipt{}
	}
	var receipt domain.InsertReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil || receipt.CardID < 0 {
		slog.Warn("insert_receipt_malformed", "path", path)
		return domain.InsertReceipt{}
	}
	return receipt
}

// WriteReceipt is the writer side of the receipt file.
func WriteReceipt(path string, receipt domain.InsertReceipt) error {
	raw, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}
