package process

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

// PriceLookup runs `<cmd> <cardID>`.
type PriceLookup struct {
	runner Runner
	cmd    Command
}

func NewPriceLookup(runner Runner, cmd Command) *PriceLookup {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PriceLookup{runner: runner, cmd: cmd}
}

func (p *PriceLookup) Lookup(ctx context.Context, cardID int64) error {
	res, err := p.runner.Run(ctx, p.cmd, strconv.FormatInt(cardID, 10))
	if err != nil {
		return domain.WrapError(domain.ErrProcessingFailed, "run price lookup", err)
	}
	if res.ExitCode != 0 {
		return domain.WrapError(domain.ErrProcessingFailed, "run price lookup",
			fmt.Errorf("exit status %d: %s", res.ExitCode, res.Stderr))
	}
	return nil
}
