package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

const SheetName = "Catalog"

// ContentType is the media type of the workbook produced by WriteCatalog.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []any{"ID", "Name", "Set", "Number", "HP", "Stage", "Typing", "Rarity", "Quantity", "Price", "Price Updated"}

// WriteCatalog renders cards as a single-sheet workbook.
func WriteCatalog(w io.Writer, cards []domain.CardRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	for i, card := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			card.ID,
			card.Name,
			card.SetName,
			card.Number,
			card.HP,
			card.EvoStage,
			card.Typing,
			card.Rarity,
			card.Quantity,
			priceCell(card.Price),
			timeCell(card.PriceUpdatedAt),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write card %d: %w", card.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func priceCell(price *float64) any {
	if price == nil {
		return ""
	}
	return *price
}

func timeCell(at *time.Time) any {
	if at == nil {
		return ""
	}
	return at.UTC().Format(time.RFC3339)
}
