package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

func TestWriteCatalog(t *testing.T) {
	price := 12.5
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cards := []domain.CardRecord{
		{
			ID:             7,
			CatalogID:      1,
			CardAttributes: domain.CardAttributes{Name: "Pikachu", SetName: "Base", HP: 60, EvoStage: "Basic", Typing: "Lightning", Rarity: "Common"},
			Quantity:       2,
			Price:          &price,
			PriceUpdatedAt: &updated,
		},
		{
			ID:             8,
			CardAttributes: domain.CardAttributes{Name: "Onix", SetName: "Base"},
			Quantity:       1,
		},
	}

	var buf bytes.Buffer
	if err := WriteCatalog(&buf, cards); err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Name" || rows[1][1] != "Pikachu" || rows[2][1] != "Onix" {
		t.Fatalf("unexpected names: %v", rows)
	}
	if rows[1][8] != "2" || rows[1][9] != "12.5" {
		t.Fatalf("unexpected quantity/price: %v", rows[1])
	}
	if rows[1][10] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected price timestamp %q", rows[1][10])
	}
}

func TestWriteCatalogEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalog(&buf, nil); err != nil {
		t.Fatalf("WriteCatalog: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}
