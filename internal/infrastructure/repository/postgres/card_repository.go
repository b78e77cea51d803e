package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

const cardColumns = `id, catalog_id, poke_id, name, set_name, number, hp, evo_stage, typing, rarity, image_url, quantity, price, price_updated_at, created_at`

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.CardRecord, error) {
	var card domain.CardRecord
	var price sql.NullFloat64
	var priceAt sql.NullTime
	err := row.Scan(
		&card.ID, &card.CatalogID, &card.PokeID, &card.Name, &card.SetName, &card.Number, &card.HP,
		&card.EvoStage, &card.Typing, &card.Rarity, &card.ImageURL, &card.Quantity, &price, &priceAt, &card.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		v := price.Float64
		card.Price = &v
	}
	if priceAt.Valid {
		at := priceAt.Time
		card.PriceUpdatedAt = &at
	}
	return &card, nil
}

// Insert stores a new card row with one copy and no price.
func (r *CardRepository) Insert(ctx context.Context, catalogID int64, attrs domain.CardAttributes) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
INSERT INTO cards (catalog_id, poke_id, name, set_name, number, hp, evo_stage, typing, rarity, image_url, quantity)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,1)
RETURNING id
`,
		catalogID, attrs.PokeID, attrs.Name, attrs.SetName, attrs.Number, attrs.HP,
		attrs.EvoStage, attrs.Typing, attrs.Rarity, attrs.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return id, nil
}

func (r *CardRepository) GetByID(ctx context.Context, cardID int64) (*domain.CardRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, cardID)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCardNotFound, "get card by id", fmt.Errorf("id=%d", cardID))
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	return card, nil
}

// LatestInCatalog returns the newest row of one catalog.
func (r *CardRepository) LatestInCatalog(ctx context.Context, catalogID int64) (*domain.CardRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE catalog_id = $1 ORDER BY id DESC LIMIT 1`, catalogID)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrCardNotFound, "latest card in catalog", fmt.Errorf("catalog_id=%d", catalogID))
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	return card, nil
}

func (r *CardRepository) ListByCatalog(ctx context.Context, catalogID int64) ([]domain.CardRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE catalog_id = $1 ORDER BY id`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CardRecord, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return out, nil
}

func (r *CardRepository) ListIDsByCatalog(ctx context.Context, catalogID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM cards WHERE catalog_id = $1 ORDER BY id`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("query card ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card ids: %w", err)
	}
	return ids, nil
}

// RemoveCopy decrements quantity and deletes the row once it reaches zero.
func (r *CardRepository) RemoveCopy(ctx context.Context, cardID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var remaining int
	err = tx.QueryRowContext(ctx, `
UPDATE cards SET quantity = quantity - 1
WHERE id = $1 AND quantity > 0
RETURNING quantity
`, cardID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.WrapError(domain.ErrCardNotFound, "remove card copy", fmt.Errorf("id=%d", cardID))
		}
		return 0, fmt.Errorf("decrement quantity: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, cardID); err != nil {
			return 0, fmt.Errorf("delete empty card: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit remove tx: %w", err)
	}
	return remaining, nil
}

func (r *CardRepository) Delete(ctx context.Context, cardID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, cardID)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireAffected(res, domain.ErrCardNotFound, "delete card", cardID)
}

func (r *CardRepository) UpdatePrice(ctx context.Context, cardID int64, price float64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE cards SET price = $2, price_updated_at = $3
WHERE id = $1
`, cardID, price, at.UTC())
	if err != nil {
		return fmt.Errorf("update card price: %w", err)
	}
	return requireAffected(res, domain.ErrCardNotFound, "update card price", cardID)
}

func requireAffected(res sql.Result, kind error, op string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, op, fmt.Errorf("id=%d", id))
	}
	return nil
}
