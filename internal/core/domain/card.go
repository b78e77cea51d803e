package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEvoStage = "Basic"
	DefaultTyping   = "Unknown"
	DefaultRarity   = "Unknown"
)

// HitPoints accepts the classifier's hp as a JSON number, a numeric string or null.
type HitPoints int

func (h *HitPoints) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*h = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*h = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("hp %q is not a number", s)
		}
		*h = HitPoints(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	*h = HitPoints(int(f))
	return nil
}

// CardDetection is the classifier's structured description of the recognized card.
type CardDetection struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SetName  string    `json:"set_name"`
	Number   string    `json:"number,omitempty"`
	HP       HitPoints `json:"hp"`
	Types    []string  `json:"types,omitempty"`
	Subtypes []string  `json:"subtypes,omitempty"`
	Rarity   string    `json:"rarity,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
}

// ParseDetection decodes classifier output. Output without a card name is
// treated as malformed rather than as an empty detection.
func ParseDetection(raw []byte) (CardDetection, error) {
	var det CardDetection
	if len(bytes.TrimSpace(raw)) == 0 {
		return CardDetection{}, WrapError(ErrInvalidInput, "parse detection", fmt.Errorf("empty output"))
	}
	if err := json.Unmarshal(raw, &det); err != nil {
		return CardDetection{}, WrapError(ErrInvalidInput, "parse detection", err)
	}
	if strings.TrimSpace(det.Name) == "" {
		return CardDetection{}, WrapError(ErrInvalidInput, "parse detection", fmt.Errorf("card name is missing"))
	}
	return det, nil
}

// Attributes flattens a detection into the columns stored on a card row.
func (d CardDetection) Attributes() CardAttributes {
	attrs := CardAttributes{
		PokeID:   strings.TrimSpace(d.ID),
		Name:     strings.TrimSpace(d.Name),
		SetName:  strings.TrimSpace(d.SetName),
		Number:   strings.TrimSpace(d.Number),
		HP:       int(d.HP),
		EvoStage: DefaultEvoStage,
		Typing:   DefaultTyping,
		Rarity:   DefaultRarity,
		ImageURL: strings.TrimSpace(d.ImageURL),
	}
	if len(d.Subtypes) > 0 && strings.TrimSpace(d.Subtypes[0]) != "" {
		attrs.EvoStage = strings.TrimSpace(d.Subtypes[0])
	}
	if len(d.Types) > 0 && strings.TrimSpace(d.Types[0]) != "" {
		attrs.Typing = strings.TrimSpace(d.Types[0])
	}
	if strings.TrimSpace(d.Rarity) != "" {
		attrs.Rarity = strings.TrimSpace(d.Rarity)
	}
	return attrs
}

type CardAttributes struct {
	PokeID   string `json:"poke_id,omitempty"`
	Name     string `json:"name"`
	SetName  string `json:"set_name"`
	Number   string `json:"number,omitempty"`
	HP       int    `json:"hp"`
	EvoStage string `json:"evo_stage"`
	Typing   string `json:"typing"`
	Rarity   string `json:"rarity"`
	ImageURL string `json:"image_url,omitempty"`
}

// CardRecord is one persisted card row. Price stays nil until enrichment runs.
type CardRecord struct {
	ID        int64 `json:"id"`
	CatalogID int64 `json:"catalog_id"`
	CardAttributes
	Quantity       int        `json:"quantity"`
	Price          *float64   `json:"price"`
	PriceUpdatedAt *time.Time `json:"price_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Catalog struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CatalogTarget is the resolved destination of an insert.
type CatalogTarget struct {
	UserID    int64
	Username  string
	CatalogID int64
}

// InsertReceipt is what the catalog writer reports back. CardID is zero when
// the writer did not report the new row.
type InsertReceipt struct {
	CardID int64 `json:"card_id"`
}

// CardRef identifies a card in the reference API, by id or by name and set.
type CardRef struct {
	PokeID  string
	Name    string
	SetName string
}

// ReferenceCard is a card as described by the reference API. MarketPrice is
// zero when no price variant is listed.
type ReferenceCard struct {
	CardAttributes
	MarketPrice float64
}

// FillMissing copies reference values into blank or defaulted attributes.
func (a CardAttributes) FillMissing(ref CardAttributes) CardAttributes {
	out := a
	if out.PokeID == "" {
		out.PokeID = ref.PokeID
	}
	if out.SetName == "" {
		out.SetName = ref.SetName
	}
	if out.Number == "" {
		out.Number = ref.Number
	}
	if out.HP == 0 {
		out.HP = ref.HP
	}
	if (out.EvoStage == "" || out.EvoStage == DefaultEvoStage) && ref.EvoStage != "" {
		out.EvoStage = ref.EvoStage
	}
	if (out.Typing == "" || out.Typing == DefaultTyping) && ref.Typing != "" {
		out.Typing = ref.Typing
	}
	if (out.Rarity == "" || out.Rarity == DefaultRarity) && ref.Rarity != "" {
		out.Rarity = ref.Rarity
	}
	if out.ImageURL == "" {
		out.ImageURL = ref.ImageURL
	}
	return out
}

func (a CardAttributes) Ref() CardRef {
	return CardRef{PokeID: a.PokeID, Name: a.Name, SetName: a.SetName}
}
