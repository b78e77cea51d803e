package nats

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type priceRefresh struct {
	CardID      int64     `json:"card_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeRefresh(msg priceRefresh) ([]byte, error) {
	if msg.CardID <= 0 {
		return nil, fmt.Errorf("encode price refresh: card id %d", msg.CardID)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode price refresh: %w", err)
	}
	return raw, nil
}

// decodeRefresh also accepts a bare numeric id.
func decodeRefresh(data []byte) (priceRefresh, error) {
	text := strings.TrimSpace(string(data))
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		if id <= 0 {
			return priceRefresh{}, fmt.Errorf("decode price refresh: card id %d", id)
		}
		return priceRefresh{CardID: id}, nil
	}
	var msg priceRefresh
	if err := json.Unmarshal(data, &msg); err != nil {
		return priceRefresh{}, fmt.Errorf("decode price refresh: %w", err)
	}
	if msg.CardID <= 0 {
		return priceRefresh{}, fmt.Errorf("decode price refresh: card id %d", msg.CardID)
	}
	return msg, nil
}
