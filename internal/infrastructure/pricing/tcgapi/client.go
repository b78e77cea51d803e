package tcgapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/card-catalog/internal/core/domain"
	"github.com/kirillkom/card-catalog/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://api.pokemontcg.io/v2"

// Client talks to the Pokémon TCG API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey string, executor *resilience.Executor) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		executor:   executor,
	}
}

type apiPrice struct {
	Market *float64 `json:"market"`
}

type apiCard struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	HP       string   `json:"hp"`
	Number   string   `json:"number"`
	Rarity   string   `json:"rarity"`
	Types    []string `json:"types"`
	Subtypes []string `json:"subtypes"`
	Set      struct {
		Name string `json:"name"`
	} `json:"set"`
	Images struct {
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"images"`
	TCGPlayer struct {
		Prices map[string]apiPrice `json:"prices"`
	} `json:"tcgplayer"`
}

// priceVariants is the order in which market prices are preferred.
var priceVariants = []string{"holofoil", "normal", "reverseHolofoil"}

func (c apiCard) marketPrice() float64 {
	for _, variant := range priceVariants {
		p, ok := c.TCGPlayer.Prices[variant]
		if ok && p.Market != nil {
			return *p.Market
		}
	}
	return 0
}

func (c apiCard) toDomain() *domain.ReferenceCard {
	hp, _ := strconv.Atoi(strings.TrimSpace(c.HP))
	attrs := domain.CardDetection{
		ID:       c.ID,
		Name:     c.Name,
		SetName:  c.Set.Name,
		Number:   c.Number,
		HP:       domain.HitPoints(hp),
		Types:    c.Types,
		Subtypes: c.Subtypes,
		Rarity:   c.Rarity,
		ImageURL: c.Images.Large,
	}.Attributes()
	if attrs.ImageURL == "" {
		attrs.ImageURL = c.Images.Small
	}
	return &domain.ReferenceCard{CardAttributes: attrs, MarketPrice: c.marketPrice()}
}

// FindCard tries the id first, then a name and set search.
func (c *Client) FindCard(ctx context.Context, ref domain.CardRef) (*domain.ReferenceCard, error) {
	if id := strings.TrimSpace(ref.PokeID); id != "" {
		card, err := c.getByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if card != nil {
			return card.toDomain(), nil
		}
	}
	if strings.TrimSpace(ref.Name) == "" {
		return nil, nil
	}
	card, err := c.search(ctx, ref.Name, ref.SetName)
	if err != nil || card == nil {
		return nil, err
	}
	return card.toDomain(), nil
}

func (c *Client) getByID(ctx context.Context, id string) (*apiCard, error) {
	var out struct {
		Data *apiCard `json:"data"`
	}
	found, err := c.getJSON(ctx, "/cards/"+url.PathEscape(id), nil, &out, "get card")
	if err != nil || !found {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) search(ctx context.Context, name, setName string) (*apiCard, error) {
	q := fmt.Sprintf("name:%q", strings.TrimSpace(name))
	if s := strings.TrimSpace(setName); s != "" {
		q += fmt.Sprintf(" set.name:%q", s)
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("pageSize", "1")

	var out struct {
		Data []apiCard `json:"data"`
	}
	found, err := c.getJSON(ctx, "/cards", params, &out, "search cards")
	if err != nil || !found || len(out.Data) == 0 {
		return nil, err
	}
	return &out.Data[0], nil
}
