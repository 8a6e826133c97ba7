// Package market fetches cryptocurrency spot prices from the
// CoinGecko simple price API with short-lived caching.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Price is a spot quote for one coin in one fiat currency.
type Price struct {
	Coin     string  `json:"coin"`
	Currency string  `json:"currency"`
	Price    float64 `json:"price"`
	Cached   bool    `json:"cached"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *gocache.Cache
}

// NewClient builds a market client. Quotes are cached for ttl so
// repeated dashboard refreshes do not hammer the upstream API.
func NewClient(baseURL string, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   gocache.New(ttl, 2*ttl),
	}
}

// SpotPrice returns the current price of a coin (CoinGecko ID, e.g.
// "bitcoin") in the given fiat currency (e.g. "inr").
func (c *Client) SpotPrice(ctx context.Context, coin, currency string) (Price, error) {
	coin = strings.ToLower(strings.TrimSpace(coin))
	currency = strings.ToLower(strings.TrimSpace(currency))
	if coin == "" {
		return Price{}, fmt.Errorf("coin id is required")
	}
	if currency == "" {
		currency = "inr"
	}

	key := coin + "/" + currency
	if cached, ok := c.cache.Get(key); ok {
		p := cached.(Price)
		p.Cached = true
		return p, nil
	}

	price, err := c.fetch(ctx, coin, currency)
	if err != nil {
		return Price{}, err
	}
	c.cache.SetDefault(key, price)
	slog.InfoContext(ctx, "fetched market price", "coin", coin, "currency", currency, "price", price.Price)
	return price, nil
}

func (c *Client) fetch(ctx context.Context, coin, currency string) (Price, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(coin), url.QueryEscape(currency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Price{}, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Price{}, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Price{}, fmt.Errorf("price API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Price{}, fmt.Errorf("decode price response: %w", err)
	}

	quotes, ok := payload[coin]
	if !ok {
		return Price{}, fmt.Errorf("unknown coin %q", coin)
	}
	value, ok := quotes[currency]
	if !ok {
		return Price{}, fmt.Errorf("no %s quote for %q", currency, coin)
	}

	return Price{Coin: coin, Currency: currency, Price: value}, nil
}
