// Package market implements the market data gateway: a thin proxy that pulls
// the top ranked assets from the upstream provider and normalizes them.
package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tradon-app/tradon/internal/app/domain/market"
	"github.com/tradon-app/tradon/pkg/logger"
)

// Fetcher retrieves the ranked asset page from the upstream provider.
type Fetcher interface {
	Fetch(ctx context.Context) ([]market.Asset, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]market.Asset, error)

func (f FetcherFunc) Fetch(ctx context.Context) ([]market.Asset, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx)
}

// UpstreamError classifies a gateway failure with the HTTP status the caller
// should surface.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string { return e.Message }

// HTTPFetcher fetches a markets page from a CoinGecko-shaped endpoint.
type HTTPFetcher struct {
	client   *http.Client
	endpoint string
	currency string
	pageSize int
	log      *logger.Logger
}

// NewHTTPFetcher creates a fetcher against the given markets endpoint.
func NewHTTPFetcher(client *http.Client, endpoint, currency string, pageSize int, log *logger.Logger) (*HTTPFetcher, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("market endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if currency == "" {
		currency = "usd"
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if log == nil {
		log = logger.NewDefault("market-fetcher")
	}
	return &HTTPFetcher{
		client:   client,
		endpoint: endpoint,
		currency: currency,
		pageSize: pageSize,
		log:      log,
	}, nil
}

// Fetch pulls one page of assets ranked by market capitalization. Failures
// are classified: upstream non-success and malformed payloads map to 502,
// deadline expiry to 504, anything else to 500.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]market.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
	}

	query := url.Values{}
	query.Set("vs_currency", f.currency)
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(f.pageSize))
	query.Set("page", "1")
	query.Set("sparkline", "false")
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "API request timed out"}
		}
		f.log.WithError(err).Warn("market upstream request failed")
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.WithField("status", resp.Status).Warn("market upstream returned error")
		return nil, &UpstreamError{
			StatusCode: http.StatusBadGateway,
			Message:    fmt.Sprintf("market API error: %s", http.StatusText(resp.StatusCode)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		f.log.Warn("market upstream returned unexpected payload shape")
		return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "Unexpected API response format"}
	}

	required := []string{"name", "symbol", "current_price", "price_change_percentage_24h", "total_volume", "market_cap"}

	assets := make([]market.Asset, 0, f.pageSize)
	for _, entry := range parsed.Array() {
		for _, field := range required {
			if !entry.Get(field).Exists() {
				f.log.WithField("field", field).Warn("market upstream entry missing field")
				return nil, &UpstreamError{StatusCode: http.StatusBadGateway, Message: "Unexpected API response format"}
			}
		}
		assets = append(assets, market.Asset{
			Name:             entry.Get("name").String(),
			Symbol:           strings.ToUpper(entry.Get("symbol").String()),
			PriceUSD:         entry.Get("current_price").Float(),
			ChangePercent24h: entry.Get("price_change_percentage_24h").Float(),
			VolumeUSD24h:     entry.Get("total_volume").Float(),
			MarketCapUSD:     entry.Get("market_cap").Float(),
			Image:            entry.Get("image").String(),
		})
	}
	return assets, nil
}
