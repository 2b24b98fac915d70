// Package market defines the normalized market data shape returned by the
// market data gateway. Assets are produced fresh on every call and never
// persisted.
package market

// Asset is one ranked entry from the upstream market data provider.
type Asset struct {
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	PriceUSD         float64 `json:"priceUsd"`
	ChangePercent24h float64 `json:"changePercent24Hr"`
	VolumeUSD24h     float64 `json:"volumeUsd24Hr"`
	MarketCapUSD     float64 `json:"marketCapUsd"`
	Image            string  `json:"image"`
}
