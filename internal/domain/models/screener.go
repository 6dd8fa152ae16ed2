package models

// AltcoinInput is the raw per-token data gathered for the derivatives screener.
type AltcoinInput struct {
	Symbol          string    `json:"symbol"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	MarketCap       float64   `json:"marketCap"`
	SpotVolume      float64   `json:"spotVolume"`
	PriceChange24h  float64   `json:"priceChange24h"`
	PriceChange7d   float64   `json:"priceChange7d"`
	OpenInterest    float64   `json:"openInterest"`    // base units
	FundingRate     float64   `json:"fundingRate"`     // per 8h, fraction
	OIHistory       []float64 `json:"oiHistory"`       // daily, base units
	FuturesVolume   float64   `json:"futuresVolume"`   // base units, 0 when unknown
	FuturesVolume7d []float64 `json:"futuresVolume7d"` // daily, base units
}

// AltcoinSnapshot is everything the screener needs from upstream.
type AltcoinSnapshot struct {
	Inputs      []AltcoinInput `json:"inputs"`
	BTCChange7d float64        `json:"btcChange7d"`
}

// AltcoinScreenerRow is one ranked token.
type AltcoinScreenerRow struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"price"`
	MarketCap        float64 `json:"marketCap"`
	Volume24h        float64 `json:"volume24h"`
	PriceChange24h   float64 `json:"priceChange24h"`
	PriceChange7d    float64 `json:"priceChange7d"`
	OpenInterest     float64 `json:"openInterest"` // USD
	OIChange24h      float64 `json:"oiChange24h"`
	OIZScore         float64 `json:"oiZScore"`
	FundingRate      float64 `json:"fundingRate"`
	FundingAPR       float64 `json:"fundingApr"`
	VolumeZScore     float64 `json:"volumeZScore"`
	OIToMcap         float64 `json:"oiToMcap"`
	RelativeStrength float64 `json:"relativeStrength"`
	BreakoutScore    float64 `json:"breakoutScore"`
}

// AltcoinScreenerResult is the derivatives screener output.
type AltcoinScreenerResult struct {
	Rows        []AltcoinScreenerRow `json:"rows"`
	BTCChange7d float64              `json:"btcChange7d"`
	LastUpdated string               `json:"lastUpdated"`
}

// KoreanInput is the raw per-token data for the Korean exchange screener.
type KoreanInput struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	UpbitPriceKRW  float64 `json:"upbitPriceKrw"`
	UpbitVolumeKRW float64 `json:"upbitVolumeKrw"`
	BithumbVolKRW  float64 `json:"bithumbVolumeKrw"`
	ChangeRate     float64 `json:"changeRate"` // signed fraction
	PriceUSD       float64 `json:"priceUsd"`
	MarketCapUSD   float64 `json:"marketCapUsd"`
}

// KoreanSnapshot is everything the Korean screener needs from upstream.
type KoreanSnapshot struct {
	BTCKRW float64       `json:"btcKrw"`
	BTCUSD float64       `json:"btcUsd"`
	Tokens []KoreanInput `json:"tokens"`
}

// KoreanScreenerRow is one ranked KRW-market token.
type KoreanScreenerRow struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	PriceKRW       float64 `json:"priceKrw"`
	PriceUSD       float64 `json:"priceUsd"`
	KimchiPremium  float64 `json:"kimchiPremium"`
	UpbitVolumeKRW float64 `json:"upbitVolumeKrw"`
	BithumbVolKRW  float64 `json:"bithumbVolumeKrw"`
	TotalVolumeKRW float64 `json:"totalVolumeKrw"`
	VolumeToMcap   float64 `json:"volumeToMcap"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCapUSD   float64 `json:"marketCapUsd"`
}

// KoreanScreenerResult is the Korean screener output.
type KoreanScreenerResult struct {
	Rows             []KoreanScreenerRow `json:"rows"`
	BTCKimchiPremium float64             `json:"btcKimchiPremium"`
	ImpliedKRWUSD    float64             `json:"impliedKrwUsd"`
	LastUpdated      string              `json:"lastUpdated"`
}
