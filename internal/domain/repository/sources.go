package repository

import (
	"context"

	"CycleScope/internal/domain/models"
)

// Source names double as cache tags and as keys in error maps.
const (
	SourceBTC        = "btc-data"
	SourceStablecoin = "stablecoin-data"
	SourceExchange   = "exchange-data"
	SourceBitfinex   = "bitfinex-data"
	SourceDeribit    = "deribit-data"
	SourceMining     = "mining-data"
	SourceRealized   = "realized-data"
	SourceAltcoin    = "altcoin-data"
	SourceKorean     = "korean-data"
)

// AllSources lists every cache tag in refresh order.
var AllSources = []string{
	SourceBTC, SourceStablecoin, SourceExchange, SourceBitfinex, SourceDeribit,
	SourceMining, SourceRealized, SourceAltcoin, SourceKorean,
}

type BTCHistorySource interface {
	BTCHistory(ctx context.Context) ([]models.DailyPrice, error)
}

type StablecoinSource interface {
	StablecoinSupply(ctx context.Context) ([]models.SeriesPoint, error)
}

type ExchangeSource interface {
	BinanceCloses(ctx context.Context, days int) ([]models.SeriesPoint, error)
	CoinbaseCloses(ctx context.Context, days int) ([]models.SeriesPoint, error)
}

type MarginSource interface {
	BitfinexLongs(ctx context.Context, days int) ([]models.SeriesPoint, error)
}

type OptionsSource interface {
	DVOLHistory(ctx context.Context, days int) ([]models.SeriesPoint, error)
	OptionsSummary(ctx context.Context) (models.OptionsSummary, error)
}

type MiningSource interface {
	MiningCost(ctx context.Context) ([]models.MiningPoint, error)
}

type RealizedPriceSource interface {
	RealizedPrice(ctx context.Context) ([]models.SeriesPoint, error)
}

// MarketData is the full set of time-series sources consumed by the indicators.
type MarketData interface {
	BTCHistorySource
	StablecoinSource
	ExchangeSource
	MarginSource
	OptionsSource
	MiningSource
	RealizedPriceSource
}

// ScreenerData provides cross-sectional token snapshots.
type ScreenerData interface {
	AltcoinSnapshot(ctx context.Context) (models.AltcoinSnapshot, error)
	KoreanSnapshot(ctx context.Context) (models.KoreanSnapshot, error)
}

// Invalidator drops cached upstream data by tag.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}
