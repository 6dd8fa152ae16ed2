package marketdata

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/pkg/config"
	xlogger "CycleScope/pkg/logger"
	"CycleScope/pkg/util"
)

const userAgent = "cyclescope/1.0"

// Provider fetches every upstream series and snapshot over HTTP.
// It is stateless; caching is layered on top by the repository package.
type Provider struct {
	*httpBase
	src config.Config
	now func() time.Time
}

var (
	_ drepo.MarketData   = (*Provider)(nil)
	_ drepo.ScreenerData = (*Provider)(nil)
)

// NewProvider builds a provider from the sources section of cfg.
func NewProvider(cfg *config.Config, logger *xlogger.Logger, metrics drepo.Metrics) *Provider {
	return &Provider{
		httpBase: newHTTPBase(cfg, logger, metrics),
		src:      *cfg,
		now:      time.Now,
	}
}

func (p *Provider) endpoint(e config.Endpoint, path string) string {
	return strings.TrimRight(e.BaseURL, "/") + path
}

// toFloat reads a JSON scalar that upstreams encode either as a number or a numeric string.
func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		return util.ParseFloatDefault(x, 0)
	default:
		return 0
	}
}

// dedupeByDate keeps the last point seen for each date and sorts ascending by timestamp.
func dedupeByDate(points []models.SeriesPoint) []models.SeriesPoint {
	byDate := make(map[string]models.SeriesPoint, len(points))
	for _, pt := range points {
		byDate[pt.Date] = pt
	}
	out := make([]models.SeriesPoint, 0, len(byDate))
	for _, pt := range byDate {
		out = append(out, pt)
	}
	sortSeries(out)
	return out
}

func sortSeries(points []models.SeriesPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
}
