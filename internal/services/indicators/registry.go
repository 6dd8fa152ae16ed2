package indicators

import (
	"time"

	"CycleScope/internal/domain/repository"
	"CycleScope/internal/domain/service"
)

// Registry is the ordered, read-only list of indicators built once at startup.
type Registry struct {
	list []service.Indicator
	byID map[string]service.Indicator
}

// NewRegistry wires every indicator against the given market data in display order.
func NewRegistry(md repository.MarketData, now func() time.Time) *Registry {
	return NewRegistryFrom(
		NewCycleComposite(md),
		NewMayerMultiple(),
		NewTwoHundredWMA(now),
		NewStablecoinSupply(md),
		NewExchangeGap(md),
		NewBitfinexLongs(md),
		NewDeribitOptions(md),
		NewMiningCost(md),
		NewRealizedPrice(md),
	)
}

// NewRegistryFrom builds a registry from an explicit list. Later duplicates of an id are ignored.
func NewRegistryFrom(list ...service.Indicator) *Registry {
	r := &Registry{byID: make(map[string]service.Indicator, len(list))}
	for _, ind := range list {
		if _, dup := r.byID[ind.ID()]; dup {
			continue
		}
		r.byID[ind.ID()] = ind
		r.list = append(r.list, ind)
	}
	return r
}

// All returns the indicators in display order.
func (r *Registry) All() []service.Indicator {
	out := make([]service.Indicator, len(r.list))
	copy(out, r.list)
	return out
}

// Get looks an indicator up by id.
func (r *Registry) Get(id string) (service.Indicator, bool) {
	ind, ok := r.byID[id]
	return ind, ok
}
