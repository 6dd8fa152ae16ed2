package usecase

import (
	"context"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/services/screener"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"
)

// ScreenersUseCase ranks altcoin and Korean exchange snapshots.
type ScreenersUseCase struct {
	data    domrepo.ScreenerData
	metrics domrepo.Metrics
	log     *xlogger.Logger
	now     func() time.Time
}

func NewScreenersUseCase(data domrepo.ScreenerData, metrics domrepo.Metrics, log *xlogger.Logger) *ScreenersUseCase {
	if log == nil {
		log = xlogger.Nop()
	}
	return &ScreenersUseCase{data: data, metrics: metrics, log: log, now: time.Now}
}

// Altcoins returns the derivatives screener sorted by key and cut to limit (0 keeps all).
func (uc *ScreenersUseCase) Altcoins(ctx context.Context, sortKey string, limit int) (models.AltcoinScreenerResult, error) {
	snap, err := uc.data.AltcoinSnapshot(ctx)
	if err != nil {
		uc.fail(domrepo.SourceAltcoin, err)
		return models.AltcoinScreenerResult{}, xhttp.UpstreamError(domrepo.SourceAltcoin, err)
	}

	res := screener.BuildAltcoinScreener(snap, uc.now())
	screener.SortAltcoins(res.Rows, sortKey)
	res.Rows = screener.LimitAltcoins(res.Rows, limit)
	return res, nil
}

// Korean returns the KRW-market screener sorted by key and cut to limit (0 keeps all).
func (uc *ScreenersUseCase) Korean(ctx context.Context, sortKey string, limit int) (models.KoreanScreenerResult, error) {
	snap, err := uc.data.KoreanSnapshot(ctx)
	if err != nil {
		uc.fail(domrepo.SourceKorean, err)
		return models.KoreanScreenerResult{}, xhttp.UpstreamError(domrepo.SourceKorean, err)
	}

	res := screener.BuildKoreanScreener(snap, uc.now())
	screener.SortKorean(res.Rows, sortKey)
	res.Rows = screener.LimitKorean(res.Rows, limit)
	return res, nil
}

func (uc *ScreenersUseCase) fail(source string, err error) {
	uc.log.Error("screener snapshot failed", xlogger.String("source", source), xlogger.Error(err))
	if uc.metrics != nil {
		uc.metrics.RecordError(source)
	}
}
