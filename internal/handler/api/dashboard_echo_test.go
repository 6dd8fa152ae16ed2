package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/usecase"
	xhttp "CycleScope/pkg/http"
)

type fakeDashboard struct{}

func (fakeDashboard) Compute(context.Context) (*models.Dashboard, error) {
	return &models.Dashboard{
		Results:     []models.IndicatorResult{models.EmptyResult("mayer-multiple", "Mayer Multiple", "")},
		LastUpdated: "2024-06-01",
	}, nil
}

func (fakeDashboard) Indicator(_ context.Context, id string) (models.IndicatorResult, error) {
	if id != "mayer-multiple" {
		return models.IndicatorResult{}, xhttp.NotFoundErrorf("indicator %q not found", id)
	}
	return models.EmptyResult(id, "Mayer Multiple", ""), nil
}

type fakeScreeners struct {
	sort  string
	limit int
	err   error
}

func (f *fakeScreeners) Altcoins(_ context.Context, sortKey string, limit int) (models.AltcoinScreenerResult, error) {
	f.sort, f.limit = sortKey, limit
	return models.AltcoinScreenerResult{LastUpdated: "2024-06-01"}, f.err
}

func (f *fakeScreeners) Korean(_ context.Context, sortKey string, limit int) (models.KoreanScreenerResult, error) {
	f.sort, f.limit = sortKey, limit
	return models.KoreanScreenerResult{LastUpdated: "2024-06-01"}, f.err
}

type fakeRefresher struct {
	tags  []string
	calls int
	err   error
}

func (f *fakeRefresher) Run(_ context.Context, tags []string) (*usecase.RefreshReport, error) {
	f.calls++
	f.tags = tags
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.RefreshReport{Tags: tags, Published: 3}, nil
}

func newTestEcho(scr *fakeScreeners, ref *fakeRefresher, secret string) *echo.Echo {
	e := echo.New()
	NewDashboardEchoHandler(nil, fakeDashboard{}, scr, ref, secret).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestIndicators(t *testing.T) {
	e := newTestEcho(&fakeScreeners{}, &fakeRefresher{}, "")

	rec, resp := do(e, http.MethodGet, "/api/indicators", "", nil)
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.Status, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderCacheControl) == "" {
		t.Fatalf("missing cache-control")
	}

	_, resp = do(e, http.MethodGet, "/api/indicators/mayer-multiple", "", nil)
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d", resp.Status)
	}

	_, resp = do(e, http.MethodGet, "/api/indicators/unknown", "", nil)
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Status)
	}
}

func TestScreenerQueryDefaultsAndValidation(t *testing.T) {
	scr := &fakeScreeners{}
	e := newTestEcho(scr, &fakeRefresher{}, "")

	_, resp := do(e, http.MethodGet, "/api/screener/altcoins", "", nil)
	if resp.Status != http.StatusOK || scr.sort != "breakout" || scr.limit != 40 {
		t.Fatalf("status=%d sort=%q limit=%d", resp.Status, scr.sort, scr.limit)
	}

	_, resp = do(e, http.MethodGet, "/api/screener/korean?sort=premium&limit=5", "", nil)
	if resp.Status != http.StatusOK || scr.sort != "premium" || scr.limit != 5 {
		t.Fatalf("status=%d sort=%q limit=%d", resp.Status, scr.sort, scr.limit)
	}

	_, resp = do(e, http.MethodGet, "/api/screener/altcoins?sort=nope", "", nil)
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("bad sort accepted: %d", resp.Status)
	}
	_, resp = do(e, http.MethodGet, "/api/screener/korean?limit=500", "", nil)
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("bad limit accepted: %d", resp.Status)
	}
}

func TestScreenerUpstreamFailure(t *testing.T) {
	scr := &fakeScreeners{err: xhttp.NewAppError("ERR_UPSTREAM", "korean-data", "korean-data unavailable", http.StatusServiceUnavailable)}
	e := newTestEcho(scr, &fakeRefresher{}, "")

	rec, _ := do(e, http.MethodGet, "/api/screener/korean", "", nil)
	var resp xhttp.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusServiceUnavailable || len(resp.Data) != 1 || resp.Data[0].Code != "ERR_UPSTREAM" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRefresh(t *testing.T) {
	ref := &fakeRefresher{}
	e := newTestEcho(&fakeScreeners{}, ref, "s3cret")

	_, resp := do(e, http.MethodPost, "/api/refresh", `{"tags":["btc-data"]}`, nil)
	if resp.Status != http.StatusUnauthorized || ref.calls != 0 {
		t.Fatalf("missing secret: status=%d calls=%d", resp.Status, ref.calls)
	}

	auth := map[string]string{HeaderRevalidationSecret: "s3cret"}
	_, resp = do(e, http.MethodPost, "/api/refresh", `{"tags":["btc-data"]}`, auth)
	if resp.Status != http.StatusOK || len(ref.tags) != 1 || ref.tags[0] != "btc-data" {
		t.Fatalf("status=%d tags=%v", resp.Status, ref.tags)
	}

	rec, _ := do(e, http.MethodPost, "/api/refresh", `{"tags":["bogus"]}`, auth)
	var verr xhttp.ValidationErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &verr); err != nil {
		t.Fatal(err)
	}
	if verr.Status != http.StatusBadRequest || len(verr.Data) != 1 || verr.Data[0].Code != "ERR_CACHETAG" {
		t.Fatalf("unknown tag accepted: %+v", verr)
	}
}

func TestRefreshConflictAndRateLimit(t *testing.T) {
	ref := &fakeRefresher{err: usecase.ErrRefreshInProgress}
	e := newTestEcho(&fakeScreeners{}, ref, "")

	_, resp := do(e, http.MethodPost, "/api/refresh", "", nil)
	if resp.Status != http.StatusConflict {
		t.Fatalf("status = %d", resp.Status)
	}

	ref.err = errors.New("redis down")
	_, resp = do(e, http.MethodPost, "/api/refresh", "", nil)
	if resp.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.Status)
	}

	_, resp = do(e, http.MethodPost, "/api/refresh", "", nil)
	if resp.Status != http.StatusTooManyRequests {
		t.Fatalf("burst not limited: %d", resp.Status)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEcho(&fakeScreeners{}, &fakeRefresher{}, "")
	rec, resp := do(e, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || resp.Status != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}
