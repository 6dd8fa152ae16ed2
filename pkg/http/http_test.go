package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type screenerQuery struct {
	Limit int    `query:"limit" default:"40" validate:"gte=1,lte=100"`
	Sort  string `query:"sort" default:"volume" validate:"oneof=volume premium"`
}

type tagsBody struct {
	Tags []string `json:"tags" validate:"omitempty,dive,testtag"`
}

func bind(t *testing.T, method, target, body string, req interface{}) interface{} {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	c := echo.New().NewContext(r, httptest.NewRecorder())
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	q := &screenerQuery{}
	if verr := bind(t, http.MethodGet, "/", "", q); verr != nil {
		t.Fatalf("unexpected error: %v", verr)
	}
	if q.Limit != 40 || q.Sort != "volume" {
		t.Fatalf("defaults not applied: %+v", q)
	}
}

func TestReadAndValidateRequestReportsQueryNames(t *testing.T) {
	verr := bind(t, http.MethodGet, "/?sort=mcap&limit=500", "", &screenerQuery{})
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 2 {
		t.Fatalf("errors = %#v", verr)
	}
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Code
	}
	if got["limit"] != "ERR_LTE" || got["sort"] != "ERR_ONEOF" {
		t.Fatalf("fields = %v", got)
	}
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	verr := bind(t, http.MethodGet, "/?limit=abc", "", &screenerQuery{})
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("errors = %#v", verr)
	}
}

func TestRegisterSet(t *testing.T) {
	if err := RegisterSet("testtag", []string{"btc-data", "korean-data"}); err != nil {
		t.Fatalf("RegisterSet: %v", err)
	}
	if verr := bind(t, http.MethodPost, "/", `{"tags":["btc-data"]}`, &tagsBody{}); verr != nil {
		t.Fatalf("known tag rejected: %v", verr)
	}

	verr := bind(t, http.MethodPost, "/", `{"tags":["btc-data","nope"]}`, &tagsBody{})
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_TESTTAG" || errs[0].Field != "tags[1]" {
		t.Fatalf("errors = %#v", verr)
	}
	if !strings.Contains(errs[0].Message, `"nope"`) {
		t.Fatalf("message = %q", errs[0].Message)
	}

	if err := RegisterSet("testtag", []string{"nope"}); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if verr := bind(t, http.MethodPost, "/", `{"tags":["nope"]}`, &tagsBody{}); verr != nil {
		t.Fatalf("replaced set not used: %v", verr)
	}
}

func TestAppErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := UpstreamError("btc-data", errors.New("timeout"))
	if StatusOf(err) != http.StatusServiceUnavailable || StatusOf(errors.New("x")) != http.StatusInternalServerError {
		t.Fatal("StatusOf mismatch")
	}
	if e := AppErrorResponse(c, err); e != nil {
		t.Fatal(e)
	}

	var resp ErrorResponse
	if e := json.Unmarshal(rec.Body.Bytes(), &resp); e != nil {
		t.Fatal(e)
	}
	if rec.Code != http.StatusOK || resp.Status != http.StatusServiceUnavailable {
		t.Fatalf("code=%d status=%d", rec.Code, resp.Status)
	}
	if len(resp.Data) != 1 || resp.Data[0].Code != "ERR_UPSTREAM" || resp.Data[0].Field != "btc-data" {
		t.Fatalf("data = %+v", resp.Data)
	}
}

func TestCachedSuccessResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := CachedSuccessResponse(c, "ok", 90*time.Second); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get(echo.HeaderCacheControl); got != "public, max-age=90" {
		t.Fatalf("cache-control = %q", got)
	}
}

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query()["symbols"]; len(got) != 2 || got[0] != "BTC" {
			t.Errorf("symbols = %v", got)
		}
		if r.URL.Query().Get("fixed") != "1" {
			t.Errorf("fixed query param dropped: %s", r.URL.RawQuery)
		}
		if r.Header.Get("api_key") != "k" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"price":42.5}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second), WithUserAgent("test-agent"))
	var out struct {
		Price float64 `json:"price"`
	}
	err := c.GetJSON(context.Background(), srv.URL+"/v1/price?fixed=1",
		map[string][]string{"symbols": {"BTC", "ETH"}},
		map[string]string{"api_key": "k"}, &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Price != 42.5 {
		t.Errorf("price = %v", out.Price)
	}
}

func TestClientStatusError(t *testing.T) {
	codes := map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusBadGateway:          true,
		http.StatusNotFound:            false,
		http.StatusUnprocessableEntity: false,
	}
	for code, retry := range codes {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", code)
		}))
		err := NewClient().GetJSON(context.Background(), srv.URL, nil, nil, nil)
		srv.Close()

		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("%d: want *StatusError, got %v", code, err)
		}
		if se.Code != code || se.Body != "nope" {
			t.Errorf("%d: got code=%d body=%q", code, se.Code, se.Body)
		}
		if se.Retryable() != retry {
			t.Errorf("%d: Retryable = %v, want %v", code, se.Retryable(), retry)
		}
	}
}

func TestClientRawBodyIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	var raw []byte
	if err := NewClient(WithMaxBodyBytes(4)).GetJSON(context.Background(), srv.URL, nil, nil, &raw); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if string(raw) != "0123" {
		t.Errorf("raw = %q", raw)
	}
}
