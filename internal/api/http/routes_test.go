package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hushenglang/investment-dashboard/internal/lock"
	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/store"
)

var fixedNow = time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

type fakeMarket struct{}

func (fakeMarket) CommodityPrices(context.Context, time.Time, time.Time) macro.LatestGroup {
	return macro.LatestGroup{
		macro.TypeCrudeOil: {Date: time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC), Value: 83.17},
		macro.TypeGold:     nil,
	}
}

func newTestApp(t *testing.T, src macro.Sources, locker macro.Locker) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	mem := store.NewMemoryStore()
	svc := macro.NewService(mem, src, macro.ServiceConfig{
		Locker: locker,
		Now:    func() time.Time { return fixedNow },
	})

	app := fiber.New()
	RegisterRoutes(app, svc)
	return app, mem
}

func seed(t *testing.T, mem *store.MemoryStore, typ string, value float64, date string, region macro.Region) *macro.IndicatorRecord {
	t.Helper()
	ts, _ := time.Parse(time.DateOnly, date)
	rec, err := mem.Create(context.Background(), macro.NewIndicator{Type: typ, Name: typ, Value: value, DateTime: ts, Region: region})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rec
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &payload)
	return resp, payload
}

func TestUSIndicatorsReturnsLatestPerType(t *testing.T) {
	app, mem := newTestApp(t, macro.Sources{}, nil)
	seed(t, mem, macro.TypeTreasury10Y, 4.4, "2024-03-28", macro.RegionUS)
	seed(t, mem, macro.TypeTreasury10Y, 4.5, "2024-03-29", macro.RegionUS)
	seed(t, mem, macro.TypeCNCPI, 0.7, "2024-03-29", macro.RegionChina)

	resp, payload := do(t, app, http.MethodGet, "/api/indicators/us?start_date=2024-03-01&end_date=2024-03-29", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if payload["status"] != "success" {
		t.Fatalf("unexpected status field: %v", payload["status"])
	}

	indicators := payload["indicators"].(map[string]any)
	if len(indicators) != 1 {
		t.Fatalf("expected only US indicators, got %v", indicators)
	}
	dgs10 := indicators[macro.TypeTreasury10Y].(map[string]any)
	if dgs10["value"] != 4.5 || dgs10["region"] != "US" {
		t.Fatalf("unexpected detail: %v", dgs10)
	}
}

func TestIndicatorsDateValidation(t *testing.T) {
	app, _ := newTestApp(t, macro.Sources{}, nil)

	cases := []struct {
		name   string
		target string
		want   int
	}{
		{"defaults", "/api/indicators/china", http.StatusOK},
		{"rfc3339", "/api/indicators/us?start_date=2024-01-01T00:00:00Z&end_date=2024-02-01T00:00:00Z", http.StatusOK},
		{"unix", "/api/indicators/us?start_date=1704067200&end_date=1706745600", http.StatusOK},
		{"same day", "/api/indicators/us?start_date=2024-01-01&end_date=2024-01-01", http.StatusOK},
		{"bad format", "/api/indicators/us?start_date=01/02/2024", http.StatusBadRequest},
		{"end before start", "/api/indicators/us?start_date=2024-02-01&end_date=2024-01-01", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := do(t, app, http.MethodGet, tc.target, "")
			if resp.StatusCode != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestHistoryAndLatest(t *testing.T) {
	app, mem := newTestApp(t, macro.Sources{}, nil)
	seed(t, mem, macro.TypeCNCPI, 0.3, "2024-01-31", macro.RegionChina)
	seed(t, mem, macro.TypeCNCPI, 0.7, "2024-02-29", macro.RegionChina)

	resp, payload := do(t, app, http.MethodGet, "/api/indicators/china/history?start_date=2024-01-01&end_date=2024-03-31", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", resp.StatusCode)
	}
	cpi := payload["indicators"].(map[string]any)[macro.TypeCNCPI].([]any)
	if len(cpi) != 2 {
		t.Fatalf("expected 2 history entries, got %v", cpi)
	}

	resp, payload = do(t, app, http.MethodGet, "/api/indicators/CHINA/latest", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("latest: expected 200, got %d", resp.StatusCode)
	}
	latest := payload["indicators"].(map[string]any)[macro.TypeCNCPI].(map[string]any)
	if latest["value"] != 0.7 {
		t.Fatalf("expected latest value 0.7, got %v", latest["value"])
	}

	resp, _ = do(t, app, http.MethodGet, "/api/indicators/eu/latest", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown region: expected 404, got %d", resp.StatusCode)
	}
}

func TestFetchStoreFamily(t *testing.T) {
	app, mem := newTestApp(t, macro.Sources{Market: fakeMarket{}}, nil)

	resp, payload := do(t, app, http.MethodPost, "/api/indicators/fetch-store/commodities",
		`{"start_date":"2024-03-01","end_date":"2024-03-31"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, payload)
	}
	if payload["family"] != macro.FamilyCommodities {
		t.Fatalf("unexpected family: %v", payload["family"])
	}

	recs, _ := mem.ListByType(context.Background(), macro.TypeCrudeOil)
	if len(recs) != 1 || recs[0].Value != 83.17 {
		t.Fatalf("expected crude oil to be stored, got %+v", recs)
	}

	resp, _ = do(t, app, http.MethodPost, "/api/indicators/fetch-store/equities", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown family: expected 404, got %d", resp.StatusCode)
	}
}

func TestFetchStoreAllReportsFailure(t *testing.T) {
	app, _ := newTestApp(t, macro.Sources{Market: fakeMarket{}}, nil)

	resp, payload := do(t, app, http.MethodPost, "/api/indicators/fetch-store-all-macro-indices", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 when providers are missing, got %d", resp.StatusCode)
	}
	results := payload["results"].(map[string]any)
	if results[macro.FamilyCommodities] != true || results[macro.FamilyPMI] != false {
		t.Fatalf("unexpected per-family results: %v", results)
	}
}

func TestFetchStoreAllConflictsWhileRunning(t *testing.T) {
	locker := lock.NewLocalLocker()
	unlock, _, _ := locker.TryLock(context.Background(), "macro:fetch-store-all", time.Minute)
	defer unlock()

	app, _ := newTestApp(t, macro.Sources{}, locker)

	resp, _ := do(t, app, http.MethodPost, "/api/indicators/fetch-store-all-macro-indices",
		`{"start_date":"2024-01-01","end_date":"2024-03-31"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRecordEndpoints(t *testing.T) {
	app, mem := newTestApp(t, macro.Sources{}, nil)
	rec := seed(t, mem, macro.TypeNFCI, -0.5, "2024-03-22", macro.RegionUS)
	target := "/api/indicators/records/" + itoa(rec.ID)

	resp, payload := do(t, app, http.MethodGet, target, "")
	if resp.StatusCode != http.StatusOK || payload["type"] != macro.TypeNFCI {
		t.Fatalf("get: status %d, payload %v", resp.StatusCode, payload)
	}

	resp, payload = do(t, app, http.MethodPatch, target, `{"value":-0.45,"region":"us"}`)
	if resp.StatusCode != http.StatusOK || payload["value"] != -0.45 {
		t.Fatalf("patch: status %d, payload %v", resp.StatusCode, payload)
	}

	resp, _ = do(t, app, http.MethodPatch, target, `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = do(t, app, http.MethodGet, "/api/indicators/records/999", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing record: expected 404, got %d", resp.StatusCode)
	}

	resp, _ = do(t, app, http.MethodGet, "/api/indicators/records/abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", resp.StatusCode)
	}
}

// vanishingRepo reports every delete as already gone, the way a row removed
// by a concurrent writer would.
type vanishingRepo struct {
	*store.MemoryStore
}

func (r vanishingRepo) Delete(_ context.Context, rec *macro.IndicatorRecord) error {
	return fmt.Errorf("delete indicator %d: %w", rec.ID, macro.ErrIndicatorNotFound)
}

func (r vanishingRepo) Transaction(ctx context.Context, fn func(tx macro.Repository) error) error {
	return r.MemoryStore.Transaction(ctx, func(tx macro.Repository) error {
		return fn(vanishingRepo{tx.(*store.MemoryStore)})
	})
}

func TestFetchStoreStorageNotFoundIsServerError(t *testing.T) {
	mem := store.NewMemoryStore()
	ts, _ := time.Parse(time.DateOnly, "2024-03-31")
	if _, err := mem.Create(context.Background(), macro.NewIndicator{Type: macro.TypeCrudeOil, Name: "CRUDE_OIL_FUTURES", Value: 80, DateTime: ts, Region: macro.RegionUS}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := macro.NewService(vanishingRepo{mem}, macro.Sources{Market: fakeMarket{}}, macro.ServiceConfig{
		Now: func() time.Time { return fixedNow },
	})
	app := fiber.New()
	RegisterRoutes(app, svc)

	resp, payload := do(t, app, http.MethodPost, "/api/indicators/fetch-store/commodities", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a storage failure, got %d (%v)", resp.StatusCode, payload)
	}
}

func TestPatchOntoTakenDayIsRejected(t *testing.T) {
	app, mem := newTestApp(t, macro.Sources{}, nil)
	seed(t, mem, macro.TypeTreasury10Y, 4.4, "2024-03-01", macro.RegionUS)
	rec := seed(t, mem, macro.TypeTreasury10Y, 4.5, "2024-03-02", macro.RegionUS)

	resp, _ := do(t, app, http.MethodPatch, "/api/indicators/records/"+itoa(rec.ID), `{"date_time":"2024-03-01T10:00:00Z"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	recs, _ := mem.ListByType(context.Background(), macro.TypeTreasury10Y)
	if len(recs) != 2 {
		t.Fatalf("expected both rows to survive, got %+v", recs)
	}
}

func TestParseTimeEndOfDay(t *testing.T) {
	got, err := parseTime("2024-01-31", true)
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	want := time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = parseTime("2024-01-31", false)
	if err != nil || !got.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start bound: got %v, %v", got, err)
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
