package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/macro/series"
)

// FredClient reads series observations from the St. Louis Fed FRED API.
type FredClient struct {
	name     string
	apiKey   string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuits *breakerSet
}

func NewFredClient(client *http.Client, apiKey string, backoff BackoffConfig) (*FredClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("fred: %w", errMissingAPIKey)
	}
	return &FredClient{
		name:     "fred",
		apiKey:   apiKey,
		baseURL:  "https://api.stlouisfed.org/fred",
		httpCfg:  newHTTPClientConfig(client, backoff),
		circuits: newBreakerSet("fred"),
	}, nil
}

func (c *FredClient) Name() string {
	return c.name
}

type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Series fetches seriesID over [start, end] and normalizes it. A nil series
// with a nil error means the window holds no valid observations.
func (c *FredClient) Series(ctx context.Context, seriesID string, start, end time.Time) (series.Series, error) {
	from, to := window(start, end)

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuits.get(seriesID), func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetQueryParams(map[string]string{
				"series_id":         seriesID,
				"api_key":           c.apiKey,
				"file_type":         "json",
				"observation_start": from.Format(time.DateOnly),
				"observation_end":   to.Format(time.DateOnly),
			}).
			Get(c.baseURL + "/series/observations")
	})
	if err != nil {
		return nil, err
	}

	var payload fredObservationsResponse
	if err := decode(resp, &payload); err != nil {
		return nil, err
	}

	raw := make([]series.RawPoint, 0, len(payload.Observations))
	for _, obs := range payload.Observations {
		date, err := series.ParseDate(obs.Date)
		if err != nil {
			continue
		}
		raw = append(raw, series.RawPoint{Date: date, Value: obs.Value})
	}
	return series.Normalize(raw, from, to), nil
}

// seriesOrNil swallows provider failures, which surface as absent data.
func (c *FredClient) seriesOrNil(ctx context.Context, seriesID string, start, end time.Time) series.Series {
	s, err := c.Series(ctx, seriesID, start, end)
	if err != nil {
		slog.WarnContext(ctx, "provider request failed", "provider", c.name, "series", seriesID, "error", err)
		return nil
	}
	if s == nil {
		slog.InfoContext(ctx, "no observations in window", "provider", c.name, "series", seriesID)
	}
	return s
}

func (c *FredClient) latest(ctx context.Context, seriesID string, start, end time.Time) *series.Observation {
	obs, ok := c.seriesOrNil(ctx, seriesID, start, end).Last()
	if !ok {
		return nil
	}
	return &obs
}

func (c *FredClient) LeadingIndicators(ctx context.Context, start, end time.Time) macro.SeriesGroup {
	return macro.SeriesGroup{
		macro.TypeUSLeadingIndex:  c.seriesOrNil(ctx, macro.TypeUSLeadingIndex, start, end),
		macro.TypeBBKLeadingIndex: c.seriesOrNil(ctx, macro.TypeBBKLeadingIndex, start, end),
	}
}

func (c *FredClient) TreasuryYieldsAndSpreads(ctx context.Context, start, end time.Time) macro.LatestGroup {
	y3m := c.latest(ctx, macro.TypeTreasury3M, start, end)
	y2 := c.latest(ctx, macro.TypeTreasury2Y, start, end)
	y10 := c.latest(ctx, macro.TypeTreasury10Y, start, end)

	return macro.LatestGroup{
		macro.TypeTreasury3M:  y3m,
		macro.TypeTreasury2Y:  y2,
		macro.TypeTreasury10Y: y10,
		macro.TypeSpread10Y2Y: series.SpreadLatest(y10, y2),
		macro.TypeSpread10Y3M: series.SpreadLatest(y10, y3m),
	}
}

// TreasuryYieldSeries returns the yield series and spreads aligned on the
// days both maturities were quoted.
func (c *FredClient) TreasuryYieldSeries(ctx context.Context, start, end time.Time) macro.SeriesGroup {
	y3m := c.seriesOrNil(ctx, macro.TypeTreasury3M, start, end)
	y2 := c.seriesOrNil(ctx, macro.TypeTreasury2Y, start, end)
	y10 := c.seriesOrNil(ctx, macro.TypeTreasury10Y, start, end)

	return macro.SeriesGroup{
		macro.TypeTreasury3M:  y3m,
		macro.TypeTreasury2Y:  y2,
		macro.TypeTreasury10Y: y10,
		macro.TypeSpread10Y2Y: series.Spread(y10, y2),
		macro.TypeSpread10Y3M: series.Spread(y10, y3m),
	}
}

func (c *FredClient) ConsumerIndices(ctx context.Context, start, end time.Time) macro.LatestGroup {
	return macro.LatestGroup{
		macro.TypeConsumerCred:  c.latest(ctx, macro.TypeConsumerCred, start, end),
		macro.TypeConsumerSent:  c.latest(ctx, macro.TypeConsumerSent, start, end),
		macro.TypeDisposableInc: c.latest(ctx, macro.TypeDisposableInc, start, end),
	}
}

func (c *FredClient) FinancialConditionIndices(ctx context.Context, start, end time.Time) macro.LatestGroup {
	return macro.LatestGroup{
		macro.TypeNFCI:  c.latest(ctx, macro.TypeNFCI, start, end),
		macro.TypeANFCI: c.latest(ctx, macro.TypeANFCI, start, end),
	}
}
