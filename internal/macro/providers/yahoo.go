package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/macro/series"
)

const yahooUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var commoditySymbols = []struct {
	Type   string
	Symbol string
}{
	{macro.TypeCrudeOil, "CL=F"},
	{macro.TypeGold, "GC=F"},
}

// YahooFinanceClient reads daily closes from the Yahoo Finance chart API.
type YahooFinanceClient struct {
	name     string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuits *breakerSet
}

func NewYahooFinanceClient(client *http.Client, backoff BackoffConfig) *YahooFinanceClient {
	return &YahooFinanceClient{
		name:     "yahoo",
		baseURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
		httpCfg:  newHTTPClientConfig(client, backoff),
		circuits: newBreakerSet("yahoo"),
	}
}

func (c *YahooFinanceClient) Name() string {
	return c.name
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Closes returns the daily close series of symbol within [start, end].
func (c *YahooFinanceClient) Closes(ctx context.Context, symbol string, start, end time.Time) (series.Series, error) {
	from, to := window(start, end)

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuits.get(symbol), func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("User-Agent", yahooUserAgent).
			SetQueryParams(map[string]string{
				"period1":  strconv.FormatInt(from.Unix(), 10),
				"period2":  strconv.FormatInt(to.Unix(), 10),
				"interval": "1d",
			}).
			Get(c.baseURL + "/" + url.PathEscape(symbol))
	})
	if err != nil {
		return nil, err
	}

	var payload yahooChartResponse
	if err := decode(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errEmptyResponse
	}

	result := payload.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	raw := make([]series.RawPoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		raw = append(raw, series.RawPoint{Date: time.Unix(ts, 0).UTC(), Value: closes[i]})
	}
	return series.Normalize(raw, from, to), nil
}

func (c *YahooFinanceClient) CommodityPrices(ctx context.Context, start, end time.Time) macro.LatestGroup {
	out := make(macro.LatestGroup, len(commoditySymbols))
	for _, sym := range commoditySymbols {
		closes, err := c.Closes(ctx, sym.Symbol, start, end)
		if err != nil {
			slog.WarnContext(ctx, "provider request failed", "provider", c.name, "symbol", sym.Symbol, "error", err)
			out[sym.Type] = nil
			continue
		}
		if obs, ok := closes.Last(); ok {
			out[sym.Type] = &obs
		} else {
			out[sym.Type] = nil
		}
	}
	return out
}
