package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hushenglang/investment-dashboard/internal/macro"
	"github.com/hushenglang/investment-dashboard/internal/macro/series"
)

// teIndicator maps a stored type to the Trading Economics indicator name.
type teIndicator struct {
	Type      string
	Indicator string
}

var usPMIIndicators = []teIndicator{
	{macro.TypeManufacturingPMI, "ISM Manufacturing PMI"},
	{macro.TypeServicesPMI, "ISM Services PMI"},
	{macro.TypeCompositePMI, "Composite PMI"},
}

var chinaIndicators = []teIndicator{
	{macro.TypeCNGDPGrowth, "GDP Annual Growth Rate"},
	{macro.TypeCNIndustrialProduction, "Industrial Production"},
	{macro.TypeCNRetailSales, "Retail Sales YoY"},
	{macro.TypeCNFixedAssetInvestment, "Fixed Asset Investment"},
	{macro.TypeCNExports, "Exports YoY"},
	{macro.TypeCNImports, "Imports YoY"},
	{macro.TypeCNCPI, "Inflation Rate"},
	{macro.TypeCNPPI, "Producer Prices Change"},
	{macro.TypeCNUnemployment, "Unemployment Rate"},
	{macro.TypeCNManufacturingPMI, "Manufacturing PMI"},
	{macro.TypeCNNonManufacturingPMI, "Non Manufacturing PMI"},
	{macro.TypeCNSocialFinancing, "Total Social Financing"},
	{macro.TypeCNM2, "Money Supply M2"},
	{macro.TypeCNLPR1Y, "Interest Rate"},
	{macro.TypeCNLPR5Y, "Loan Prime Rate 5Y"},
	{macro.TypeCNHousingIndex, "Housing Index"},
	{macro.TypeCNForeignReserves, "Foreign Exchange Reserves"},
}

// TradingEconomicsClient reads historical indicator values per country.
type TradingEconomicsClient struct {
	name     string
	apiKey   string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuits *breakerSet
}

func NewTradingEconomicsClient(client *http.Client, apiKey string, backoff BackoffConfig) (*TradingEconomicsClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tradingeconomics: %w", errMissingAPIKey)
	}
	return &TradingEconomicsClient{
		name:     "tradingeconomics",
		apiKey:   apiKey,
		baseURL:  "https://api.tradingeconomics.com",
		httpCfg:  newHTTPClientConfig(client, backoff),
		circuits: newBreakerSet("tradingeconomics"),
	}, nil
}

func (c *TradingEconomicsClient) Name() string {
	return c.name
}

type teHistoricalRow struct {
	Country  string   `json:"Country"`
	Category string   `json:"Category"`
	DateTime string   `json:"DateTime"`
	Value    *float64 `json:"Value"`
}

// Latest returns the most recent value of indicator for country within
// [start, end], or nil when none is available.
func (c *TradingEconomicsClient) Latest(ctx context.Context, country, indicator string, start, end time.Time) (*series.Observation, error) {
	from, to := window(start, end)
	endpoint := fmt.Sprintf("%s/historical/country/%s/indicator/%s",
		c.baseURL, url.PathEscape(country), url.PathEscape(indicator))

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuits.get(country+"/"+indicator), func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Authorization", "Client "+c.apiKey).
			SetQueryParams(map[string]string{
				"d1": from.Format(time.DateOnly),
				"d2": to.Format(time.DateOnly),
				"f":  "json",
			}).
			Get(endpoint)
	})
	if err != nil {
		return nil, err
	}

	var rows []teHistoricalRow
	if err := decode(resp, &rows); err != nil {
		return nil, err
	}

	raw := make([]series.RawPoint, 0, len(rows))
	for _, row := range rows {
		date, err := series.ParseDate(row.DateTime)
		if err != nil {
			continue
		}
		raw = append(raw, series.RawPoint{Date: date, Value: row.Value})
	}
	obs, ok := series.Latest(raw, from, to)
	if !ok {
		return nil, nil
	}
	return &obs, nil
}

func (c *TradingEconomicsClient) latestGroup(ctx context.Context, country string, indicators []teIndicator, start, end time.Time) macro.LatestGroup {
	out := make(macro.LatestGroup, len(indicators))
	for _, ind := range indicators {
		obs, err := c.Latest(ctx, country, ind.Indicator, start, end)
		if err != nil {
			slog.WarnContext(ctx, "provider request failed",
				"provider", c.name, "country", country, "indicator", ind.Indicator, "error", err)
		}
		out[ind.Type] = obs
	}
	return out
}

func (c *TradingEconomicsClient) PMIIndicators(ctx context.Context, start, end time.Time) macro.LatestGroup {
	return c.latestGroup(ctx, "United States", usPMIIndicators, start, end)
}

func (c *TradingEconomicsClient) ChinaIndicators(ctx context.Context, start, end time.Time) macro.LatestGroup {
	return c.latestGroup(ctx, "China", chinaIndicators, start, end)
}
