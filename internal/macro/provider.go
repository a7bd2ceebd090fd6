package macro

import (
	"context"
	"time"
)

// EconomicDataSource is the FRED-shaped source of US economic series.
// Implementations never return errors: failed sub-indicators are nil.
type EconomicDataSource interface {
	LeadingIndicators(ctx context.Context, start, end time.Time) SeriesGroup
	TreasuryYieldsAndSpreads(ctx context.Context, start, end time.Time) LatestGroup
	TreasuryYieldSeries(ctx context.Context, start, end time.Time) SeriesGroup
	ConsumerIndices(ctx context.Context, start, end time.Time) LatestGroup
	FinancialConditionIndices(ctx context.Context, start, end time.Time) LatestGroup
}

// CountryIndicatorSource serves survey and national-statistics indicators.
type CountryIndicatorSource interface {
	PMIIndicators(ctx context.Context, start, end time.Time) LatestGroup
	ChinaIndicators(ctx context.Context, start, end time.Time) LatestGroup
}

// MarketDataSource serves exchange-traded prices.
type MarketDataSource interface {
	CommodityPrices(ctx context.Context, start, end time.Time) LatestGroup
}

// Sources bundles the providers the service pulls from.
type Sources struct {
	Economic EconomicDataSource
	Country  CountryIndicatorSource
	Market   MarketDataSource
}

// Repository is the persistence contract for indicator records. Every call
// runs in its own session; Transaction scopes several calls to one unit of
// work that commits on nil and rolls back otherwise.
type Repository interface {
	Create(ctx context.Context, in NewIndicator) (*IndicatorRecord, error)
	// FindByTypeAndDate matches the UTC calendar day of date. It returns nil, nil when absent.
	FindByTypeAndDate(ctx context.Context, indicatorType string, date time.Time) (*IndicatorRecord, error)
	FindByRegionDateRange(ctx context.Context, start, end time.Time, region Region) ([]IndicatorRecord, error)
	Delete(ctx context.Context, rec *IndicatorRecord) error
	GetLatestByRegion(ctx context.Context, region Region) (map[string]IndicatorRecord, error)

	GetByID(ctx context.Context, id uint64) (*IndicatorRecord, error)
	ListByType(ctx context.Context, indicatorType string) ([]IndicatorRecord, error)
	ListByName(ctx context.Context, name string) ([]IndicatorRecord, error)
	Update(ctx context.Context, id uint64, upd IndicatorUpdate) (*IndicatorRecord, error)

	Transaction(ctx context.Context, fn func(tx Repository) error) error
}
