package macro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/macro/series"
)

// DefaultLookbackDays is the window used when a caller gives no dates.
const DefaultLookbackDays = 180

const fetchAllLockKey = "macro:fetch-store-all"

// LatestDatePolicy decides which timestamp a scalar "latest" value is stored under.
type LatestDatePolicy string

const (
	// LatestDateFetchTime stores latest values at the time of the fetch.
	LatestDateFetchTime LatestDatePolicy = "fetch_time"
	// LatestDateObservation stores latest values at the provider's observation date.
	LatestDateObservation LatestDatePolicy = "observation"
)

// Locker provides a best-effort mutual exclusion across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// ServiceConfig tunes a Service. Zero values select the defaults.
type ServiceConfig struct {
	LatestDatePolicy LatestDatePolicy
	LookbackDays     int
	Locker           Locker
	LockTTL          time.Duration
	Now              func() time.Time
}

// Service orchestrates fetching indicator families from providers and
// persisting them through the repository.
type Service struct {
	repo     Repository
	src      Sources
	policy   LatestDatePolicy
	lookback int
	locker   Locker
	lockTTL  time.Duration
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(repo Repository, src Sources, cfg ServiceConfig) *Service {
	s := &Service{
		repo:     repo,
		src:      src,
		policy:   cfg.LatestDatePolicy,
		lookback: cfg.LookbackDays,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		now:      cfg.Now,
	}
	if s.policy == "" {
		s.policy = LatestDateFetchTime
	}
	if s.lookback <= 0 {
		s.lookback = DefaultLookbackDays
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 30 * time.Minute
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// DefaultWindow returns the lookback window ending today.
func (s *Service) DefaultWindow() (time.Time, time.Time) {
	return common.DayRange(s.now(), s.lookback)
}

func errNoSource(family string) error {
	return fmt.Errorf("no provider configured for %s", family)
}

// FetchAndStoreLeadingIndicators stores the full windowed series of the
// leading indices.
func (s *Service) FetchAndStoreLeadingIndicators(ctx context.Context, start, end time.Time) error {
	if s.src.Economic == nil {
		return errNoSource(FamilyLeadingIndicators)
	}
	data := s.src.Economic.LeadingIndicators(ctx, start, end)
	return s.saveSeries(ctx, FamilyLeadingIndicators, data)
}

// FetchAndStoreTreasuryYields stores the latest yields and their spreads.
func (s *Service) FetchAndStoreTreasuryYields(ctx context.Context, start, end time.Time) error {
	if s.src.Economic == nil {
		return errNoSource(FamilyTreasuryYields)
	}
	data := s.src.Economic.TreasuryYieldsAndSpreads(ctx, start, end)
	return s.saveLatest(ctx, FamilyTreasuryYields, data)
}

// FetchAndStoreYieldCurveHistory stores every yield and spread observation
// in the window.
func (s *Service) FetchAndStoreYieldCurveHistory(ctx context.Context, start, end time.Time) error {
	if s.src.Economic == nil {
		return errNoSource(FamilyYieldCurveHistory)
	}
	data := s.src.Economic.TreasuryYieldSeries(ctx, start, end)
	return s.saveSeries(ctx, FamilyYieldCurveHistory, data)
}

// FetchAndStoreConsumerIndices stores the latest consumer indices.
func (s *Service) FetchAndStoreConsumerIndices(ctx context.Context, start, end time.Time) error {
	if s.src.Economic == nil {
		return errNoSource(FamilyConsumerIndices)
	}
	data := s.src.Economic.ConsumerIndices(ctx, start, end)
	return s.saveLatest(ctx, FamilyConsumerIndices, data)
}

// FetchAndStoreFinancialConditions stores the latest financial conditions indices.
func (s *Service) FetchAndStoreFinancialConditions(ctx context.Context, start, end time.Time) error {
	if s.src.Economic == nil {
		return errNoSource(FamilyFinancialConditions)
	}
	data := s.src.Economic.FinancialConditionIndices(ctx, start, end)
	return s.saveLatest(ctx, FamilyFinancialConditions, data)
}

// FetchAndStorePMI stores the latest US PMI readings.
func (s *Service) FetchAndStorePMI(ctx context.Context, start, end time.Time) error {
	if s.src.Country == nil {
		return errNoSource(FamilyPMI)
	}
	data := s.src.Country.PMIIndicators(ctx, start, end)
	return s.saveLatest(ctx, FamilyPMI, data)
}

// FetchAndStoreCommodities stores the latest commodity futures closes.
func (s *Service) FetchAndStoreCommodities(ctx context.Context, start, end time.Time) error {
	if s.src.Market == nil {
		return errNoSource(FamilyCommodities)
	}
	data := s.src.Market.CommodityPrices(ctx, start, end)
	return s.saveLatest(ctx, FamilyCommodities, data)
}

// FetchAndStoreChinaIndicators stores the latest China macro readings.
func (s *Service) FetchAndStoreChinaIndicators(ctx context.Context, start, end time.Time) error {
	if s.src.Country == nil {
		return errNoSource(FamilyChinaIndicators)
	}
	data := s.src.Country.ChinaIndicators(ctx, start, end)
	return s.saveLatest(ctx, FamilyChinaIndicators, data)
}

func (s *Service) fetcher(family string) (func(context.Context, time.Time, time.Time) error, bool) {
	switch family {
	case FamilyLeadingIndicators:
		return s.FetchAndStoreLeadingIndicators, true
	case FamilyTreasuryYields:
		return s.FetchAndStoreTreasuryYields, true
	case FamilyYieldCurveHistory:
		return s.FetchAndStoreYieldCurveHistory, true
	case FamilyConsumerIndices:
		return s.FetchAndStoreConsumerIndices, true
	case FamilyFinancialConditions:
		return s.FetchAndStoreFinancialConditions, true
	case FamilyPMI:
		return s.FetchAndStorePMI, true
	case FamilyCommodities:
		return s.FetchAndStoreCommodities, true
	case FamilyChinaIndicators:
		return s.FetchAndStoreChinaIndicators, true
	}
	return nil, false
}

// FetchAndStore runs the named family over [start, end].
func (s *Service) FetchAndStore(ctx context.Context, family string, start, end time.Time) error {
	fn, ok := s.fetcher(family)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}
	slog.InfoContext(ctx, "fetching indicator family",
		"family", family, "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
	return fn(ctx, start, end)
}

// FetchAndStoreAll runs every family in catalog order. It reports per-family
// success and returns the first error encountered; later families still run.
func (s *Service) FetchAndStoreAll(ctx context.Context, start, end time.Time) (map[string]bool, error) {
	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, fetchAllLockKey, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire fetch lock: %w", err)
		}
		if !ok {
			return nil, ErrFetchInProgress
		}
		defer unlock()
	}

	results := make(map[string]bool, len(families))
	var firstErr error
	for _, name := range FamilyNames() {
		if err := s.FetchAndStore(ctx, name, start, end); err != nil {
			slog.ErrorContext(ctx, "indicator family failed", "family", name, "error", err)
			results[name] = false
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		results[name] = true
	}
	return results, firstErr
}

func (s *Service) saveSeries(ctx context.Context, familyName string, data SeriesGroup) error {
	fam, _ := LookupFamily(familyName)

	saved := 0
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		for _, ind := range fam.Indicators {
			for _, obs := range data[ind.Type] {
				if err := upsert(ctx, tx, fam, ind, obs.Value, obs.Date); err != nil {
					return fmt.Errorf("save %s at %s: %w", ind.Type, common.DayKey(obs.Date), err)
				}
				saved++
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "saving indicator series failed", "family", fam.Name, "error", err)
		return err
	}
	slog.InfoContext(ctx, "saved indicator records", "family", fam.Name, "count", saved)
	return nil
}

func (s *Service) saveLatest(ctx context.Context, familyName string, data LatestGroup) error {
	fam, _ := LookupFamily(familyName)
	fetchedAt := s.now()

	saved := 0
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		for _, ind := range fam.Indicators {
			obs := data[ind.Type]
			if obs == nil {
				slog.WarnContext(ctx, "indicator unavailable", "family", fam.Name, "type", ind.Type)
				continue
			}
			if err := upsert(ctx, tx, fam, ind, obs.Value, s.latestDate(obs, fetchedAt)); err != nil {
				return fmt.Errorf("save %s: %w", ind.Type, err)
			}
			saved++
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "saving latest indicators failed", "family", fam.Name, "error", err)
		return err
	}
	slog.InfoContext(ctx, "saved indicator records", "family", fam.Name, "count", saved)
	return nil
}

func (s *Service) latestDate(obs *series.Observation, fetchedAt time.Time) time.Time {
	if s.policy == LatestDateObservation && !obs.Date.IsZero() {
		return obs.Date
	}
	return fetchedAt
}

// upsert replaces the record of ind on date's calendar day.
func upsert(ctx context.Context, repo Repository, fam Family, ind Indicator, value float64, date time.Time) error {
	existing, err := repo.FindByTypeAndDate(ctx, ind.Type, date)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := repo.Delete(ctx, existing); err != nil {
			return err
		}
	}
	_, err = repo.Create(ctx, NewIndicator{
		Type:               ind.Type,
		Name:               ind.Name,
		Value:              value,
		DateTime:           date.UTC(),
		IsLeadingIndicator: fam.Leading,
		Region:             fam.Region,
	})
	return err
}

// GetAllIndicators returns the region's records in [start, end] keyed by
// type. When a type has several records the latest one wins.
func (s *Service) GetAllIndicators(ctx context.Context, region Region, start, end time.Time) (map[string]IndicatorDetail, error) {
	recs, err := s.repo.FindByRegionDateRange(ctx, start, end, region)
	if err != nil {
		return nil, fmt.Errorf("find %s indicators: %w", region, err)
	}
	slog.DebugContext(ctx, "retrieved indicators", "region", region, "count", len(recs))
	return IndexByType(recs)
}

// GetAllUSIndicators returns US indicators in [start, end] keyed by type.
func (s *Service) GetAllUSIndicators(ctx context.Context, start, end time.Time) (map[string]IndicatorDetail, error) {
	return s.GetAllIndicators(ctx, RegionUS, start, end)
}

// GetAllChinaIndicators returns China indicators in [start, end] keyed by type.
func (s *Service) GetAllChinaIndicators(ctx context.Context, start, end time.Time) (map[string]IndicatorDetail, error) {
	return s.GetAllIndicators(ctx, RegionChina, start, end)
}

// GetIndicatorHistory returns every record of the region in [start, end]
// grouped by type, each list ascending by date.
func (s *Service) GetIndicatorHistory(ctx context.Context, region Region, start, end time.Time) (map[string][]IndicatorDetail, error) {
	recs, err := s.repo.FindByRegionDateRange(ctx, start, end, region)
	if err != nil {
		return nil, fmt.Errorf("find %s indicator history: %w", region, err)
	}
	return GroupByType(recs)
}

// GetLatestIndicators returns the most recent record of each type in the region.
func (s *Service) GetLatestIndicators(ctx context.Context, region Region) (map[string]IndicatorDetail, error) {
	latest, err := s.repo.GetLatestByRegion(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("latest %s indicators: %w", region, err)
	}
	out := make(map[string]IndicatorDetail, len(latest))
	for typ, rec := range latest {
		d, err := toDetail(rec)
		if err != nil {
			return nil, err
		}
		out[typ] = d
	}
	return out, nil
}

// GetIndicator returns one record by id.
func (s *Service) GetIndicator(ctx context.Context, id uint64) (*IndicatorRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrIndicatorNotFound
	}
	return rec, nil
}

// UpdateIndicator applies upd to the record with the given id.
func (s *Service) UpdateIndicator(ctx context.Context, id uint64, upd IndicatorUpdate) (*IndicatorRecord, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if !errors.Is(err, ErrIndicatorNotFound) {
			slog.ErrorContext(ctx, "updating indicator failed", "id", id, "error", err)
		}
		return nil, err
	}
	return rec, nil
}
