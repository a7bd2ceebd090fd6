package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hushenglang/investment-dashboard/internal/common"
	"github.com/hushenglang/investment-dashboard/internal/macro"
)

// IndicatorRepository is the gorm-backed macro.Repository.
type IndicatorRepository struct {
	db *gorm.DB
}

func NewIndicatorRepository(db *gorm.DB) *IndicatorRepository {
	return &IndicatorRepository{db: db}
}

func (r *IndicatorRepository) Create(ctx context.Context, in macro.NewIndicator) (*macro.IndicatorRecord, error) {
	rec := &macro.IndicatorRecord{
		Type:               in.Type,
		Name:               in.Name,
		Value:              in.Value,
		DateTime:           in.DateTime.UTC(),
		IsLeadingIndicator: in.IsLeadingIndicator,
		Region:             in.Region,
		CreationDataTime:   r.db.NowFunc(),
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create indicator %s: %w", in.Type, err)
	}
	return rec, nil
}

func (r *IndicatorRepository) FindByTypeAndDate(ctx context.Context, indicatorType string, date time.Time) (*macro.IndicatorRecord, error) {
	var rec macro.IndicatorRecord
	err := r.db.WithContext(ctx).
		Where("type = ? AND date_time >= ? AND date_time <= ?", indicatorType, common.StartOfDay(date), common.EndOfDay(date)).
		Order("id").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s on %s: %w", indicatorType, common.DayKey(date), err)
	}
	return &rec, nil
}

func (r *IndicatorRepository) FindByRegionDateRange(ctx context.Context, start, end time.Time, region macro.Region) ([]macro.IndicatorRecord, error) {
	var recs []macro.IndicatorRecord
	err := r.db.WithContext(ctx).
		Where("region = ? AND date_time >= ? AND date_time <= ?", region, start.UTC(), end.UTC()).
		Order("date_time").Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find %s indicators in range: %w", region, err)
	}
	return recs, nil
}

func (r *IndicatorRepository) Delete(ctx context.Context, rec *macro.IndicatorRecord) error {
	res := r.db.WithContext(ctx).Delete(&macro.IndicatorRecord{}, rec.ID)
	if res.Error != nil {
		return fmt.Errorf("delete indicator %d: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete indicator %d: %w", rec.ID, macro.ErrIndicatorNotFound)
	}
	return nil
}

func (r *IndicatorRepository) GetLatestByRegion(ctx context.Context, region macro.Region) (map[string]macro.IndicatorRecord, error) {
	latest := r.db.Model(&macro.IndicatorRecord{}).
		Select("type, MAX(date_time) AS max_date_time").
		Where("region = ?", region).
		Group("type")

	var recs []macro.IndicatorRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN (?) AS latest ON latest.type = macro_indicator.type AND latest.max_date_time = macro_indicator.date_time", latest).
		Where("macro_indicator.region = ?", region).
		Order("macro_indicator.id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("latest %s indicators: %w", region, err)
	}

	out := make(map[string]macro.IndicatorRecord, len(recs))
	for _, rec := range recs {
		out[rec.Type] = rec
	}
	return out, nil
}

func (r *IndicatorRepository) GetByID(ctx context.Context, id uint64) (*macro.IndicatorRecord, error) {
	var rec macro.IndicatorRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get indicator %d: %w", id, err)
	}
	return &rec, nil
}

func (r *IndicatorRepository) ListByType(ctx context.Context, indicatorType string) ([]macro.IndicatorRecord, error) {
	var recs []macro.IndicatorRecord
	err := r.db.WithContext(ctx).Where("type = ?", indicatorType).Order("date_time").Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list indicators of type %s: %w", indicatorType, err)
	}
	return recs, nil
}

func (r *IndicatorRepository) ListByName(ctx context.Context, name string) ([]macro.IndicatorRecord, error) {
	var recs []macro.IndicatorRecord
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("date_time").Order("id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list indicators named %s: %w", name, err)
	}
	return recs, nil
}

func (r *IndicatorRepository) Update(ctx context.Context, id uint64, upd macro.IndicatorUpdate) (*macro.IndicatorRecord, error) {
	changes := map[string]any{}
	if upd.Name != nil {
		changes["name"] = *upd.Name
	}
	if upd.Value != nil {
		changes["value"] = *upd.Value
	}
	if upd.DateTime != nil {
		changes["date_time"] = upd.DateTime.UTC()
	}
	if upd.IsLeadingIndicator != nil {
		changes["is_leading_indicator"] = *upd.IsLeadingIndicator
	}
	if upd.Region != nil {
		changes["region"] = *upd.Region
	}

	var rec macro.IndicatorRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return macro.ErrIndicatorNotFound
			}
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if upd.DateTime != nil {
			other, err := (&IndicatorRepository{db: tx}).FindByTypeAndDate(ctx, rec.Type, *upd.DateTime)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return dayTakenError(rec.Type, *upd.DateTime)
			}
		}
		if err := tx.Model(&rec).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&rec, id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update indicator %d: %w", id, err)
	}
	return &rec, nil
}

// dayTakenError rejects moving a record onto a day its type already has.
func dayTakenError(indicatorType string, date time.Time) error {
	return fmt.Errorf("%w: %s already has a record on %s", macro.ErrInvalidUpdate, indicatorType, common.DayKey(date))
}

// Transaction runs fn inside a database transaction. gorm commits when fn
// returns nil and rolls back on error or panic.
func (r *IndicatorRepository) Transaction(ctx context.Context, fn func(tx macro.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&IndicatorRepository{db: tx})
	})
}
