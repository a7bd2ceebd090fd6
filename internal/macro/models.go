package macro

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hushenglang/investment-dashboard/internal/macro/series"
)

// Region scopes indicators to an economy.
type Region string

const (
	RegionUS    Region = "US"
	RegionChina Region = "CHINA"
)

// ParseRegion maps a path segment such as "us" or "china" to a Region.
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToUpper(s)) {
	case RegionUS:
		return RegionUS, nil
	case RegionChina:
		return RegionChina, nil
	}
	return "", ErrUnknownRegion
}

// IndicatorRecord is one stored observation of one indicator.
// At most one record exists per (Type, calendar day of DateTime).
type IndicatorRecord struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type               string    `gorm:"column:type;size:100;not null;index:idx_macro_indicator_type_date,priority:1" json:"type"`
	Name               string    `gorm:"column:name;size:100;not null" json:"name"`
	Value              float64   `gorm:"column:value;not null" json:"value"`
	DateTime           time.Time `gorm:"column:date_time;not null;index:idx_macro_indicator_type_date,priority:2;index:idx_macro_indicator_region_date,priority:2" json:"date_time"`
	IsLeadingIndicator bool      `gorm:"column:is_leading_indicator;not null" json:"is_leading_indicator"`
	Region             Region    `gorm:"column:region;size:20;not null;index:idx_macro_indicator_region_date,priority:1" json:"region"`
	CreationDataTime   time.Time `gorm:"column:creation_data_time;not null" json:"creation_data_time"`
}

func (IndicatorRecord) TableName() string {
	return "macro_indicator"
}

// NewIndicator carries the fields needed to create a record.
type NewIndicator struct {
	Type               string
	Name               string
	Value              float64
	DateTime           time.Time
	IsLeadingIndicator bool
	Region             Region
}

// IndicatorUpdate lists the mutable fields of a record. Nil fields are left
// unchanged.
type IndicatorUpdate struct {
	Name               *string
	Value              *float64
	DateTime           *time.Time
	IsLeadingIndicator *bool
	Region             *Region
}

// Empty reports whether the update changes nothing.
func (u IndicatorUpdate) Empty() bool {
	return u.Name == nil && u.Value == nil && u.DateTime == nil &&
		u.IsLeadingIndicator == nil && u.Region == nil
}

// IndicatorDetail is the API view of a record.
type IndicatorDetail struct {
	Type               string    `json:"type"`
	Name               string    `json:"name"`
	Value              float64   `json:"value"`
	DateTime           time.Time `json:"date_time"`
	IsLeadingIndicator bool      `json:"is_leading_indicator"`
	Region             Region    `json:"region"`
}

// LatestGroup maps a sub-indicator key to its latest observation; nil means
// the provider had nothing usable.
type LatestGroup map[string]*series.Observation

// SeriesGroup maps a sub-indicator key to its windowed series; nil means
// absent.
type SeriesGroup map[string]series.Series

// Validate rejects empty updates and values that cannot be stored.
func (u IndicatorUpdate) Validate() error {
	if u.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidUpdate)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidUpdate)
	}
	if u.Value != nil && (math.IsNaN(*u.Value) || math.IsInf(*u.Value, 0)) {
		return fmt.Errorf("%w: value must be finite", ErrInvalidUpdate)
	}
	if u.DateTime != nil && u.DateTime.IsZero() {
		return fmt.Errorf("%w: date_time must be set", ErrInvalidUpdate)
	}
	if u.Region != nil {
		if _, err := ParseRegion(string(*u.Region)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
	}
	return nil
}
