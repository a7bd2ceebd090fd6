package macro

import (
	"fmt"

	"github.com/jinzhu/copier"
)

func toDetail(rec IndicatorRecord) (IndicatorDetail, error) {
	var d IndicatorDetail
	if err := copier.Copy(&d, &rec); err != nil {
		return IndicatorDetail{}, fmt.Errorf("copy indicator %d: %w", rec.ID, err)
	}
	return d, nil
}

// IndexByType collapses records to one detail per type. Records are expected
// in ascending date order, so the most recent record of each type wins.
func IndexByType(recs []IndicatorRecord) (map[string]IndicatorDetail, error) {
	out := make(map[string]IndicatorDetail, len(recs))
	for _, rec := range recs {
		d, err := toDetail(rec)
		if err != nil {
			return nil, err
		}
		out[rec.Type] = d
	}
	return out, nil
}

// GroupByType keeps every record, grouped by type in input order.
func GroupByType(recs []IndicatorRecord) (map[string][]IndicatorDetail, error) {
	out := make(map[string][]IndicatorDetail)
	for _, rec := range recs {
		d, err := toDetail(rec)
		if err != nil {
			return nil, err
		}
		out[rec.Type] = append(out[rec.Type], d)
	}
	return out, nil
}
