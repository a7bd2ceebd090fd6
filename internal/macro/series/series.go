// Package series turns raw provider rows into clean, windowed time series.
//
// Raw rows are dated, filtered to an inclusive window, coerced to float64,
// stripped of missing values, de-duplicated per calendar day and sorted
// ascending. A series with no remaining rows is reported as absent (nil).
package series

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/hushenglang/investment-dashboard/internal/common"
)

// Observation is one dated numeric value.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an ascending, day-unique list of observations.
type Series []Observation

// RawPoint is a provider row before normalization. Value may be a string,
// a number, a pointer to a number or nil.
type RawPoint struct {
	Date  time.Time
	Value any
}

var errUnparseableDate = errors.New("unparseable date")

var dateLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.DateTime,
}

// ParseDate accepts the date encodings used by the providers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errUnparseableDate
}

// ToFloat coerces a raw provider value. Missing markers, NaN, infinities
// and anything that does not parse as a number report false.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case bool:
		return 0, false
	case *float64:
		if x == nil {
			return 0, false
		}
		return finite(*x)
	case string:
		x = strings.TrimSpace(x)
		if x == "" || x == "." {
			return 0, false
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Normalize filters raw to [start, end], drops missing values, keeps the
// last row per calendar day and sorts ascending. It returns nil when no
// rows remain.
func Normalize(raw []RawPoint, start, end time.Time) Series {
	byDay := make(map[string]Observation, len(raw))
	for _, p := range raw {
		if p.Date.IsZero() || p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		v, ok := ToFloat(p.Value)
		if !ok {
			continue
		}
		byDay[common.DayKey(p.Date)] = Observation{Date: p.Date.UTC(), Value: v}
	}
	if len(byDay) == 0 {
		return nil
	}

	out := make(Series, 0, len(byDay))
	for _, obs := range byDay {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Latest returns the most recent valid observation of raw within the window.
func Latest(raw []RawPoint, start, end time.Time) (Observation, bool) {
	return Normalize(raw, start, end).Last()
}

// Last returns the final observation of s.
func (s Series) Last() (Observation, bool) {
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, obs := range s {
		out[i] = obs.Value
	}
	return out
}

// Pair holds the values of two series on one shared day.
type Pair struct {
	Date time.Time
	A    float64
	B    float64
}

// Align inner-joins a and b on calendar day. The date of each pair is a's.
func Align(a, b Series) []Pair {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	index := make(map[string]float64, len(b))
	for _, obs := range b {
		index[common.DayKey(obs.Date)] = obs.Value
	}

	var out []Pair
	for _, obs := range a {
		if bv, ok := index[common.DayKey(obs.Date)]; ok {
			out = append(out, Pair{Date: obs.Date, A: obs.Value, B: bv})
		}
	}
	return out
}

// Spread returns a-b on the days both series share, or nil when they share
// none.
func Spread(a, b Series) Series {
	pairs := Align(a, b)
	if len(pairs) == 0 {
		return nil
	}
	out := make(Series, len(pairs))
	for i, p := range pairs {
		out[i] = Observation{Date: p.Date, Value: p.A - p.B}
	}
	return out
}

// SpreadLatest subtracts two latest observations. Both must be present; the
// result carries the later of the two dates.
func SpreadLatest(a, b *Observation) *Observation {
	if a == nil || b == nil {
		return nil
	}
	date := a.Date
	if b.Date.After(date) {
		date = b.Date
	}
	return &Observation{Date: date, Value: a.Value - b.Value}
}
