package series

import (
	"math"
	"testing"
	"time"
)

func day(s string) time.Time {
	ts, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func ptr(f float64) *float64 { return &f }

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"fred missing marker", ".", 0, false},
		{"empty string", "", 0, false},
		{"numeric string", "4.25", 4.25, true},
		{"garbage", "n/a", 0, false},
		{"nan string", "NaN", 0, false},
		{"float", 1.5, 1.5, true},
		{"int", 3, 3, true},
		{"nil pointer", (*float64)(nil), 0, false},
		{"pointer", ptr(2.5), 2.5, true},
		{"nan", math.NaN(), 0, false},
		{"inf", math.Inf(1), 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("ToFloat(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-03-01", "2024-03-01T00:00:00", "2024-03-01T00:00:00Z", "1709251200"} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): unexpected error: %v", in, err)
		}
		if !got.Equal(day("2024-03-01")) {
			t.Fatalf("ParseDate(%q) = %v", in, got)
		}
	}
	if _, err := ParseDate("March 1st"); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}

func TestNormalizeDropsMissingAndSorts(t *testing.T) {
	raw := []RawPoint{
		{Date: day("2024-01-03"), Value: "3"},
		{Date: day("2024-01-01"), Value: "1"},
		{Date: day("2024-01-02"), Value: "."},
		{Date: day("2024-01-04"), Value: nil},
		{Date: day("2023-12-31"), Value: "0"},
	}

	got := Normalize(raw, day("2024-01-01"), day("2024-01-31"))
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d: %v", len(got), got)
	}
	if !got[0].Date.Equal(day("2024-01-01")) || got[0].Value != 1 {
		t.Fatalf("unexpected first observation: %+v", got[0])
	}
	if !got[1].Date.Equal(day("2024-01-03")) || got[1].Value != 3 {
		t.Fatalf("unexpected second observation: %+v", got[1])
	}
}

func TestNormalizeWindowIsInclusive(t *testing.T) {
	raw := []RawPoint{
		{Date: day("2024-01-01"), Value: 1.0},
		{Date: day("2024-01-31"), Value: 2.0},
	}
	got := Normalize(raw, day("2024-01-01"), day("2024-01-31"))
	if len(got) != 2 {
		t.Fatalf("expected both boundary rows, got %v", got)
	}
}

func TestNormalizeAbsentWhenEmpty(t *testing.T) {
	raw := []RawPoint{{Date: day("2024-01-01"), Value: "."}}
	if got := Normalize(raw, day("2024-01-01"), day("2024-01-31")); got != nil {
		t.Fatalf("expected nil series, got %v", got)
	}
	if _, ok := Latest(nil, day("2024-01-01"), day("2024-01-31")); ok {
		t.Fatalf("expected no latest observation")
	}
}

func TestNormalizeDeduplicatesByDay(t *testing.T) {
	raw := []RawPoint{
		{Date: day("2024-01-02"), Value: 1.0},
		{Date: day("2024-01-02").Add(6 * time.Hour), Value: 2.0},
	}
	got := Normalize(raw, day("2024-01-01"), day("2024-01-31"))
	if len(got) != 1 || got[0].Value != 2 {
		t.Fatalf("expected last row of the day to win, got %v", got)
	}
}

func TestLatest(t *testing.T) {
	raw := []RawPoint{
		{Date: day("2024-01-05"), Value: "4.1"},
		{Date: day("2024-01-10"), Value: "."},
		{Date: day("2024-01-08"), Value: "4.3"},
	}
	obs, ok := Latest(raw, day("2024-01-01"), day("2024-01-31"))
	if !ok {
		t.Fatalf("expected a latest observation")
	}
	if !obs.Date.Equal(day("2024-01-08")) || obs.Value != 4.3 {
		t.Fatalf("unexpected latest: %+v", obs)
	}
}

func TestSpreadUsesSharedDatesOnly(t *testing.T) {
	a := Series{
		{Date: day("2024-01-01"), Value: 4.0},
		{Date: day("2024-01-02"), Value: 4.2},
		{Date: day("2024-01-03"), Value: 4.4},
	}
	b := Series{
		{Date: day("2024-01-02"), Value: 4.0},
		{Date: day("2024-01-03"), Value: 4.1},
		{Date: day("2024-01-04"), Value: 4.5},
	}

	got := Spread(a, b)
	if len(got) != 2 {
		t.Fatalf("expected 2 aligned points, got %v", got)
	}
	if !got[0].Date.Equal(day("2024-01-02")) || !got[1].Date.Equal(day("2024-01-03")) {
		t.Fatalf("unexpected dates: %v", got)
	}
	if math.Abs(got[0].Value-0.2) > 1e-9 || math.Abs(got[1].Value-0.3) > 1e-9 {
		t.Fatalf("unexpected values: %v", got.Values())
	}
}

func TestSpreadAbsentWithoutOverlap(t *testing.T) {
	a := Series{{Date: day("2024-01-01"), Value: 1}}
	b := Series{{Date: day("2024-01-02"), Value: 1}}
	if got := Spread(a, b); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := Spread(nil, b); got != nil {
		t.Fatalf("expected nil for absent operand, got %v", got)
	}
}

func TestSpreadLatest(t *testing.T) {
	a := &Observation{Date: day("2024-01-05"), Value: 4.5}
	b := &Observation{Date: day("2024-01-04"), Value: 4.1}

	got := SpreadLatest(a, b)
	if got == nil || math.Abs(got.Value-0.4) > 1e-9 || !got.Date.Equal(a.Date) {
		t.Fatalf("unexpected spread: %+v", got)
	}
	if SpreadLatest(a, nil) != nil {
		t.Fatalf("expected nil spread when an operand is absent")
	}
}
