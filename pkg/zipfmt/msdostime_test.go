package zipfmt

import (
	"testing"
	"time"
)

func TestPackUnpackTimeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
	}{
		{"epoch-ish", time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"ordinary", time.Date(2021, time.June, 15, 13, 42, 30, 0, time.UTC)},
		{"odd second truncates to even", time.Date(2021, time.June, 15, 13, 42, 31, 0, time.UTC)},
		{"end of range", time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, tm := PackTime(tt.t)
			got := UnpackTime(date, tm, time.UTC)

			if got.Year() != tt.t.Year() || got.Month() != tt.t.Month() || got.Day() != tt.t.Day() {
				t.Errorf("date round trip = %v, want date parts of %v", got, tt.t)
			}
			if got.Hour() != tt.t.Hour() || got.Minute() != tt.t.Minute() {
				t.Errorf("time round trip = %v, want time parts of %v", got, tt.t)
			}
			wantSecond := (tt.t.Second() / 2) * 2
			if got.Second() != wantSecond {
				t.Errorf("second = %d, want %d (2-second resolution)", got.Second(), wantSecond)
			}
		})
	}
}

func TestPackTimeClampsPre1980(t *testing.T) {
	old := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	date, tm := PackTime(old)
	got := UnpackTime(date, tm, time.UTC)
	if got.Year() != 1980 {
		t.Errorf("clamped year = %d, want 1980", got.Year())
	}
}

func TestPackMillis(t *testing.T) {
	millis := time.Date(2021, time.June, 15, 13, 42, 30, 0, time.UTC).UnixMilli()
	date, tm := PackMillis(millis)
	got := UnpackTime(date, tm, time.UTC)
	if got.Year() != 2021 || got.Month() != time.June || got.Day() != 15 {
		t.Errorf("PackMillis round trip = %v", got)
	}
}
