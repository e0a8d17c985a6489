package shared

import (
	"testing"
	"time"
)

func TestGranularity_PeriodStart(t *testing.T) {
	tests := []struct {
		name        string
		granularity Granularity
		input       time.Time
		expected    time.Time
	}{
		{"monthly mid month", Monthly, time.Date(2024, 3, 17, 13, 5, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"monthly first day", Monthly, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"weekly wednesday", Weekly, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"weekly sunday", Weekly, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"weekly monday", Weekly, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.granularity.PeriodStart(tt.input)
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input    string
		expected Granularity
		wantErr  bool
	}{
		{"", Monthly, false},
		{"Monthly", Monthly, false},
		{"weekly", Weekly, false},
		{"daily", Monthly, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGranularity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}

	if Monthly.DaysPerPeriod() != 30 || Weekly.DaysPerPeriod() != 7 {
		t.Error("Unexpected days per period")
	}
}

func TestDaysToDuration(t *testing.T) {
	if got := DaysToDuration(1.5); got != 36*time.Hour {
		t.Errorf("Expected 36h, got %s", got)
	}
}
