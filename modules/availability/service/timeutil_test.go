package service

import (
	"testing"

	"welllink-api/core/errors"
)

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:00", 540},
		{"9:05", 545},
		{"14:30:00", 870},
		{"23:59", 1439},
	}

	for _, tt := range tests {
		got, appErr := TimeToMinutes(tt.in)
		if appErr != nil {
			t.Fatalf("TimeToMinutes(%q) unexpected error: %v", tt.in, appErr)
		}
		if got != tt.want {
			t.Fatalf("TimeToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeToMinutes_Invalid(t *testing.T) {
	inputs := []string{"", "930", "9:5", "24:00", "12:60", "ab:cd", "12:34:56:78", "123:00", "12:34:zz", "12:34:60", "12:34:5"}

	for _, in := range inputs {
		_, appErr := TimeToMinutes(in)
		if appErr == nil {
			t.Fatalf("TimeToMinutes(%q) expected error, got none", in)
		}
		if appErr.Code != errors.ErrInvalidTimeFormat {
			t.Fatalf("TimeToMinutes(%q) code = %s, want %s", in, appErr.Code, errors.ErrInvalidTimeFormat)
		}
	}
}

func TestMinutesToClock(t *testing.T) {
	hour, minute := MinutesToClock(995)
	if hour != 16 || minute != 35 {
		t.Fatalf("MinutesToClock(995) = %d:%d, want 16:35", hour, minute)
	}

	if got := FormatMinutes(540); got != "09:00" {
		t.Fatalf("FormatMinutes(540) = %q, want \"09:00\"", got)
	}
	if got := FormatMinutes(0); got != "00:00" {
		t.Fatalf("FormatMinutes(0) = %q, want \"00:00\"", got)
	}
}
