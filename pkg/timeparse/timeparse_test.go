package timeparse

import (
	"errors"
	"testing"
	"time"
)

func TestValid(t *testing.T) {
	for _, input := range []string{"24-12 18:30", "24/12 18:30", "01-06-2026 09:00", "01/06/2026 09:00", "18:30"} {
		if !Valid(input) {
			t.Fatalf("expected %q to be valid", input)
		}
	}
	for _, input := range []string{"", "tomorrow", "2026-06-01 09:00", "24-12", "9am"} {
		if Valid(input) {
			t.Fatalf("expected %q to be invalid", input)
		}
	}
}

func TestUTCStartFullLayout(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := UTCStart("01-06-2026 09:00", "UTC", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUTCStartShortLayoutFillsCurrentYear(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := UTCStart("24-12 18:30", "UTC", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 12, 24, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUTCStartSlashLayouts(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := UTCStart("01/06/2026 09:00", "UTC", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = UTCStart("24/12 18:30", "UTC", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want = time.Date(2026, 12, 24, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUTCStartBareTimeFillsToday(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := UTCStart("18:30", "UTC", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUTCStartConvertsTimezone(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Amsterdam is UTC+2 in June.
	got, err := UTCStart("01-06-2026 20:00", "Europe/Amsterdam", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUTCStartUnknownTimezoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got, err := UTCStart("01-06-2026 09:00", "Atlantis/Gone", now)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Hour() != 9 {
		t.Fatalf("expected UTC fallback, got %v", got)
	}
}

func TestUTCStartRejectsMalformedInput(t *testing.T) {
	now := time.Now()
	if _, err := UTCStart("next tuesday", "UTC", now); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestValidTimezone(t *testing.T) {
	if !ValidTimezone("Europe/Amsterdam") {
		t.Fatal("expected Europe/Amsterdam to be valid")
	}
	if ValidTimezone("") || ValidTimezone("Atlantis/Gone") {
		t.Fatal("expected invalid timezone names to be rejected")
	}
}
