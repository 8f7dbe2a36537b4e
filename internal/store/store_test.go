package store_test

import (
	"sort"
	"testing"
	"time"

	"streamlet/internal/store"
)

func TestFormatTimeSortsLexicographically(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	instants := []time.Time{
		base.Add(90 * time.Minute),
		base.Add(time.Nanosecond),
		base,
		base.Add(24 * time.Hour),
		base.Add(time.Second),
	}

	encoded := make([]string, len(instants))
	for i, instant := range instants {
		encoded[i] = store.FormatTime(instant)
	}
	sort.Strings(encoded)

	for i := 1; i < len(encoded); i++ {
		prev, err := store.ParseTime(encoded[i-1])
		if err != nil {
			t.Fatalf("ParseTime: %v", err)
		}
		next, err := store.ParseTime(encoded[i])
		if err != nil {
			t.Fatalf("ParseTime: %v", err)
		}
		if prev.After(next) {
			t.Fatalf("string order disagrees with time order: %q before %q", encoded[i-1], encoded[i])
		}
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	instant := time.Date(2026, 8, 28, 9, 30, 15, 123456789, time.UTC)
	parsed, err := store.ParseTime(store.FormatTime(instant))
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !parsed.Equal(instant) {
		t.Fatalf("round trip drifted: %v vs %v", parsed, instant)
	}
}

func TestProgressPercent(t *testing.T) {
	if got := (store.Progress{BytesSent: 50, BytesTotal: 200}).Percent(); got != 25 {
		t.Fatalf("percent = %v", got)
	}
	if got := (store.Progress{BytesSent: 10, BytesTotal: 0}).Percent(); got != 0 {
		t.Fatalf("unknown total percent = %v", got)
	}
	if got := (store.Progress{BytesSent: 300, BytesTotal: 200}).Percent(); got != 100 {
		t.Fatalf("overshoot percent = %v", got)
	}
}

func TestFieldExtractors(t *testing.T) {
	fields := map[string]any{
		"title":   "Clip",
		"count":   float64(3),
		"stamp":   store.FormatTime(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		"garbage": []string{"not", "scalar"},
	}

	if v, ok := store.StringField(fields, "title"); !ok || v != "Clip" {
		t.Fatalf("StringField: %v %v", v, ok)
	}
	if _, ok := store.StringField(fields, "count"); ok {
		t.Fatal("StringField accepted a number")
	}
	if v, ok := store.FloatField(fields, "count"); !ok || v != 3 {
		t.Fatalf("FloatField: %v %v", v, ok)
	}
	if _, ok := store.FloatField(fields, "garbage"); ok {
		t.Fatal("FloatField accepted a slice")
	}
	if _, ok := store.TimeField(fields, "stamp"); !ok {
		t.Fatal("TimeField rejected a valid stamp")
	}
	if _, ok := store.TimeField(fields, "title"); ok {
		t.Fatal("TimeField accepted a non-timestamp")
	}
}
