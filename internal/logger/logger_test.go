package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newLogFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "log.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() }) // nolint:errcheck
	return f
}

func TestLogger_Log(t *testing.T) {
	tmpFile := newLogFile(t)
	l := New(LevelInfo, tmpFile)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "crawling city",
			fields:  Fields{"url": "https://example.com/ca/fresno"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "fetched page",
			want:    false,
		},
		{
			name:    "warn with fields",
			level:   LevelWarn,
			message: "skipping city",
			fields:  Fields{"url": "https://example.com/ca/reno"},
			want:    true,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "index fetch failed",
			err:     errors.New("status 503"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := tmpFile.Seek(0, 2)

			l.log(tt.level, tt.message, tt.fields, tt.err)

			after, _ := tmpFile.Seek(0, 2)
			if logged := after > before; logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLogger_EntryShape(t *testing.T) {
	tmpFile := newLogFile(t)
	l := New(LevelDebug, tmpFile)

	l.Error("city failed", Fields{"url": "https://example.com/ca/x"}, errors.New("boom"))

	if _, err := tmpFile.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(tmpFile)
	if !scanner.Scan() {
		t.Fatal("no log line written")
	}

	var entry LogEntry
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry.Level != "ERROR" || entry.Message != "city failed" || entry.Error != "boom" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Fields["url"] != "https://example.com/ca/x" {
		t.Errorf("fields = %v", entry.Fields)
	}
	if _, err := time.Parse(time.RFC3339, entry.Timestamp); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", entry.Timestamp, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"Warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("pages.fetched")
	m.IncrCounter("pages.fetched")
	m.AddCounter("stores.extracted", 12)

	counters := m.GetSnapshot()["counters"].(map[string]int64)

	if counters["pages.fetched"] != 2 {
		t.Errorf("pages.fetched = %v, want 2", counters["pages.fetched"])
	}
	if counters["stores.extracted"] != 12 {
		t.Errorf("stores.extracted = %v, want 12", counters["stores.extracted"])
	}
}

func TestMetrics_Gauge(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("cities.discovered", 10)
	m.SetGauge("cities.discovered", 42)

	gauges := m.GetSnapshot()["gauges"].(map[string]float64)
	if gauges["cities.discovered"] != 42 {
		t.Errorf("gauge = %v, want 42", gauges["cities.discovered"])
	}
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("page.fetch", 100*time.Millisecond)
	m.RecordTiming("page.fetch", 200*time.Millisecond)
	m.RecordTiming("page.fetch", 150*time.Millisecond)

	timings := m.GetSnapshot()["timings"].(map[string]map[string]interface{})
	fetch := timings["page.fetch"]

	if fetch["count"].(int) != 3 {
		t.Errorf("count = %v, want 3", fetch["count"])
	}
	if fetch["min"].(string) != "100ms" {
		t.Errorf("min = %v, want 100ms", fetch["min"])
	}
	if fetch["max"].(string) != "200ms" {
		t.Errorf("max = %v, want 200ms", fetch["max"])
	}
	if fetch["average"].(string) != "150ms" {
		t.Errorf("average = %v, want 150ms", fetch["average"])
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	SetDefault(New(LevelDebug, newLogFile(t)))
	t.Cleanup(func() { SetDefault(New(LevelInfo, os.Stderr)) })

	Debug("test debug", nil)
	Info("test info", Fields{"key": "value"})
	Warn("test warning", nil)
	Error("test error", Fields{"component": "test"}, errors.New("test"))

	IncrCounter("test")
	AddCounter("test", 2)
	SetGauge("test", 42.0)
	RecordTiming("test", time.Second)

	snapshot := GetMetricsSnapshot()
	if snapshot == nil {
		t.Fatal("GetMetricsSnapshot() returned nil")
	}
	if snapshot["counters"].(map[string]int64)["test"] < 3 {
		t.Error("package-level counter not recorded")
	}
}
