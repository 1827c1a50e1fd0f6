package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const storeCard = `<div class="c-location-grid-item">
	<script type="application/ld+json">{
		"name": "Taco Bell",
		"telephone": "(559) 555-0199",
		"address": {"streetAddress": "654 Fresno St", "addressLocality": "Fresno", "addressRegion": "CA", "postalCode": "93721"},
		"geo": {"latitude": 36.7378, "longitude": -119.7871}
	}</script>
	<ul><li class="c-servicelist-label">Drive-Thru</li></ul>
</div>`

func newSite(t *testing.T, indexStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ca.html", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(indexStatus)
		fmt.Fprint(w, `<html><body><a href="/ca/fresno/">Fresno</a></body></html>`)
	})
	mux.HandleFunc("/ca/fresno/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>"+storeCard+"</body></html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func runRoot(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TB_BASE_URL", baseURL)
	t.Setenv("TB_LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestRootCmd_Crawl(t *testing.T) {
	server := newSite(t, http.StatusOK)
	out := filepath.Join(t.TempDir(), "full.csv")

	stdout, err := runRoot(t, server.URL, "--out", out)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 2 {
		t.Fatalf("got %d lines, want header + 1", len(rows))
	}
	want := []string{"Taco Bell", "654 Fresno St", "Fresno", "CA", "93721", "(559) 555-0199", "36.7378", "-119.7871", "yes", "no", "no", "no"}
	if strings.Join(rows[1], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", rows[1], want)
	}
	if !strings.Contains(stdout, "Scraped 1 stores from 1 cities") {
		t.Errorf("summary = %q", stdout)
	}
}

func TestRootCmd_IndexFailureWritesSample(t *testing.T) {
	server := newSite(t, http.StatusInternalServerError)
	out := filepath.Join(t.TempDir(), "full.csv")

	stdout, err := runRoot(t, server.URL, "--out", out, "--format", "json")
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 11 {
		t.Errorf("got %d lines, want header + 10 sample rows", len(rows))
	}

	var result OutputResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, stdout)
	}
	if !result.Fallback || result.IndexError == "" || result.Rows != 10 {
		t.Errorf("result = %+v", result)
	}
}

func TestRootCmd_MergesExisting(t *testing.T) {
	server := newSite(t, http.StatusOK)
	dir := t.TempDir()
	existing := filepath.Join(dir, "partial.csv")
	out := filepath.Join(dir, "full.csv")

	content := "ADDRESS,CITY,LATITUDE,LONGITUDE\n654 Fresno Street,Fresno,36.7378,-119.7871\n1 Other Rd,Clovis,,\n"
	if err := os.WriteFile(existing, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, server.URL, existing, "--out", out); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows := readRows(t, out)
	if len(rows) != 3 {
		t.Fatalf("got %d lines, want header + 2", len(rows))
	}
	if rows[1][1] != "654 Fresno Street" {
		t.Errorf("existing row should win, got %q", rows[1][1])
	}
	if rows[2][1] != "1 Other Rd" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestRootCmd_IndexFailureMergesSampleWithExisting(t *testing.T) {
	server := newSite(t, http.StatusServiceUnavailable)
	dir := t.TempDir()
	existing := filepath.Join(dir, "partial.csv")
	out := filepath.Join(dir, "full.csv")

	content := "name,address,city,latitude,longitude\n" +
		"Taco Bell,1 Union Sq,San Francisco,37.7749,-122.4194\n" +
		"Taco Bell,1 Other Rd,Clovis,,\n"
	if err := os.WriteFile(existing, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runRoot(t, server.URL, existing, "--out", out); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	rows := readRows(t, out)
	// 2 existing rows, then the 9 sample rows whose coordinates are new
	if len(rows) != 12 {
		t.Fatalf("got %d lines, want header + 11", len(rows))
	}
	if rows[1][1] != "1 Union Sq" || rows[2][1] != "1 Other Rd" {
		t.Errorf("existing rows should come first, got %v / %v", rows[1], rows[2])
	}
	for _, row := range rows[3:] {
		if row[1] == "123 Main St" {
			t.Error("sample row sharing coordinates with an existing row should be dropped")
		}
	}
	if rows[3][1] != "456 Market St" {
		t.Errorf("first sample row = %v, want 456 Market St", rows[3])
	}
}

func TestRootCmd_Errors(t *testing.T) {
	server := newSite(t, http.StatusOK)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"--format", "xml", "--out", filepath.Join(dir, "a.csv")}},
		{"too many args", []string{"a.csv", "b.csv"}},
		{"unwritable output", []string{"--out", filepath.Join(os.DevNull, "out.csv")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runRoot(t, server.URL, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteOutput(t *testing.T) {
	tests := []struct {
		name    string
		result  *OutputResult
		verbose bool
		want    []string
	}{
		{
			name:   "crawl summary",
			result: &OutputResult{Path: "out.csv", Rows: 12, Scraped: 12, Cities: 3, FailedCities: []string{"https://x/ca/a/"}},
			want:   []string{"Saved 12 rows → out.csv", "Scraped 12 stores from 3 cities (1 failed)"},
		},
		{
			name:   "fallback after index error",
			result: &OutputResult{Path: "out.csv", Rows: 10, Fallback: true, IndexError: "status 503"},
			want:   []string{"State index unavailable (status 503); wrote sample data."},
		},
		{
			name:   "fallback with no stores",
			result: &OutputResult{Path: "out.csv", Rows: 10, Fallback: true},
			want:   []string{"No stores scraped; wrote sample data."},
		},
		{
			name:    "verbose with merge and metrics",
			verbose: true,
			result: &OutputResult{
				Path: "out.csv", Rows: 5, Scraped: 4, Cities: 2, Merged: true, Existing: 3,
				FailedCities: []string{"https://x/ca/b/"},
				Metrics:      map[string]interface{}{"counters": map[string]int64{"pages.fetched": 7}},
			},
			want: []string{"Merged with 3 existing rows", "FAILED: https://x/ca/b/", "pages.fetched", "7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteOutput(&buf, tt.result, FormatText, tt.verbose); err != nil {
				t.Fatalf("WriteOutput() error: %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}

	if err := WriteOutput(&bytes.Buffer{}, &OutputResult{}, OutputFormat("xml"), false); err == nil {
		t.Error("expected error for unknown format")
	}
}
