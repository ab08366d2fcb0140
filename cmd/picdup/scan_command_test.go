package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestPNG(t *testing.T, path string, seed uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: seed + uint8((x*3+y*7)%120)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func duplicateLibrary(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "a.png"), 10)
	src, err := os.ReadFile(filepath.Join(root, "a.png"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.png"), src, 0o644); err != nil {
		t.Fatalf("write copy: %v", err)
	}
	writeNoisePNG(t, filepath.Join(root, "unrelated.png"))
	return root
}

// writeNoisePNG produces content structurally unlike the gradient
// fixtures, so it never lands in their hash neighborhood.
func writeNoisePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/4+y/4)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			} else {
				img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 97)})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestScanPrintsDuplicateGroups(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", "")
	root := duplicateLibrary(t)

	out, err := runCommand(t, "scan", "--src", root, "--no-cache")
	if err != nil {
		t.Fatalf("scan: %v (output %q)", err, out)
	}
	if !strings.Contains(out, "a.png\nb.png\n\n") {
		t.Fatalf("expected a.png/b.png group, got %q", out)
	}
}

func TestScanEmptyDirectoryPrintsNothing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", "")

	out, err := runCommand(t, "scan", "--src", t.TempDir(), "--no-cache")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output for empty directory, got %q", out)
	}
}

func TestScanJSONReport(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", "")
	root := duplicateLibrary(t)

	out, err := runCommand(t, "scan", "--src", root, "--no-cache", "--json")
	if err != nil {
		t.Fatalf("scan --json: %v", err)
	}

	var report struct {
		Groups  [][]string `json:"groups"`
		Scanned int        `json:"scanned"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if report.Scanned != 3 {
		t.Fatalf("scanned = %d, want 3", report.Scanned)
	}
	if len(report.Groups) != 1 || len(report.Groups[0]) != 2 {
		t.Fatalf("unexpected groups: %v", report.Groups)
	}
}

func TestScanUsesCacheAcrossRuns(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", t.TempDir())
	root := duplicateLibrary(t)

	if _, err := runCommand(t, "scan", "--src", root); err != nil {
		t.Fatalf("first scan: %v", err)
	}

	out, err := runCommand(t, "scan", "--src", root, "--json")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	var report struct {
		CacheHits int `json:"cache_hits"`
		Hashed    int `json:"hashed"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if report.CacheHits != 3 || report.Hashed != 0 {
		t.Fatalf("second run should be served from cache: hits=%d hashed=%d", report.CacheHits, report.Hashed)
	}
}

func TestScanRejectsUnknownHash(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", "")

	if _, err := runCommand(t, "scan", "--src", t.TempDir(), "--no-cache", "--hash", "md5"); err == nil {
		t.Fatal("expected error for unknown hash algorithm")
	}
}

func TestScanRejectsNegativeDistance(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", "")

	if _, err := runCommand(t, "scan", "--src", t.TempDir(), "--no-cache", "-d", "-3"); err == nil {
		t.Fatal("expected error for negative hamming distance")
	}
}

func TestCacheStatsAfterScan(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", t.TempDir())
	root := duplicateLibrary(t)

	if _, err := runCommand(t, "scan", "--src", root); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, err := runCommand(t, "cache", "stats", "--json")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	var stats struct {
		Entries int64 `json:"Entries"`
		Runs    int64 `json:"Runs"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output is not JSON: %v (%q)", err, out)
	}
	if stats.Entries != 3 || stats.Runs != 1 {
		t.Fatalf("unexpected stats: entries=%d runs=%d", stats.Entries, stats.Runs)
	}
}

func TestCacheClear(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PICDUP_CACHE_DIR", t.TempDir())
	root := duplicateLibrary(t)

	if _, err := runCommand(t, "scan", "--src", root); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, err := runCommand(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 3") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}
