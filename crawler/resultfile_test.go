package crawler

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeResultFile(t *testing.T, dir, name, content string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestFindLatestResultFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeResultFile(t, dir, "complexes_old.json", "[]", now.Add(-time.Hour))
	want := writeResultFile(t, dir, "complexes_new.json", "[]", now)
	writeResultFile(t, dir, "unrelated.json", "[]", now.Add(time.Hour))

	got, err := FindLatestResultFile(dir)
	if err != nil {
		t.Fatalf("FindLatestResultFile: %v", err)
	}
	if got != want {
		t.Errorf("latest = %s, want %s", got, want)
	}
}

func TestFindLatestResultFileEmptyDir(t *testing.T) {
	if _, err := FindLatestResultFile(t.TempDir()); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestLoadLatestResults(t *testing.T) {
	dir := t.TempDir()
	content := `[
		{"overview": {"complexNo": "1001", "complexName": "테스트단지"},
		 "articles": {"articleList": [{"articleNo": "a1", "dealOrWarrantPrc": "5억"}]}},
		{"overview": null, "articles": null},
		{"articles": {"articleList": []}},
		{"crawling_info": {"complex_no": "1002"},
		 "articles": {"articleList": []}}
	]`
	writeResultFile(t, dir, "complexes_20260831.json", content, time.Now())

	entries, notes, path, err := LoadLatestResults(dir)
	if err != nil {
		t.Fatalf("LoadLatestResults: %v", err)
	}
	if path == "" {
		t.Error("artifact path not reported")
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (one skipped empty, one skipped without complex number)", len(entries))
	}
	if entries[0].ComplexNo() != "1001" {
		t.Errorf("entry 0 complex = %s, want 1001", entries[0].ComplexNo())
	}
	if entries[1].ComplexNo() != "1002" {
		t.Errorf("entry 1 complex = %s, want fallback 1002", entries[1].ComplexNo())
	}
	if len(notes) != 2 {
		t.Errorf("got %d skip notes, want 2: %v", len(notes), notes)
	}
}

func TestLoadLatestResultsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeResultFile(t, dir, "complexes_broken.json", "{not json", time.Now())

	if _, _, _, err := LoadLatestResults(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
