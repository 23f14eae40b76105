package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"danji_watch/models"
)

const resultFilePattern = "complexes_*.json"

// FindLatestResultFile returns the newest worker artifact in dataDir by
// modification time. The worker names every artifact complexes_<timestamp>.json
// but the timestamp format is its own business, so mtime decides.
func FindLatestResultFile(dataDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, resultFilePattern))
	if err != nil {
		return "", fmt.Errorf("scan result dir %s: %w", dataDir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no result files in %s", dataDir)
	}

	var newest string
	var newestMod int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = path
			newestMod = mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no readable result files in %s", dataDir)
	}
	return newest, nil
}

// LoadLatestResults reads the newest artifact and returns its valid entries
// plus human-readable notes for entries that had to be skipped.
func LoadLatestResults(dataDir string) ([]*models.CrawlResultEntry, []string, string, error) {
	path, err := FindLatestResultFile(dataDir)
	if err != nil {
		return nil, nil, "", err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, path, fmt.Errorf("read result file %s: %w", path, err)
	}

	var entries []*models.CrawlResultEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, path, fmt.Errorf("parse result file %s: %w", path, err)
	}

	var valid []*models.CrawlResultEntry
	var notes []string
	for i, entry := range entries {
		if entry == nil || (entry.Overview == nil && entry.Articles == nil) {
			notes = append(notes, fmt.Sprintf("entry %d: no overview and no articles", i))
			continue
		}
		if entry.ComplexNo() == "" {
			notes = append(notes, fmt.Sprintf("entry %d: missing complex number", i))
			continue
		}
		valid = append(valid, entry)
	}
	return valid, notes, path, nil
}
