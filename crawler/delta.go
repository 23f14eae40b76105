package crawler

import "danji_watch/models"

// DetectDelta compares two snapshots of one complex's listings keyed by
// article number. A listing present in both with a different normalized deal
// price counts as a price change, not an add/remove pair.
func DetectDelta(previous, current []*models.Article) *models.Delta {
	prevByNo := make(map[string]*models.Article, len(previous))
	for _, a := range previous {
		prevByNo[a.ArticleNo] = a
	}

	delta := &models.Delta{}
	seen := make(map[string]bool, len(current))
	for _, cur := range current {
		seen[cur.ArticleNo] = true
		old, ok := prevByNo[cur.ArticleNo]
		if !ok {
			delta.Added = append(delta.Added, cur)
			continue
		}
		if old.DealPriceMan != cur.DealPriceMan {
			delta.PriceChanged = append(delta.PriceChanged, models.PriceChange{Old: old, New: cur})
		} else {
			delta.Unchanged++
		}
	}
	for _, old := range previous {
		if !seen[old.ArticleNo] {
			delta.Removed = append(delta.Removed, old)
		}
	}
	return delta
}
