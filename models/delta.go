package models

// PriceChange pairs the prior and current state of a listing whose
// normalized price moved between two snapshots.
type PriceChange struct {
	Old *Article
	New *Article
}

// Delta classifies the difference between two listing snapshots of one
// complex. Matching key is the article number.
type Delta struct {
	Added        []*Article
	Removed      []*Article
	PriceChanged []PriceChange
	Unchanged    int
}

// Empty reports whether nothing changed.
func (d *Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.PriceChanged) == 0
}
