package keywords

import "encoding/json"

// Keyword is a single normalized term and its accumulated weight.
type Keyword struct {
	Term   string  `json:"keyword"`
	Weight float64 `json:"weight"`
}

// WeightMap maps normalized keywords to accumulated weights.
// It remembers the order in which keys were first inserted; that order is only
// used as a stable tie-break when keywords of equal weight are sorted.
type WeightMap struct {
	index map[string]int
	items []Keyword
}

func newWeightMap() *WeightMap {
	return &WeightMap{index: make(map[string]int)}
}

func (w *WeightMap) add(term string, weight float64) {
	if idx, ok := w.index[term]; ok {
		w.items[idx].Weight += weight
		return
	}
	w.index[term] = len(w.items)
	w.items = append(w.items, Keyword{Term: term, Weight: weight})
}

// setIfAbsent inserts term only when no earlier rule produced it.
func (w *WeightMap) setIfAbsent(term string, weight float64) {
	if _, ok := w.index[term]; ok {
		return
	}
	w.add(term, weight)
}

// Len returns the number of distinct keywords.
func (w *WeightMap) Len() int {
	if w == nil {
		return 0
	}
	return len(w.items)
}

// Weight returns the weight of term and whether it is present.
func (w *WeightMap) Weight(term string) (float64, bool) {
	if w == nil {
		return 0, false
	}
	idx, ok := w.index[term]
	if !ok {
		return 0, false
	}
	return w.items[idx].Weight, true
}

// Has reports whether term is present.
func (w *WeightMap) Has(term string) bool {
	_, ok := w.Weight(term)
	return ok
}

// Keywords returns a copy of the entries in first-seen order.
func (w *WeightMap) Keywords() []Keyword {
	if w == nil {
		return []Keyword{}
	}
	out := make([]Keyword, len(w.items))
	copy(out, w.items)
	return out
}

// Total returns the sum of all weights.
func (w *WeightMap) Total() float64 {
	var total float64
	if w == nil {
		return total
	}
	for _, kw := range w.items {
		total += kw.Weight
	}
	return total
}

// MarshalJSON encodes the map as an ordered list of keyword/weight pairs.
func (w *WeightMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Keywords())
}

// UnmarshalJSON restores a map written by MarshalJSON, keeping the listed order.
// Repeated keywords are summed.
func (w *WeightMap) UnmarshalJSON(data []byte) error {
	var items []Keyword
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	w.index = make(map[string]int, len(items))
	w.items = make([]Keyword, 0, len(items))
	for _, kw := range items {
		w.add(kw.Term, kw.Weight)
	}
	return nil
}
